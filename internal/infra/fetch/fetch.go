// Package fetch downloads expense attachments so they can be embedded into
// reports.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"reportpdf/internal/config"
	"reportpdf/internal/infra/logging"
)

const maxRedirects = 3

// Fetcher downloads http(s) resources with bounded time, size and
// parallelism.
type Fetcher struct {
	timeout     time.Duration
	maxBytes    int
	concurrency int
}

// New returns a Fetcher configured from the fetch section.
func New(cfg config.Config) *Fetcher {
	return &Fetcher{
		timeout:     cfg.Fetch.Timeout,
		maxBytes:    cfg.Fetch.MaxBytes,
		concurrency: max(cfg.Fetch.Concurrency, 1),
	}
}

func allowed(link string) bool {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Get downloads one resource.
func (f *Fetcher) Get(link string) ([]byte, error) {
	link = strings.TrimSpace(link)
	if !allowed(link) {
		return nil, fmt.Errorf("fetch %q: only http and https links are allowed", link)
	}

	agent := fiber.Get(link).Timeout(f.timeout).MaxRedirectsCount(maxRedirects)
	if agent.HostClient != nil && f.maxBytes > 0 {
		agent.MaxResponseBodySize = f.maxBytes
	}
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("fetch %q: %w", link, errs[0])
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("fetch %q: status %d", link, code)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("fetch %q: empty body", link)
	}
	if f.maxBytes > 0 && len(body) > f.maxBytes {
		return nil, fmt.Errorf("fetch %q: body exceeds %d bytes", link, f.maxBytes)
	}
	return body, nil
}

// All downloads links in parallel and returns the successful bodies in link
// order. Failed links are logged and skipped.
func (f *Fetcher) All(ctx context.Context, links []string) [][]byte {
	if len(links) == 0 {
		return nil
	}
	out := make([][]byte, len(links))
	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, link := range links {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			body, err := f.Get(link)
			if err != nil {
				logging.Warn("Attachment skipped", "link", link, "error", err)
				return nil
			}
			out[i] = body
			return nil
		})
	}
	_ = g.Wait()

	bodies := out[:0]
	for _, b := range out {
		if b != nil {
			bodies = append(bodies, b)
		}
	}
	return bodies
}
