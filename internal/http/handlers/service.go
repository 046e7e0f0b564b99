// Package handlers exposes the report endpoints. Each handler decodes and
// validates its payload, runs the merge pipeline and writes the PDF.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"reportpdf/internal/config"
	"reportpdf/internal/domain"
	"reportpdf/internal/infra/cache"
	"reportpdf/internal/infra/logging"
	"reportpdf/internal/pipeline"
	"reportpdf/internal/report"
)

// Fetcher downloads attachment links. Failed links are left out.
type Fetcher interface {
	All(ctx context.Context, links []string) [][]byte
}

// Service holds everything the report endpoints share.
type Service struct {
	Config   config.Config
	Pipeline *pipeline.Pipeline
	Reports  *report.Builder
	Fetcher  Fetcher
	// Cache may be nil.
	Cache *cache.PDFCache
	// Stats reports renderer statistics for /v1/chrome/stats; may be nil.
	Stats func() any
}

var errTooLarge = errors.New("payload too large")

// Register mounts the report routes on r.
func (s *Service) Register(r fiber.Router) {
	r.Post("/expensePdf/expense-pdf", s.HandleExpense)
	r.Post("/purchaseOrder/po-sheet", s.HandlePurchaseOrders)
	r.Post("/scopePdf/scope-pdf", s.HandleScopes)
	r.Post("/po-approve/po-approval-pdf", s.HandleApprovals)
	r.Post("/paymentHistory/payment-history-pdf", s.HandlePaymentHistory)
	r.Post("/projectSchedule/project-schedule-pdf", s.HandleSchedule)
	r.Post("/customerPayment/customer-payment-pdf", s.HandleCustomerSummary)
	r.Get("/chrome/stats", s.HandleChromeStats)
}

// HandleChromeStats reports renderer pool statistics.
func (s *Service) HandleChromeStats(c *fiber.Ctx) error {
	if s.Stats == nil {
		return c.JSON(fiber.Map{"engine": s.Config.PDF.Engine})
	}
	return c.JSON(s.Stats())
}

// decode reads the JSON body into v. Any decoding failure is a validation
// error.
func decode(c *fiber.Ctx, v any) error {
	if err := json.Unmarshal(c.Body(), v); err != nil {
		return domain.Validationf("Invalid request body: %v", err)
	}
	return nil
}

func (s *Service) checkCount(n int) error {
	if limit := s.Config.Limits.MaxRecords; limit > 0 && n > limit {
		return fmt.Errorf("%w: %d records exceed the limit of %d", errTooLarge, n, limit)
	}
	return nil
}

// respond serves a cached copy when possible, otherwise builds the PDF,
// enforces the size limit, caches and sends it.
func (s *Service) respond(c *fiber.Ctx, filename string, build func(ctx context.Context) ([]byte, error)) error {
	key := cache.Key(c.Path(), c.Body())
	if data, ok := s.Cache.Get(c.UserContext(), key); ok {
		return sendPDF(c, filename, data)
	}

	start := time.Now()
	pdf, err := build(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	if limit := s.Config.Limits.MaxPDFBytes; limit > 0 && len(pdf) > limit {
		return s.fail(c, fmt.Errorf("%w: PDF of %d bytes exceeds the limit of %d", errTooLarge, len(pdf), limit))
	}
	logging.Info("PDF generated", "path", c.Path(), "bytes", len(pdf), "duration_ms", time.Since(start).Milliseconds())

	s.Cache.Set(c.UserContext(), key, pdf)
	return sendPDF(c, filename, pdf)
}

func sendPDF(c *fiber.Ctx, filename string, pdf []byte) error {
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Set(fiber.HeaderContentLength, strconv.Itoa(len(pdf)))
	return c.Status(fiber.StatusOK).Send(pdf)
}

// fail writes the error payload for err: 400 for validation errors, 413 for
// exceeded limits and 500 for everything else.
func (s *Service) fail(c *fiber.Ctx, err error) error {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		logging.Warn("Request rejected", "path", c.Path(), "message", ve.Message)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": ve.Message})
	case errors.Is(err, errTooLarge):
		logging.Warn("Request too large", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"message": err.Error()})
	}

	kv := []any{"path", c.Path(), "error", err}
	if idx, ok := domain.RecordIndex(err); ok {
		kv = append(kv, "record", idx)
	}
	logging.Error("PDF generation failed", kv...)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": failureMessage(c.Path()),
		"error":   err.Error(),
	})
}

var failureMessages = map[string]string{
	"/v1/expensePdf/expense-pdf":               "Error generating PDF",
	"/v1/purchaseOrder/po-sheet":               "Error generating purchase order PDF",
	"/v1/scopePdf/scope-pdf":                   "Error generating scope PDF",
	"/v1/po-approve/po-approval-pdf":           "Error generating PO PDF",
	"/v1/paymentHistory/payment-history-pdf":   "Error generating payment history PDF",
	"/v1/projectSchedule/project-schedule-pdf": "Error generating project schedule PDF",
	"/v1/customerPayment/customer-payment-pdf": "Error generating customer payment PDF",
}

func failureMessage(path string) string {
	if msg, ok := failureMessages[path]; ok {
		return msg
	}
	return "Error generating PDF"
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// pdfName turns a record code into a safe Content-Disposition file name.
func pdfName(prefix, code string) string {
	code = unsafeFilename.ReplaceAllString(code, "_")
	if code == "" {
		return prefix + ".pdf"
	}
	return prefix + "_" + code + ".pdf"
}
