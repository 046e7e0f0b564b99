package chrome

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportpdf/internal/config"
)

func testConfig(poolSize int) config.Config {
	cfg := config.Default()
	cfg.PDF.ChromePoolSize = poolSize
	cfg.PDF.UserDataDir = filepath.Join(os.TempDir(), "reportpdf-chrome-tests")
	cfg.PDF.TimeoutSecs = 1
	return cfg
}

func TestCreateProfileDir(t *testing.T) {
	cfg := testConfig(1)
	cfg.PDF.UserDataDir = ""
	dir, err := createProfileDir(cfg)
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	assert.DirExists(t, dir)

	base := t.TempDir()
	cfg.PDF.UserDataDir = base
	dir, err = createProfileDir(cfg)
	require.NoError(t, err)
	assert.Equal(t, base, filepath.Dir(dir))

	cfg.PDF.UserDataDir = "/dev/null/x"
	_, err = createProfileDir(cfg)
	assert.Error(t, err)
}

func TestPoolAcquireRelease(t *testing.T) {
	p := &Pool{sem: make(chan struct{}, 1), browserCtx: context.Background()}
	p.sem <- struct{}{}

	tab, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, tab)
	assert.Len(t, p.sem, 0)

	p.Release(tab, nil)
	assert.Len(t, p.sem, 1)

	p.closed = true
	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPoolAcquireHonoursContext(t *testing.T) {
	p := &Pool{sem: make(chan struct{}, 1), browserCtx: context.Background()}

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Acquire(canceled)
	assert.ErrorIs(t, err, context.Canceled)

	short, cancelShort := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelShort()
	_, err = p.Acquire(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPoolReleaseAfterFailureReturnsSlot(t *testing.T) {
	p := &Pool{sem: make(chan struct{}, 1), browserCtx: context.Background()}
	p.sem <- struct{}{}

	tab, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(tab, errors.New("print failed"))
	assert.Len(t, p.sem, 1)

	p.Release(nil, nil)
	assert.Len(t, p.sem, 1)
}

func TestPoolStatsAndClose(t *testing.T) {
	p := &Pool{sem: make(chan struct{}, 2), cfg: testConfig(2), profileDir: t.TempDir(), browserCtx: context.Background()}
	p.sem <- struct{}{}
	p.sem <- struct{}{}

	st := p.Stats(1)
	assert.True(t, st.Enabled)
	assert.Equal(t, 2, st.Capacity)
	assert.Equal(t, 2, st.Idle)
	assert.Equal(t, 2, st.PoolSizeConf)

	tab, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stats(1).InUse)
	p.Release(tab, nil)

	p.Close()
	p.Close()
	assert.False(t, p.Stats(1).Enabled)
}

func TestPoolRestart(t *testing.T) {
	closed := &Pool{closed: true}
	assert.ErrorIs(t, closed.Restart(), ErrPoolClosed)

	old := t.TempDir()
	p := &Pool{cfg: testConfig(1), sem: make(chan struct{}, 1), profileDir: old}
	p.sem <- struct{}{}

	require.NoError(t, p.Restart())
	assert.NotEmpty(t, p.profileDir)
	assert.NotEqual(t, old, p.profileDir)
	assert.Equal(t, 1, p.Stats(1).Restarts)
	assert.False(t, p.Stats(1).LastRestart.IsZero())
	p.Close()
}

func TestNewPool(t *testing.T) {
	_, err := NewPool(testConfig(0))
	assert.Error(t, err)

	cfg := testConfig(2)
	cfg.PDF.ChromePath = "/bin/true"
	p, err := NewPool(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stats(1).Idle)

	tab, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(tab, nil)
	p.Close()
}

func TestIsSessionInterrupted(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "context canceled", err: context.Canceled, want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "target closed", err: errors.New("target closed"), want: true},
		{name: "websocket", err: errors.New("websocket: close 1006"), want: true},
		{name: "normal error", err: errors.New("validation failed"), want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsSessionInterrupted(tc.err))
		})
	}
}
