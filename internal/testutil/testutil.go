// Package testutil provides shared helpers for tests: a log-capturing
// context, a builder for temporary NeuroBlueprint project trees, and a fake
// processing backend.
package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/neuroinformatics-unit/spikewrap/internal/ctxlog"
)

// SafeBuffer is a goroutine-safe bytes.Buffer, for capturing log output from
// concurrent pipeline tasks.
type SafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// NewTestContext returns a context carrying a debug-level text logger that
// writes into the returned buffer.
func NewTestContext(t *testing.T) (context.Context, *SafeBuffer) {
	t.Helper()

	buf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctxlog.WithLogger(ctx, logger), buf
}
