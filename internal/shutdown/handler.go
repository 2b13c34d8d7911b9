package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Handler turns the first SIGINT or SIGTERM into a cancelled context so
// a batch run can stop between files.
type Handler struct {
	ctx        context.Context
	cancel     context.CancelFunc
	once       sync.Once
	cleanupFns []func()
	mu         sync.Mutex
	signals    chan os.Signal
}

// New creates a handler whose context derives from parent.
func New(parent context.Context) *Handler {
	ctx, cancel := context.WithCancel(parent)
	return &Handler{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context is cancelled on the first signal or on Shutdown.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// AddCleanup registers fn to run once on shutdown, in registration order.
func (h *Handler) AddCleanup(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanupFns = append(h.cleanupFns, fn)
}

// Listen starts watching for interrupts. onSignal, if not nil, runs before
// the context is cancelled. A second signal restores default handling, so
// pressing Ctrl-C again kills the process.
func (h *Handler) Listen(onSignal func(os.Signal)) {
	h.signals = make(chan os.Signal, 1)
	signal.Notify(h.signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-h.signals:
			signal.Stop(h.signals)
			if onSignal != nil {
				onSignal(sig)
			}
			h.Shutdown()
		case <-h.ctx.Done():
		}
	}()
}

// Shutdown cancels the context and runs cleanup functions once.
func (h *Handler) Shutdown() {
	h.once.Do(func() {
		h.cancel()

		h.mu.Lock()
		fns := h.cleanupFns
		h.mu.Unlock()

		for _, fn := range fns {
			fn()
		}
	})
}

// Stop releases the signal subscription without running cleanups.
func (h *Handler) Stop() {
	if h.signals != nil {
		signal.Stop(h.signals)
	}
	h.cancel()
}
