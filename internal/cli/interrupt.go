package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptHandler layers a friendly shutdown message over signal handling
// for long-running commands.
type InterruptHandler struct {
	writer      io.Writer
	interrupted bool
	keepsCache  bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a new interrupt handler. A nil writer defaults
// to stdout.
func NewInterruptHandler(writer io.Writer) *InterruptHandler {
	if writer == nil {
		writer = os.Stdout
	}
	return &InterruptHandler{
		writer: writer,
	}
}

// HandleInterrupts sets up signal handling and returns a context that will be
// canceled on interrupt. keepsCache selects the message shown: warming keeps
// whatever was fetched before the interrupt arrived.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context, keepsCache bool) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	h.keepsCache = keepsCache

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			h.mu.Lock()
			if !h.interrupted {
				h.interrupted = true
				h.showInterruptMessage()
			}
			h.mu.Unlock()
			cancel()
		case <-ctx.Done():
			// Parent finished on its own; put the signals back.
			signal.Stop(sigChan)
		}
	}()

	return ctx
}

// showInterruptMessage displays a friendly interrupt message.
func (h *InterruptHandler) showInterruptMessage() {
	msg := "\n\n" + FormatWarning("Warm-up interrupted!")

	if h.keepsCache {
		msg += "\n" + FormatInfo("Entries fetched so far stay cached. Run 'ksync warm' again to finish.")
	}

	msg += "\n"

	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		// Best effort - we're shutting down anyway
		fmt.Fprintf(os.Stderr, "Failed to write interrupt message: %v\n", err)
	}
}

// WasInterrupted returns true if the process was interrupted.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}
