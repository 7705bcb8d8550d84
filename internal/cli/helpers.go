package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/muesli/termenv"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
				// Context cancelled elsewhere
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// createLogger configures the application logger. Nothing is logged unless
// debug or JSON output is requested.
func createLogger(debug, logJSON bool) *slog.Logger {
	if !debug && !logJSON {
		return logging.NewNop()
	}
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	format := logging.FormatText
	if logJSON {
		format = logging.FormatJSON
	}
	return logging.New(level, logging.WithFormat(format))
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// colorProfile returns the color profile for w: plain text unless w is a
// terminal.
func colorProfile(w io.Writer) termenv.Profile {
	if f, ok := w.(*os.File); ok && tui.IsTerminal(f) {
		return termenv.ColorProfile()
	}
	return termenv.Ascii
}
