package cli

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"github.com/aretw0/lifecycle"
)

// RunEditInteractive runs an edit session on the terminal. Every line typed is
// an edit command; q, quit and exit end the session and so does an interrupt.
// Failing commands are reported and the session goes on. Pending changes are
// saved on the way out when opts.Save is set.
func RunEditInteractive(ctx context.Context, p *Project, path string, w io.Writer, opts EditOptions) error {
	e, err := openForEdit(ctx, p, path, opts.Create)
	if err != nil {
		return err
	}
	s := &session{p: p, e: e, w: w, echo: true}
	s.show()
	printSystemMessage(w, "Editing '%s'. Type 'help' for commands, 'q' to leave.", e.Path())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var interrupted atomic.Bool
	router := newEditRouter(s, func(interrupt bool) {
		if interrupt {
			interrupted.Store(true)
		}
		cancel()
	})
	if err := router.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if interrupted.Load() {
		printSystemMessage(w, "Interrupted.")
	}
	return s.finish(ctx, opts.Save)
}

// newEditRouter wires terminal input to s. stop is called once the session
// should end, with interrupt set when the user pressed Ctrl+C.
func newEditRouter(s *session, stop func(interrupt bool)) *lifecycle.Router {
	shutdown := lifecycle.ShutdownEvent{Reason: "manual"}
	return lifecycle.NewInteractiveRouter(
		lifecycle.WithDefaultHandler(editHandler(s)),
		lifecycle.WithInterruptHandler(lifecycle.HandlerFunc(func(_ context.Context, _ lifecycle.Event) error {
			stop(true)
			return nil
		})),
		lifecycle.WithShutdown(func() {
			stop(false)
		}),
		lifecycle.WithInputOptions(
			lifecycle.WithInputMappings(map[string]lifecycle.Event{
				"q":    shutdown,
				"quit": shutdown,
				"exit": shutdown,
			}),
		),
	)
}

// editHandler applies typed lines as edit commands. Errors are printed rather
// than returned so one bad command does not end the session.
func editHandler(s *session) lifecycle.HandlerFunc {
	return func(ctx context.Context, e lifecycle.Event) error {
		var line string
		switch ev := e.(type) {
		case lifecycle.LineEvent:
			line = ev.Line
		case lifecycle.InputEvent:
			line = ev.Command
		case lifecycle.UnknownCommandEvent:
			line = ev.Command
		default:
			return lifecycle.ErrNotHandled
		}
		if err := s.run(ctx, line); err != nil && !errors.Is(err, errQuit) {
			printSystemMessage(s.w, "%v", err)
		}
		return nil
	}
}
