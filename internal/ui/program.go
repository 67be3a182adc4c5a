package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ProgramRunner runs a Bubble Tea program tied to a context.
type ProgramRunner struct {
	program *tea.Program
	ready   chan struct{}
	done    chan struct{}
	opts    []tea.ProgramOption
}

// NewProgramRunner creates a runner. Without options the program uses the
// alternate screen.
func NewProgramRunner(opts ...tea.ProgramOption) *ProgramRunner {
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &ProgramRunner{
		ready: make(chan struct{}),
		done:  make(chan struct{}),
		opts:  opts,
	}
}

// Run starts model and blocks until it exits or ctx is cancelled.
func (r *ProgramRunner) Run(ctx context.Context, model tea.Model) error {
	defer close(r.done)

	r.program = tea.NewProgram(model, append(r.opts, tea.WithContext(ctx))...)
	close(r.ready)

	errCh := make(chan error, 1)
	go func() {
		_, err := r.program.Run()
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		r.program.Quit()
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
			r.program.Kill()
			<-errCh
		}
		return nil
	}
}

// Send delivers msg once the program started. It drops the message after
// the program exited.
func (r *ProgramRunner) Send(msg tea.Msg) {
	select {
	case <-r.ready:
	case <-r.done:
		return
	}
	select {
	case <-r.done:
	default:
		r.program.Send(msg)
	}
}

// Done returns a channel that's closed when the program exits
func (r *ProgramRunner) Done() <-chan struct{} {
	return r.done
}
