package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stewartpark/eks-network/infra"
)

// ErrCancelled is returned by Confirm when the user declines.
var ErrCancelled = errors.New("cancelled")

// OperationProgram drives the fullscreen view for one up or down run.
type OperationProgram struct {
	program   *tea.Program
	confirmCh chan bool
	exitErr   error
	exitMu    sync.Mutex
}

// NewOperationProgram creates the view for an up or down operation.
func NewOperationProgram(kind OpKind, info OpInfo, opts ...tea.ProgramOption) *OperationProgram {
	confirmCh := make(chan bool, 1)
	m := NewOperationModel(kind, info, confirmCh)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &OperationProgram{
		program:   tea.NewProgram(m, opts...),
		confirmCh: confirmCh,
	}
}

// Run shows the view, runs work in the background with the log pane as its
// writer and blocks until the user leaves the view. It returns work's error.
// A work function that returns ErrCancelled ends quietly.
func (p *OperationProgram) Run(work func(logs io.Writer) error) error {
	tuiDone := make(chan error, 1)
	go func() {
		_, err := p.program.Run()
		tuiDone <- err
	}()

	// Send blocks until the event loop is reading, so nothing below races
	// program startup.
	p.program.Send(opPhaseMsg{Phase: OpPhaseInit})

	logs := p.LogWriter()
	defer logs.Close()

	go func() {
		err := work(logs)
		if errors.Is(err, ErrCancelled) {
			return
		}
		p.done(err)
	}()

	if err := <-tuiDone; err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return p.ExitError()
}

// Step moves the view to phase with a spinner label.
func (p *OperationProgram) Step(phase OpPhase, label string) {
	p.program.Send(opPhaseMsg{Phase: phase})
	if label != "" {
		p.program.Send(opStepMsg{Label: label})
	}
}

// Confirm shows summary, if any, and waits for y or n.
func (p *OperationProgram) Confirm(ctx context.Context, summary *infra.Changes) error {
	if summary != nil {
		p.program.Send(opSummaryMsg{Summary: *summary})
	}
	p.program.Send(opPhaseMsg{Phase: OpPhaseConfirm})
	select {
	case yes := <-p.confirmCh:
		if yes {
			return nil
		}
	case <-ctx.Done():
	}
	return ErrCancelled
}

// Report records what the operation changed and, after up, the stack outputs.
func (p *OperationProgram) Report(changes infra.Changes, outputs *infra.StackOutputs) {
	p.program.Send(opSummaryMsg{Summary: changes})
	if outputs != nil {
		p.program.Send(opOutputsMsg{Outputs: outputs})
	}
}

// done ends the operation. The view stays open until the user presses q.
func (p *OperationProgram) done(err error) {
	if err != nil {
		p.exitMu.Lock()
		p.exitErr = err
		p.exitMu.Unlock()
		p.program.Send(opErrorMsg{Err: err})
		return
	}
	p.program.Send(opPhaseMsg{Phase: OpPhaseDone})
}

// ExitError returns the error the operation ended with, if any.
func (p *OperationProgram) ExitError() error {
	p.exitMu.Lock()
	defer p.exitMu.Unlock()
	return p.exitErr
}

// LogWriter returns a writer that sends output to the log pane.
func (p *OperationProgram) LogWriter() *OpLogWriter {
	return &OpLogWriter{program: p.program}
}

// OpLogWriter forwards written lines to the log pane.
type OpLogWriter struct {
	program *tea.Program
	closed  bool
	mu      sync.Mutex
}

func (w *OpLogWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.program == nil {
		return len(b), nil
	}
	text := strings.TrimRight(string(b), "\n")
	for _, line := range strings.Split(text, "\n") {
		if line != "" {
			w.program.Send(opLogMsg{Line: line})
		}
	}
	return len(b), nil
}

// Close stops forwarding and discards further writes.
func (w *OpLogWriter) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}
