package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stewartpark/eks-network/infra"
)

// OpKind distinguishes up vs down operations.
type OpKind int

const (
	OpKindUp OpKind = iota
	OpKindDown
)

// OpPhase tracks the current phase of an up/down operation.
type OpPhase int

const (
	OpPhaseInit    OpPhase = iota
	OpPhasePreview         // up only
	OpPhaseConfirm         // both
	OpPhaseApply           // up only
	OpPhaseDestroy         // down only
	OpPhaseDone
)

// OpInfo is the static context shown in the header.
type OpInfo struct {
	Version string
	Stack   string
	Region  string
	VPCName string
	Plan    string // one-line plan summary
}

// Message types for the operation model.
type (
	opPhaseMsg   struct{ Phase OpPhase }
	opStepMsg    struct{ Label string }
	opSummaryMsg struct{ Summary infra.Changes }
	opOutputsMsg struct{ Outputs *infra.StackOutputs }
	opErrorMsg   struct{ Err error }
	opLogMsg     struct{ Line string }
)

// OperationModel is the BubbleTea model for up/down operations.
type OperationModel struct {
	Kind      OpKind
	Phase     OpPhase
	Info      OpInfo
	Spinner   spinner.Model
	StepLabel string
	Frame     int

	Summary      *infra.Changes
	Outputs      *infra.StackOutputs
	LogLines     []string
	MaxLogLines  int
	ErrorMessage string
	Cancelled    bool

	// Log scrolling: 0 = pinned to bottom (follow), >0 = scrolled up by N lines
	LogScrollBack int

	confirmCh chan bool

	Width  int
	Height int
}

// NewOperationModel creates a new OperationModel.
func NewOperationModel(kind OpKind, info OpInfo, confirmCh chan bool) OperationModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(colorCyan)),
	)
	return OperationModel{
		Kind:        kind,
		Phase:       OpPhaseInit,
		Info:        info,
		Spinner:     s,
		StepLabel:   "Initializing...",
		LogLines:    make([]string, 0),
		MaxLogLines: 200,
		confirmCh:   confirmCh,
	}
}

// Busy reports whether an operation is in flight.
func (m OperationModel) Busy() bool {
	switch m.Phase {
	case OpPhaseInit, OpPhasePreview, OpPhaseApply, OpPhaseDestroy:
		return true
	}
	return false
}

// Init implements tea.Model.
func (m OperationModel) Init() tea.Cmd {
	return m.Spinner.Tick
}

func (m OperationModel) answer(yes bool) OperationModel {
	select {
	case m.confirmCh <- yes:
	default:
	}
	if !yes {
		m.Cancelled = true
		m.Phase = OpPhaseDone
	}
	return m
}

// Update implements tea.Model.
func (m OperationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.Phase == OpPhaseConfirm {
				return m.answer(false), nil
			}
			return m, tea.Quit
		case "y", "Y":
			if m.Phase == OpPhaseConfirm {
				m = m.answer(true)
			}
		case "n", "N":
			if m.Phase == OpPhaseConfirm {
				return m.answer(false), nil
			}
		case "up", "k":
			m.LogScrollBack++
			m.LogScrollBack = clampScroll(m.LogScrollBack, len(m.LogLines))
		case "down", "j":
			if m.LogScrollBack > 0 {
				m.LogScrollBack--
			}
		case "pgup":
			m.LogScrollBack += 10
			m.LogScrollBack = clampScroll(m.LogScrollBack, len(m.LogLines))
		case "pgdown":
			m.LogScrollBack -= 10
			if m.LogScrollBack < 0 {
				m.LogScrollBack = 0
			}
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case spinner.TickMsg:
		if m.Busy() {
			m.Frame++
		} else {
			m.Frame = 0
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case opPhaseMsg:
		m.Phase = msg.Phase

	case opStepMsg:
		m.StepLabel = msg.Label

	case opSummaryMsg:
		s := msg.Summary
		m.Summary = &s

	case opOutputsMsg:
		m.Outputs = msg.Outputs

	case opErrorMsg:
		m.ErrorMessage = msg.Err.Error()
		m.Phase = OpPhaseDone

	case opLogMsg:
		wasAtBottom := m.LogScrollBack == 0
		m.LogLines = append(m.LogLines, msg.Line)
		if len(m.LogLines) > m.MaxLogLines {
			m.LogLines = m.LogLines[len(m.LogLines)-m.MaxLogLines:]
		}
		// If user had scrolled up, keep their position stable
		if !wasAtBottom {
			m.LogScrollBack++
			m.LogScrollBack = clampScroll(m.LogScrollBack, len(m.LogLines))
		}
	}

	return m, nil
}

func clampScroll(scrollBack, totalLines int) int {
	if scrollBack > totalLines {
		return totalLines
	}
	return scrollBack
}

// View implements tea.Model.
func (m OperationModel) View() string {
	return renderOperation(m)
}
