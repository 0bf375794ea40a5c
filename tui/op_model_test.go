package tui

import (
	"errors"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stewartpark/eks-network/infra"
)

func newTestModel(kind OpKind) (OperationModel, chan bool) {
	ch := make(chan bool, 1)
	return NewOperationModel(kind, OpInfo{Version: "dev", Stack: "dev", Region: "us-west-2", VPCName: "eks-vpc"}, ch), ch
}

func update(t *testing.T, m OperationModel, msg tea.Msg) (OperationModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	om, ok := next.(OperationModel)
	require.True(t, ok)
	return om, cmd
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestConfirmKeys(t *testing.T) {
	tests := []struct {
		name          string
		key           tea.KeyMsg
		wantConfirm   bool
		wantCancelled bool
		wantPhase     OpPhase
	}{
		{name: "yes", key: key("y"), wantConfirm: true, wantPhase: OpPhaseConfirm},
		{name: "no", key: key("n"), wantConfirm: false, wantCancelled: true, wantPhase: OpPhaseDone},
		{name: "quit at confirm", key: key("q"), wantConfirm: false, wantCancelled: true, wantPhase: OpPhaseDone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ch := newTestModel(OpKindUp)
			m, _ = update(t, m, opPhaseMsg{Phase: OpPhaseConfirm})

			m, cmd := update(t, m, tt.key)
			assert.Nil(t, cmd)
			assert.Equal(t, tt.wantPhase, m.Phase)
			assert.Equal(t, tt.wantCancelled, m.Cancelled)

			select {
			case got := <-ch:
				assert.Equal(t, tt.wantConfirm, got)
			default:
				t.Fatal("expected a confirmation answer")
			}
		})
	}
}

func TestKeysOutsideConfirmDoNotAnswer(t *testing.T) {
	m, ch := newTestModel(OpKindDown)
	m, _ = update(t, m, opPhaseMsg{Phase: OpPhaseDestroy})

	m, _ = update(t, m, key("y"))
	assert.Len(t, ch, 0)
	assert.False(t, m.Cancelled)

	_, cmd := update(t, m, key("q"))
	assert.NotNil(t, cmd, "q outside confirm quits")
}

func TestLogLinesAreBounded(t *testing.T) {
	m, _ := newTestModel(OpKindUp)
	m.MaxLogLines = 5

	for i := 0; i < 8; i++ {
		m, _ = update(t, m, opLogMsg{Line: fmt.Sprintf("line %d", i)})
	}
	assert.Equal(t, []string{"line 3", "line 4", "line 5", "line 6", "line 7"}, m.LogLines)
}

func TestLogScrollStaysPut(t *testing.T) {
	m, _ := newTestModel(OpKindUp)
	for i := 0; i < 3; i++ {
		m, _ = update(t, m, opLogMsg{Line: "x"})
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, m.LogScrollBack)

	m, _ = update(t, m, opLogMsg{Line: "y"})
	assert.Equal(t, 2, m.LogScrollBack, "new lines keep a scrolled view in place")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyPgUp})
	assert.Equal(t, 4, m.LogScrollBack, "clamped to the number of lines")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 0, m.LogScrollBack)
}

func TestErrorEndsOperation(t *testing.T) {
	m, _ := newTestModel(OpKindUp)
	m, _ = update(t, m, opPhaseMsg{Phase: OpPhaseApply})
	m, _ = update(t, m, opErrorMsg{Err: errors.New("pulumi up failed: boom")})

	assert.Equal(t, OpPhaseDone, m.Phase)
	assert.False(t, m.Busy())
	view := m.View()
	assert.Contains(t, view, "Failed.")
	assert.Contains(t, view, "pulumi up failed: boom")
}

func TestViewShowsSummaryAndOutputs(t *testing.T) {
	m, _ := newTestModel(OpKindUp)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = update(t, m, opSummaryMsg{Summary: infra.Changes{Create: 22}})
	m, _ = update(t, m, opPhaseMsg{Phase: OpPhaseConfirm})

	view := m.View()
	assert.Contains(t, view, "22 create")
	assert.Contains(t, view, "Apply changes?")

	m, _ = update(t, m, opOutputsMsg{Outputs: &infra.StackOutputs{
		VpcID:            "vpc-0abc",
		PublicSubnetIDs:  []string{"subnet-a", "subnet-b"},
		PrivateSubnetIDs: []string{"subnet-c", "subnet-d"},
		VpnEndpointID:    "cvpn-endpoint-1",
	}})
	m, _ = update(t, m, opPhaseMsg{Phase: OpPhaseDone})

	view = m.View()
	assert.Contains(t, view, "Network provisioned.")
	assert.Contains(t, view, "vpc-0abc")
	assert.Contains(t, view, "subnet-c, subnet-d")
	assert.Contains(t, view, "cvpn-endpoint-1")
}

func TestDownConfirmPrompt(t *testing.T) {
	m, _ := newTestModel(OpKindDown)
	m, _ = update(t, m, opPhaseMsg{Phase: OpPhaseConfirm})
	assert.Contains(t, m.View(), "Destroy the network?")
}

func TestOpLogWriterWithoutProgram(t *testing.T) {
	w := &OpLogWriter{}
	n, err := w.Write([]byte("hello\nworld\n"))
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	w.Close()
	n, err = w.Write([]byte("ignored"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}
