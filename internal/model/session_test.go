package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateSet_Parse(t *testing.T) {
	t.Parallel()

	ss := NewStateSet(DefaultTerminalStates, []TutoringState{"PAUSE"})

	tests := []struct {
		raw  string
		want TutoringState
	}{
		{"ACTIVE", StateActive},
		{" ACTIVE ", StateActive},
		{"FINISH", StateFinish},
		{"AUTO_FINISH", StateAutoFinish},
		{"DONE", StateDone},
		{"NOCARD", StateNoCard},
		{"NOPAY", StateNoPay},
		{"PAUSE", "PAUSE"},
		{"", StateUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, err := ss.Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStateSet_ParseUnknown(t *testing.T) {
	t.Parallel()

	ss := NewStateSet(DefaultTerminalStates, nil)
	_, err := ss.Parse("HIBERNATE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HIBERNATE")
}

func TestStateSet_ParseIsCaseSensitive(t *testing.T) {
	t.Parallel()

	ss := NewStateSet(DefaultTerminalStates, []TutoringState{"PAUSE"})
	for _, raw := range []string{"active", "Active", "finish", "pause"} {
		_, err := ss.Parse(raw)
		assert.Error(t, err, raw)
	}
}

func TestStateSet_IsTerminal(t *testing.T) {
	t.Parallel()

	ss := NewStateSet(DefaultTerminalStates, nil)
	for _, s := range DefaultTerminalStates {
		assert.True(t, ss.IsTerminal(s), s)
	}
	assert.False(t, ss.IsTerminal(StateActive))
	assert.False(t, ss.IsTerminal(StateUnknown))
}

func TestStateSet_TerminalIsCopy(t *testing.T) {
	t.Parallel()

	terminal := []TutoringState{StateDone}
	ss := NewStateSet(terminal, nil)
	terminal[0] = StateActive

	assert.Equal(t, []TutoringState{StateDone}, ss.Terminal())
}

func TestParseChurnFlag(t *testing.T) {
	t.Parallel()

	f, err := ParseChurnFlag("A")
	require.NoError(t, err)
	assert.Equal(t, FlagActive, f)
	assert.False(t, f.Churned())

	f, err = ParseChurnFlag("P")
	require.NoError(t, err)
	assert.Equal(t, FlagStopped, f)
	assert.True(t, f.Churned())

	for _, raw := range []string{"", "T", "X", "a"} {
		_, err := ParseChurnFlag(raw)
		assert.Error(t, err, raw)
	}
}

func TestRunStatusValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "running", string(RunStatusRunning))
	assert.Equal(t, "complete", string(RunStatusComplete))
	assert.Equal(t, "failed", string(RunStatusFailed))
	assert.Equal(t, "upload", string(SourceUpload))
	assert.Equal(t, "sheet", string(SourceSheet))
}
