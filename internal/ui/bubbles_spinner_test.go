package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpinnerFrames_MatchCLISpinner(t *testing.T) {
	assert.Equal(t, spinnerFrames, SpinnerFrames.Frames)
	assert.Positive(t, SpinnerFrames.FPS)
}

func TestSpinnerComponent_StartsPending(t *testing.T) {
	sp := NewSpinnerComponent("Sending code")

	assert.Equal(t, "Sending code", sp.Label)
	assert.Equal(t, SpinnerComponentPending, sp.State)
	assert.Contains(t, sp.View(), SymbolPending)
}

func TestSpinnerComponent_InProgressView(t *testing.T) {
	sp := NewSpinnerComponent("Sending code")
	cmd := sp.Start()

	require.NotNil(t, cmd, "Start returns the first tick")
	assert.Equal(t, SpinnerComponentInProgress, sp.State)
	assert.False(t, sp.StartTime.IsZero())

	view := sp.View()
	assert.Contains(t, view, "Sending code...")

	hasFrame := false
	for _, frame := range SpinnerFrames.Frames {
		if strings.Contains(view, frame) {
			hasFrame = true
			break
		}
	}
	assert.True(t, hasFrame, "view should contain a spinner frame")
}

func TestSpinnerComponent_RequestOutcome(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		finish   func(*SpinnerComponent)
		state    SpinnerComponentState
		symbol   string
		notShown string
	}{
		{
			name:     "code sent",
			label:    "Sending code",
			finish:   (*SpinnerComponent).Success,
			state:    SpinnerComponentSuccess,
			symbol:   SymbolComplete,
			notShown: SymbolFail,
		},
		{
			name:     "code rejected",
			label:    "Verifying",
			finish:   (*SpinnerComponent).Fail,
			state:    SpinnerComponentFailed,
			symbol:   SymbolFail,
			notShown: SymbolComplete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := NewSpinnerComponent(tt.label)
			sp.Start()
			tt.finish(&sp)

			assert.Equal(t, tt.state, sp.State)
			view := sp.View()
			assert.Contains(t, view, tt.symbol)
			assert.Contains(t, view, tt.label)
			assert.NotContains(t, view, tt.label+"...")
			assert.NotContains(t, view, tt.notShown)
		})
	}
}

func TestSpinnerComponent_TicksOnlyWhileInProgress(t *testing.T) {
	sp := NewSpinnerComponent("Verifying")

	_, cmd := sp.Update(spinner.TickMsg{})
	assert.Nil(t, cmd, "pending spinner ignores ticks")

	sp.Start()
	updated, cmd := sp.Update(spinner.TickMsg{})
	assert.NotNil(t, cmd, "in-progress spinner schedules the next tick")
	assert.Equal(t, SpinnerComponentInProgress, updated.State)

	updated.Success()
	_, cmd = updated.Update(spinner.TickMsg{})
	assert.Nil(t, cmd, "finished spinner stops ticking")
}
