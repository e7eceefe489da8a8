package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStart(t *testing.T) {
	tests := []struct {
		name      string
		initial   string
		wantErr   error
		wantState string
	}{
		{
			name:      "start from pending",
			initial:   StatePending,
			wantState: StateRunning,
		},
		{
			name:    "start from running rejected",
			initial: StateRunning,
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "start from succeeded rejected",
			initial: StateSucceeded,
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "start from canceled rejected",
			initial: StateCanceled,
			wantErr: ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Run{State: tt.initial}
			err := r.Start(time.Now())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.initial, r.State)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, r.State)
			assert.False(t, r.StartedAt.IsZero())
		})
	}
}

func TestRunFinish(t *testing.T) {
	tests := []struct {
		name      string
		initial   string
		exitCode  int
		wantErr   error
		wantState string
	}{
		{
			name:      "zero exit code succeeds",
			initial:   StateRunning,
			exitCode:  0,
			wantState: StateSucceeded,
		},
		{
			name:      "nonzero exit code fails",
			initial:   StateRunning,
			exitCode:  1,
			wantState: StateFailed,
		},
		{
			name:     "finish from pending rejected",
			initial:  StatePending,
			exitCode: 0,
			wantErr:  ErrInvalidTransition,
		},
		{
			name:     "finish from failed rejected",
			initial:  StateFailed,
			exitCode: 0,
			wantErr:  ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Run{State: tt.initial}
			err := r.Finish(tt.exitCode, time.Now())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, r.State)
			assert.Equal(t, tt.exitCode, r.ExitCode)
			assert.False(t, r.FinishedAt.IsZero())
		})
	}
}

func TestRunCancel(t *testing.T) {
	t.Run("cancel pending run", func(t *testing.T) {
		r := &Run{State: StatePending}
		require.NoError(t, r.Cancel(time.Now()))
		assert.Equal(t, StateCanceled, r.State)
	})

	t.Run("cancel running run", func(t *testing.T) {
		r := &Run{State: StateRunning}
		require.NoError(t, r.Cancel(time.Now()))
		assert.Equal(t, StateCanceled, r.State)
	})

	t.Run("cancel is idempotent", func(t *testing.T) {
		r := &Run{State: StateCanceled}
		require.NoError(t, r.Cancel(time.Now()))
		assert.Equal(t, StateCanceled, r.State)
	})

	t.Run("terminal runs are not revived", func(t *testing.T) {
		for _, state := range []string{StateSucceeded, StateFailed} {
			r := &Run{State: state}
			err := r.Cancel(time.Now())
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, state, r.State)
		}
	})
}

func TestRunDuration(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("started and finished", func(t *testing.T) {
		r := &Run{StartedAt: start, FinishedAt: start.Add(90 * time.Second)}
		assert.Equal(t, 90*time.Second, r.Duration())
	})

	t.Run("not finished reports zero", func(t *testing.T) {
		r := &Run{StartedAt: start}
		assert.Equal(t, time.Duration(0), r.Duration())
	})
}

func TestValidKindAndState(t *testing.T) {
	assert.True(t, ValidKind(KindTrain))
	assert.True(t, ValidKind(KindInfer))
	assert.False(t, ValidKind("evaluate"))
	assert.False(t, ValidKind(""))

	assert.True(t, ValidState(StateRunning))
	assert.False(t, ValidState("done"))
}

func TestRunJSONCarriesTimestampFields(t *testing.T) {
	// started_at and finished_at are always present in the record;
	// omitempty has no effect on time.Time values and would only
	// suggest otherwise.
	r := Run{
		Kind:      KindTrain,
		State:     StatePending,
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(&r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"started_at"`)
	assert.Contains(t, string(data), `"finished_at"`)
}
