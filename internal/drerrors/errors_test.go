package drerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanStepError_UnwrapsCause(t *testing.T) {
	cause := errors.New("disk gone")
	err := fmt.Errorf("execute step: %w", &PlanStepError{
		Op:       "rec-1",
		Step:     "restore-data",
		Action:   "restore_backup",
		Critical: true,
		Err:      cause,
	})

	var stepErr *PlanStepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "restore-data", stepErr.Step)
	assert.True(t, stepErr.Critical)
	assert.True(t, errors.Is(err, cause))
}

func TestBackendError_CarriesOperation(t *testing.T) {
	err := &BackendError{Op: "bk-1", Backend: "local", Err: errors.New("no such file")}
	assert.Contains(t, err.Error(), "bk-1")
	assert.Contains(t, err.Error(), "local")
}

func TestIntegrityError_NamesItem(t *testing.T) {
	err := &IntegrityError{Op: "bk-2", Item: "config", Expected: "aa", Actual: "bb"}
	assert.Contains(t, err.Error(), `"config"`)
	assert.Contains(t, err.Error(), "bk-2")
}
