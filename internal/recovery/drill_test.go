package recovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/drengine/internal/model"
)

func TestTestRecovery_RestoresSimulatedDisaster(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.orchestrator.RegisterHealthChecker("storage", healthyChecker)
	ctx := context.Background()

	result, err := env.orchestrator.TestRecovery(ctx, TestOptions{SimulateDisaster: true})
	require.NoError(t, err)

	assert.True(t, result.DataRestored)
	assert.True(t, result.RTOAchieved)
	assert.True(t, result.RPOAchieved)
	require.NotNil(t, result.Execution)
	assert.Equal(t, model.RecoveryStatusCompleted, result.Execution.Status)
	assert.Equal(t, model.RecoveryTypeDrill, result.Execution.Type)
}

func TestTestRecovery_LeavesProductionLedgersUntouched(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.orchestrator.RegisterHealthChecker("storage", healthyChecker)
	ctx := context.Background()

	before := append([]byte(nil), env.state["config"]...)

	result, err := env.orchestrator.TestRecovery(ctx, TestOptions{SimulateDisaster: true})
	require.NoError(t, err)

	// Production catalog has no test backups or drill restore points, and
	// the production history is still empty.
	assert.Empty(t, env.manager.ListBackups())
	assert.Empty(t, env.orchestrator.History())
	assert.Nil(t, env.orchestrator.Status())

	// Production state was never written to.
	assert.Equal(t, before, env.state["config"])

	// The drill's ledger lives in its own directory.
	drillRoot := filepath.Join(env.root, "drills", result.DrillID)
	_, err = os.Stat(filepath.Join(drillRoot, "catalog.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(drillRoot, "recovery-history.json"))
	require.NoError(t, err)
}

func TestTestRecovery_RunsWhileHealthy(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.orchestrator.RegisterHealthChecker("storage", healthyChecker)

	// Without a simulated disaster the drill still exercises the full plan
	// and the round-tripped state matches what was backed up.
	result, err := env.orchestrator.TestRecovery(context.Background(), TestOptions{})
	require.NoError(t, err)
	assert.True(t, result.DataRestored)
	assert.Equal(t, model.RecoveryStatusCompleted, result.Execution.Status)

	// Every drill gets a fresh isolated ledger.
	second, err := env.orchestrator.TestRecovery(context.Background(), TestOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, result.DrillID, second.DrillID)
}
