package recovery

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPlan_EmptyPathReturnsDefault(t *testing.T) {
	plan, err := LoadPlan("")
	require.NoError(t, err)

	assert.Equal(t, "default", plan.Name)
	require.Len(t, plan.Steps, 5)
	assert.Equal(t, "create-restore-point", plan.Steps[0].ID)
	assert.True(t, plan.Steps[0].Critical)
	assert.Equal(t, "restore-data", plan.Steps[2].ID)
	assert.Equal(t, 30*time.Minute, plan.Steps[2].Timeout)
	assert.False(t, plan.Steps[4].Critical)
}

func TestLoadPlan_OverrideMergesPerStep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	doc := `
name: production
version: "2"
steps:
  - id: restore-data
    timeout: 90m
  - id: stop-services
    critical: true
    actions: [stop_services, drain_connections]
  - id: notify-oncall
    name: Notify on-call
    timeout: 30s
    actions: [page_oncall]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	plan, err := LoadPlan(path)
	require.NoError(t, err)

	assert.Equal(t, "production", plan.Name)
	assert.Equal(t, "2", plan.Version)
	require.Len(t, plan.Steps, 6)

	// Overridden fields replaced, everything else kept from the default.
	restore := plan.Steps[2]
	assert.Equal(t, "restore-data", restore.ID)
	assert.Equal(t, 90*time.Minute, restore.Timeout)
	assert.True(t, restore.Critical)
	assert.Equal(t, []string{"restore_backup"}, restore.Actions)

	stop := plan.Steps[1]
	assert.True(t, stop.Critical)
	assert.Equal(t, []string{"stop_services", "drain_connections"}, stop.Actions)
	assert.Equal(t, 2*time.Minute, stop.Timeout)

	// New steps are appended in document order with a default timeout.
	added := plan.Steps[5]
	assert.Equal(t, "notify-oncall", added.ID)
	assert.Equal(t, "Notify on-call", added.Name)
	assert.Equal(t, 30*time.Second, added.Timeout)
	assert.False(t, added.Critical)
}

func TestLoadPlan_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadPlan(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad-timeout.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("steps:\n  - id: restore-data\n    timeout: soon\n"), 0o600))
	_, err = LoadPlan(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timeout")

	noID := filepath.Join(dir, "no-id.yaml")
	require.NoError(t, os.WriteFile(noID, []byte("steps:\n  - name: anonymous\n"), 0o600))
	_, err = LoadPlan(noID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step without id")
}
