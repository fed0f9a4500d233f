package recovery

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/edvin/drengine/internal/model"
)

// DefaultPlan is the built-in recovery plan. Overrides are merged over it
// per step id.
func DefaultPlan() model.RecoveryPlan {
	return model.RecoveryPlan{
		Name:    "default",
		Version: "1",
		Steps: []model.RecoveryStep{
			{
				ID:       "create-restore-point",
				Name:     "Create restore point",
				Critical: true,
				Timeout:  5 * time.Minute,
				Actions:  []string{"create_restore_point"},
			},
			{
				ID:       "stop-services",
				Name:     "Stop services",
				Critical: false,
				Timeout:  2 * time.Minute,
				Actions:  []string{"stop_services"},
			},
			{
				ID:       "restore-data",
				Name:     "Restore data",
				Critical: true,
				Timeout:  30 * time.Minute,
				Actions:  []string{"restore_backup"},
			},
			{
				ID:       "start-services",
				Name:     "Start services",
				Critical: false,
				Timeout:  2 * time.Minute,
				Actions:  []string{"start_services"},
			},
			{
				ID:       "cleanup",
				Name:     "Clean up",
				Critical: false,
				Timeout:  time.Minute,
				Actions:  []string{"cleanup_artifacts"},
			},
		},
	}
}

// planDocument is the YAML shape of a plan override. Timeouts are duration
// strings ("5m", "90s").
type planDocument struct {
	Name    string        `yaml:"name"`
	Version string        `yaml:"version"`
	Steps   []planStepDoc `yaml:"steps"`
}

type planStepDoc struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Critical *bool    `yaml:"critical"`
	Timeout  string   `yaml:"timeout"`
	Actions  []string `yaml:"actions"`
}

// LoadPlan returns the default plan with the override document at path
// merged over it. An empty path yields the default plan unchanged.
// Override steps replace default steps with the same id in place; steps
// with new ids are appended in document order.
func LoadPlan(path string) (model.RecoveryPlan, error) {
	plan := DefaultPlan()
	if path == "" {
		return plan, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return plan, fmt.Errorf("read recovery plan %s: %w", path, err)
	}

	var doc planDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return plan, fmt.Errorf("parse recovery plan %s: %w", path, err)
	}

	if doc.Name != "" {
		plan.Name = doc.Name
	}
	if doc.Version != "" {
		plan.Version = doc.Version
	}

	index := make(map[string]int, len(plan.Steps))
	for i, step := range plan.Steps {
		index[step.ID] = i
	}

	for _, sd := range doc.Steps {
		if sd.ID == "" {
			return plan, fmt.Errorf("recovery plan %s: step without id", path)
		}
		step, err := mergeStep(plan, sd, index)
		if err != nil {
			return plan, fmt.Errorf("recovery plan %s: %w", path, err)
		}
		if i, ok := index[sd.ID]; ok {
			plan.Steps[i] = step
		} else {
			index[sd.ID] = len(plan.Steps)
			plan.Steps = append(plan.Steps, step)
		}
	}

	return plan, nil
}

func mergeStep(plan model.RecoveryPlan, sd planStepDoc, index map[string]int) (model.RecoveryStep, error) {
	var step model.RecoveryStep
	if i, ok := index[sd.ID]; ok {
		step = plan.Steps[i]
	} else {
		step = model.RecoveryStep{ID: sd.ID, Timeout: time.Minute}
	}

	if sd.Name != "" {
		step.Name = sd.Name
	}
	if sd.Critical != nil {
		step.Critical = *sd.Critical
	}
	if sd.Timeout != "" {
		d, err := time.ParseDuration(sd.Timeout)
		if err != nil {
			return step, fmt.Errorf("step %s: invalid timeout %q: %w", sd.ID, sd.Timeout, err)
		}
		step.Timeout = d
	}
	if len(sd.Actions) > 0 {
		step.Actions = sd.Actions
	}
	return step, nil
}
