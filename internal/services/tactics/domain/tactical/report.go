package tactical

import (
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/combat"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/movement"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/production"
)

// Step names one stage of a tactical action.
type Step string

const (
	StepActivation  Step = "activation"
	StepMovement    Step = "movement"
	StepSpaceCombat Step = "space_combat"
	StepInvasion    Step = "invasion"
	StepProduction  Step = "production"
	StepCompleted   Step = "completed"
)

// order is the position of each step in the sequence.
var order = map[Step]int{
	StepActivation:  0,
	StepMovement:    1,
	StepSpaceCombat: 2,
	StepInvasion:    3,
	StepProduction:  4,
	StepCompleted:   5,
}

// Status is how a step ended.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// StepResult is the outcome of one step.
type StepResult struct {
	Step     Step              `json:"step"`
	Status   Status            `json:"status"`
	Code     apperrors.Code    `json:"code,omitempty"`
	Reason   string            `json:"reason,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// OK reports whether the step did not fail.
func (r StepResult) OK() bool { return r.Status != StatusFailed }

func (r StepResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", r.Step, r.Status)
	if r.Code != "" {
		fmt.Fprintf(&b, " [%s]", r.Code)
	}
	if r.Reason != "" {
		fmt.Fprintf(&b, " %s", r.Reason)
	}
	return b.String()
}

func succeeded(step Step) StepResult {
	return StepResult{Step: step, Status: StatusSucceeded}
}

func skipped(step Step, reason string) StepResult {
	return StepResult{Step: step, Status: StatusSkipped, Reason: reason}
}

func failed(step Step, err error) StepResult {
	out := StepResult{Step: step, Status: StatusFailed, Code: apperrors.CodeOf(err), Reason: err.Error()}
	if e, ok := apperrors.As(err); ok && len(e.Metadata) > 0 {
		out.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

func outOfOrder(step Step, reason string) StepResult {
	return failed(step, apperrors.WithMetadata(apperrors.CodeStepOutOfOrder, reason,
		map[string]string{apperrors.MetaDetail: string(step)}))
}

// ProductionResult is the outcome of one production request.
type ProductionResult struct {
	Request     production.Request `json:"request"`
	Reservation string             `json:"reservation,omitempty"`
	Cost        int                `json:"cost,omitempty"`
	Units       []galaxy.Unit      `json:"units,omitempty"`
	Status      Status             `json:"status"`
	Code        apperrors.Code     `json:"code,omitempty"`
	Reason      string             `json:"reason,omitempty"`
}

// Report aggregates every step of one tactical action.
type Report struct {
	Player     galaxy.PlayerID    `json:"player"`
	System     galaxy.SystemID    `json:"system"`
	Steps      []StepResult       `json:"steps"`
	Movement   *movement.Result   `json:"movement,omitempty"`
	Combat     []combat.Outcome   `json:"combat,omitempty"`
	Invasion   []combat.Outcome   `json:"invasion,omitempty"`
	Production []ProductionResult `json:"production,omitempty"`
	// Aborted is set when a configuration or invalid-state error stopped
	// the action; the final state is then the state before activation.
	Aborted bool `json:"aborted,omitempty"`
}

// Step returns the result recorded for step, if any.
func (r Report) Step(step Step) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Step == step {
			return s, true
		}
	}
	return StepResult{}, false
}
