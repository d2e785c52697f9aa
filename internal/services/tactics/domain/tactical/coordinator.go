// Package tactical sequences one tactical action: activation, movement,
// space combat, invasion and production. The coordinator is the only
// component that applies deltas to a GameState.
package tactical

import (
	"context"
	"fmt"
	"log"

	"github.com/louisbranch/hexfleet/internal/core/dice"
	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/catalog"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/combat"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/compliance"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/movement"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/production"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/hexfleet/tactical"

// Action is a complete tactical action request, as read from an action
// file or the journal.
type Action struct {
	Player      galaxy.PlayerID      `json:"player" yaml:"player"`
	System      galaxy.SystemID      `json:"system" yaml:"system"`
	Seed        int64                `json:"seed" yaml:"seed"`
	Moves       []movement.Move      `json:"moves,omitempty" yaml:"moves,omitempty"`
	Combat      CombatChoices        `json:"combat" yaml:"combat"`
	Commitments []combat.Commitment  `json:"commitments,omitempty" yaml:"commitments,omitempty"`
	Production  []production.Request `json:"production,omitempty" yaml:"production,omitempty"`
}

// Coordinator runs tactical actions against one catalog.
type Coordinator struct {
	catalog   *catalog.Catalog
	validator *compliance.Validator
	engine    *movement.Engine
	resolver  *combat.Resolver
	ledger    *production.Ledger
	logger    *log.Logger
	tracer    trace.Tracer
}

// Option configures a Coordinator.
type Option func(*coordinatorOptions)

type coordinatorOptions struct {
	logger   *log.Logger
	tracer   trace.Tracer
	validate []compliance.Option
}

// WithLogger logs every step outcome to logger.
func WithLogger(logger *log.Logger) Option {
	return func(o *coordinatorOptions) { o.logger = logger }
}

// WithTracer replaces the global otel tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *coordinatorOptions) { o.tracer = tracer }
}

// WithActivationRestriction consults r before any system activation.
func WithActivationRestriction(r compliance.ActivationRestriction) Option {
	return func(o *coordinatorOptions) {
		o.validate = append(o.validate, compliance.WithActivationRestriction(r))
	}
}

// New builds a coordinator and its engines around c.
func New(c *catalog.Catalog, opts ...Option) *Coordinator {
	var o coordinatorOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	v := compliance.New(c, o.validate...)
	return &Coordinator{
		catalog:   c,
		validator: v,
		engine:    movement.NewEngine(v),
		resolver:  combat.NewResolver(v),
		ledger:    production.NewLedger(v),
		logger:    o.logger,
		tracer:    o.tracer,
	}
}

// Validator returns the coordinator's compliance validator.
func (c *Coordinator) Validator() *compliance.Validator { return c.validator }

func (c *Coordinator) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

// Begin activates system for player. A nil turn means activation failed
// and nothing else may run.
func (c *Coordinator) Begin(state galaxy.GameState, player galaxy.PlayerID, system galaxy.SystemID, roller *dice.Roller) (*Turn, StepResult) {
	t := &Turn{
		c:      c,
		roller: roller,
		player: player,
		system: system,
		start:  state,
		state:  state,
		last:   StepActivation,
		report: Report{Player: player, System: system},
	}
	if !c.validator.CanActivateSystem(system, player, state) {
		err := apperrors.WithMetadata(apperrors.CodeActivationNotAllowed,
			fmt.Sprintf("%s cannot activate %s", player, system),
			map[string]string{
				apperrors.MetaPlayerID: string(player),
				apperrors.MetaSystemID: string(system),
			})
		return nil, t.record(failed(StepActivation, err))
	}
	if err := t.apply(galaxy.Delta{Activation: &galaxy.Activation{Player: player, System: system}}); err != nil {
		return nil, t.fail(StepActivation, err)
	}
	return t, t.record(succeeded(StepActivation))
}

// Execute runs a whole action. Validation failures are reported in the
// returned report and do not produce an error. A configuration or
// invalid-state failure returns the error with the pre-action state.
// Cancellation is honoured between steps; the state after the last
// finished step is returned with the context error.
func (c *Coordinator) Execute(ctx context.Context, state galaxy.GameState, action Action) (Report, galaxy.GameState, error) {
	ctx, span := c.tracer.Start(ctx, "tactical.action", trace.WithAttributes(
		attribute.String("hexfleet.player", string(action.Player)),
		attribute.String("hexfleet.system", string(action.System)),
		attribute.Int64("hexfleet.seed", action.Seed),
	))
	defer span.End()

	roller := dice.NewRoller(action.Seed)
	var turn *Turn
	r := c.step(ctx, StepActivation, func() StepResult {
		var r StepResult
		turn, r = c.Begin(state, action.Player, action.System, roller)
		return r
	})
	if turn == nil {
		report := Report{Player: action.Player, System: action.System, Steps: []StepResult{r}}
		if apperrors.IsFatal(codeErr(r)) {
			report.Aborted = true
			span.SetStatus(codes.Error, r.Reason)
			return report, state, codeErr(r)
		}
		return report, state, nil
	}

	steps := []struct {
		step Step
		run  func() StepResult
	}{
		{StepMovement, func() StepResult { return turn.Move(action.Moves) }},
		{StepSpaceCombat, func() StepResult { return turn.SpaceCombat(action.Combat) }},
		{StepInvasion, func() StepResult { return turn.Invade(action.Commitments, action.Combat) }},
		{StepProduction, func() StepResult { return turn.Produce(action.Production) }},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return turn.Report(), turn.State(), err
		}
		r := c.step(ctx, s.step, s.run)
		if turn.report.Aborted {
			report, final := turn.Complete()
			span.SetStatus(codes.Error, r.Reason)
			return report, final, codeErr(r)
		}
	}
	report, final := turn.Complete()
	return report, final, nil
}

func (c *Coordinator) step(ctx context.Context, step Step, run func() StepResult) StepResult {
	_, span := c.tracer.Start(ctx, "tactical."+string(step))
	defer span.End()
	r := run()
	span.SetAttributes(attribute.String("hexfleet.status", string(r.Status)))
	if r.Status == StatusFailed {
		span.SetStatus(codes.Error, string(r.Code))
	}
	return r
}

// codeErr rebuilds an error from a failed step result.
func codeErr(r StepResult) error {
	if r.Status != StatusFailed {
		return nil
	}
	return apperrors.WithMetadata(r.Code, r.Reason, r.Metadata)
}

// ResolveCombatRound resolves one round of the combat described by ctx
// with dice from seed and returns the outcome with the state it produces.
// A context with a planet resolves ground combat.
func (c *Coordinator) ResolveCombatRound(state galaxy.GameState, ctx combat.Context, seed int64, choices CombatChoices) (combat.Outcome, galaxy.GameState, error) {
	roller := dice.NewRoller(seed)
	var (
		out combat.Outcome
		err error
	)
	if ctx.Planet != "" {
		out, err = c.resolver.GroundCombatRound(ctx, roller, choices.assignOnly())
	} else {
		out, err = c.resolver.SpaceCombatRound(ctx, roller, choices.options(ctx.Round))
	}
	if err != nil {
		return combat.Outcome{}, state, err
	}
	next, err := state.Apply(out.Delta)
	if err != nil {
		return combat.Outcome{}, state, err
	}
	return out, next, nil
}
