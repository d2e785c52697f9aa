// Package combat resolves combat rounds and the invasion abilities around
// them. Resolvers never change a GameState; they return the proposed delta.
package combat

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/louisbranch/hexfleet/internal/core/dice"
	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/catalog"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/compliance"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
)

// Ability names used on volleys and in reroll bookkeeping.
const (
	AbilityCombat             = "combat"
	AbilityAntiFighterBarrage = "anti_fighter_barrage"
	AbilitySpaceCannon        = "space_cannon"
	AbilityBombardment        = "bombardment"
)

// Options carries the per-player choices for one resolution.
type Options struct {
	// Assigners pick hit targets for the firing player. A missing entry
	// uses HighestCostFirst.
	Assigners map[galaxy.PlayerID]HitAssigner
	// Rerolls are applied, in order, to the firing player's volley before
	// any hit is counted.
	Rerolls map[galaxy.PlayerID][]Reroll
}

func (o Options) assigner(player galaxy.PlayerID) HitAssigner {
	if a, ok := o.Assigners[player]; ok && a != nil {
		return a
	}
	return HighestCostFirst{}
}

// Fire is one player's volley for one ability and where its hits landed.
type Fire struct {
	Player     galaxy.PlayerID `json:"player"`
	Ability    string          `json:"ability"`
	Volley     Volley          `json:"volley"`
	Hits       int             `json:"hits"`
	Allocation Allocation      `json:"allocation"`
}

// Outcome is the result of one resolution step.
type Outcome struct {
	Round   int               `json:"round,omitempty"`
	Fire    []Fire            `json:"fire,omitempty"`
	Planets []galaxy.PlanetID `json:"planets,omitempty"`
	Delta   galaxy.Delta      `json:"delta"`
}

// Hits returns the total hits scored by player.
func (o Outcome) Hits(player galaxy.PlayerID) int {
	n := 0
	for _, f := range o.Fire {
		if f.Player == player {
			n += f.Hits
		}
	}
	return n
}

// Resolver resolves combat against one catalog.
type Resolver struct {
	validator *compliance.Validator
	catalog   *catalog.Catalog
}

// NewResolver returns a resolver using the validator's catalog.
func NewResolver(v *compliance.Validator) *Resolver {
	return &Resolver{validator: v, catalog: v.Catalog()}
}

// SpaceCombatRound resolves one round of space combat. Both sides roll,
// rerolls resolve, then hits are counted and assigned simultaneously.
func (r *Resolver) SpaceCombatRound(ctx Context, roller *dice.Roller, opts Options) (Outcome, error) {
	return r.exchange(ctx, roller, opts)
}

// GroundCombatRound resolves one round of ground combat on ctx.Planet.
func (r *Resolver) GroundCombatRound(ctx Context, roller *dice.Roller, opts Options) (Outcome, error) {
	if ctx.Planet == "" {
		return Outcome{}, apperrors.WithMetadata(apperrors.CodeCombatNoParticipants,
			"ground combat needs a planet",
			map[string]string{apperrors.MetaSystemID: string(ctx.System)})
	}
	return r.exchange(ctx, roller, opts)
}

func (r *Resolver) exchange(ctx Context, roller *dice.Roller, opts Options) (Outcome, error) {
	if len(ctx.Attacker.Units) == 0 || len(ctx.Defender.Units) == 0 {
		return Outcome{}, noParticipants(ctx)
	}
	out := Outcome{Round: ctx.Round}
	sides := ctx.Sides()
	for _, side := range sides {
		v := Volley{Modifier: side.Modifier}
		for _, u := range side.Units {
			stats, err := r.catalog.Stats(u.Kind)
			if err != nil {
				return Outcome{}, err
			}
			if err := catalog.CheckAbility(u.Kind, AbilityCombat, stats.Combat); err != nil {
				return Outcome{}, err
			}
			v.add(u.ID, stats.Combat.Hit, stats.Combat.Dice, roller)
		}
		if err := applyRerolls(&v, opts.Rerolls[side.Player], roller); err != nil {
			return Outcome{}, err
		}
		out.Fire = append(out.Fire, Fire{Player: side.Player, Ability: AbilityCombat, Volley: v})
	}
	for i := range out.Fire {
		f := &out.Fire[i]
		f.Hits = f.Volley.Hits()
		targets, err := r.targets(sides[1-i].Units)
		if err != nil {
			return Outcome{}, err
		}
		f.Allocation = opts.assigner(f.Player).Assign(f.Hits, targets)
	}
	out.Delta = allocationDelta(slices.Concat(ctx.Attacker.Units, ctx.Defender.Units), out.Fire)
	return out, nil
}

// AntiFighterBarrage resolves the barrage that precedes the first round of
// space combat. Each side's barrage units fire at the other side's fighters.
func (r *Resolver) AntiFighterBarrage(ctx Context, roller *dice.Roller, opts Options) (Outcome, error) {
	if ctx.Round != 1 {
		return Outcome{}, apperrors.WithMetadata(apperrors.CodeCombatBarrageAfterFirstRound,
			fmt.Sprintf("anti-fighter barrage in round %d", ctx.Round),
			map[string]string{
				apperrors.MetaSystemID: string(ctx.System),
				apperrors.MetaDetail:   strconv.Itoa(ctx.Round),
			})
	}
	if len(ctx.Attacker.Units) == 0 || len(ctx.Defender.Units) == 0 {
		return Outcome{}, noParticipants(ctx)
	}
	out := Outcome{Round: ctx.Round}
	for _, side := range ctx.Sides() {
		v := Volley{Modifier: side.Modifier}
		for _, u := range side.Units {
			stats, err := r.catalog.Stats(u.Kind)
			if err != nil {
				return Outcome{}, err
			}
			if err := catalog.CheckAbility(u.Kind, AbilityAntiFighterBarrage, stats.AntiFighterBarrage); err != nil {
				return Outcome{}, err
			}
			v.add(u.ID, stats.AntiFighterBarrage.Hit, stats.AntiFighterBarrage.Dice, roller)
		}
		if len(v.Dice) == 0 {
			continue
		}
		if err := applyRerolls(&v, opts.Rerolls[side.Player], roller); err != nil {
			return Outcome{}, err
		}
		out.Fire = append(out.Fire, Fire{Player: side.Player, Ability: AbilityAntiFighterBarrage, Volley: v})
	}
	for i := range out.Fire {
		f := &out.Fire[i]
		f.Hits = f.Volley.Hits()
		enemy := ctx.Defender.Units
		if f.Player == ctx.Defender.Player {
			enemy = ctx.Attacker.Units
		}
		targets, err := r.targets(FilterAFBTargets(enemy))
		if err != nil {
			return Outcome{}, err
		}
		f.Allocation = opts.assigner(f.Player).Assign(f.Hits, targets)
	}
	out.Delta = allocationDelta(slices.Concat(ctx.Attacker.Units, ctx.Defender.Units), out.Fire)
	return out, nil
}

// FilterAFBTargets returns every fighter among units, base and upgraded
// alike, in the order given.
func FilterAFBTargets(units []galaxy.Unit) []galaxy.Unit {
	var out []galaxy.Unit
	for _, u := range units {
		if u.Kind.IsFighter() {
			out = append(out, u)
		}
	}
	return out
}

func (r *Resolver) targets(units []galaxy.Unit) ([]Target, error) {
	out := make([]Target, 0, len(units))
	for _, u := range units {
		stats, err := r.catalog.Stats(u.Kind)
		if err != nil {
			return nil, err
		}
		out = append(out, Target{Unit: u, Cost: stats.Cost, Sustain: stats.SustainDamage})
	}
	return out, nil
}

func applyRerolls(v *Volley, rerolls []Reroll, roller *dice.Roller) error {
	for _, rr := range rerolls {
		if err := v.Reroll(rr, roller); err != nil {
			return err
		}
	}
	return nil
}

// allocationDelta turns allocations into removals and damage flags. A unit
// both damaged and destroyed in the same step is only removed.
func allocationDelta(units []galaxy.Unit, fire []Fire) galaxy.Delta {
	byID := make(map[galaxy.UnitID]galaxy.Unit, len(units))
	for _, u := range units {
		byID[u.ID] = u
	}
	destroyed := make(map[galaxy.UnitID]bool)
	var d galaxy.Delta
	for _, f := range fire {
		for _, id := range f.Allocation.Destroyed {
			if !destroyed[id] {
				destroyed[id] = true
				d.Removals = append(d.Removals, id)
			}
		}
	}
	damaged := make(map[galaxy.UnitID]bool)
	for _, f := range fire {
		for _, id := range f.Allocation.Damaged {
			if destroyed[id] || damaged[id] {
				continue
			}
			damaged[id] = true
			status := byID[id].Status
			status.Damaged = true
			d.Statuses = append(d.Statuses, galaxy.StatusChange{Unit: id, Status: status})
		}
	}
	return d
}

func noParticipants(ctx Context) error {
	return apperrors.WithMetadata(apperrors.CodeCombatNoParticipants,
		fmt.Sprintf("combat in %s needs units on both sides", ctx.System),
		map[string]string{
			apperrors.MetaSystemID: string(ctx.System),
			apperrors.MetaPlayerID: string(ctx.Attacker.Player),
		})
}
