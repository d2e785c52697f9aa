package combat

import (
	"fmt"
	"strconv"

	"github.com/louisbranch/hexfleet/internal/core/check"
	"github.com/louisbranch/hexfleet/internal/core/dice"
	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
)

// Die is one rolled die of a volley.
type Die struct {
	Unit     galaxy.UnitID `json:"unit"`
	Face     int           `json:"face"`
	HitValue int           `json:"hit_value"`
	// RerolledBy lists the abilities that rerolled this die, in order.
	RerolledBy []string `json:"rerolled_by,omitempty"`
}

// Volley is the set of dice one side rolls for one ability. Rerolls may
// replace dice until the volley is sealed; hits are only counted once
// sealed.
type Volley struct {
	Dice     []Die `json:"dice"`
	Modifier int   `json:"modifier"`
	Sealed   bool  `json:"sealed"`
}

// Reroll asks ability to reroll the die at index.
type Reroll struct {
	Ability string `json:"ability" yaml:"ability"`
	Die     int    `json:"die" yaml:"die"`
}

func (v *Volley) add(unit galaxy.UnitID, hitValue, count int, roller *dice.Roller) {
	for i := 0; i < count; i++ {
		v.Dice = append(v.Dice, Die{Unit: unit, Face: roller.RollD10(), HitValue: hitValue})
	}
}

// Reroll replaces the die at index with a new roll. One ability may reroll
// a given die only once; different abilities may each reroll it.
func (v *Volley) Reroll(r Reroll, roller *dice.Roller) error {
	if v.Sealed {
		return apperrors.WithMetadata(apperrors.CodeRerollSealed, "volley is sealed",
			map[string]string{apperrors.MetaDetail: r.Ability})
	}
	if r.Die < 0 || r.Die >= len(v.Dice) {
		return apperrors.WithMetadata(apperrors.CodeRerollOutOfRange,
			fmt.Sprintf("no die %d in a volley of %d", r.Die, len(v.Dice)),
			map[string]string{apperrors.MetaDetail: strconv.Itoa(r.Die)})
	}
	d := &v.Dice[r.Die]
	for _, used := range d.RerolledBy {
		if used == r.Ability {
			return apperrors.WithMetadata(apperrors.CodeRerollRepeated,
				fmt.Sprintf("%s already rerolled die %d", r.Ability, r.Die),
				map[string]string{
					apperrors.MetaDetail: r.Ability,
					apperrors.MetaUnitID: string(d.Unit),
				})
		}
	}
	d.Face = roller.RollD10()
	d.RerolledBy = append(d.RerolledBy, r.Ability)
	return nil
}

// Seal closes the volley to further rerolls.
func (v *Volley) Seal() {
	v.Sealed = true
}

// Hits counts dice that meet their hit value after the modifier. It seals
// the volley first.
func (v *Volley) Hits() int {
	v.Seal()
	hits := 0
	for _, d := range v.Dice {
		if check.MeetsHit(d.Face, v.Modifier, d.HitValue) {
			hits++
		}
	}
	return hits
}
