// Package production resolves unit production as a reserve, spend, then
// commit-or-rollback sequence. Placement is validated before any cost is
// computed, so a rejected request never deducts anything.
package production

import (
	"fmt"
	"slices"
	"strconv"

	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
	"github.com/louisbranch/hexfleet/internal/platform/id"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/catalog"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/compliance"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
)

var (
	// ErrNotSpent is returned when rolling back or committing a reservation
	// that was never spent.
	ErrNotSpent = apperrors.New(apperrors.CodeProductionNotSpent, "reservation was not spent")
	// ErrAlreadyRolledBack is returned by a second rollback.
	ErrAlreadyRolledBack = apperrors.New(apperrors.CodeProductionAlreadyRolledBack, "reservation already rolled back")
	// ErrAlreadyCommitted is returned when a committed reservation is spent,
	// committed or rolled back again.
	ErrAlreadyCommitted = apperrors.New(apperrors.CodeProductionAlreadyCommitted, "reservation already committed")
)

// Order asks for Quantity units of Kind. Kinds are upgraded through the
// player's technologies before costing.
type Order struct {
	Kind     galaxy.UnitKind `json:"kind" yaml:"kind"`
	Quantity int             `json:"quantity" yaml:"quantity"`
}

// Request is one producer's production. Ships are placed in the space
// area of System; ground forces on the producer's planet. Exhaust and
// TradeGoods name the payment; when both are empty the ledger pays with
// the player's ready planets, highest resources first, then trade goods.
type Request struct {
	Player     galaxy.PlayerID   `json:"player" yaml:"player"`
	System     galaxy.SystemID   `json:"system" yaml:"system"`
	Producer   galaxy.UnitID     `json:"producer" yaml:"producer"`
	Orders     []Order           `json:"orders" yaml:"orders"`
	Exhaust    []galaxy.PlanetID `json:"exhaust,omitempty" yaml:"exhaust,omitempty"`
	TradeGoods int               `json:"trade_goods,omitempty" yaml:"trade_goods,omitempty"`
}

type stage int

const (
	stageReserved stage = iota
	stageSpent
	stageCommitted
	stageRolledBack
)

func (s stage) String() string {
	switch s {
	case stageReserved:
		return "reserved"
	case stageSpent:
		return "spent"
	case stageCommitted:
		return "committed"
	case stageRolledBack:
		return "rolled_back"
	default:
		return "stage(" + strconv.Itoa(int(s)) + ")"
	}
}

// Reservation is a validated request waiting to be paid for and placed.
type Reservation struct {
	ID      string
	Request Request
	// Cost is the total resource cost.
	Cost int
	// Limit is the producer's production value, computed when reserved.
	Limit int
	Units []galaxy.Unit

	placement galaxy.Delta
	spend     galaxy.Delta
	refund    galaxy.Delta
	stage     stage
}

// Stage reports where the reservation is in its lifecycle.
func (r *Reservation) Stage() string { return r.stage.String() }

// Placement returns the delta that places the produced units. Apply it
// before Commit so that a failed placement can still be rolled back.
func (r *Reservation) Placement() galaxy.Delta { return r.placement }

// Ledger validates and prices production requests.
type Ledger struct {
	validator *compliance.Validator
	catalog   *catalog.Catalog
}

// NewLedger returns a ledger backed by the validator's catalog.
func NewLedger(v *compliance.Validator) *Ledger {
	return &Ledger{validator: v, catalog: v.Catalog()}
}

// Reserve validates req against state. Placement legality is checked first;
// the production limit and the payment are worked out afterwards, the
// limit from the producer's current planet resources.
func (l *Ledger) Reserve(state galaxy.GameState, req Request) (*Reservation, error) {
	player, ok := state.Player(req.Player)
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodePlayerNotFound,
			fmt.Sprintf("player %s not found", req.Player),
			map[string]string{apperrors.MetaPlayerID: string(req.Player)})
	}
	sys, ok := state.System(req.System)
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeSystemNotFound,
			fmt.Sprintf("system %s not found", req.System),
			map[string]string{apperrors.MetaSystemID: string(req.System)})
	}
	producer, at, err := l.producer(state, req)
	if err != nil {
		return nil, err
	}

	res := &Reservation{Request: req}
	if res.ID, err = id.NewID(); err != nil {
		return nil, err
	}

	// Placement.
	serial := state.UnitSerial()
	units := 0
	ships := false
	for _, o := range req.Orders {
		if o.Quantity < 1 {
			return nil, reject(apperrors.CodeProductionInvalidQuantity, req,
				fmt.Sprintf("quantity %d of %s", o.Quantity, o.Kind))
		}
		kind := l.catalog.ProducedKind(o.Kind, player)
		stats, err := l.catalog.Stats(kind)
		if err != nil {
			return nil, err
		}
		if !stats.Producible || kind.IsStructure() {
			return nil, reject(apperrors.CodeProductionNotProducible, req, kind.String()+" cannot be produced")
		}
		if kind.IsGround() && at.InSpace() {
			return nil, reject(apperrors.CodeProductionPlacementIllegal, req,
				fmt.Sprintf("%s needs a planet but %s is in space", kind, producer.ID))
		}
		where := galaxy.Space(req.System)
		if kind.IsGround() {
			where = at
		}
		ships = ships || kind.IsShip()
		for i := 0; i < o.Quantity; i++ {
			var uid galaxy.UnitID
			for {
				serial++
				uid = galaxy.UnitID("u" + strconv.Itoa(serial))
				if _, _, taken := state.Locate(uid); !taken {
					break
				}
			}
			u := galaxy.Unit{ID: uid, Kind: kind, Owner: req.Player}
			res.Units = append(res.Units, u)
			res.placement.Placements = append(res.placement.Placements, galaxy.Placement{Unit: u, At: where})
		}
		units += o.Quantity
		res.Cost += stats.Cost * ((o.Quantity + stats.UnitsPerCost() - 1) / stats.UnitsPerCost())
	}
	res.placement.SerialAdvance = serial - state.UnitSerial()
	if units == 0 {
		return nil, reject(apperrors.CodeProductionInvalidQuantity, req, "nothing ordered")
	}
	if ships && l.blockaded(state, sys, req.Player) {
		return nil, reject(apperrors.CodeProductionBlockaded, req, "enemy ships in "+string(req.System))
	}
	preview, err := state.Apply(res.placement)
	if err != nil {
		return nil, reject(apperrors.CodeProductionPlacementIllegal, req, err.Error())
	}
	if !l.validator.CapacityRespected(req.System, req.Player, preview) {
		return nil, reject(apperrors.CodeProductionCapacityExceeded, req,
			"not enough capacity in "+string(req.System))
	}
	if !l.validator.FleetSupplyRespected(req.System, req.Player, preview) {
		return nil, reject(apperrors.CodeProductionFleetSupplyExceeded, req,
			"fleet supply exceeded in "+string(req.System))
	}

	// Limit, computed now for dynamic producers.
	res.Limit, err = l.ProductionValue(state, producer)
	if err != nil {
		return nil, err
	}
	if units > res.Limit {
		return nil, reject(apperrors.CodeProductionLimitExceeded, req,
			fmt.Sprintf("%d units over a production limit of %d", units, res.Limit))
	}

	// Payment.
	if err := l.pay(state, player, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (l *Ledger) producer(state galaxy.GameState, req Request) (galaxy.Unit, galaxy.Location, error) {
	u, at, ok := state.Locate(req.Producer)
	if !ok || u.Owner != req.Player || at.System != req.System {
		return galaxy.Unit{}, galaxy.Location{}, reject(apperrors.CodeProductionNoProducer, req,
			fmt.Sprintf("%s is not a unit of %s in %s", req.Producer, req.Player, req.System))
	}
	if !l.validator.CanResolveProductionAbilities(u, state) {
		return galaxy.Unit{}, galaxy.Location{}, reject(apperrors.CodeProductionNoProducer, req,
			u.Kind.String()+" has no production ability")
	}
	if !at.InSpace() {
		if c, _ := state.Controller(at.Planet); c != req.Player {
			return galaxy.Unit{}, galaxy.Location{}, apperrors.WithMetadata(apperrors.CodeProductionPlanetNotControlled,
				fmt.Sprintf("%s does not control %s", req.Player, at.Planet),
				map[string]string{
					apperrors.MetaPlayerID: string(req.Player),
					apperrors.MetaPlanetID: string(at.Planet),
				})
		}
	}
	return u, at, nil
}

// ProductionValue returns how many units producer may produce now. A
// dynamic producer reads its planet's current resources.
func (l *Ledger) ProductionValue(state galaxy.GameState, producer galaxy.Unit) (int, error) {
	stats, err := l.catalog.Stats(producer.Kind)
	if err != nil {
		return 0, err
	}
	if !stats.DynamicProduction {
		return stats.Production, nil
	}
	_, at, ok := state.Locate(producer.ID)
	if !ok || at.InSpace() {
		return stats.Production + stats.ProductionBonus, nil
	}
	sys, _ := state.System(at.System)
	planet, _ := sys.Planet(at.Planet)
	return stats.Production + planet.Resources + stats.ProductionBonus, nil
}

func (l *Ledger) blockaded(state galaxy.GameState, sys galaxy.System, player galaxy.PlayerID) bool {
	for _, owner := range sys.ShipOwners() {
		if owner != player && !state.Allied(owner, player) {
			return true
		}
	}
	return false
}

// pay works out which planets to exhaust and how many trade goods to spend.
func (l *Ledger) pay(state galaxy.GameState, player galaxy.Player, res *Reservation) error {
	req := res.Request
	ready := make(map[galaxy.PlanetID]galaxy.Planet)
	for _, p := range state.ControlledPlanets(player.ID) {
		if !p.Exhausted {
			ready[p.ID] = p
		}
	}

	exhaust := slices.Clone(req.Exhaust)
	goods := req.TradeGoods
	if len(exhaust) == 0 && goods == 0 {
		planets := make([]galaxy.Planet, 0, len(ready))
		for _, p := range ready {
			planets = append(planets, p)
		}
		slices.SortFunc(planets, func(a, b galaxy.Planet) int {
			if a.Resources != b.Resources {
				return b.Resources - a.Resources
			}
			if a.ID < b.ID {
				return -1
			}
			if a.ID > b.ID {
				return 1
			}
			return 0
		})
		paid := 0
		for _, p := range planets {
			if paid >= res.Cost {
				break
			}
			if p.Resources == 0 {
				continue
			}
			exhaust = append(exhaust, p.ID)
			paid += p.Resources
		}
		if paid < res.Cost {
			goods = min(res.Cost-paid, player.TradeGoods)
		}
	}

	total := goods
	seen := make(map[galaxy.PlanetID]bool, len(exhaust))
	for _, pid := range exhaust {
		p, ok := ready[pid]
		if !ok || seen[pid] {
			return reject(apperrors.CodeProductionInsufficientFunds, req,
				fmt.Sprintf("%s is not a ready planet of %s", pid, req.Player))
		}
		seen[pid] = true
		total += p.Resources
	}
	if goods < 0 || goods > player.TradeGoods {
		return reject(apperrors.CodeProductionInsufficientFunds, req,
			fmt.Sprintf("%d trade goods requested, %d held", goods, player.TradeGoods))
	}
	if total < res.Cost {
		return reject(apperrors.CodeProductionInsufficientFunds, req,
			fmt.Sprintf("cost %d, paying %d", res.Cost, total))
	}

	res.spend.ExhaustPlanets = exhaust
	res.refund.RefreshPlanets = slices.Clone(exhaust)
	if goods > 0 {
		res.spend.TradeGoods = []galaxy.TradeGoodsChange{{Player: req.Player, Amount: -goods}}
		res.refund.TradeGoods = []galaxy.TradeGoodsChange{{Player: req.Player, Amount: goods}}
	}
	return nil
}

// Spend marks res spent and returns the delta that pays for it.
func (l *Ledger) Spend(res *Reservation) (galaxy.Delta, error) {
	switch res.stage {
	case stageReserved:
		res.stage = stageSpent
		return res.spend, nil
	case stageCommitted:
		return galaxy.Delta{}, fmt.Errorf("spend %s: %w", res.ID, ErrAlreadyCommitted)
	case stageRolledBack:
		return galaxy.Delta{}, fmt.Errorf("spend %s: %w", res.ID, ErrAlreadyRolledBack)
	default:
		return galaxy.Delta{}, apperrors.WithMetadata(apperrors.CodeStepOutOfOrder,
			fmt.Sprintf("reservation %s already spent", res.ID),
			map[string]string{apperrors.MetaDetail: "spend"})
	}
}

// Commit finalises a spent reservation and returns the placement delta.
func (l *Ledger) Commit(res *Reservation) (galaxy.Delta, error) {
	switch res.stage {
	case stageSpent:
		res.stage = stageCommitted
		return res.placement, nil
	case stageReserved:
		return galaxy.Delta{}, fmt.Errorf("commit %s: %w", res.ID, ErrNotSpent)
	case stageCommitted:
		return galaxy.Delta{}, fmt.Errorf("commit %s: %w", res.ID, ErrAlreadyCommitted)
	default:
		return galaxy.Delta{}, fmt.Errorf("commit %s: %w", res.ID, ErrAlreadyRolledBack)
	}
}

// Rollback reverses a spent reservation exactly once and returns the
// refund delta.
func (l *Ledger) Rollback(res *Reservation) (galaxy.Delta, error) {
	switch res.stage {
	case stageSpent:
		res.stage = stageRolledBack
		return res.refund, nil
	case stageReserved:
		return galaxy.Delta{}, fmt.Errorf("rollback %s: %w", res.ID, ErrNotSpent)
	case stageRolledBack:
		return galaxy.Delta{}, fmt.Errorf("rollback %s: %w", res.ID, ErrAlreadyRolledBack)
	default:
		return galaxy.Delta{}, fmt.Errorf("rollback %s: %w", res.ID, ErrAlreadyCommitted)
	}
}

func reject(code apperrors.Code, req Request, reason string) error {
	return apperrors.WithMetadata(code, reason, map[string]string{
		apperrors.MetaPlayerID: string(req.Player),
		apperrors.MetaSystemID: string(req.System),
		apperrors.MetaUnitID:   string(req.Producer),
		apperrors.MetaDetail:   reason,
	})
}
