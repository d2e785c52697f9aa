package galaxy

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
	"gopkg.in/yaml.v3"
)

// RecordVersion is the current snapshot record layout.
const RecordVersion = 1

// Record is the persisted form of a GameState. It mirrors Setup except that
// each planet may carry the controller it believes it has; decoding rejects
// a record whose planets disagree with the control table.
type Record struct {
	Version      int                     `json:"version" yaml:"version"`
	Round        int                     `json:"round" yaml:"round"`
	Phase        Phase                   `json:"phase" yaml:"phase"`
	ActiveSystem SystemID                `json:"active_system,omitempty" yaml:"active_system,omitempty"`
	ActivePlayer PlayerID                `json:"active_player,omitempty" yaml:"active_player,omitempty"`
	UnitSerial   int                     `json:"unit_serial" yaml:"unit_serial"`
	Systems      []SystemRecord          `json:"systems" yaml:"systems"`
	Players      []Player                `json:"players" yaml:"players"`
	Control      map[PlanetID]PlayerID   `json:"control,omitempty" yaml:"control,omitempty"`
	Tokens       map[SystemID][]PlayerID `json:"tokens,omitempty" yaml:"tokens,omitempty"`
}

// SystemRecord is the persisted form of a System.
type SystemRecord struct {
	ID         SystemID       `json:"id" yaml:"id"`
	Position   Hex            `json:"position" yaml:"position"`
	Planets    []PlanetRecord `json:"planets,omitempty" yaml:"planets,omitempty"`
	SpaceUnits []Unit         `json:"space_units,omitempty" yaml:"space_units,omitempty"`
	Adjacent   []SystemID     `json:"adjacent,omitempty" yaml:"adjacent,omitempty"`
	Wormholes  []Wormhole     `json:"wormholes,omitempty" yaml:"wormholes,omitempty"`
	Anomalies  []Anomaly      `json:"anomalies,omitempty" yaml:"anomalies,omitempty"`
}

// PlanetRecord is the persisted form of a Planet.
type PlanetRecord struct {
	ID           PlanetID `json:"id" yaml:"id"`
	Resources    int      `json:"resources" yaml:"resources"`
	Influence    int      `json:"influence" yaml:"influence"`
	Exhausted    bool     `json:"exhausted,omitempty" yaml:"exhausted,omitempty"`
	ControlledBy PlayerID `json:"controlled_by,omitempty" yaml:"controlled_by,omitempty"`
	Units        []Unit   `json:"units,omitempty" yaml:"units,omitempty"`
}

// ToRecord converts a state to its persisted form. Each planet's
// ControlledBy is filled from the control table.
func ToRecord(s GameState) Record {
	setup := s.Setup()
	rec := Record{
		Version:      RecordVersion,
		Round:        setup.Round,
		Phase:        setup.Phase,
		ActiveSystem: setup.ActiveSystem,
		ActivePlayer: setup.ActivePlayer,
		UnitSerial:   setup.UnitSerial,
		Players:      setup.Players,
		Control:      setup.Control,
		Tokens:       setup.Tokens,
	}
	for _, sys := range setup.Systems {
		sr := SystemRecord{
			ID:         sys.ID,
			Position:   sys.Position,
			SpaceUnits: sys.SpaceUnits,
			Adjacent:   sys.Adjacent,
			Wormholes:  sys.Wormholes,
			Anomalies:  sys.Anomalies,
		}
		for _, p := range sys.Planets {
			sr.Planets = append(sr.Planets, PlanetRecord{
				ID:           p.ID,
				Resources:    p.Resources,
				Influence:    p.Influence,
				Exhausted:    p.Exhausted,
				ControlledBy: setup.Control[p.ID],
				Units:        p.Units,
			})
		}
		rec.Systems = append(rec.Systems, sr)
	}
	return rec
}

// FromRecord rebuilds a state from its persisted form.
func FromRecord(rec Record) (GameState, error) {
	if rec.Version > RecordVersion {
		return GameState{}, invariantError("unsupported record version %d", rec.Version)
	}
	setup := Setup{
		Round:        rec.Round,
		Phase:        rec.Phase,
		ActiveSystem: rec.ActiveSystem,
		ActivePlayer: rec.ActivePlayer,
		UnitSerial:   rec.UnitSerial,
		Players:      rec.Players,
		Control:      rec.Control,
		Tokens:       rec.Tokens,
	}
	for _, sr := range rec.Systems {
		sys := System{
			ID:         sr.ID,
			Position:   sr.Position,
			SpaceUnits: sr.SpaceUnits,
			Adjacent:   sr.Adjacent,
			Wormholes:  sr.Wormholes,
			Anomalies:  sr.Anomalies,
		}
		for _, pr := range sr.Planets {
			if pr.ControlledBy != "" && pr.ControlledBy != rec.Control[pr.ID] {
				return GameState{}, apperrors.WithMetadata(apperrors.CodeControlDiverged,
					fmt.Sprintf("planet %s claims controller %s but control table has %q", pr.ID, pr.ControlledBy, rec.Control[pr.ID]),
					map[string]string{
						apperrors.MetaPlanetID: string(pr.ID),
						apperrors.MetaPlayerID: string(pr.ControlledBy),
					})
			}
			sys.Planets = append(sys.Planets, Planet{
				ID:        pr.ID,
				Resources: pr.Resources,
				Influence: pr.Influence,
				Exhausted: pr.Exhausted,
				Units:     pr.Units,
			})
		}
		setup.Systems = append(setup.Systems, sys)
	}
	return NewGameState(setup)
}

// Encode serializes a state as JSON.
func Encode(s GameState) ([]byte, error) {
	data, err := json.Marshal(ToRecord(s))
	if err != nil {
		return nil, fmt.Errorf("encode game state: %w", err)
	}
	return data, nil
}

// Decode parses a JSON record and rebuilds the state, checking every
// invariant.
func Decode(data []byte) (GameState, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return GameState{}, fmt.Errorf("decode game state: %w", err)
	}
	return FromRecord(rec)
}

// DecodeYAML parses a hand-written YAML scenario into a state.
func DecodeYAML(data []byte) (GameState, error) {
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return GameState{}, fmt.Errorf("decode scenario: %w", err)
	}
	return FromRecord(rec)
}
