package galaxy

import (
	"slices"
	"testing"

	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
)

func testSetup() Setup {
	return Setup{
		Round: 1,
		Phase: PhaseAction,
		Systems: []System{
			{
				ID:       "home",
				Position: Hex{Q: 0, R: 0},
				Planets: []Planet{
					{ID: "jord", Resources: 4, Influence: 2},
				},
				SpaceUnits: []Unit{
					{ID: "c1", Kind: Carrier, Owner: "red"},
					{ID: "f1", Kind: Fighter, Owner: "red"},
				},
				Adjacent: []SystemID{"mid"},
			},
			{
				ID:        "mid",
				Position:  Hex{Q: 1, R: 0},
				Anomalies: []Anomaly{GravityRift},
			},
			{
				ID:       "far",
				Position: Hex{Q: 2, R: 0},
				Planets: []Planet{
					{ID: "mecatol", Resources: 1, Influence: 6, Units: []Unit{
						{ID: "i9", Kind: Infantry, Owner: "blue"},
					}},
				},
				Adjacent:  []SystemID{"mid"},
				Wormholes: []Wormhole{WormholeAlpha},
			},
			{
				ID:        "rim",
				Position:  Hex{Q: 7, R: -1},
				Wormholes: []Wormhole{WormholeAlpha},
			},
			{
				ID:        "void",
				Position:  Hex{Q: -6, R: 0},
				Wormholes: []Wormhole{WormholeBeta},
			},
		},
		Players: []Player{
			{ID: "red", TradeGoods: 2, Tokens: CommandTokens{Tactic: 3, Fleet: 3, Strategy: 2}},
			{ID: "blue", Tokens: CommandTokens{Tactic: 3, Fleet: 3, Strategy: 2}},
		},
		Control: map[PlanetID]PlayerID{"jord": "red", "mecatol": "blue"},
	}
}

func mustState(t *testing.T, setup Setup) GameState {
	t.Helper()
	s, err := NewGameState(setup)
	if err != nil {
		t.Fatalf("new game state: %v", err)
	}
	return s
}

func TestNewGameStateRejectsBrokenInvariants(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Setup)
	}{
		{"unknown owner", func(s *Setup) {
			s.Systems[1].SpaceUnits = []Unit{{ID: "x1", Kind: Cruiser, Owner: "green"}}
		}},
		{"unit in two places", func(s *Setup) {
			s.Systems[1].SpaceUnits = []Unit{{ID: "c1", Kind: Carrier, Owner: "red"}}
		}},
		{"unit without kind", func(s *Setup) {
			s.Systems[1].SpaceUnits = []Unit{{ID: "x1", Owner: "red"}}
		}},
		{"control of unknown planet", func(s *Setup) {
			s.Control["atlantis"] = "red"
		}},
		{"control by unknown player", func(s *Setup) {
			s.Control["jord"] = "green"
		}},
		{"adjacent to unknown system", func(s *Setup) {
			s.Systems[0].Adjacent = append(s.Systems[0].Adjacent, "nowhere")
		}},
		{"duplicate planet", func(s *Setup) {
			s.Systems[1].Planets = []Planet{{ID: "jord"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup := testSetup()
			tt.mutate(&setup)
			_, err := NewGameState(setup)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := apperrors.CodeOf(err); got != apperrors.CodeStateInvariant {
				t.Fatalf("code = %s, want %s", got, apperrors.CodeStateInvariant)
			}
			if !apperrors.IsInvalidState(err) {
				t.Fatal("expected invalid state kind")
			}
		})
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	setup := testSetup()
	s := mustState(t, setup)

	// Edits to the setup after construction must not leak in.
	setup.Systems[0].SpaceUnits[0].Owner = "blue"
	sys, _ := s.System("home")
	if sys.SpaceUnits[0].Owner != "red" {
		t.Fatalf("owner = %s, want red", sys.SpaceUnits[0].Owner)
	}

	sys.SpaceUnits[0].Status.Damaged = true
	sys.Planets[0].Units = append(sys.Planets[0].Units, Unit{ID: "ghost"})
	again, _ := s.System("home")
	if again.SpaceUnits[0].Status.Damaged {
		t.Fatal("expected system copy to be independent")
	}
	if len(again.Planets[0].Units) != 0 {
		t.Fatalf("planet units = %d, want 0", len(again.Planets[0].Units))
	}

	control := s.ControlTable()
	control["jord"] = "blue"
	if got, _ := s.Controller("jord"); got != "red" {
		t.Fatalf("controller = %s, want red", got)
	}
}

func TestNeighborsWormholeTagsMustMatch(t *testing.T) {
	s := mustState(t, testSetup())
	far, _ := s.System("far")
	rim, _ := s.System("rim")
	if d := far.Position.Distance(rim.Position); d < 5 {
		t.Fatalf("distance = %d, want at least 5", d)
	}
	if !s.Adjacent("far", "rim") {
		t.Fatal("expected matching alpha wormholes to be adjacent")
	}
	if s.Adjacent("far", "void") {
		t.Fatal("expected alpha and beta wormholes not to be adjacent")
	}
	got := s.Neighbors("far")
	want := []SystemID{"mid", "rim"}
	if !slices.Equal(got, want) {
		t.Fatalf("neighbors = %v, want %v", got, want)
	}
	// Explicit adjacency is symmetric even when only one side lists it.
	if got := s.Neighbors("mid"); !slices.Equal(got, []SystemID{"far", "home"}) {
		t.Fatalf("neighbors(mid) = %v, want [far home]", got)
	}
}

func TestLocateAndPlanetSystem(t *testing.T) {
	s := mustState(t, testSetup())
	u, at, ok := s.Locate("i9")
	if !ok {
		t.Fatal("expected unit to be found")
	}
	if u.Kind != Infantry || at != OnPlanet("far", "mecatol") {
		t.Fatalf("locate = %v at %v", u, at)
	}
	if sys, ok := s.PlanetSystem("jord"); !ok || sys != "home" {
		t.Fatalf("planet system = %s, %v", sys, ok)
	}
	if _, _, ok := s.Locate("missing"); ok {
		t.Fatal("expected missing unit not to be found")
	}
	planets := s.ControlledPlanets("red")
	if len(planets) != 1 || planets[0].ID != "jord" {
		t.Fatalf("controlled planets = %v", planets)
	}
}

func TestAllied(t *testing.T) {
	setup := testSetup()
	setup.Players[0].Allies = []PlayerID{"blue"}
	s := mustState(t, setup)
	if !s.Allied("blue", "red") || !s.Allied("red", "blue") {
		t.Fatal("expected alliance to hold in both directions")
	}
	if !s.Allied("red", "red") {
		t.Fatal("expected a player to be allied with itself")
	}
}
