package dice

import "math/rand"

// D10 is the die every tactical roll uses.
const D10 = 10

// Roller hands out single dice from one seeded source so that a whole
// tactical action replays identically for a fixed seed.
type Roller struct {
	src   Source
	count int
}

// NewRoller returns a roller backed by math/rand seeded with seed.
func NewRoller(seed int64) *Roller {
	return &Roller{src: rand.New(rand.NewSource(seed))}
}

// NewRollerFromSource wraps an arbitrary face source.
func NewRollerFromSource(src Source) *Roller {
	return &Roller{src: src}
}

// Roll returns one normalized face of a die with the given sides.
func (r *Roller) Roll(sides int) int {
	r.count++
	return rollDie(r.src, sides)
}

// RollD10 returns one normalized d10 face.
func (r *Roller) RollD10() int {
	return r.Roll(D10)
}

// Rolled reports how many dice this roller has produced.
func (r *Roller) Rolled() int {
	return r.count
}

// Sequence is a scripted Source that replays fixed faces in order and wraps
// around when exhausted. Faces may be given as game values (1..n) or as the
// raw printed 0; a value equal to n is returned as raw 0.
type Sequence struct {
	faces []int
	next  int
}

// NewSequence builds a scripted source.
func NewSequence(faces ...int) *Sequence {
	return &Sequence{faces: append([]int(nil), faces...)}
}

// Intn returns the next scripted face reduced into [0, n).
func (s *Sequence) Intn(n int) int {
	if len(s.faces) == 0 || n <= 0 {
		return 0
	}
	v := s.faces[s.next%len(s.faces)]
	s.next++
	if v < 0 {
		v = -v
	}
	return v % n
}
