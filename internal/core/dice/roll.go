// Package dice supplies the seeded d10 faces every tactical roll reads.
package dice

// Source yields raw die faces. *math/rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// NormalizeFace maps a raw face in [0, sides) to its game value in
// [1, sides]. A raw 0 reads as sides; it is never clamped to a fixed
// pass or fail.
func NormalizeFace(raw, sides int) int {
	if raw == 0 {
		return sides
	}
	return raw
}

func rollDie(src Source, sides int) int {
	return NormalizeFace(src.Intn(sides), sides)
}
