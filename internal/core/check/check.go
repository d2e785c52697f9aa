// Package check holds the comparisons that turn die faces into outcomes.
package check

// MeetsHit returns true if the modified roll reaches the hit value.
// This is the single dice-vs-stat rule used by every combat ability.
func MeetsHit(roll, modifier, hitValue int) bool {
	return roll+modifier >= hitValue
}

// AtOrBelow reports whether a normalized roll falls at or under a
// destruction threshold (e.g. a gravity rift destroys on 1-3).
func AtOrBelow(roll, threshold int) bool {
	return roll <= threshold
}
