// Package random provides seed generation for replayable tactical actions.
//
// Every random outcome in the engine flows from one int64 seed per action;
// callers either supply it (replays, tests) or draw a fresh one here.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// ResolveSeed returns the requested seed when set, otherwise a fresh one.
func ResolveSeed(requested *int64) (int64, error) {
	if requested != nil {
		return *requested, nil
	}
	return NewSeed()
}
