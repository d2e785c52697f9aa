// Package replay re-executes journaled tactical actions from a snapshot and
// checks each resulting state against its recorded fingerprint.
package replay

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"

	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/tactical"
	"lukechampine.com/blake3"
)

// Fingerprint returns the hex BLAKE3 digest of the canonical encoding of s.
// Two states with equal fingerprints are equal board positions.
func Fingerprint(s galaxy.GameState) (string, error) {
	data, err := galaxy.Encode(s)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Entry is one recorded action and the fingerprint of the state it left.
type Entry struct {
	Action      tactical.Action
	Fingerprint string
}

// Result is the outcome of a successful replay.
type Result struct {
	State   galaxy.GameState
	Reports []tactical.Report
}

// Verify runs entries in order starting from start. It stops at the first
// entry whose resulting state does not match the recorded fingerprint and
// returns CodeReplayDiverged with the 1-based entry index in the metadata.
func Verify(ctx context.Context, c *tactical.Coordinator, start galaxy.GameState, entries []Entry) (Result, error) {
	res := Result{State: start}
	for i, e := range entries {
		report, next, err := c.Execute(ctx, res.State, e.Action)
		if err != nil {
			return res, fmt.Errorf("replay entry %d: %w", i+1, err)
		}
		got, err := Fingerprint(next)
		if err != nil {
			return res, err
		}
		if got != e.Fingerprint {
			return res, apperrors.WithMetadata(apperrors.CodeReplayDiverged,
				fmt.Sprintf("entry %d produced %s, journal recorded %s", i+1, got, e.Fingerprint),
				map[string]string{
					apperrors.MetaDetail:   strconv.Itoa(i + 1),
					apperrors.MetaPlayerID: string(e.Action.Player),
					apperrors.MetaSystemID: string(e.Action.System),
				})
		}
		res.State = next
		res.Reports = append(res.Reports, report)
	}
	return res, nil
}
