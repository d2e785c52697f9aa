// Package snapshotcodec packs game states for storage: the JSON encoding of
// the state is compressed with LZ4 and sealed with a BLAKE3 checksum of the
// uncompressed bytes.
package snapshotcodec

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	apperrors "github.com/louisbranch/hexfleet/internal/platform/errors"
	"github.com/louisbranch/hexfleet/internal/services/tactics/domain/galaxy"
	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"
)

// magic prefixes every packed snapshot. The checksum follows it.
var magic = []byte("HXS1")

const sumSize = 32

// Sum returns the hex BLAKE3 checksum of data.
func Sum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Pack encodes s into a compressed, checksummed payload.
func Pack(s galaxy.GameState) ([]byte, error) {
	raw, err := galaxy.Encode(s)
	if err != nil {
		return nil, err
	}
	sum := blake3.Sum256(raw)

	var buf bytes.Buffer
	buf.Write(magic)
	buf.Write(sum[:])
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Unpack reverses Pack. A payload that is truncated, not LZ4, or whose
// checksum does not match fails with CodeSnapshotCorrupt.
func Unpack(payload []byte) (galaxy.GameState, error) {
	raw, err := unpackRaw(payload)
	if err != nil {
		return galaxy.GameState{}, err
	}
	s, err := galaxy.Decode(raw)
	if err != nil {
		return galaxy.GameState{}, apperrors.Wrap(apperrors.CodeSnapshotCorrupt, "decode snapshot", err)
	}
	return s, nil
}

// Checksum returns the checksum sealed in payload without decompressing it.
func Checksum(payload []byte) (string, error) {
	if err := checkHeader(payload); err != nil {
		return "", err
	}
	return hex.EncodeToString(payload[len(magic) : len(magic)+sumSize]), nil
}

func unpackRaw(payload []byte) ([]byte, error) {
	if err := checkHeader(payload); err != nil {
		return nil, err
	}
	want := payload[len(magic) : len(magic)+sumSize]
	zr := lz4.NewReader(bytes.NewReader(payload[len(magic)+sumSize:]))
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSnapshotCorrupt, "decompress snapshot", err)
	}
	got := blake3.Sum256(raw)
	if !bytes.Equal(got[:], want) {
		return nil, apperrors.WithMetadata(apperrors.CodeSnapshotCorrupt, "snapshot checksum mismatch",
			map[string]string{apperrors.MetaDetail: hex.EncodeToString(want)})
	}
	return raw, nil
}

func checkHeader(payload []byte) error {
	if len(payload) < len(magic)+sumSize || !bytes.Equal(payload[:len(magic)], magic) {
		return apperrors.New(apperrors.CodeSnapshotCorrupt, "not a snapshot payload")
	}
	return nil
}
