package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/4cecoder/circlesync/models"
)

// PairSize is the number of bytes one (x, y) pair takes on the wire.
const PairSize = 8

// MaxDatagramSize bounds the receive buffers on both ends.
const MaxDatagramSize = 2048

var ErrDatagramLength = errors.New("datagram length is not a multiple of 8")

// Pack lays out positions as consecutive big-endian uint32 pairs.
func Pack(positions []models.Position) []byte {
	b := make([]byte, 0, len(positions)*PairSize)
	for _, p := range positions {
		b = binary.BigEndian.AppendUint32(b, p.X)
		b = binary.BigEndian.AppendUint32(b, p.Y)
	}
	return b
}

// Unpack is the inverse of Pack. An empty datagram yields no positions.
func Unpack(b []byte) ([]models.Position, error) {
	if len(b)%PairSize != 0 {
		return nil, fmt.Errorf("unpack %d bytes: %w", len(b), ErrDatagramLength)
	}
	positions := make([]models.Position, len(b)/PairSize)
	for i := range positions {
		off := i * PairSize
		positions[i] = models.Position{
			X: binary.BigEndian.Uint32(b[off:]),
			Y: binary.BigEndian.Uint32(b[off+4:]),
		}
	}
	return positions, nil
}

// UnpackOne decodes a single-pair datagram as sent by a client.
func UnpackOne(b []byte) (models.Position, error) {
	if len(b) != PairSize {
		return models.Position{}, fmt.Errorf("unpack %d bytes as one pair: %w", len(b), ErrDatagramLength)
	}
	return models.Position{
		X: binary.BigEndian.Uint32(b),
		Y: binary.BigEndian.Uint32(b[4:]),
	}, nil
}
