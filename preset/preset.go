// Package preset encodes and decodes the host-visible parameter chunk.
//
// The chunk layout is fixed at three little-endian float32 values: pitch,
// fine pitch and mix, in that order. Presets and banks share the layout; a
// bank of one program is identical to a preset.
package preset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-pitchshift/shifter"
)

// Size is the exact chunk length in bytes.
const Size = 3 * 4

// ErrChunkSize reports a chunk whose length is not Size.
var ErrChunkSize = errors.New("preset: invalid chunk size")

// Marshal serializes the current parameter values.
//
// The raw float bits are written unchanged, so a marshal and unmarshal pair
// restores the values exactly.
func Marshal(p *shifter.Parameters) []byte {
	buf := make([]byte, Size)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p.Pitch()))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p.PitchFine()))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(p.Mix()))
	return buf
}

// Unmarshal restores parameter values from a chunk. A chunk of any length
// other than Size is rejected without touching p.
func Unmarshal(data []byte, p *shifter.Parameters) error {
	if len(data) != Size {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrChunkSize, len(data), Size)
	}
	p.SetPitch(math.Float32frombits(binary.LittleEndian.Uint32(data[0:4])))
	p.SetPitchFine(math.Float32frombits(binary.LittleEndian.Uint32(data[4:8])))
	p.SetMix(math.Float32frombits(binary.LittleEndian.Uint32(data[8:12])))
	return nil
}

// MarshalBank serializes the single-program bank.
func MarshalBank(p *shifter.Parameters) []byte { return Marshal(p) }

// UnmarshalBank restores the single-program bank.
func UnmarshalBank(data []byte, p *shifter.Parameters) error { return Unmarshal(data, p) }
