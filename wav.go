package songforge

import (
	"encoding/binary"
	"fmt"
	"math"
)

// wavHeaderSize is the canonical minimal RIFF/WAVE header.
const wavHeaderSize = 44

// EncodeWAV serializes interleaved samples in [-1,1] as an uncompressed
// 16-bit little-endian PCM RIFF/WAVE container. len(samples) must be a
// multiple of channels; the output is exactly 44 + len(samples)*2 bytes.
func EncodeWAV(samples []float32, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrExport, sampleRate)
	}
	if channels < 1 {
		return nil, fmt.Errorf("%w: channel count %d", ErrExport, channels)
	}
	if len(samples)%channels != 0 {
		return nil, fmt.Errorf("%w: %d samples not divisible by %d channels", ErrExport, len(samples), channels)
	}
	dataSize := len(samples) * 2
	byteRate := sampleRate * channels * 2
	blockAlign := channels * 2
	out := make([]byte, wavHeaderSize+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 1) // linear PCM
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 16)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		v := math.Round(float64(s) * 32767)
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(out[wavHeaderSize+i*2:], uint16(int16(v)))
	}
	return out, nil
}
