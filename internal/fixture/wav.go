package fixture

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"
)

// WAV renders a 16 bit stereo sine of the given length as a canonical RIFF
// file.
func WAV(rate int, length time.Duration) []byte {
	frames := int(math.Round(length.Seconds() * float64(rate)))
	const channels, bits = 2, 16
	blockAlign := channels * bits / 8
	dataSize := frames * blockAlign

	var b bytes.Buffer
	le := func(v interface{}) { binary.Write(&b, binary.LittleEndian, v) }
	b.WriteString("RIFF")
	le(uint32(36 + dataSize))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	le(uint32(16))
	le(uint16(1))
	le(uint16(channels))
	le(uint32(rate))
	le(uint32(rate * blockAlign))
	le(uint16(blockAlign))
	le(uint16(bits))
	b.WriteString("data")
	le(uint32(dataSize))
	for i := 0; i < frames; i++ {
		v := int16(math.Sin(2*math.Pi*440*float64(i)/float64(rate)) * 8000)
		le(v)
		le(v)
	}
	return b.Bytes()
}
