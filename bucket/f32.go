package bucket

import (
	"encoding/binary"
	"math"
)

func encodeF32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func decodeF32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// encodeColor writes c into the sample-info record's Color field.
func encodeColor(rec []byte, c [3]float32) {
	for i := 0; i < 3; i++ {
		encodeF32(rec[ColorOffset+i*4:], c[i])
	}
}

// encodeOpacity writes a into the sample-info record's opacity field.
func encodeOpacity(rec []byte, a float32) {
	encodeF32(rec[OpacityOffset:], a)
}

// DecodeColor reads the Color field of a sample-info record.
func DecodeColor(rec []byte) (c [3]float32) {
	for i := 0; i < 3; i++ {
		c[i] = decodeF32(rec[ColorOffset+i*4:])
	}
	return
}

// DecodeOpacity reads the opacity field of a sample-info record.
func DecodeOpacity(rec []byte) float32 {
	return decodeF32(rec[OpacityOffset:])
}
