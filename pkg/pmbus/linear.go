package pmbus

import (
	"fmt"
	"math"
)

// DecodeLinear11 converts a PMBus linear11 word into a float64.
// Bits 15-11 are a 5-bit two's-complement exponent, bits 10-0 an 11-bit
// two's-complement mantissa; the value is mantissa * 2^exponent.
// Total over all 16-bit inputs: every word decodes to some value.
func DecodeLinear11(word uint16) float64 {
	exp := twosComplement(word>>11, 5)
	mant := twosComplement(word&0x07FF, 11)
	return float64(mant) * math.Pow(2, float64(exp))
}

// DecodeLinear16 converts a PMBus linear16 word into a float64. The mantissa
// is the full unsigned 16-bit word; the exponent is supplied by the caller
// (from VOUT_MODE or from per-model configuration) since linear16 does not
// carry it in-band.
func DecodeLinear16(word uint16, exponent int) float64 {
	return float64(word) * math.Pow(2, float64(exponent))
}

// ParseVOUTMode extracts the linear16 exponent from a VOUT_MODE byte.
// Bits 7-5 select the mode (000 = linear); bits 4-0 are the 5-bit
// two's-complement exponent. Non-linear modes are rejected because the
// parameter bits then do not hold an exponent at all.
func ParseVOUTMode(b byte) (int, error) {
	if mode := b >> 5; mode != 0 {
		return 0, fmt.Errorf("vout_mode 0x%02X: unsupported mode %d (only linear supported)", b, mode)
	}
	return twosComplement(uint16(b)&0x1F, 5), nil
}

// twosComplement sign-extends the low `bits` bits of v.
func twosComplement(v uint16, bits uint) int {
	if v&(1<<(bits-1)) != 0 {
		return int(v) - (1 << bits)
	}
	return int(v)
}
