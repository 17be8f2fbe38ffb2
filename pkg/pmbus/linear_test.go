package pmbus

import (
	"math"
	"testing"
)

// encodeLinear11 packs exponent and mantissa into a linear11 word. Test-side
// inverse of DecodeLinear11.
func encodeLinear11(exp, mant int) uint16 {
	return uint16(exp&0x1F)<<11 | uint16(mant)&0x07FF
}

func TestDecodeLinear11Reference(t *testing.T) {
	cases := []struct {
		word uint16
		want float64
	}{
		// exponent -6 (11010), mantissa 410: 410 * 2^-6
		{0xD19A, 6.40625},
		// exponent -13 (10011), mantissa -920 (10001101000): -920 * 2^-13
		{0x9C68, -0.1123046875},
		// zero word decodes to zero
		{0x0000, 0},
		// exponent 0, mantissa 1
		{0x0001, 1},
		// exponent 15 (01111), mantissa -1024: most negative value
		{0x7C00, -1024 * 32768},
	}
	for _, tc := range cases {
		if got := DecodeLinear11(tc.word); got != tc.want {
			t.Errorf("DecodeLinear11(0x%04X) = %v, want %v", tc.word, got, tc.want)
		}
	}
}

func TestDecodeLinear11RoundTrip(t *testing.T) {
	for exp := -16; exp <= 15; exp++ {
		for mant := -1024; mant <= 1023; mant++ {
			word := encodeLinear11(exp, mant)
			want := float64(mant) * math.Pow(2, float64(exp))
			if got := DecodeLinear11(word); got != want {
				t.Fatalf("DecodeLinear11(0x%04X) = %v, want %v (exp=%d mant=%d)",
					word, got, want, exp, mant)
			}
		}
	}
}

func TestDecodeLinear11TotalAndDeterministic(t *testing.T) {
	for w := 0; w <= 0xFFFF; w++ {
		word := uint16(w)
		a := DecodeLinear11(word)
		b := DecodeLinear11(word)
		if a != b {
			t.Fatalf("DecodeLinear11(0x%04X) not deterministic: %v vs %v", word, a, b)
		}
		if math.IsNaN(a) || math.IsInf(a, 0) {
			t.Fatalf("DecodeLinear11(0x%04X) = %v, want finite", word, a)
		}
	}
}

func TestDecodeLinear16(t *testing.T) {
	cases := []struct {
		word uint16
		exp  int
		want float64
	}{
		{0, -6, 0},
		{0x0300, -6, 12},   // 768 * 2^-6
		{0xFFFF, 0, 65535}, // mantissa is unsigned
		{1, 5, 32},
	}
	for _, tc := range cases {
		if got := DecodeLinear16(tc.word, tc.exp); got != tc.want {
			t.Errorf("DecodeLinear16(0x%04X, %d) = %v, want %v", tc.word, tc.exp, got, tc.want)
		}
	}
}

func TestDecodeLinear16Monotonic(t *testing.T) {
	for _, exp := range []int{-16, -6, 0, 7} {
		prev := math.Inf(-1)
		for w := 0; w <= 0xFFFF; w++ {
			v := DecodeLinear16(uint16(w), exp)
			if v < prev {
				t.Fatalf("DecodeLinear16 not monotonic at word=0x%04X exp=%d: %v < %v",
					w, exp, v, prev)
			}
			prev = v
		}
	}
}

func TestParseVOUTMode(t *testing.T) {
	cases := []struct {
		b       byte
		want    int
		wantErr bool
	}{
		{0x1A, -6, false}, // 11010 two's complement
		{0x00, 0, false},
		{0x0F, 15, false},
		{0x10, -16, false},
		{0x40, 0, true}, // VID mode
		{0xA0, 0, true}, // direct mode
	}
	for _, tc := range cases {
		got, err := ParseVOUTMode(tc.b)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseVOUTMode(0x%02X): expected error, got %d", tc.b, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseVOUTMode(0x%02X): %v", tc.b, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseVOUTMode(0x%02X) = %d, want %d", tc.b, got, tc.want)
		}
	}
}
