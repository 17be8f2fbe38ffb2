package pmbus

import (
	"reflect"
	"testing"
)

func TestDecodeStatusWordSingleBits(t *testing.T) {
	cases := []struct {
		word uint16
		flag string
	}{
		{0x0004, "over_temperature"},
		{0x0020, "output_overvoltage"},
		{0x0010, "over_current"},
		{0x0008, "input_undervoltage"},
		{0x0002, "communication_error"},
		{0x0400, "fan_fault"},
		{0x0800, "power_not_good"},
	}
	for _, tc := range cases {
		flags := DecodeStatusWord(tc.word)
		if len(flags) != 1 || !flags.Has(tc.flag) {
			t.Errorf("DecodeStatusWord(0x%04X) = %v, want exactly {%s}", tc.word, flags, tc.flag)
		}
	}
}

func TestDecodeStatusWordHealthy(t *testing.T) {
	if flags := DecodeStatusWord(0); len(flags) != 0 {
		t.Fatalf("DecodeStatusWord(0) = %v, want empty set", flags)
	}
}

func TestDecodeStatusWordMultipleFlags(t *testing.T) {
	flags := DecodeStatusWord(0x0014) // IOUT_OC + TEMPERATURE
	if len(flags) != 2 || !flags.Has("over_current") || !flags.Has("over_temperature") {
		t.Fatalf("DecodeStatusWord(0x0014) = %v, want {over_current, over_temperature}", flags)
	}
}

func TestDecodeStatusWordIdempotent(t *testing.T) {
	for _, word := range []uint16{0, 0x0004, 0xFFFF, 0xA5A5} {
		a := DecodeStatusWord(word)
		b := DecodeStatusWord(word)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("DecodeStatusWord(0x%04X) varies across calls: %v vs %v", word, a, b)
		}
	}
}

func TestStatusWordBitsUnique(t *testing.T) {
	seenMask := map[uint16]bool{}
	seenName := map[string]bool{}
	for _, b := range StatusWordBits {
		if b.Mask == 0 || b.Mask&(b.Mask-1) != 0 {
			t.Errorf("mask 0x%04X for %q is not a single bit", b.Mask, b.Name)
		}
		if seenMask[b.Mask] {
			t.Errorf("mask 0x%04X mapped twice", b.Mask)
		}
		if seenName[b.Name] {
			t.Errorf("flag %q mapped twice", b.Name)
		}
		seenMask[b.Mask] = true
		seenName[b.Name] = true
	}
}

func TestDecodeStatusByteMatchesLowByte(t *testing.T) {
	for b := 0; b <= 0xFF; b++ {
		byteFlags := DecodeStatusByte(byte(b))
		wordFlags := DecodeStatusWord(uint16(b))
		if !reflect.DeepEqual(byteFlags, wordFlags) {
			t.Fatalf("DecodeStatusByte(0x%02X) = %v, DecodeStatusWord = %v", b, byteFlags, wordFlags)
		}
	}
}
