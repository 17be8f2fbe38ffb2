package pmbus

// StatusFlags is the set of named faults and warnings decoded from a
// STATUS_WORD or STATUS_BYTE bitfield. Only recognized, set bits appear in
// the set; an empty set means the device reports healthy.
type StatusFlags map[string]bool

// Has reports whether the named flag is set.
func (f StatusFlags) Has(name string) bool { return f[name] }

// StatusBit maps one STATUS_WORD bit position to its flag name.
type StatusBit struct {
	Mask uint16
	Name string
}

// StatusWordBits is the fixed bit-to-name table for STATUS_WORD per PMBus
// Part II. The low byte is identical to STATUS_BYTE. Bits not listed here
// are reserved and never surfaced.
var StatusWordBits = []StatusBit{
	{0x0001, "none_of_the_above"},
	{0x0002, "communication_error"}, // CML
	{0x0004, "over_temperature"},
	{0x0008, "input_undervoltage"}, // VIN_UV
	{0x0010, "over_current"},       // IOUT_OC
	{0x0020, "output_overvoltage"}, // VOUT_OV
	{0x0040, "unit_off"},
	{0x0080, "busy"},
	{0x0100, "unknown_fault"},
	{0x0200, "other_fault"},
	{0x0400, "fan_fault"},
	{0x0800, "power_not_good"},
	{0x1000, "mfr_specific"},
	{0x2000, "input_fault"},
	{0x4000, "output_power_fault"}, // IOUT/POUT
	{0x8000, "output_voltage_fault"},
}

// DecodeStatusWord converts a STATUS_WORD bitfield into named flags.
// Pure function of the word: multiple flags may be set at once, reserved
// bits are dropped, zero yields an empty set.
func DecodeStatusWord(word uint16) StatusFlags {
	flags := StatusFlags{}
	for _, b := range StatusWordBits {
		if word&b.Mask != 0 {
			flags[b.Name] = true
		}
	}
	return flags
}

// DecodeStatusByte converts a STATUS_BYTE bitfield into named flags. The
// byte is the low half of STATUS_WORD, so the same table applies.
func DecodeStatusByte(b byte) StatusFlags {
	return DecodeStatusWord(uint16(b))
}
