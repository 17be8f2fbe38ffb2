package pmbus

// Format identifies how a command's reply bytes are decoded.
type Format uint8

const (
	// FormatLinear11 is a 16-bit word carrying a 5-bit signed exponent and
	// an 11-bit signed mantissa.
	FormatLinear11 Format = iota
	// FormatLinear16 is a 16-bit unsigned mantissa; the exponent comes from
	// VOUT_MODE or from per-model configuration.
	FormatLinear16
	// FormatStatus is a fault/warning bitfield (STATUS_BYTE or STATUS_WORD).
	FormatStatus
	// FormatMode is the VOUT_MODE byte (3-bit mode + 5-bit parameter).
	FormatMode
)

// Command describes one entry of the PMBus command table: the code sent on
// the wire, the expected reply width and how the reply is decoded.
type Command struct {
	Name   string
	Code   byte
	Reply  int // reply width in bytes, excluding the PEC byte
	Format Format
}

// Command table for the read-only telemetry subset. Codes per PMBus Part II.
var (
	VOUTMode         = Command{Name: "VOUT_MODE", Code: 0x20, Reply: 1, Format: FormatMode}
	StatusByte       = Command{Name: "STATUS_BYTE", Code: 0x78, Reply: 1, Format: FormatStatus}
	StatusWord       = Command{Name: "STATUS_WORD", Code: 0x79, Reply: 2, Format: FormatStatus}
	ReadVIn          = Command{Name: "READ_VIN", Code: 0x88, Reply: 2, Format: FormatLinear11}
	ReadIIn          = Command{Name: "READ_IIN", Code: 0x89, Reply: 2, Format: FormatLinear11}
	ReadVOut         = Command{Name: "READ_VOUT", Code: 0x8B, Reply: 2, Format: FormatLinear16}
	ReadIOut         = Command{Name: "READ_IOUT", Code: 0x8C, Reply: 2, Format: FormatLinear11}
	ReadTemperature1 = Command{Name: "READ_TEMPERATURE_1", Code: 0x8D, Reply: 2, Format: FormatLinear11}
	ReadTemperature2 = Command{Name: "READ_TEMPERATURE_2", Code: 0x8E, Reply: 2, Format: FormatLinear11}
	ReadFanSpeed1    = Command{Name: "READ_FAN_SPEED_1", Code: 0x90, Reply: 2, Format: FormatLinear11}
	ReadPOut         = Command{Name: "READ_POUT", Code: 0x96, Reply: 2, Format: FormatLinear11}
	ReadPIn          = Command{Name: "READ_PIN", Code: 0x97, Reply: 2, Format: FormatLinear11}
)

// TelemetryCommands returns the fixed set of commands polled for telemetry,
// in poll order. STATUS_WORD is read last so a fault raised by an earlier
// read in the same cycle is still visible.
func TelemetryCommands() []Command {
	return []Command{
		ReadVIn,
		ReadIIn,
		ReadVOut,
		ReadIOut,
		ReadTemperature1,
		ReadTemperature2,
		ReadFanSpeed1,
		ReadPIn,
		ReadPOut,
		StatusWord,
	}
}
