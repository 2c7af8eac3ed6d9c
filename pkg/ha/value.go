package ha

import (
	"fmt"
	"time"

	"github.com/robotalks/homeauto.go/pkg/bcd"
)

// Payload sizes.
const (
	TimestampLen = 6
	ValueLen     = 2
)

// MaxValue is the largest value a 2-byte BCD payload holds.
const MaxValue = 9999

// Timestamp is the minute-resolution time carried in time and alarm frames.
type Timestamp struct {
	Year   uint16
	Month  uint8
	Day    uint8
	Hour   uint8
	Minute uint8
}

// TimestampOf truncates t to a Timestamp.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{
		Year:   uint16(t.Year()),
		Month:  uint8(t.Month()),
		Day:    uint8(t.Day()),
		Hour:   uint8(t.Hour()),
		Minute: uint8(t.Minute()),
	}
}

// Time converts to time.Time in loc.
func (ts Timestamp) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(int(ts.Year), time.Month(ts.Month), int(ts.Day), int(ts.Hour), int(ts.Minute), 0, 0, loc)
}

// String implements fmt.Stringer.
func (ts Timestamp) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d", ts.Year, ts.Month, ts.Day, ts.Hour, ts.Minute)
}

// EncodeTimestamp packs ts as year-high, year-low, month, day, hour, minute.
func EncodeTimestamp(ts Timestamp) ([]byte, error) {
	year, err := Encode16(ts.Year)
	if err != nil {
		return nil, fmt.Errorf("year: %w", err)
	}
	fields := []struct {
		name  string
		value uint8
	}{
		{"month", ts.Month},
		{"day", ts.Day},
		{"hour", ts.Hour},
		{"minute", ts.Minute},
	}
	p := make([]byte, TimestampLen)
	copy(p, year)
	for n, f := range fields {
		b, err := bcd.Encode(f.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		p[ValueLen+n] = b
	}
	return p, nil
}

// DecodeTimestamp unpacks the first TimestampLen bytes of p.
func DecodeTimestamp(p []byte) (ts Timestamp, err error) {
	if len(p) < TimestampLen {
		return ts, ErrShortPayload
	}
	if ts.Year, err = decodeValue("year", p); err != nil {
		return
	}
	fields := []struct {
		name string
		dst  *uint8
	}{
		{"month", &ts.Month},
		{"day", &ts.Day},
		{"hour", &ts.Hour},
		{"minute", &ts.Minute},
	}
	for n, f := range fields {
		if *f.dst, err = parseBCD(f.name, p[ValueLen+n]); err != nil {
			return
		}
	}
	return
}

// Encode16 packs v in 0..9999 as hundreds, units.
func Encode16(v uint16) ([]byte, error) {
	if v > MaxValue {
		return nil, bcd.ErrOutOfRange
	}
	hi, _ := bcd.Encode(uint8(v / 100))
	lo, _ := bcd.Encode(uint8(v % 100))
	return []byte{hi, lo}, nil
}

// Decode16 unpacks the first ValueLen bytes of p as hi*100 + lo.
func Decode16(p []byte) (uint16, error) {
	if len(p) < ValueLen {
		return 0, ErrShortPayload
	}
	return decodeValue("value", p)
}

func decodeValue(name string, p []byte) (uint16, error) {
	hi, err := parseBCD(name, p[0])
	if err != nil {
		return 0, err
	}
	lo, err := parseBCD(name, p[1])
	if err != nil {
		return 0, err
	}
	return uint16(hi)*100 + uint16(lo), nil
}

func parseBCD(name string, b byte) (uint8, error) {
	v, err := bcd.Parse(b)
	if err != nil {
		return 0, &MalformedBCDError{Field: name, Err: err.(*bcd.MalformedError)}
	}
	return v, nil
}
