package ha

import (
	"fmt"
	"strings"
)

// Direction tells who sends a command.
type Direction uint8

// Directions.
const (
	NodeToHub Direction = 0
	HubToNode Direction = 1
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == HubToNode {
		return "hub->node"
	}
	return "node->hub"
}

// Opcode is the 6-bit operation code of a command.
type Opcode uint8

// MaxOpcode is the largest opcode encodable in a command byte.
const MaxOpcode Opcode = 0x3f

// Opcodes. An opcode doesn't imply direction or payload presence, those
// are conventions between the hub and nodes.
const (
	OpSwitchOff     Opcode = 0x00
	OpSwitchOn      Opcode = 0x01
	OpSwitchToggle  Opcode = 0x02
	OpSwitchStatus  Opcode = 0x03
	OpTemperature   Opcode = 0x04
	OpHumidity      Opcode = 0x05
	OpMotionStatus  Opcode = 0x08
	OpMotionStarted Opcode = 0x09
	OpMotionEnded   Opcode = 0x0B
	OpGetTime       Opcode = 0x10
	OpSetTime       Opcode = 0x11
	OpAlarm1Set     Opcode = 0x12
	OpAlarm1Get     Opcode = 0x13
	OpAlarm2Set     Opcode = 0x16
	OpAlarm2Get     Opcode = 0x17
	OpWaterLevel    Opcode = 0x18
	OpCommandFailed Opcode = 0x24
	OpAcknowledge   Opcode = 0x36
)

var opcodeNames = map[Opcode]string{
	OpSwitchOff:     "switch-off",
	OpSwitchOn:      "switch-on",
	OpSwitchToggle:  "switch-toggle",
	OpSwitchStatus:  "switch-status",
	OpTemperature:   "temperature",
	OpHumidity:      "humidity",
	OpMotionStatus:  "motion-status",
	OpMotionStarted: "motion-started",
	OpMotionEnded:   "motion-ended",
	OpGetTime:       "get-time",
	OpSetTime:       "set-time",
	OpAlarm1Set:     "alarm1-set",
	OpAlarm1Get:     "alarm1-get",
	OpAlarm2Set:     "alarm2-set",
	OpAlarm2Get:     "alarm2-get",
	OpWaterLevel:    "water-level",
	OpCommandFailed: "command-failed",
	OpAcknowledge:   "ack",
}

// IsKnown reports whether the opcode belongs to the vocabulary.
func (o Opcode) IsKnown() bool {
	_, ok := opcodeNames[o]
	return ok
}

// String implements fmt.Stringer.
func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("op-%02x", uint8(o))
}

// ParseOpcode looks up an opcode by name.
func ParseOpcode(s string) (Opcode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for op, name := range opcodeNames {
		if name == s {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown opcode %q", s)
}

// Command is the first byte of a frame.
type Command byte

const (
	cmdDataFlag  = 0x80
	cmdHubToNode = 0x40
	cmdOpMask    = 0x3f
)

// EncodeCommand packs the flags and opcode into a command byte.
func EncodeCommand(data bool, dir Direction, op Opcode) (Command, error) {
	if op > MaxOpcode {
		return 0, &ConfigError{Field: "opcode", Value: int(op), Limit: int(MaxOpcode) + 1}
	}
	if dir > HubToNode {
		return 0, &ConfigError{Field: "direction", Value: int(dir), Limit: 2}
	}
	c := Command(op)
	if data {
		c |= cmdDataFlag
	}
	if dir == HubToNode {
		c |= cmdHubToNode
	}
	return c, nil
}

// MustCommand is EncodeCommand which panics on invalid input.
func MustCommand(data bool, dir Direction, op Opcode) Command {
	c, err := EncodeCommand(data, dir, op)
	if err != nil {
		panic(err)
	}
	return c
}

// DecodeCommand unpacks a command byte. All byte values decode.
func DecodeCommand(b byte) (data bool, dir Direction, op Opcode) {
	c := Command(b)
	return c.HasData(), c.Direction(), c.Opcode()
}

// HasData reports whether a payload follows the command.
func (c Command) HasData() bool {
	return c&cmdDataFlag != 0
}

// Direction returns the direction flag.
func (c Command) Direction() Direction {
	if c&cmdHubToNode != 0 {
		return HubToNode
	}
	return NodeToHub
}

// Opcode returns the operation code.
func (c Command) Opcode() Opcode {
	return Opcode(c & cmdOpMask)
}

// String implements fmt.Stringer.
func (c Command) String() string {
	s := c.Opcode().String() + " " + c.Direction().String()
	if c.HasData() {
		s += " +data"
	}
	return s
}

// Measurement returns the opcode a sensor class reports its reading with.
func (t DeviceType) Measurement() (Opcode, bool) {
	switch t {
	case DeviceTempSensor:
		return OpTemperature, true
	case DeviceHumiditySensor:
		return OpHumidity, true
	case DeviceMotionSensor:
		return OpMotionStatus, true
	case DeviceWaterLevelSensor:
		return OpWaterLevel, true
	}
	return 0, false
}
