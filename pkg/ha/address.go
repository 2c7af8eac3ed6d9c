package ha

import (
	"fmt"
	"strconv"
	"strings"
)

// DeviceType is the device class carried in the high nibble of an address.
type DeviceType uint8

// Device classes. Classes 0xxx are inputs (sensors), 1xxx are outputs.
const (
	DeviceSensor           DeviceType = 0x0
	DeviceTempSensor       DeviceType = 0x1
	DeviceHumiditySensor   DeviceType = 0x2
	DeviceMotionSensor     DeviceType = 0x3
	DeviceWaterLevelSensor DeviceType = 0x4
	DeviceLightSensor      DeviceType = 0x5
	DeviceSwitch           DeviceType = 0x8
	DeviceTimedSwitch      DeviceType = 0x9
	DeviceTriggeredSwitch  DeviceType = 0xA
	DeviceRFSwitch         DeviceType = 0xB
	DeviceHub              DeviceType = 0xF
)

var deviceTypeNames = map[DeviceType]string{
	DeviceSensor:           "sensor",
	DeviceTempSensor:       "temp",
	DeviceHumiditySensor:   "humidity",
	DeviceMotionSensor:     "motion",
	DeviceWaterLevelSensor: "water",
	DeviceLightSensor:      "light",
	DeviceSwitch:           "switch",
	DeviceTimedSwitch:      "timed-switch",
	DeviceTriggeredSwitch:  "triggered-switch",
	DeviceRFSwitch:         "rf-switch",
	DeviceHub:              "hub",
}

// IsValid reports whether the class is a known device class.
func (t DeviceType) IsValid() bool {
	_, ok := deviceTypeNames[t]
	return ok
}

// IsSensor reports whether the class is an input device.
func (t DeviceType) IsSensor() bool {
	return t.IsValid() && t&0x8 == 0
}

// IsSwitch reports whether the class is an output device.
func (t DeviceType) IsSwitch() bool {
	return t.IsValid() && t&0x8 != 0 && t != DeviceHub
}

// String implements fmt.Stringer.
func (t DeviceType) String() string {
	if name, ok := deviceTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("class-%x", uint8(t))
}

// ParseDeviceType parses a device class by name or number.
func ParseDeviceType(s string) (DeviceType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range deviceTypeNames {
		if name == s {
			return t, nil
		}
	}
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown device type %q", s)
	}
	if t := DeviceType(n); t.IsValid() {
		return t, nil
	}
	return 0, &ConfigError{Field: "device type", Value: int(n)}
}

// Address identifies a node on the network.
type Address uint8

// HubAddress is the master every node reports to.
const HubAddress Address = Address(DeviceHub) << 4

// LocalAddress composes the address of a device.
func LocalAddress(t DeviceType, id uint8) (Address, error) {
	if t > 0x0f || !t.IsValid() {
		return 0, &ConfigError{Field: "device type", Value: int(t), Limit: 16}
	}
	if id > 0x0f {
		return 0, &ConfigError{Field: "instance id", Value: int(id), Limit: 16}
	}
	return Address(t)<<4 | Address(id), nil
}

// MustLocalAddress is LocalAddress which panics on invalid input.
// It's intended for compile-time constants.
func MustLocalAddress(t DeviceType, id uint8) Address {
	addr, err := LocalAddress(t, id)
	if err != nil {
		panic(err)
	}
	return addr
}

// Type returns the device class.
func (a Address) Type() DeviceType {
	return DeviceType(a >> 4)
}

// ID returns the instance id within the class.
func (a Address) ID() uint8 {
	return uint8(a) & 0x0f
}

// Split returns both the device class and the instance id.
func (a Address) Split() (DeviceType, uint8) {
	return a.Type(), a.ID()
}

// IsHub reports whether it's the hub address.
func (a Address) IsHub() bool {
	return a == HubAddress
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return fmt.Sprintf("%s/%d", a.Type(), a.ID())
}

// ParseAddress accepts a number (19, 0x13) or TYPE/ID (temp/3).
func ParseAddress(s string) (Address, error) {
	if strs := strings.SplitN(s, "/", 2); len(strs) == 2 {
		t, err := ParseDeviceType(strs[0])
		if err != nil {
			return 0, err
		}
		id, err := strconv.ParseUint(strings.TrimSpace(strs[1]), 0, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid instance id %q", strs[1])
		}
		if id > 0x0f {
			return 0, &ConfigError{Field: "instance id", Value: int(id), Limit: 16}
		}
		return LocalAddress(t, uint8(id))
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return Address(n), nil
}
