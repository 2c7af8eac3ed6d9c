package ha

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalAddress(t *testing.T) {
	for typ := range deviceTypeNames {
		for id := uint8(0); id < 16; id++ {
			addr, err := LocalAddress(typ, id)
			require.NoError(t, err)
			require.Equal(t, Address(uint8(typ)<<4|id), addr)
			gotType, gotID := addr.Split()
			require.Equal(t, typ, gotType)
			require.Equal(t, id, gotID)
		}
	}
	require.Equal(t, Address(0xF0), HubAddress)
	require.Equal(t, HubAddress, MustLocalAddress(DeviceHub, 0))
	require.True(t, HubAddress.IsHub())
	require.Equal(t, Address(0x13), MustLocalAddress(DeviceTempSensor, 3))
}

func TestLocalAddressConfigError(t *testing.T) {
	testCases := []struct {
		name string
		typ  DeviceType
		id   uint8
	}{
		{"type out of range", DeviceType(0x10), 0},
		{"unknown type", DeviceType(0x6), 0},
		{"id out of range", DeviceSwitch, 16},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LocalAddress(tc.typ, tc.id)
			require.Error(t, err)
			require.IsType(t, &ConfigError{}, err)
			require.Panics(t, func() { MustLocalAddress(tc.typ, tc.id) })
		})
	}
}

func TestDeviceTypeClasses(t *testing.T) {
	require.True(t, DeviceTempSensor.IsSensor())
	require.False(t, DeviceTempSensor.IsSwitch())
	require.True(t, DeviceRFSwitch.IsSwitch())
	require.False(t, DeviceHub.IsSwitch())
	require.False(t, DeviceHub.IsSensor())
	require.Equal(t, "class-7", DeviceType(7).String())
}

func TestParseAddress(t *testing.T) {
	testCases := []struct {
		in     string
		expect Address
		fail   bool
	}{
		{in: "0x13", expect: 0x13},
		{in: "19", expect: 0x13},
		{in: "temp/3", expect: 0x13},
		{in: "switch/0x0a", expect: 0x8a},
		{in: "hub/0", expect: HubAddress},
		{in: "9/1", expect: 0x91},
		{in: "temp/16", fail: true},
		{in: "bogus/1", fail: true},
		{in: "256", fail: true},
		{in: "", fail: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			addr, err := ParseAddress(tc.in)
			if tc.fail {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expect, addr)
		})
	}
	require.Equal(t, "temp/3", Address(0x13).String())
}
