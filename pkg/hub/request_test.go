package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/homeauto.go/pkg/ha"
)

func TestParseRequest(t *testing.T) {
	now := time.Date(2024, 3, 4, 5, 6, 7, 0, time.Local)
	sw := ha.MustLocalAddress(ha.DeviceSwitch, 1)
	temp := ha.MustLocalAddress(ha.DeviceTempSensor, 2)
	testCases := []struct {
		addr    ha.Address
		text    string
		op      ha.Opcode
		payload []byte
		fails   bool
	}{
		{addr: sw, text: "on", op: ha.OpSwitchOn},
		{addr: sw, text: " off\n", op: ha.OpSwitchOff},
		{addr: sw, text: "toggle", op: ha.OpSwitchToggle},
		{addr: sw, text: "status", op: ha.OpSwitchStatus},
		{addr: temp, text: "read", op: ha.OpTemperature},
		{addr: temp, text: "read humidity", op: ha.OpHumidity},
		{addr: sw, text: "read", fails: true},
		{addr: sw, text: "get-time", op: ha.OpGetTime},
		{addr: sw, text: "set-time", op: ha.OpSetTime, payload: []byte{0x20, 0x24, 0x03, 0x04, 0x05, 0x06}},
		{addr: sw, text: "set-time 2025-12-31 23:59", op: ha.OpSetTime, payload: []byte{0x20, 0x25, 0x12, 0x31, 0x23, 0x59}},
		{addr: sw, text: "set-time yesterday", fails: true},
		{addr: sw, text: "alarm1-set 2025-01-02 06:30", op: ha.OpAlarm1Set, payload: []byte{0x20, 0x25, 0x01, 0x02, 0x06, 0x30}},
		{addr: sw, text: "alarm2-set", fails: true},
		{addr: sw, text: "alarm2-get", op: ha.OpAlarm2Get},
		{addr: sw, text: "dance", fails: true},
	}
	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			req, err := ParseRequest("n", tc.addr, tc.text, now)
			if tc.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.addr, req.Address)
			require.Equal(t, tc.op, req.Command.Opcode())
			require.Equal(t, ha.HubToNode, req.Command.Direction())
			require.Equal(t, len(tc.payload) > 0, req.Command.HasData())
			if len(tc.payload) > 0 {
				require.Equal(t, tc.payload, req.Payload)
			}
		})
	}
}

func TestInventory(t *testing.T) {
	inv, err := NewInventory([]NodeConfig{
		{Name: "kitchen", Type: "temp", ID: 1},
		{Name: "porch-light", Type: "switch", ID: 2},
	})
	require.NoError(t, err)
	require.Equal(t, 2, inv.Len())

	require.Equal(t, "kitchen", inv.Name(ha.MustLocalAddress(ha.DeviceTempSensor, 1)))
	require.Equal(t, "motion-3", inv.Name(ha.MustLocalAddress(ha.DeviceMotionSensor, 3)))

	testCases := []struct {
		name string
		addr ha.Address
	}{
		{"kitchen", ha.MustLocalAddress(ha.DeviceTempSensor, 1)},
		{"porch-light", ha.MustLocalAddress(ha.DeviceSwitch, 2)},
		{"motion-3", ha.MustLocalAddress(ha.DeviceMotionSensor, 3)},
		{"0x84", ha.MustLocalAddress(ha.DeviceSwitch, 4)},
	}
	for _, tc := range testCases {
		addr, err := inv.Lookup(tc.name)
		require.NoError(t, err, tc.name)
		require.Equal(t, tc.addr, addr, tc.name)
	}
	_, err = inv.Lookup("attic")
	require.Error(t, err)
}

func TestInventoryErrors(t *testing.T) {
	testCases := []struct {
		name  string
		nodes []NodeConfig
	}{
		{"bad type", []NodeConfig{{Name: "a", Type: "toaster", ID: 1}}},
		{"bad id", []NodeConfig{{Name: "a", Type: "switch", ID: 16}}},
		{"bad name", []NodeConfig{{Name: "a/b", Type: "switch", ID: 1}}},
		{"dup address", []NodeConfig{{Name: "a", Type: "switch", ID: 1}, {Name: "b", Type: "switch", ID: 1}}},
		{"dup name", []NodeConfig{{Name: "a", Type: "switch", ID: 1}, {Name: "a", Type: "switch", ID: 2}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewInventory(tc.nodes)
			require.Error(t, err)
		})
	}
}
