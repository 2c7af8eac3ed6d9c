package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/homeauto.go/pkg/ha"
)

func TestNewEvent(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	temp := ha.MustLocalAddress(ha.DeviceTempSensor, 1)
	testCases := []struct {
		name      string
		msg       ha.Message
		topic     string
		value     *uint16
		timestamp *ha.Timestamp
		failed    bool
	}{
		{
			name:  "measurement",
			msg:   ha.Message{From: temp, Command: ha.MustCommand(true, ha.NodeToHub, ha.OpTemperature), Payload: []byte{0x21, 0x50}},
			topic: "nodes/kitchen/temperature",
			value: func() *uint16 { v := uint16(2150); return &v }(),
		},
		{
			name:      "timestamp",
			msg:       ha.Message{From: temp, Command: ha.MustCommand(true, ha.NodeToHub, ha.OpGetTime), Payload: []byte{0x20, 0x24, 0x05, 0x06, 0x07, 0x08}},
			topic:     "nodes/kitchen/get-time",
			timestamp: &ha.Timestamp{Year: 2024, Month: 5, Day: 6, Hour: 7, Minute: 8},
		},
		{
			name:  "no data",
			msg:   ha.Message{From: temp, Command: ha.MustCommand(false, ha.NodeToHub, ha.OpMotionStarted)},
			topic: "nodes/kitchen/motion-started",
		},
		{
			name:   "malformed",
			msg:    ha.Message{From: temp, Command: ha.MustCommand(true, ha.NodeToHub, ha.OpHumidity), Payload: []byte{0x0a, 0x00}},
			topic:  "nodes/kitchen/humidity",
			failed: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ev := NewEvent(tc.msg, "kitchen", at)
			require.Equal(t, tc.topic, ev.Topic())
			require.Equal(t, tc.value, ev.Value)
			require.Equal(t, tc.timestamp, ev.Timestamp)
			require.Equal(t, tc.failed, ev.Error != "")
		})
	}
}

func TestEventCodecs(t *testing.T) {
	val := uint16(42)
	ts := ha.Timestamp{Year: 2023, Month: 12, Day: 31, Hour: 23, Minute: 59}
	events := []*Event{
		{
			Node:    "kitchen",
			Address: ha.MustLocalAddress(ha.DeviceTempSensor, 1),
			Command: ha.MustCommand(true, ha.NodeToHub, ha.OpTemperature),
			Time:    time.Date(2024, 5, 6, 7, 8, 9, 123000000, time.UTC),
			Payload: []byte{0x00, 0x42},
			Value:   &val,
		},
		{
			Node:      "porch",
			Address:   ha.MustLocalAddress(ha.DeviceSwitch, 2),
			Command:   ha.MustCommand(true, ha.NodeToHub, ha.OpAlarm1Get),
			Time:      time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
			Payload:   []byte{0x20, 0x23, 0x12, 0x31, 0x23, 0x59},
			Timestamp: &ts,
		},
		{
			Node:    "garage",
			Address: ha.MustLocalAddress(ha.DeviceRFSwitch, 3),
			Command: ha.MustCommand(true, ha.HubToNode, ha.OpCommandFailed),
			Time:    time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
			Payload: []byte{0x41},
			Error:   "no ack",
		},
	}
	for _, name := range []string{CodecJSON, CodecProto} {
		codec, err := NewEventCodec(name)
		require.NoError(t, err)
		require.Equal(t, name, codec.Name())
		for _, ev := range events {
			t.Run(name+"/"+ev.Node, func(t *testing.T) {
				data, err := codec.Marshal(ev)
				require.NoError(t, err)
				decoded, err := codec.Unmarshal(data)
				require.NoError(t, err)
				require.Equal(t, ev.Node, decoded.Node)
				require.Equal(t, ev.Address, decoded.Address)
				require.Equal(t, ev.Command, decoded.Command)
				require.True(t, ev.Time.Equal(decoded.Time))
				require.Equal(t, ev.Payload, decoded.Payload)
				require.Equal(t, ev.Value, decoded.Value)
				require.Equal(t, ev.Timestamp, decoded.Timestamp)
				require.Equal(t, ev.Error, decoded.Error)

				detected, err := DecodeEvent(data)
				require.NoError(t, err)
				require.Equal(t, decoded, detected)
			})
		}
	}
}

func TestJSONEventFields(t *testing.T) {
	val := uint16(7)
	data, err := JSONCodec{}.Marshal(&Event{
		Node:    "tank",
		Address: ha.MustLocalAddress(ha.DeviceWaterLevelSensor, 1),
		Command: ha.MustCommand(true, ha.NodeToHub, ha.OpWaterLevel),
		Time:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Payload: []byte{0x00, 0x07},
		Value:   &val,
	})
	require.NoError(t, err)
	require.JSONEq(t, `{
		"node": "tank",
		"address": 65,
		"command": 152,
		"opcode": "water-level",
		"direction": "node->hub",
		"time": "2024-01-01T00:00:00Z",
		"payload": "0007",
		"value": 7
	}`, string(data))
}

func TestUnknownEventCodec(t *testing.T) {
	_, err := NewEventCodec("xml")
	require.Error(t, err)
}
