package node

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/homeauto.go/pkg/ha"
	"github.com/robotalks/homeauto.go/pkg/ha/datagram"
	"github.com/robotalks/homeauto.go/pkg/ha/datagram/loopback"
	"github.com/robotalks/homeauto.go/pkg/ha/session"
)

type testEnv struct {
	t      *testing.T
	hub    *session.Session
	node   *Node
	cancel context.CancelFunc
	done   chan error
}

func newTestEnv(t *testing.T, addr ha.Address, sensor SensorFunc) *testEnv {
	medium := loopback.NewMedium()
	hubPort, nodePort := medium.Attach(), medium.Attach()
	hubMgr := datagram.NewManager(hubPort, ha.HubAddress)
	hubMgr.Timeout = 100 * time.Millisecond
	nodeMgr := datagram.NewManager(nodePort, addr)
	nodeMgr.Timeout = 100 * time.Millisecond

	env := &testEnv{
		t:    t,
		hub:  session.New(hubMgr, ha.HubAddress),
		node: New(session.New(nodeMgr, addr)),
		done: make(chan error, 1),
	}
	env.node.Sensor = sensor
	var ctx context.Context
	ctx, env.cancel = context.WithCancel(context.Background())
	go func() { env.done <- env.node.Run(ctx, Config{}, nodePort.Wake()) }()
	return env
}

func (e *testEnv) stop() {
	e.cancel()
	require.Equal(e.t, context.Canceled, <-e.done)
}

func (e *testEnv) request(op ha.Opcode, payload []byte) ha.Message {
	cmd := ha.MustCommand(len(payload) > 0, ha.HubToNode, op)
	require.NoError(e.t, e.hub.TransmitReliable(e.node.Address(), cmd, payload))
	return e.recv()
}

func (e *testEnv) recv() ha.Message {
	deadline := time.Now().Add(2 * time.Second)
	for {
		if msg, ok := e.hub.PollReceive(); ok {
			require.Equal(e.t, e.node.Address(), msg.From)
			require.Equal(e.t, ha.NodeToHub, msg.Command.Direction())
			return msg
		}
		require.True(e.t, time.Now().Before(deadline), "no reply")
		time.Sleep(time.Millisecond)
	}
}

func TestSwitch(t *testing.T) {
	env := newTestEnv(t, ha.MustLocalAddress(ha.DeviceSwitch, 1), nil)
	defer env.stop()

	testCases := []struct {
		op    ha.Opcode
		reply ha.Opcode
	}{
		{ha.OpSwitchStatus, ha.OpSwitchOff},
		{ha.OpSwitchOn, ha.OpSwitchOn},
		{ha.OpSwitchStatus, ha.OpSwitchOn},
		{ha.OpSwitchToggle, ha.OpSwitchOff},
		{ha.OpSwitchToggle, ha.OpSwitchOn},
		{ha.OpSwitchOff, ha.OpSwitchOff},
	}
	for _, tc := range testCases {
		msg := env.request(tc.op, nil)
		require.Equal(t, tc.reply, msg.Command.Opcode(), "reply to %s", tc.op)
		require.False(t, msg.Command.HasData())
		require.Equal(t, tc.reply == ha.OpSwitchOn, env.node.IsOn())
	}
}

func TestSensor(t *testing.T) {
	env := newTestEnv(t, ha.MustLocalAddress(ha.DeviceTempSensor, 2), func(op ha.Opcode) (uint16, error) {
		if op != ha.OpTemperature {
			return 0, ErrUnsupported
		}
		return 2150, nil
	})
	defer env.stop()

	msg := env.request(ha.OpTemperature, nil)
	require.Equal(t, ha.OpTemperature, msg.Command.Opcode())
	val, err := msg.Value()
	require.NoError(t, err)
	require.EqualValues(t, 2150, val)

	// switch commands are not served by sensors
	msg = env.request(ha.OpSwitchOn, nil)
	require.Equal(t, ha.OpCommandFailed, msg.Command.Opcode())
	require.Equal(t, []byte{byte(ha.MustCommand(false, ha.HubToNode, ha.OpSwitchOn))}, msg.Payload)
}

func TestClock(t *testing.T) {
	env := newTestEnv(t, ha.MustLocalAddress(ha.DeviceTimedSwitch, 3), nil)
	defer env.stop()

	ts := ha.Timestamp{Year: 2024, Month: 2, Day: 29, Hour: 23, Minute: 59}
	payload, err := ha.EncodeTimestamp(ts)
	require.NoError(t, err)
	msg := env.request(ha.OpSetTime, payload)
	require.Equal(t, ha.OpAcknowledge, msg.Command.Opcode())

	msg = env.request(ha.OpGetTime, nil)
	require.Equal(t, ha.OpGetTime, msg.Command.Opcode())
	got, err := msg.Timestamp()
	require.NoError(t, err)
	// the clock may have advanced a minute
	require.WithinDuration(t, ts.Time(time.Local), got.Time(time.Local), time.Minute)

	// malformed timestamp
	msg = env.request(ha.OpSetTime, []byte{0x20, 0x24, 0x1a, 0x01, 0x00, 0x00})
	require.Equal(t, ha.OpCommandFailed, msg.Command.Opcode())
}

func TestAlarms(t *testing.T) {
	env := newTestEnv(t, ha.MustLocalAddress(ha.DeviceSwitch, 4), nil)
	defer env.stop()

	msg := env.request(ha.OpAlarm2Get, nil)
	require.Equal(t, ha.OpCommandFailed, msg.Command.Opcode())

	alarm := ha.Timestamp{Year: 2025, Month: 1, Day: 1, Hour: 6, Minute: 30}
	payload, err := ha.EncodeTimestamp(alarm)
	require.NoError(t, err)
	msg = env.request(ha.OpAlarm2Set, payload)
	require.Equal(t, ha.OpAcknowledge, msg.Command.Opcode())

	msg = env.request(ha.OpAlarm2Get, nil)
	require.Equal(t, ha.OpAlarm2Get, msg.Command.Opcode())
	got, err := msg.Timestamp()
	require.NoError(t, err)
	require.Equal(t, alarm, got)

	_, ok := env.node.Alarm(ha.OpAlarm1Set)
	require.False(t, ok)
}

func TestUnknownOpcode(t *testing.T) {
	env := newTestEnv(t, ha.MustLocalAddress(ha.DeviceSwitch, 5), nil)
	defer env.stop()

	msg := env.request(ha.Opcode(0x3e), nil)
	require.Equal(t, ha.OpCommandFailed, msg.Command.Opcode())
}

func TestReportAndRequestTime(t *testing.T) {
	env := newTestEnv(t, ha.MustLocalAddress(ha.DeviceHumiditySensor, 1), func(ha.Opcode) (uint16, error) {
		return 55, nil
	})
	defer env.stop()

	errCh := make(chan error, 1)
	go func() { errCh <- env.node.Report(ha.OpHumidity) }()
	msg := env.recv()
	require.NoError(t, <-errCh)
	require.Equal(t, ha.OpHumidity, msg.Command.Opcode())
	val, err := msg.Value()
	require.NoError(t, err)
	require.EqualValues(t, 55, val)

	go func() { errCh <- env.node.RequestTime() }()
	msg = env.recv()
	require.NoError(t, <-errCh)
	require.Equal(t, ha.OpGetTime, msg.Command.Opcode())
	require.False(t, msg.Command.HasData())
}
