package sh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/homeauto.go/pkg/ha"
	"github.com/robotalks/homeauto.go/pkg/ha/datagram"
	"github.com/robotalks/homeauto.go/pkg/ha/datagram/dial"
	"github.com/robotalks/homeauto.go/pkg/hub"
	"github.com/robotalks/homeauto.go/pkg/node"
)

func startNode(t *testing.T, linkURL string, addr ha.Address, sensor node.SensorFunc) *node.Node {
	link, err := dial.Open(linkURL)
	require.NoError(t, err)
	n := node.New(link.Session(addr))
	n.Sensor = sensor
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Run(ctx, node.Config{}, link.Driver.Wake())
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		link.Close()
	})
	return n
}

func testInventory(t *testing.T) *hub.Inventory {
	inv, err := hub.NewInventory([]hub.NodeConfig{
		{Name: "lamp", Type: "switch", ID: 1},
		{Name: "kitchen", Type: "temp", ID: 2},
	})
	require.NoError(t, err)
	return inv
}

func TestConnRequest(t *testing.T) {
	const linkURL = "loop:sh-request"
	lamp := startNode(t, linkURL, ha.MustLocalAddress(ha.DeviceSwitch, 1), nil)
	startNode(t, linkURL, ha.MustLocalAddress(ha.DeviceTempSensor, 2), func(ha.Opcode) (uint16, error) {
		return 1875, nil
	})

	conn, err := Dial(linkURL, ha.HubAddress, testInventory(t))
	require.NoError(t, err)
	defer conn.Close()

	ev, err := conn.Request("lamp", "on")
	require.NoError(t, err)
	require.Equal(t, "lamp", ev.Node)
	require.Equal(t, ha.OpSwitchOn, ev.Command.Opcode())
	require.True(t, lamp.IsOn())

	ev, err = conn.Request("kitchen", "read")
	require.NoError(t, err)
	require.NotNil(t, ev.Value)
	require.EqualValues(t, 1875, *ev.Value)

	ev, err = conn.Request("lamp", "set-time 2024-07-01 10:00")
	require.NoError(t, err)
	require.Equal(t, ha.OpAcknowledge, ev.Command.Opcode())

	ev, err = conn.Request("lamp", "get-time")
	require.NoError(t, err)
	require.NotNil(t, ev.Timestamp)
	require.Equal(t, uint16(2024), ev.Timestamp.Year)
	require.Equal(t, uint8(7), ev.Timestamp.Month)

	_, err = conn.Request("attic", "on")
	require.Error(t, err)
}

func TestConnNoAck(t *testing.T) {
	conn, err := Dial("loop:sh-noack", ha.HubAddress, testInventory(t))
	require.NoError(t, err)
	defer conn.Close()
	mgr := conn.Session.Transport.(*datagram.Manager)
	mgr.Timeout, mgr.Retries = 20*time.Millisecond, 1

	_, err = conn.Request("lamp", "on")
	require.ErrorIs(t, err, ha.ErrNoAck)
}

func TestFormatNodes(t *testing.T) {
	require.Equal(t, []string{
		"temp/2\t0x12\tkitchen",
		"switch/1\t0x81\tlamp",
	}, FormatNodes(testInventory(t)))
}
