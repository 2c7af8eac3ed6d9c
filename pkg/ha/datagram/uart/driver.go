// Package uart talks to a radio bridge attached to a serial port.
package uart

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
	bugst "go.bug.st/serial"

	"github.com/robotalks/homeauto.go/pkg/ha/datagram"
	"github.com/robotalks/homeauto.go/pkg/link"
)

// Config describes the serial port of the bridge.
type Config struct {
	Port        string
	Baud        int
	DataBits    int
	Parity      string
	StopBits    int
	ReadTimeout time.Duration
}

// DefaultConfig matches the bridge firmware defaults.
var DefaultConfig = Config{
	Baud:        115200,
	DataBits:    8,
	Parity:      "none",
	StopBits:    1,
	ReadTimeout: 100 * time.Millisecond,
}

// ParseParity converts a parity name.
func ParseParity(s string) (bugst.Parity, error) {
	switch s {
	case "", "none":
		return bugst.NoParity, nil
	case "odd":
		return bugst.OddParity, nil
	case "even":
		return bugst.EvenParity, nil
	case "mark":
		return bugst.MarkParity, nil
	case "space":
		return bugst.SpaceParity, nil
	}
	return bugst.NoParity, fmt.Errorf("invalid parity %q: use none, odd, even, mark, or space", s)
}

// ParseStopBits converts the number of stop bits.
func ParseStopBits(n int) (bugst.StopBits, error) {
	switch n {
	case 0, 1:
		return bugst.OneStopBit, nil
	case 2:
		return bugst.TwoStopBits, nil
	}
	return bugst.OneStopBit, fmt.Errorf("invalid stop bits %d: use 1 or 2", n)
}

// Mode converts the config to serial port settings.
func (c Config) Mode() (*bugst.Mode, error) {
	parity, err := ParseParity(c.Parity)
	if err != nil {
		return nil, err
	}
	stopBits, err := ParseStopBits(c.StopBits)
	if err != nil {
		return nil, err
	}
	mode := &bugst.Mode{BaudRate: c.Baud, DataBits: c.DataBits, Parity: parity, StopBits: stopBits}
	if mode.BaudRate == 0 {
		mode.BaudRate = DefaultConfig.Baud
	}
	if mode.DataBits == 0 {
		mode.DataBits = DefaultConfig.DataBits
	}
	return mode, nil
}

// Driver is a datagram.Driver forwarding radio packets through the bridge.
type Driver struct {
	Stream *link.Stream

	inbox  *datagram.Inbox
	closer io.Closer
}

// New creates a Driver over an established byte stream.
func New(rw io.ReadWriter) *Driver {
	d := &Driver{Stream: link.NewStream(rw), inbox: datagram.NewInbox(0)}
	d.Stream.Handler = d
	d.Stream.StateChanged = func(ctx context.Context, state link.SyncState) {
		if state.IsReady() && !state.IsReceiving() {
			glog.Info("radio bridge synchronized")
		} else if state == link.SyncStateSyncing {
			glog.Warning("radio bridge out of sync")
		}
	}
	if c, ok := rw.(io.Closer); ok {
		d.closer = c
	}
	return d
}

// Open opens the serial port.
func Open(c Config) (*Driver, error) {
	mode, err := c.Mode()
	if err != nil {
		return nil, err
	}
	port, err := bugst.Open(c.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", c.Port, err)
	}
	d := New(port)
	if c.ReadTimeout > 0 {
		if err := port.SetReadTimeout(c.ReadTimeout); err != nil {
			port.Close()
			return nil, err
		}
		d.Stream.ReadTimeout = true
	}
	return d, nil
}

// Send implements datagram.Driver.
func (d *Driver) Send(pkt []byte) error {
	return d.Stream.Send(&link.Packet{Code: link.CodeAir, Data: pkt})
}

// Recv implements datagram.Driver.
func (d *Driver) Recv() ([]byte, bool) {
	return d.inbox.Get()
}

// Wake is signaled when a radio packet arrives.
func (d *Driver) Wake() <-chan struct{} {
	return d.inbox.Wake()
}

// HandlePacket implements link.PacketHandler.
func (d *Driver) HandlePacket(ctx context.Context, pkt *link.Packet) {
	switch pkt.Code {
	case link.CodeAir:
		d.inbox.Put(pkt.Data)
	case link.CodeStatus:
		glog.V(2).Infof("radio bridge status: % x", pkt.Data)
	default:
		glog.Warningf("radio bridge: unexpected packet code 0x%02x", pkt.Code)
	}
}

// Run implements framework.Runnable.
func (d *Driver) Run(ctx context.Context) error {
	if d.closer != nil {
		defer d.closer.Close()
	}
	return d.Stream.Run(ctx)
}
