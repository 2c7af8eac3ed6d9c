// Package ws carries radio packets over websocket, one message per packet.
package ws

import (
	"context"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/homeauto.go/pkg/framework"
	"github.com/robotalks/homeauto.go/pkg/ha/datagram"
	"github.com/robotalks/homeauto.go/pkg/ha/datagram/loopback"
)

// Driver is a datagram.Driver on a websocket connection.
type Driver struct {
	Conn *websocket.Conn

	inbox *datagram.Inbox
}

// New wraps an established connection.
func New(conn *websocket.Conn) *Driver {
	return &Driver{Conn: conn, inbox: datagram.NewInbox(0)}
}

// Dial connects to a relay.
func Dial(url, origin string) (*Driver, error) {
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// Send implements datagram.Driver.
func (d *Driver) Send(pkt []byte) error {
	return websocket.Message.Send(d.Conn, pkt)
}

// Recv implements datagram.Driver.
func (d *Driver) Recv() ([]byte, bool) {
	return d.inbox.Get()
}

// Wake is signaled when a packet arrives.
func (d *Driver) Wake() <-chan struct{} {
	return d.inbox.Wake()
}

// Run receives packets until ctx is done or the connection fails.
// The connection is closed on return.
func (d *Driver) Run(ctx context.Context) error {
	return framework.RunWithContextCloser(ctx, d.Conn, func() error {
		for {
			var pkt []byte
			if err := websocket.Message.Receive(d.Conn, &pkt); err != nil {
				return err
			}
			d.inbox.Put(pkt)
		}
	})
}

// Relay returns a websocket handler attaching every client to medium.
func Relay(medium *loopback.Medium) websocket.Handler {
	return func(conn *websocket.Conn) {
		port := medium.Attach()
		defer port.Close()
		glog.Infof("relay: %s attached", conn.Request().RemoteAddr)

		ctx, cancel := context.WithCancel(conn.Request().Context())
		defer cancel()
		go func() {
			defer cancel()
			for {
				var pkt []byte
				if err := websocket.Message.Receive(conn, &pkt); err != nil {
					glog.V(2).Infof("relay: %s: %v", conn.Request().RemoteAddr, err)
					return
				}
				if err := port.Send(pkt); err != nil {
					return
				}
			}
		}()
		for {
			select {
			case <-ctx.Done():
				glog.Infof("relay: %s detached", conn.Request().RemoteAddr)
				return
			case <-port.Wake():
			}
			for pkt, ok := port.Recv(); ok; pkt, ok = port.Recv() {
				if err := websocket.Message.Send(conn, pkt); err != nil {
					return
				}
			}
		}
	}
}
