package sh

import (
	"context"
	"errors"
	"time"

	"github.com/robotalks/homeauto.go/pkg/framework"
	"github.com/robotalks/homeauto.go/pkg/ha"
	"github.com/robotalks/homeauto.go/pkg/ha/datagram/dial"
	"github.com/robotalks/homeauto.go/pkg/ha/session"
	"github.com/robotalks/homeauto.go/pkg/hub"
)

// ErrReplyTimeout indicates the node acknowledged but didn't reply in time.
var ErrReplyTimeout = errors.New("reply timeout")

// Conn is a master session on an opened link.
type Conn struct {
	Link      *dial.Link
	Session   *session.Session
	Inventory *hub.Inventory
	// ReplyTimeout bounds waiting for replies after a request is acked.
	ReplyTimeout time.Duration

	cancel func()
	done   chan error
}

// Dial opens the link and starts receiving.
func Dial(linkURL string, local ha.Address, inv *hub.Inventory) (*Conn, error) {
	link, err := dial.Open(linkURL)
	if err != nil {
		return nil, err
	}
	return NewConn(link, local, inv), nil
}

// NewConn starts receiving on an opened link.
func NewConn(link *dial.Link, local ha.Address, inv *hub.Inventory) *Conn {
	c := &Conn{
		Link:         link,
		Session:      link.Session(local),
		Inventory:    inv,
		ReplyTimeout: time.Second,
		done:         make(chan error, 1),
	}
	var ctx context.Context
	ctx, c.cancel = context.WithCancel(context.Background())
	go func() {
		c.done <- framework.RunWithContextCloser(ctx, link, func() error {
			return link.Run(ctx)
		})
	}()
	return c
}

// Close stops receiving and closes the link.
func (c *Conn) Close() error {
	c.cancel()
	if err := <-c.done; err != context.Canceled {
		return err
	}
	return nil
}

// Request parses the request text and sends it to the node.
func (c *Conn) Request(node, text string) (*hub.Event, error) {
	addr, err := c.Inventory.Lookup(node)
	if err != nil {
		return nil, err
	}
	req, err := hub.ParseRequest(c.Inventory.Name(addr), addr, text, time.Now())
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Do sends the request reliably and waits for the reply from the node.
func (c *Conn) Do(req *hub.Request) (*hub.Event, error) {
	if err := c.Session.TransmitReliable(req.Address, req.Command, req.Payload); err != nil {
		return nil, err
	}
	deadline := time.Now().Add(c.ReplyTimeout)
	for time.Now().Before(deadline) {
		msg, ok := c.Session.PollReceive()
		if !ok {
			c.wait(deadline)
			continue
		}
		if msg.From == req.Address {
			return hub.NewEvent(msg, req.Node, time.Now()), nil
		}
	}
	return nil, ErrReplyTimeout
}

// Listen calls fn with every received message until ctx is done.
func (c *Conn) Listen(ctx context.Context, fn func(*hub.Event)) error {
	for {
		msg, ok := c.Session.PollReceive()
		if ok {
			fn(hub.NewEvent(msg, c.Inventory.Name(msg.From), time.Now()))
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.Link.Driver.Wake():
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (c *Conn) wait(deadline time.Time) {
	timeout := time.Until(deadline)
	if timeout > 10*time.Millisecond {
		timeout = 10 * time.Millisecond
	}
	select {
	case <-c.Link.Driver.Wake():
	case <-time.After(timeout):
	}
}
