// Package mqtt emulates the radio medium on an MQTT topic.
//
// Every participant publishes its packets to air/CHANNEL and hears all
// packets published there, including its own, which the datagram manager
// filters by source address.
package mqtt

import (
	"context"
	"time"

	"github.com/robotalks/homeauto.go/pkg/ha/datagram"
	"github.com/robotalks/homeauto.go/pkg/mqtt"
)

// DefaultChannel is the channel used when none is specified.
const DefaultChannel = "default"

// PublishTimeout bounds waiting for the broker to accept a packet.
var PublishTimeout = time.Second

// Driver is a datagram.Driver on an MQTT topic.
type Driver struct {
	Queue *mqtt.Queue
	Topic string

	inbox *datagram.Inbox
}

// New creates a Driver on the channel.
func New(q *mqtt.Queue, channel string) *Driver {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Driver{Queue: q, Topic: "air/" + channel, inbox: datagram.NewInbox(0)}
}

// Send implements datagram.Driver.
func (d *Driver) Send(pkt []byte) error {
	token := d.Queue.Pub(d.Topic, pkt)
	if !token.WaitTimeout(PublishTimeout) {
		return context.DeadlineExceeded
	}
	return token.Error()
}

// Recv implements datagram.Driver.
func (d *Driver) Recv() ([]byte, bool) {
	return d.inbox.Get()
}

// Wake is signaled when a packet arrives.
func (d *Driver) Wake() <-chan struct{} {
	return d.inbox.Wake()
}

// Run subscribes to the channel until ctx is done.
func (d *Driver) Run(ctx context.Context) error {
	sub := d.Queue.Sub(d.Topic, func(topic string, payload []byte) {
		d.inbox.Put(payload)
	})
	defer sub.Close()
	<-ctx.Done()
	return ctx.Err()
}
