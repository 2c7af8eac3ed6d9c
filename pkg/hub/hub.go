// Package hub implements the hub daemon: it polls the radio for frames,
// publishes them as events, answers time requests and forwards commands
// from MQTT to nodes.
package hub

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/homeauto.go/pkg/framework"
	"github.com/robotalks/homeauto.go/pkg/ha"
	"github.com/robotalks/homeauto.go/pkg/ha/datagram/dial"
	"github.com/robotalks/homeauto.go/pkg/ha/session"
	"github.com/robotalks/homeauto.go/pkg/mqtt"
)

// RequestTopic is the topic filter of requests, relative to the prefix.
const RequestTopic = "nodes/+/set"

// EventSink receives events.
type EventSink interface {
	PublishEvent(*Event) error
}

// EventSinkFunc is the func form of EventSink.
type EventSinkFunc func(*Event) error

// PublishEvent implements EventSink.
func (f EventSinkFunc) PublishEvent(e *Event) error {
	return f(e)
}

// MQTTSink publishes events to the queue.
type MQTTSink struct {
	Queue *mqtt.Queue
	Codec EventCodec
}

// PublishEvent implements EventSink.
func (s *MQTTSink) PublishEvent(e *Event) error {
	data, err := s.Codec.Marshal(e)
	if err != nil {
		return err
	}
	s.Queue.Pub(e.Topic(), data)
	return nil
}

// Hub is the controller of the network.
type Hub struct {
	Session   *session.Session
	Inventory *Inventory
	Sink      EventSink
	// Queue is the source of requests, optional.
	Queue *mqtt.Queue
	// Link is run and closed with the hub when set.
	Link *dial.Link
	// SyncClock answers time requests from nodes.
	SyncClock bool
	// Wake triggers polling when packets arrive, optional.
	Wake <-chan struct{}
	Now  func() time.Time
}

// New creates a Hub.
func New(s *session.Session, inv *Inventory, sink EventSink) *Hub {
	return &Hub{Session: s, Inventory: inv, Sink: sink, SyncClock: true, Now: time.Now}
}

// NewHub creates the Hub with the link and broker of the config.
func (c *Config) NewHub() (*Hub, error) {
	codec, err := ha.NewCodec(c.MaxFrameLen)
	if err != nil {
		return nil, err
	}
	eventCodec, err := NewEventCodec(c.EventCodec)
	if err != nil {
		return nil, err
	}
	inv, err := NewInventory(c.Nodes)
	if err != nil {
		return nil, err
	}
	link, err := dial.Open(c.Link)
	if err != nil {
		return nil, fmt.Errorf("open link %s: %w", c.Link, err)
	}
	mgr := link.Manager(ha.HubAddress)
	mgr.Timeout, mgr.Retries = c.AckTimeout, c.Retries
	h := New(session.New(mgr, ha.HubAddress).WithCodec(codec), inv, nil)
	h.Link, h.Wake, h.SyncClock = link, link.Driver.Wake(), c.SyncClock
	if c.MQTTURL == "" {
		h.Sink = EventSinkFunc(func(e *Event) error {
			glog.Info(e)
			return nil
		})
		return h, nil
	}
	q, err := mqtt.NewQueueFromURL(c.MQTTURL, "hub")
	if err != nil {
		link.Close()
		return nil, err
	}
	token := q.Connect()
	if !token.WaitTimeout(dial.ConnectTimeout) {
		link.Close()
		return nil, fmt.Errorf("connect %s: %w", c.MQTTURL, context.DeadlineExceeded)
	}
	if err := token.Error(); err != nil {
		link.Close()
		return nil, fmt.Errorf("connect %s: %w", c.MQTTURL, err)
	}
	h.Queue, h.Sink = q, &MQTTSink{Queue: q, Codec: eventCodec}
	return h, nil
}

// MustNewHub creates the Hub and fails on error.
func (c *Config) MustNewHub() *Hub {
	h, err := c.NewHub()
	if err != nil {
		log.Fatalln(err)
	}
	return h
}

// AddToLoop implements framework.LoopAdder.
func (h *Hub) AddToLoop(loop *fx.Loop) {
	if h.Link != nil {
		loop.AddRunnable(fx.NamedRun("link", h.Link))
	}
	loop.AddController(fx.PrLvSense, h)
}

// Name implements framework.Named.
func (h *Hub) Name() string {
	return "hub"
}

// Run implements framework.Runnable. It receives requests and wakes the
// loop when packets arrive.
func (h *Hub) Run(ctx context.Context) error {
	loopCtl := fx.LoopCtlFrom(ctx)
	if h.Queue != nil {
		sub := h.Queue.Sub(RequestTopic, func(topic string, payload []byte) {
			req, err := h.ParseRequest(topic, string(payload))
			if err != nil {
				glog.Warningf("%s: %v", topic, err)
				return
			}
			loopCtl.PostMessage(req)
		})
		defer sub.Close()
	}
	defer h.close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.Wake:
			loopCtl.TriggerNext()
		}
	}
}

func (h *Hub) close() {
	if h.Queue != nil {
		h.Queue.Close()
	}
	if h.Link != nil {
		h.Link.Close()
	}
}

// ParseRequest parses a request published to nodes/NAME/set.
func (h *Hub) ParseRequest(topic, text string) (*Request, error) {
	levels := strings.Split(topic, "/")
	if len(levels) != 3 {
		return nil, fmt.Errorf("invalid request topic %q", topic)
	}
	addr, err := h.Inventory.Lookup(levels[1])
	if err != nil {
		return nil, err
	}
	return ParseRequest(h.Inventory.Name(addr), addr, text, h.Now())
}

// Control implements framework.Controller.
func (h *Hub) Control(ctx fx.ControlContext) error {
	ctx.Messages().Take(func(msg fx.Message) bool {
		req, ok := msg.(*Request)
		if ok {
			h.Execute(req)
		}
		return ok
	})
	h.Poll()
	return nil
}

// Poll handles all received frames.
func (h *Hub) Poll() {
	for {
		msg, ok := h.Session.PollReceive()
		if !ok {
			return
		}
		h.handle(msg)
	}
}

// Execute sends the request and publishes command-failed when it isn't
// acknowledged.
func (h *Hub) Execute(req *Request) error {
	glog.V(2).Infof("request %s: %s", req.Node, req.Command)
	err := h.Session.TransmitReliable(req.Address, req.Command, req.Payload)
	if err != nil {
		h.commandFailed(req.Node, req.Address, req.Command, err)
	}
	return err
}

func (h *Hub) handle(msg ha.Message) {
	name := h.Inventory.Name(msg.From)
	ev := NewEvent(msg, name, h.Now())
	h.publish(ev)
	if msg.Command.Opcode() == ha.OpGetTime && !msg.Command.HasData() && h.SyncClock {
		h.sendTime(name, msg.From)
	}
}

func (h *Hub) sendTime(name string, to ha.Address) {
	payload, err := ha.EncodeTimestamp(ha.TimestampOf(h.Now()))
	if err != nil {
		glog.Errorf("encode time: %v", err)
		return
	}
	cmd := ha.MustCommand(true, ha.HubToNode, ha.OpSetTime)
	if err := h.Session.TransmitReliable(to, cmd, payload); err != nil {
		h.commandFailed(name, to, cmd, err)
	}
}

func (h *Hub) commandFailed(name string, addr ha.Address, cmd ha.Command, err error) {
	glog.Warningf("%s: %s: %v", name, cmd, err)
	h.publish(&Event{
		Node:    name,
		Address: addr,
		Command: ha.MustCommand(true, ha.HubToNode, ha.OpCommandFailed),
		Time:    h.Now(),
		Payload: []byte{byte(cmd)},
		Error:   err.Error(),
	})
}

func (h *Hub) publish(ev *Event) {
	glog.V(2).Infof("event %s", ev)
	if h.Sink == nil {
		return
	}
	if err := h.Sink.PublishEvent(ev); err != nil {
		glog.Errorf("publish %s: %v", ev.Topic(), err)
	}
}
