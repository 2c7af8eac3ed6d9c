// Package node implements the behaviour of a network node: switches,
// sensors and the clock every node keeps.
package node

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/homeauto.go/pkg/ha"
	"github.com/robotalks/homeauto.go/pkg/ha/session"
)

// ErrUnsupported is returned when the node can't serve a command.
var ErrUnsupported = errors.New("unsupported command")

// ErrAlarmNotSet is returned when reading an alarm never set.
var ErrAlarmNotSet = errors.New("alarm not set")

// SensorFunc reads the measurement reported with op.
type SensorFunc func(op ha.Opcode) (uint16, error)

// Node answers commands from the hub on a session.
type Node struct {
	Session *session.Session
	Hub     ha.Address
	// Sensor reads measurements, nil for nodes without sensors.
	Sensor SensorFunc
	// Now is the local clock source.
	Now func() time.Time

	lock   sync.Mutex
	on     bool
	offset time.Duration
	alarms map[ha.Opcode]ha.Timestamp
}

// New creates a Node on s reporting to the hub.
func New(s *session.Session) *Node {
	return &Node{Session: s, Hub: ha.HubAddress, Now: time.Now}
}

// Address returns the node address.
func (n *Node) Address() ha.Address {
	return n.Session.Local
}

// IsOn returns the switch state.
func (n *Node) IsOn() bool {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.on
}

// Time returns the node clock.
func (n *Node) Time() time.Time {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.Now().Add(n.offset)
}

// SetTime sets the node clock.
func (n *Node) SetTime(t time.Time) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.offset = t.Sub(n.Now())
}

// Alarm returns the alarm stored by the set opcode.
func (n *Node) Alarm(set ha.Opcode) (ha.Timestamp, bool) {
	n.lock.Lock()
	defer n.lock.Unlock()
	ts, ok := n.alarms[set]
	return ts, ok
}

// Handle serves one message and sends the reply.
// Messages not sent by the hub are ignored.
func (n *Node) Handle(msg ha.Message) error {
	if msg.From != n.Hub || msg.Command.Direction() != ha.HubToNode {
		glog.V(2).Infof("%s: ignore %s", n.Address(), msg)
		return nil
	}
	op, payload, err := n.serve(msg)
	if err != nil {
		glog.Warningf("%s: %s: %v", n.Address(), msg.Command, err)
		return n.reply(ha.OpCommandFailed, []byte{byte(msg.Command)})
	}
	return n.reply(op, payload)
}

func (n *Node) serve(msg ha.Message) (ha.Opcode, []byte, error) {
	typ := n.Address().Type()
	switch op := msg.Command.Opcode(); op {
	case ha.OpSwitchOff, ha.OpSwitchOn, ha.OpSwitchToggle, ha.OpSwitchStatus:
		if !typ.IsSwitch() {
			return 0, nil, ErrUnsupported
		}
		return n.switchTo(op), nil, nil
	case ha.OpTemperature, ha.OpHumidity, ha.OpMotionStatus, ha.OpWaterLevel:
		if n.Sensor == nil {
			return 0, nil, ErrUnsupported
		}
		val, err := n.Sensor(op)
		if err != nil {
			return 0, nil, err
		}
		payload, err := ha.Encode16(val)
		return op, payload, err
	case ha.OpGetTime:
		payload, err := ha.EncodeTimestamp(ha.TimestampOf(n.Time()))
		return op, payload, err
	case ha.OpSetTime:
		ts, err := msg.Timestamp()
		if err != nil {
			return 0, nil, err
		}
		n.SetTime(ts.Time(time.Local))
		return ha.OpAcknowledge, nil, nil
	case ha.OpAlarm1Set, ha.OpAlarm2Set:
		ts, err := msg.Timestamp()
		if err != nil {
			return 0, nil, err
		}
		n.lock.Lock()
		if n.alarms == nil {
			n.alarms = make(map[ha.Opcode]ha.Timestamp)
		}
		n.alarms[op] = ts
		n.lock.Unlock()
		return ha.OpAcknowledge, nil, nil
	case ha.OpAlarm1Get, ha.OpAlarm2Get:
		// each get opcode follows its set opcode
		ts, ok := n.Alarm(op - 1)
		if !ok {
			return 0, nil, ErrAlarmNotSet
		}
		payload, err := ha.EncodeTimestamp(ts)
		return op, payload, err
	}
	return 0, nil, ErrUnsupported
}

func (n *Node) switchTo(op ha.Opcode) ha.Opcode {
	n.lock.Lock()
	defer n.lock.Unlock()
	switch op {
	case ha.OpSwitchOff:
		n.on = false
	case ha.OpSwitchOn:
		n.on = true
	case ha.OpSwitchToggle:
		n.on = !n.on
	}
	if n.on {
		return ha.OpSwitchOn
	}
	return ha.OpSwitchOff
}

func (n *Node) reply(op ha.Opcode, payload []byte) error {
	cmd := ha.MustCommand(len(payload) > 0, ha.NodeToHub, op)
	return n.Session.TransmitReliable(n.Hub, cmd, payload)
}

// Report sends a measurement to the hub.
func (n *Node) Report(op ha.Opcode) error {
	if n.Sensor == nil {
		return ErrUnsupported
	}
	val, err := n.Sensor(op)
	if err != nil {
		return err
	}
	payload, err := ha.Encode16(val)
	if err != nil {
		return err
	}
	return n.reply(op, payload)
}

// RequestTime asks the hub to set the node clock.
func (n *Node) RequestTime() error {
	return n.reply(ha.OpGetTime, nil)
}

// Config tunes Run.
type Config struct {
	// ReportInterval is the period of measurement reports, 0 disables.
	ReportInterval time.Duration
	// PollInterval is the period of polling for commands without Wake.
	PollInterval time.Duration
	// SyncTime requests time from the hub on start.
	SyncTime bool
}

// Run serves commands until ctx is done. Wake is the signal of incoming
// packets, and may be nil.
func (n *Node) Run(ctx context.Context, conf Config, wake <-chan struct{}) error {
	if conf.SyncTime {
		if err := n.RequestTime(); err != nil {
			glog.Warningf("%s: request time: %v", n.Address(), err)
		}
	}
	poll := conf.PollInterval
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	pollTicker := time.NewTicker(poll)
	defer pollTicker.Stop()

	var reportCh <-chan time.Time
	measurement, hasMeasurement := n.Address().Type().Measurement()
	if conf.ReportInterval > 0 && hasMeasurement && n.Sensor != nil {
		reportTicker := time.NewTicker(conf.ReportInterval)
		defer reportTicker.Stop()
		reportCh = reportTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		case <-pollTicker.C:
		case <-reportCh:
			if err := n.Report(measurement); err != nil {
				glog.Warningf("%s: report %s: %v", n.Address(), measurement, err)
			}
			continue
		}
		for {
			msg, ok := n.Session.PollReceive()
			if !ok {
				break
			}
			if err := n.Handle(msg); err != nil {
				glog.Warningf("%s: reply to %s: %v", n.Address(), msg, err)
			}
		}
	}
}
