// Package session drives the protocol on top of a datagram transport.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/homeauto.go/pkg/ha"
)

// Transport is the datagram service frames are exchanged over.
type Transport interface {
	// Send transmits data without waiting for acknowledgment.
	Send(data []byte, to ha.Address) error
	// SendAndWait transmits data and blocks until to acknowledges or
	// the retry budget runs out.
	SendAndWait(data []byte, to ha.Address) error
	// Available reports whether a datagram can be received.
	Available() bool
	// Receive returns the next datagram without blocking.
	Receive() (data []byte, from ha.Address, ok bool)
}

// State is the receive state of a Session.
type State int

// Receive states.
const (
	StateIdle State = iota
	StateAwaitingReceive
	StateFrameReady
	StateReceiveFailed
)

var stateNames = [...]string{"idle", "awaiting-receive", "frame-ready", "receive-failed"}

// String implements fmt.Stringer.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session sends frames and keeps the last received one.
type Session struct {
	Transport Transport
	Local     ha.Address
	Codec     ha.Codec

	lock  sync.Mutex
	state State
	last  ha.Message
}

// New creates a Session using the default frame codec.
func New(t Transport, local ha.Address) *Session {
	return &Session{Transport: t, Local: local, Codec: ha.DefaultCodec}
}

// WithCodec replaces the frame codec.
func (s *Session) WithCodec(c ha.Codec) *Session {
	s.Codec = c
	return s
}

// SendReliable sends f and waits for the acknowledgment from to.
func (s *Session) SendReliable(to ha.Address, f ha.Frame) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.Transport.SendAndWait(f, to); err != nil {
		glog.V(2).Infof("%s -> %s: %s: %v", s.Local, to, f.Command(), err)
		if errors.Is(err, ha.ErrNoAck) {
			return fmt.Errorf("send %s to %s: %w", f.Command(), to, err)
		}
		// keep the transport failure
		return fmt.Errorf("send %s to %s: %w: %w", f.Command(), to, ha.ErrNoAck, err)
	}
	glog.V(2).Infof("%s -> %s: %s acked", s.Local, to, f.Command())
	return nil
}

// SendUnreliable sends f and returns immediately.
func (s *Session) SendUnreliable(to ha.Address, f ha.Frame) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.Transport.Send(f, to); err != nil {
		glog.V(2).Infof("%s -> %s: %s: %v", s.Local, to, f.Command(), err)
		return fmt.Errorf("send %s to %s: %w", f.Command(), to, ha.ErrSendFailed)
	}
	glog.V(2).Infof("%s -> %s: %s", s.Local, to, f.Command())
	return nil
}

// Transmit builds a frame and sends it without waiting.
func (s *Session) Transmit(to ha.Address, cmd ha.Command, payload []byte) error {
	f, err := s.Codec.BuildFrame(cmd, payload)
	if err != nil {
		return err
	}
	return s.SendUnreliable(to, f)
}

// TransmitReliable builds a frame and sends it waiting for acknowledgment.
func (s *Session) TransmitReliable(to ha.Address, cmd ha.Command, payload []byte) error {
	f, err := s.Codec.BuildFrame(cmd, payload)
	if err != nil {
		return err
	}
	return s.SendReliable(to, f)
}

// PollReceive returns the next frame if one is available. It never blocks.
// A received frame replaces the previous one whether it was read or not.
func (s *Session) PollReceive() (ha.Message, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.state = StateIdle
	if !s.Transport.Available() {
		return ha.Message{}, false
	}
	s.state = StateAwaitingReceive
	data, from, ok := s.Transport.Receive()
	if !ok {
		s.state = StateReceiveFailed
		return ha.Message{}, false
	}
	cmd, payload, err := s.Codec.ParseFrame(data)
	if err != nil {
		glog.Warningf("%s: drop frame from %s: %v", s.Local, from, err)
		s.state = StateReceiveFailed
		return ha.Message{}, false
	}
	s.last = ha.Message{From: from, Command: cmd, Payload: append([]byte(nil), payload...)}
	s.state = StateFrameReady
	glog.V(2).Infof("%s <- %s: %s", s.Local, from, cmd)
	return s.copyLast(), true
}

// Last returns the last received message.
func (s *Session) Last() ha.Message {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.copyLast()
}

// CurrentCommand returns the command of the last received frame.
func (s *Session) CurrentCommand() ha.Command {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.last.Command
}

// CurrentSender returns the sender of the last received frame.
func (s *Session) CurrentSender() ha.Address {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.last.From
}

// CurrentPayload returns a copy of the payload of the last received frame.
func (s *Session) CurrentPayload() []byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]byte(nil), s.last.Payload...)
}

// State returns the receive state after the last poll.
func (s *Session) State() State {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state
}

func (s *Session) copyLast() ha.Message {
	msg := s.last
	msg.Payload = append([]byte(nil), msg.Payload...)
	return msg
}
