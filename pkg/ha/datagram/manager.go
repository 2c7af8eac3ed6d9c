// Package datagram provides addressed, acknowledged datagrams over a raw
// broadcast medium.
package datagram

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/homeauto.go/pkg/ha"
)

// Driver is a raw broadcast medium. Packets may be lost or duplicated.
type Driver interface {
	// Send puts pkt on the medium.
	Send(pkt []byte) error
	// Recv returns a packet from the medium without blocking.
	Recv() ([]byte, bool)
}

// Defaults of Manager.
const (
	DefaultTimeout      = 200 * time.Millisecond
	DefaultRetries      = 3
	DefaultPollInterval = time.Millisecond
	// DefaultDuplicateWindow covers the retransmissions of a sender with
	// default timing.
	DefaultDuplicateWindow = 2 * time.Second
)

type lastSeen struct {
	id byte
	at time.Time
}

type received struct {
	data []byte
	from ha.Address
}

// Manager sends and receives datagrams for one address.
// It implements session.Transport.
type Manager struct {
	Driver       Driver
	Address      ha.Address
	Timeout      time.Duration
	Retries      int
	PollInterval time.Duration
	// Promiscuous delivers datagrams addressed to anyone. Only datagrams
	// addressed to this manager are acked.
	Promiscuous bool
	// DuplicateWindow is how long a datagram ID from a sender is remembered.
	// A repeated ID after the window is a new datagram, as from a sender
	// which restarted.
	DuplicateWindow time.Duration

	lock            sync.Mutex
	lastID          byte
	seen            map[ha.Address]lastSeen
	inbox           []received
	retransmissions int
}

// NewManager creates a Manager with default timing.
// Datagram IDs start at a random number, so the first datagrams after a
// restart are unlikely to repeat the last ID receivers remember.
func NewManager(d Driver, addr ha.Address) *Manager {
	return &Manager{
		Driver:          d,
		Address:         addr,
		Timeout:         DefaultTimeout,
		Retries:         DefaultRetries,
		PollInterval:    DefaultPollInterval,
		DuplicateWindow: DefaultDuplicateWindow,
		lastID:          byte(rand.Intn(256)),
	}
}

// Send transmits data once.
func (m *Manager) Send(data []byte, to ha.Address) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.lastID++
	return m.send(Header{To: to, From: m.Address, ID: m.lastID}, data)
}

// SendAndWait transmits data until to acknowledges it.
// It returns ha.ErrNoAck when all retries time out.
// Datagrams received while waiting are kept for Receive.
func (m *Manager) SendAndWait(data []byte, to ha.Address) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.lastID++
	h := Header{To: to, From: m.Address, ID: m.lastID}
	if to == Broadcast {
		return m.send(h, data)
	}
	timeout, poll := m.Timeout, m.PollInterval
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	for attempt := 0; attempt <= m.Retries; attempt++ {
		if attempt > 0 {
			m.retransmissions++
			glog.V(3).Infof("%s: retransmit %d to %s (%d)", m.Address, h.ID, to, attempt)
		}
		if err := m.send(h, data); err != nil {
			return err
		}
		for deadline := time.Now().Add(timeout); time.Now().Before(deadline); {
			pkt, ok := m.Driver.Recv()
			if !ok {
				time.Sleep(poll)
				continue
			}
			rh, rdata, err := DecodePacket(pkt)
			if err != nil {
				continue
			}
			if rh.IsAck() && rh.To == m.Address && rh.From == to && rh.ID == h.ID {
				return nil
			}
			m.accept(rh, rdata)
		}
	}
	return ha.ErrNoAck
}

// Available reports whether a datagram is ready for Receive.
func (m *Manager) Available() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.pump()
	return len(m.inbox) > 0
}

// Receive returns the oldest received datagram.
func (m *Manager) Receive() ([]byte, ha.Address, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.pump()
	if len(m.inbox) == 0 {
		return nil, 0, false
	}
	r := m.inbox[0]
	m.inbox[0] = received{}
	m.inbox = m.inbox[1:]
	return r.data, r.from, true
}

// Retransmissions returns the number of retransmitted datagrams.
func (m *Manager) Retransmissions() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.retransmissions
}

func (m *Manager) send(h Header, data []byte) error {
	if err := m.Driver.Send(h.Encode(data)); err != nil {
		return fmt.Errorf("%w: %v", ha.ErrSendFailed, err)
	}
	return nil
}

func (m *Manager) pump() {
	for {
		pkt, ok := m.Driver.Recv()
		if !ok {
			return
		}
		if h, data, err := DecodePacket(pkt); err == nil {
			m.accept(h, data)
		}
	}
}

func (m *Manager) accept(h Header, data []byte) {
	if h.From == m.Address || h.IsAck() {
		return
	}
	toMe := h.To == m.Address
	if !toMe && h.To != Broadcast && !m.Promiscuous {
		return
	}
	if toMe {
		ack := Header{To: h.From, From: m.Address, ID: h.ID, Flags: FlagAck}
		if err := m.send(ack, nil); err != nil {
			glog.Warningf("%s: ack %d to %s: %v", m.Address, h.ID, h.From, err)
		}
		if m.seen == nil {
			m.seen = make(map[ha.Address]lastSeen)
		}
		now := time.Now()
		window := m.DuplicateWindow
		if window <= 0 {
			window = DefaultDuplicateWindow
		}
		if last, ok := m.seen[h.From]; ok && last.id == h.ID && now.Sub(last.at) < window {
			glog.V(3).Infof("%s: duplicate %d from %s", m.Address, h.ID, h.From)
			return
		}
		m.seen[h.From] = lastSeen{id: h.ID, at: now}
	}
	if len(m.inbox) >= DefaultInboxSize {
		m.inbox = m.inbox[1:]
	}
	m.inbox = append(m.inbox, received{data: append([]byte(nil), data...), from: h.From})
}
