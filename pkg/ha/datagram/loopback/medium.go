// Package loopback provides an in-memory broadcast medium.
package loopback

import (
	"errors"
	"sync"

	"github.com/robotalks/homeauto.go/pkg/ha/datagram"
)

// ErrClosed is returned when sending through a detached port.
var ErrClosed = errors.New("port closed")

// LossFunc decides whether a packet from a port to another is dropped.
type LossFunc func(from, to *Port, pkt []byte) bool

// Medium delivers every packet sent through a port to all other ports.
type Medium struct {
	// Loss is consulted for each delivery when set.
	Loss LossFunc
	// InboxSize is the receive buffer of ports attached later.
	InboxSize int

	lock  sync.RWMutex
	ports map[*Port]struct{}
}

// NewMedium creates an empty Medium.
func NewMedium() *Medium {
	return &Medium{ports: make(map[*Port]struct{})}
}

// Attach creates a port on the medium.
func (m *Medium) Attach() *Port {
	p := &Port{medium: m, inbox: datagram.NewInbox(m.InboxSize)}
	m.lock.Lock()
	if m.ports == nil {
		m.ports = make(map[*Port]struct{})
	}
	m.ports[p] = struct{}{}
	m.lock.Unlock()
	return p
}

// Ports returns the number of attached ports.
func (m *Medium) Ports() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.ports)
}

func (m *Medium) broadcast(from *Port, pkt []byte) error {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if _, ok := m.ports[from]; !ok {
		return ErrClosed
	}
	for p := range m.ports {
		if p == from {
			continue
		}
		if m.Loss != nil && m.Loss(from, p, pkt) {
			continue
		}
		p.inbox.Put(pkt)
	}
	return nil
}

// Port is a datagram.Driver attached to a Medium.
type Port struct {
	medium *Medium
	inbox  *datagram.Inbox
}

// Send implements datagram.Driver.
func (p *Port) Send(pkt []byte) error {
	return p.medium.broadcast(p, pkt)
}

// Recv implements datagram.Driver.
func (p *Port) Recv() ([]byte, bool) {
	return p.inbox.Get()
}

// Inject queues pkt as if it came from the medium.
func (p *Port) Inject(pkt []byte) {
	p.inbox.Put(pkt)
}

// Wake is signaled when a packet arrives.
func (p *Port) Wake() <-chan struct{} {
	return p.inbox.Wake()
}

// Close detaches the port.
func (p *Port) Close() error {
	p.medium.lock.Lock()
	delete(p.medium.ports, p)
	p.medium.lock.Unlock()
	return nil
}
