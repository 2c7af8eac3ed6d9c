package datagram

import "sync"

// DefaultInboxSize is the number of packets an Inbox buffers by default.
const DefaultInboxSize = 64

// Inbox is a bounded packet queue shared between a driver's I/O goroutine
// and its consumer. When full, the oldest packet is dropped.
type Inbox struct {
	lock    sync.Mutex
	packets [][]byte
	head    int
	count   int
	dropped int
	wakeCh  chan struct{}
}

// NewInbox creates an Inbox holding up to size packets.
func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Inbox{
		packets: make([][]byte, size),
		wakeCh:  make(chan struct{}, 1),
	}
}

// Put queues a copy of pkt.
func (b *Inbox) Put(pkt []byte) {
	cp := append([]byte(nil), pkt...)
	b.lock.Lock()
	size := len(b.packets)
	if b.count == size {
		b.head = (b.head + 1) % size
		b.count--
		b.dropped++
	}
	b.packets[(b.head+b.count)%size] = cp
	b.count++
	b.lock.Unlock()
	select {
	case b.wakeCh <- struct{}{}:
	default:
	}
}

// Get dequeues the oldest packet.
func (b *Inbox) Get() ([]byte, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.count == 0 {
		return nil, false
	}
	pkt := b.packets[b.head]
	b.packets[b.head] = nil
	b.head = (b.head + 1) % len(b.packets)
	b.count--
	return pkt, true
}

// Len returns the number of queued packets.
func (b *Inbox) Len() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.count
}

// Dropped returns the number of packets dropped on overflow.
func (b *Inbox) Dropped() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.dropped
}

// Wake is signaled after Put.
func (b *Inbox) Wake() <-chan struct{} {
	return b.wakeCh
}
