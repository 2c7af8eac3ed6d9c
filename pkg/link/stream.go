package link

import (
	"context"
	"io"
	"os"
	"sync"
	"time"
)

// PacketHandler receives packets from the stream.
type PacketHandler interface {
	HandlePacket(context.Context, *Packet)
}

// HandlePacketFunc is the func form of PacketHandler.
type HandlePacketFunc func(context.Context, *Packet)

// HandlePacket implements PacketHandler.
func (f HandlePacketFunc) HandlePacket(ctx context.Context, pkt *Packet) {
	f(ctx, pkt)
}

// StateChangedFunc is called when the sync state changes.
type StateChangedFunc func(context.Context, SyncState)

// DefaultSyncTimeout is the time to wait for the peer during sync.
const DefaultSyncTimeout = 100 * time.Millisecond

// Stream exchanges packets over a byte stream.
type Stream struct {
	RW           io.ReadWriter
	Handler      PacketHandler
	StateChanged StateChangedFunc
	SyncTimeout  time.Duration
	// ReadTimeout is set when Read on RW returns periodically (with a
	// timeout error or 0 bytes) instead of blocking forever, as serial
	// ports configured with a read timeout do.
	ReadTimeout bool

	lock   sync.Mutex
	seq    Seq
	state  SyncState
	parser Parser
	timer  <-chan time.Time
}

// NewStream creates a Stream over rw.
func NewStream(rw io.ReadWriter) *Stream {
	return &Stream{RW: rw, SyncTimeout: DefaultSyncTimeout, seq: RandomSeq()}
}

// State returns the current sync state.
func (s *Stream) State() SyncState {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state
}

// Send writes a packet, assigning its sequence number.
func (s *Stream) Send(pkt *Packet) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.state.IsReady() {
		return ErrNotReady
	}
	pkt.Seq = s.seq
	if _, err := pkt.WriteTo(s.RW); err != nil {
		return err
	}
	s.seq = s.seq.Next()
	return nil
}

// Run reads and dispatches packets until ctx is done or RW fails.
func (s *Stream) Run(ctx context.Context) error {
	if err := s.apply(ctx, s.parser.Reset()); err != nil {
		return err
	}
	if s.ReadTimeout {
		return s.runPolled(ctx)
	}
	return s.runBlocking(ctx)
}

func (s *Stream) runPolled(ctx context.Context) error {
	buf := make([]byte, 1)
	for {
		var r Result
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.timer:
			r = s.parser.Timeout()
		default:
			n, err := s.RW.Read(buf)
			switch {
			case err != nil && !os.IsTimeout(err):
				return err
			case err != nil || n == 0:
				r = s.parser.Timeout()
			default:
				r = s.parser.Parse(buf[0])
			}
		}
		if err := s.apply(ctx, r); err != nil {
			return err
		}
	}
}

func (s *Stream) runBlocking(ctx context.Context) error {
	byteCh, errCh := make(chan byte), make(chan error, 1)
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.readBytes(readCtx, byteCh, errCh)
	for {
		var r Result
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case b := <-byteCh:
			r = s.parser.Parse(b)
		case <-s.timer:
			r = s.parser.Timeout()
		}
		if err := s.apply(ctx, r); err != nil {
			return err
		}
	}
}

func (s *Stream) readBytes(ctx context.Context, byteCh chan<- byte, errCh chan<- error) {
	buf := make([]byte, 1)
	for {
		if _, err := s.RW.Read(buf); err != nil {
			errCh <- err
			return
		}
		select {
		case byteCh <- buf[0]:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Stream) apply(ctx context.Context, r Result) (err error) {
	s.lock.Lock()
	changed := s.state != r.State
	s.state = r.State
	if r.Control != 0 {
		_, err = s.RW.Write([]byte{r.Control, byte(s.seq)})
	}
	s.lock.Unlock()
	if err != nil {
		return
	}

	if s.ReadTimeout {
		// Read returns periodically, only a pending sync request needs a timer.
		if r.Control == syncREQ {
			s.timer = time.After(s.SyncTimeout)
		} else {
			s.timer = nil
		}
	} else {
		switch r.Timer() {
		case TimerRestart:
			s.timer = time.After(s.SyncTimeout)
		case TimerStop:
			s.timer = nil
		}
	}

	if changed && s.StateChanged != nil {
		s.StateChanged(ctx, r.State)
	}
	if r.Packet != nil && s.Handler != nil {
		s.Handler.HandlePacket(ctx, r.Packet)
	}
	return
}
