package link

// SyncState describes the synchronization of the incoming stream.
type SyncState int

// Sync states. Ready and Receiving combine.
const (
	SyncStateSyncing   SyncState = 0
	SyncStateReady     SyncState = 0x01
	SyncStateReceiving SyncState = 0x02
)

// IsReady reports whether packets can be exchanged.
func (s SyncState) IsReady() bool {
	return s&SyncStateReady != 0
}

// IsReceiving reports whether a sync or packet is in progress.
func (s SyncState) IsReceiving() bool {
	return s&SyncStateReceiving != 0
}

// TimerAction tells the caller what to do with the inter-byte timer.
type TimerAction int

// Timer actions.
const (
	TimerNoChange TimerAction = iota
	TimerRestart
	TimerStop
)

const (
	syncREQ byte = 0xff
	syncACK byte = 0xfe
)

// Result is the outcome of feeding the parser.
type Result struct {
	// Control is a sync byte to send to the peer followed by our
	// sequence number, 0 for none.
	Control byte
	State   SyncState
	Packet  *Packet
}

// Timer decides the timer action after this result.
func (r Result) Timer() TimerAction {
	switch {
	case r.State.IsReceiving() || r.Control == syncREQ:
		return TimerRestart
	case r.State.IsReady():
		return TimerStop
	}
	return TimerNoChange
}

type parserStep int

const (
	stepAwaitSync   parserStep = iota // sync request sent
	stepReqSeq                        // got syncREQ, want peer seq
	stepAckSeq                        // got syncACK, want peer seq
	stepIdle                          // synced, want packet seq
	stepIdleAckSeq                    // got syncACK while synced
	stepCode                          // want code
	stepLen                           // want explicit length
	stepData                          // want data bytes
)

// Parser decodes the incoming byte stream one byte at a time.
type Parser struct {
	peer   Seq
	step   parserStep
	packet *Packet
	filled int
}

// State returns the current sync state.
func (p *Parser) State() SyncState {
	switch {
	case p.step == stepAwaitSync:
		return SyncStateSyncing
	case p.step == stepIdle:
		return SyncStateReady
	case p.step > stepIdle:
		return SyncStateReady | SyncStateReceiving
	}
	return SyncStateSyncing | SyncStateReceiving
}

// Reset drops any partial packet and requests a resync.
func (p *Parser) Reset() Result {
	p.packet = nil
	return p.result(p.resync())
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) Result {
	return p.result(p.feed(b))
}

// Timeout tells the parser the peer went quiet. Anything in progress
// is abandoned.
func (p *Parser) Timeout() Result {
	if p.step == stepIdle {
		return p.result(0, nil)
	}
	return p.result(p.resync())
}

func (p *Parser) result(ctl byte, pkt *Packet) Result {
	return Result{Control: ctl, State: p.State(), Packet: pkt}
}

func (p *Parser) feed(b byte) (byte, *Packet) {
	switch p.step {
	case stepAwaitSync:
		if b == syncREQ {
			p.step = stepReqSeq
		} else if b == syncACK {
			p.step = stepAckSeq
		}
	case stepReqSeq, stepAckSeq:
		seq := Seq(b)
		if !seq.IsValid() {
			return p.resync()
		}
		answer := p.step == stepReqSeq
		p.peer, p.step = seq, stepIdle
		if answer {
			return syncACK, nil
		}
	case stepIdle:
		switch {
		case b == syncREQ:
			p.step = stepReqSeq
		case b == syncACK:
			p.step = stepIdleAckSeq
		case Seq(b) != p.peer:
			return p.resync()
		default:
			p.packet = &Packet{Seq: p.peer}
			p.peer = p.peer.Next()
			p.step = stepCode
		}
	case stepIdleAckSeq:
		if Seq(b) != p.peer {
			return p.resync()
		}
		p.step = stepIdle
	case stepCode:
		p.packet.Code = b & codeMask
		switch l := int(b>>4) & shortLenLimit; l {
		case 0:
			return p.complete()
		case shortLenLimit:
			p.step = stepLen
		default:
			p.expect(l)
		}
	case stepLen:
		if b > MaxDataLen {
			return p.resync()
		}
		if b == 0 {
			return p.complete()
		}
		p.expect(int(b))
	case stepData:
		p.packet.Data[p.filled] = b
		if p.filled++; p.filled >= len(p.packet.Data) {
			return p.complete()
		}
	}
	return 0, nil
}

func (p *Parser) expect(n int) {
	p.packet.Data, p.filled = make([]byte, n), 0
	p.step = stepData
}

func (p *Parser) resync() (byte, *Packet) {
	p.step = stepAwaitSync
	return syncREQ, nil
}

func (p *Parser) complete() (byte, *Packet) {
	pkt := p.packet
	p.packet, p.step = nil, stepIdle
	return 0, pkt
}
