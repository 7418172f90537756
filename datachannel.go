package rtcdc

import (
	"sync"

	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"
)

// DataChannelHandler receives the events of a single data channel. Methods
// are invoked one at a time; no two fire concurrently for the same channel.
// Embed NopDataChannelHandler to implement only a subset.
type DataChannelHandler interface {
	// OnOpen fires once the channel is ready to send.
	OnOpen()

	// OnClosed fires once the channel will deliver no further events.
	OnClosed()

	// OnError reports a channel-fatal transport error.
	OnError(err error)

	// OnMessage delivers one complete message. The slice is owned by the
	// handler.
	OnMessage(msg []byte)

	// OnBufferedAmountLow fires when the outgoing buffer drains to the
	// configured threshold.
	OnBufferedAmountLow()

	// OnAvailable signals a queued message on a manual-receive channel.
	OnAvailable()
}

// NopDataChannelHandler is a DataChannelHandler that ignores every event.
type NopDataChannelHandler struct{}

// OnOpen implements DataChannelHandler.
func (NopDataChannelHandler) OnOpen() {}

// OnClosed implements DataChannelHandler.
func (NopDataChannelHandler) OnClosed() {}

// OnError implements DataChannelHandler.
func (NopDataChannelHandler) OnError(error) {}

// OnMessage implements DataChannelHandler.
func (NopDataChannelHandler) OnMessage([]byte) {}

// OnBufferedAmountLow implements DataChannelHandler.
func (NopDataChannelHandler) OnBufferedAmountLow() {}

// OnAvailable implements DataChannelHandler.
func (NopDataChannelHandler) OnAvailable() {}

// Reliability configures the SCTP delivery guarantees of a channel. The
// zero value is an ordered, fully reliable channel.
type Reliability struct {
	// Unordered permits out-of-order delivery.
	Unordered bool

	// Unreliable permits dropping messages, bounded by one of the two
	// limits below.
	Unreliable bool

	// MaxPacketLifeTime bounds retransmission by time, in milliseconds.
	MaxPacketLifeTime uint32

	// MaxRetransmits bounds retransmission by attempt count.
	MaxRetransmits uint32
}

// DataChannelInit carries the channel-creation options of
// CreateDataChannelExt.
type DataChannelInit struct {
	Reliability Reliability

	// Protocol is the application subprotocol announced in DCEP.
	Protocol string

	// Negotiated skips in-band DCEP negotiation; both sides must create
	// the channel with the same Stream.
	Negotiated bool

	// ManualStream pins the SCTP stream to Stream instead of letting the
	// engine pick.
	ManualStream bool

	// Stream is the SCTP stream identifier, 0-65534.
	Stream uint16

	// ManualReceive queues incoming messages for Receive/ReceiveInto and
	// fires OnAvailable instead of dispatching OnMessage.
	ManualReceive bool
}

func (i *DataChannelInit) engine() (*webrtc.DataChannelInit, error) {
	out := &webrtc.DataChannelInit{}

	r := i.Reliability
	if r.Unordered {
		ordered := false
		out.Ordered = &ordered
	}
	// The limits only take effect on an unreliable channel; a reliable
	// channel ignores them, like the engine ignores them without the flag.
	if r.Unreliable {
		if r.MaxPacketLifeTime > 0 && r.MaxRetransmits > 0 {
			return nil, invalidArg("MaxPacketLifeTime and MaxRetransmits are mutually exclusive")
		}
		switch {
		case r.MaxRetransmits > 0:
			if r.MaxRetransmits > 65535 {
				return nil, invalidArg("MaxRetransmits %d out of range", r.MaxRetransmits)
			}
			v := uint16(r.MaxRetransmits)
			out.MaxRetransmits = &v
		case r.MaxPacketLifeTime > 0:
			if r.MaxPacketLifeTime > 65535 {
				return nil, invalidArg("MaxPacketLifeTime %d out of range", r.MaxPacketLifeTime)
			}
			v := uint16(r.MaxPacketLifeTime)
			out.MaxPacketLifeTime = &v
		default:
			// Fully unreliable: no retransmission at all.
			v := uint16(0)
			out.MaxRetransmits = &v
		}
	}

	if i.Protocol != "" {
		p := i.Protocol
		out.Protocol = &p
	}
	if i.Negotiated {
		n := true
		out.Negotiated = &n
	}
	if i.ManualStream || i.Negotiated {
		if i.Stream == 65535 {
			return nil, invalidArg("stream %d out of range", i.Stream)
		}
		id := i.Stream
		out.ID = &id
	}
	return out, nil
}

// DataChannel wraps an engine data channel and marshals its events into a
// DataChannelHandler.
//
// dispatchMu serializes handler invocations; mu guards wrapper state. The
// two are distinct so a handler may call back into the channel (Receive
// from inside OnAvailable, Send from inside OnMessage) without
// deadlocking.
type DataChannel struct {
	dispatchMu sync.Mutex

	mu     sync.Mutex
	closed bool

	manualReceive bool
	queue         [][]byte
	queuedBytes   int

	handler DataChannelHandler
	engine  *webrtc.DataChannel
	log     logging.LeveledLogger
}

func newDataChannel(engine *webrtc.DataChannel, handler DataChannelHandler, manualReceive bool, log logging.LeveledLogger) (*DataChannel, error) {
	if handler == nil {
		return nil, invalidArg("nil data channel handler")
	}
	d := &DataChannel{
		handler:       handler,
		manualReceive: manualReceive,
		engine:        engine,
		log:           log,
	}

	engine.OnOpen(func() {
		d.dispatch(func(h DataChannelHandler) { h.OnOpen() })
	})
	engine.OnClose(func() {
		d.dispatch(func(h DataChannelHandler) { h.OnClosed() })
	})
	engine.OnError(func(err error) {
		d.dispatch(func(h DataChannelHandler) { h.OnError(err) })
	})
	engine.OnBufferedAmountLow(func() {
		d.dispatch(func(h DataChannelHandler) { h.OnBufferedAmountLow() })
	})
	engine.OnMessage(func(msg webrtc.DataChannelMessage) {
		d.handleMessage(msg.Data)
	})

	return d, nil
}

// dispatch serializes handler invocations and drops events arriving after
// Close.
func (d *DataChannel) dispatch(f func(DataChannelHandler)) {
	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return
	}
	f(d.handler)
}

func (d *DataChannel) handleMessage(data []byte) {
	if !d.manualReceive {
		d.dispatch(func(h DataChannelHandler) { h.OnMessage(data) })
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, data)
	d.queuedBytes += len(data)
	d.mu.Unlock()
	d.dispatch(func(h DataChannelHandler) { h.OnAvailable() })
}

// Send queues one message for delivery.
func (d *DataChannel) Send(msg []byte) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrConnectionClosed
	}
	d.mu.Unlock()
	return wrapEngine(d.engine.Send(msg))
}

// Receive pops the next queued message on a manual-receive channel. It
// returns ErrNotAvailable when nothing is pending.
func (d *DataChannel) Receive() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrConnectionClosed
	}
	if len(d.queue) == 0 {
		return nil, ErrNotAvailable
	}
	msg := d.queue[0]
	d.queue = d.queue[1:]
	d.queuedBytes -= len(msg)
	return msg, nil
}

// ReceiveInto copies the next queued message into buf and returns its
// length. A message larger than buf stays queued and ErrTooSmall is
// returned.
func (d *DataChannel) ReceiveInto(buf []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrConnectionClosed
	}
	if len(d.queue) == 0 {
		return 0, ErrNotAvailable
	}
	msg := d.queue[0]
	if len(msg) > len(buf) {
		return 0, ErrTooSmall
	}
	d.queue = d.queue[1:]
	d.queuedBytes -= len(msg)
	return copy(buf, msg), nil
}

// AvailableAmount is the number of bytes queued for Receive.
func (d *DataChannel) AvailableAmount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queuedBytes
}

// Label returns the channel label.
func (d *DataChannel) Label() string {
	return d.engine.Label()
}

// Protocol returns the negotiated subprotocol, if any.
func (d *DataChannel) Protocol() string {
	return d.engine.Protocol()
}

// Stream returns the SCTP stream identifier; ErrNotAvailable before the
// channel is negotiated.
func (d *DataChannel) Stream() (uint16, error) {
	id := d.engine.ID()
	if id == nil {
		return 0, ErrNotAvailable
	}
	return *id, nil
}

// Reliability reports the channel's delivery guarantees.
func (d *DataChannel) Reliability() Reliability {
	r := Reliability{Unordered: !d.engine.Ordered()}
	if lifeTime := d.engine.MaxPacketLifeTime(); lifeTime != nil {
		r.Unreliable = true
		r.MaxPacketLifeTime = uint32(*lifeTime)
	}
	if retransmits := d.engine.MaxRetransmits(); retransmits != nil {
		r.Unreliable = true
		r.MaxRetransmits = uint32(*retransmits)
	}
	return r
}

// BufferedAmount is the number of outgoing bytes not yet handed to the
// transport.
func (d *DataChannel) BufferedAmount() uint64 {
	return d.engine.BufferedAmount()
}

// SetBufferedAmountLowThreshold arms OnBufferedAmountLow: the event fires
// when BufferedAmount drains to or below the threshold.
func (d *DataChannel) SetBufferedAmountLowThreshold(threshold uint64) {
	d.engine.SetBufferedAmountLowThreshold(threshold)
}

// Close tears the channel down. Events already in flight are dropped.
func (d *DataChannel) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()
	return wrapEngine(d.engine.Close())
}
