package rtcdc

import (
	"errors"
	"sync"

	"github.com/pion/logging"
	"github.com/pion/randutil"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

const (
	trackReadBufferSize = 1500

	runesAlpha = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Direction is the media flow of a track from the local point of view.
type Direction int

const (
	// DirectionUnknown defers to the session description; it behaves as
	// DirectionSendRecv on a locally added track.
	DirectionUnknown Direction = iota

	// DirectionSendOnly sends media and ignores incoming packets.
	DirectionSendOnly

	// DirectionRecvOnly receives media only.
	DirectionRecvOnly

	// DirectionSendRecv sends and receives.
	DirectionSendRecv

	// DirectionInactive negotiates the media section without flow.
	DirectionInactive
)

func (d Direction) String() string {
	switch d {
	case DirectionSendOnly:
		return "sendonly"
	case DirectionRecvOnly:
		return "recvonly"
	case DirectionSendRecv:
		return "sendrecv"
	case DirectionInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

func (d Direction) engine() (webrtc.RTPTransceiverDirection, error) {
	switch d {
	case DirectionUnknown, DirectionSendRecv:
		return webrtc.RTPTransceiverDirectionSendrecv, nil
	case DirectionSendOnly:
		return webrtc.RTPTransceiverDirectionSendonly, nil
	case DirectionRecvOnly:
		return webrtc.RTPTransceiverDirectionRecvonly, nil
	case DirectionInactive:
		return webrtc.RTPTransceiverDirectionInactive, nil
	default:
		return webrtc.RTPTransceiverDirection(0), invalidArg("unknown direction %d", int(d))
	}
}

// Codec identifies the media codec of a track.
type Codec int

const (
	// CodecH264 is H.264/AVC video.
	CodecH264 Codec = iota + 1

	// CodecVP8 is VP8 video.
	CodecVP8

	// CodecVP9 is VP9 video.
	CodecVP9

	// CodecAV1 is AV1 video.
	CodecAV1

	// CodecOpus is Opus audio.
	CodecOpus
)

func (c Codec) String() string {
	switch c {
	case CodecH264:
		return "H264"
	case CodecVP8:
		return "VP8"
	case CodecVP9:
		return "VP9"
	case CodecAV1:
		return "AV1"
	case CodecOpus:
		return "opus"
	default:
		return "unknown"
	}
}

func (c Codec) capability() (webrtc.RTPCodecCapability, error) {
	switch c {
	case CodecH264:
		return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264, ClockRate: 90000}, nil
	case CodecVP8:
		return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}, nil
	case CodecVP9:
		return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP9, ClockRate: 90000}, nil
	case CodecAV1:
		return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeAV1, ClockRate: 90000}, nil
	case CodecOpus:
		return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}, nil
	default:
		return webrtc.RTPCodecCapability{}, invalidArg("unknown codec %d", int(c))
	}
}

func (c Codec) kind() webrtc.RTPCodecType {
	if c == CodecOpus {
		return webrtc.RTPCodecTypeAudio
	}
	return webrtc.RTPCodecTypeVideo
}

// TrackInit carries the options of AddTrack.
//
// PayloadType and SSRC are advisory: the engine owns payload-type and
// SSRC assignment during negotiation and rewrites outgoing headers
// accordingly.
type TrackInit struct {
	Direction   Direction
	Codec       Codec
	PayloadType uint8
	SSRC        uint32

	// Mid labels the track until the engine assigns the negotiated mid.
	Mid string

	// Name is a human-readable track label.
	Name string

	// MSID is the media stream identifier; randomly generated when empty.
	MSID string

	// TrackID identifies the track inside its stream; randomly generated
	// when empty.
	TrackID string

	// ManualReceive queues incoming packets for Receive/ReceiveInto and
	// fires OnAvailable instead of dispatching OnMessage.
	ManualReceive bool
}

// TrackHandler receives the events of a single media track. Methods are
// invoked one at a time. Embed NopTrackHandler to implement a subset.
type TrackHandler interface {
	// OnOpen fires once media can flow.
	OnOpen()

	// OnClosed fires once the track will deliver no further events.
	OnClosed()

	// OnError reports a track-fatal transport error.
	OnError(err error)

	// OnMessage delivers one raw incoming RTP packet.
	OnMessage(msg []byte)

	// OnAvailable signals a queued packet on a manual-receive track.
	OnAvailable()
}

// NopTrackHandler is a TrackHandler that ignores every event.
type NopTrackHandler struct{}

// OnOpen implements TrackHandler.
func (NopTrackHandler) OnOpen() {}

// OnClosed implements TrackHandler.
func (NopTrackHandler) OnClosed() {}

// OnError implements TrackHandler.
func (NopTrackHandler) OnError(error) {}

// OnMessage implements TrackHandler.
func (NopTrackHandler) OnMessage([]byte) {}

// OnAvailable implements TrackHandler.
func (NopTrackHandler) OnAvailable() {}

// Track wraps one negotiated media section: an optional outgoing RTP
// track plus the incoming packets of its paired remote track.
type Track struct {
	dispatchMu sync.Mutex

	mu     sync.Mutex
	closed bool
	opened bool

	queue       [][]byte
	queuedBytes int

	init        TrackInit
	handler     TrackHandler
	local       *webrtc.TrackLocalStaticRTP
	transceiver *webrtc.RTPTransceiver
	log         logging.LeveledLogger
}

func newTrack(init TrackInit, handler TrackHandler, log logging.LeveledLogger) *Track {
	return &Track{init: init, handler: handler, log: log}
}

func (t *Track) dispatch(f func(TrackHandler)) {
	t.dispatchMu.Lock()
	defer t.dispatchMu.Unlock()
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}
	f(t.handler)
}

// markOpen fires OnOpen exactly once.
func (t *Track) markOpen() {
	t.mu.Lock()
	if t.opened || t.closed {
		t.mu.Unlock()
		return
	}
	t.opened = true
	t.mu.Unlock()
	t.dispatch(func(h TrackHandler) { h.OnOpen() })
}

// attachRemote pumps the paired remote track into the handler until the
// track or the connection goes away.
func (t *Track) attachRemote(remote *webrtc.TrackRemote) {
	t.markOpen()
	go func() {
		buf := make([]byte, trackReadBufferSize)
		for {
			n, _, err := remote.Read(buf)
			if err != nil {
				t.handleReadError(err)
				return
			}
			msg := make([]byte, n)
			copy(msg, buf[:n])
			t.handleIncoming(msg)
		}
	}()
}

func (t *Track) handleIncoming(msg []byte) {
	if !t.init.ManualReceive {
		t.dispatch(func(h TrackHandler) { h.OnMessage(msg) })
		return
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.queue = append(t.queue, msg)
	t.queuedBytes += len(msg)
	t.mu.Unlock()
	t.dispatch(func(h TrackHandler) { h.OnAvailable() })
}

// handleReadError distinguishes an orderly shutdown of the remote track
// from a transport failure; only the latter reaches OnError.
func (t *Track) handleReadError(err error) {
	wrapped := wrapEngine(err)
	if errors.Is(wrapped, ErrConnectionClosed) {
		t.log.Debugf("remote track %s read loop done: %v", t.Mid(), err)
		return
	}
	t.log.Warnf("remote track %s read failed: %v", t.Mid(), err)
	t.dispatch(func(h TrackHandler) { h.OnError(wrapped) })
}

// Receive pops the next queued packet on a manual-receive track. It
// returns ErrNotAvailable when nothing is pending.
func (t *Track) Receive() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrConnectionClosed
	}
	if len(t.queue) == 0 {
		return nil, ErrNotAvailable
	}
	msg := t.queue[0]
	t.queue = t.queue[1:]
	t.queuedBytes -= len(msg)
	return msg, nil
}

// ReceiveInto copies the next queued packet into buf and returns its
// length. A packet larger than buf stays queued and ErrTooSmall is
// returned.
func (t *Track) ReceiveInto(buf []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, ErrConnectionClosed
	}
	if len(t.queue) == 0 {
		return 0, ErrNotAvailable
	}
	msg := t.queue[0]
	if len(msg) > len(buf) {
		return 0, ErrTooSmall
	}
	t.queue = t.queue[1:]
	t.queuedBytes -= len(msg)
	return copy(buf, msg), nil
}

// AvailableAmount is the number of bytes queued for Receive.
func (t *Track) AvailableAmount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.queuedBytes
}

// drainRTCP consumes sender reports so interceptors keep running, and
// surfaces keyframe requests in the log.
func (t *Track) drainRTCP(sender *webrtc.RTPSender) {
	go func() {
		for {
			packets, _, err := sender.ReadRTCP()
			if err != nil {
				t.log.Debugf("track %s RTCP drain done: %v", t.Mid(), err)
				return
			}
			for _, packet := range packets {
				if _, ok := packet.(*rtcp.PictureLossIndication); ok {
					t.log.Debugf("track %s received PLI", t.Mid())
				}
			}
		}
	}()
}

// Send transmits one raw RTP packet.
func (t *Track) Send(msg []byte) error {
	packet := &rtp.Packet{}
	if err := packet.Unmarshal(msg); err != nil {
		return invalidArg("malformed RTP packet: %s", err)
	}
	return t.SendRTP(packet)
}

// SendRTP transmits one RTP packet. The engine rewrites the SSRC and
// payload type to the negotiated values.
func (t *Track) SendRTP(packet *rtp.Packet) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrConnectionClosed
	}
	local := t.local
	t.mu.Unlock()
	if local == nil {
		return invalidArg("track direction %s cannot send", t.init.Direction)
	}
	return wrapEngine(local.WriteRTP(packet))
}

// Mid returns the negotiated mid, falling back to the requested one
// before negotiation assigns it.
func (t *Track) Mid() string {
	t.mu.Lock()
	transceiver := t.transceiver
	t.mu.Unlock()
	if transceiver != nil {
		if mid := transceiver.Mid(); mid != "" {
			return mid
		}
	}
	return t.init.Mid
}

// Direction returns the direction the track was created with.
func (t *Track) Direction() Direction {
	return t.init.Direction
}

// Codec returns the codec the track was created with.
func (t *Track) Codec() Codec {
	return t.init.Codec
}

// Close stops the transceiver. Events already in flight are dropped.
func (t *Track) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	transceiver := t.transceiver
	t.mu.Unlock()
	if transceiver == nil {
		return nil
	}
	return wrapEngine(transceiver.Stop())
}

// markClosed fires OnClosed exactly once and stops further dispatch.
func (t *Track) markClosed() {
	t.dispatchMu.Lock()
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		t.dispatchMu.Unlock()
		return
	}
	t.closed = true
	h := t.handler
	t.mu.Unlock()
	h.OnClosed()
	t.dispatchMu.Unlock()
}

func randomTrackIdent() string {
	ident, err := randutil.GenerateCryptoRandomString(16, runesAlpha)
	if err != nil {
		// crypto/rand failures are unrecoverable
		panic(err)
	}
	return ident
}
