package rtcdc

import (
	"net"
	"strconv"
	"sync"

	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"
)

// PeerConnectionHandler receives the events of a peer connection. Methods
// are invoked one at a time; no two fire concurrently for the same
// connection. A handler must not call SetLocalDescription or
// SetRemoteDescription from inside a callback; hand the event off to
// another goroutine instead. Embed NopPeerConnectionHandler to implement
// only a subset.
type PeerConnectionHandler interface {
	// OnDescription delivers a local description ready to be signaled to
	// the remote peer.
	OnDescription(desc *SessionDescription)

	// OnCandidate delivers a local candidate ready to be signaled to the
	// remote peer.
	OnCandidate(candidate ICECandidate)

	// OnConnectionStateChange reports transitions of the combined
	// transport state.
	OnConnectionStateChange(state ConnectionState)

	// OnGatheringStateChange reports local candidate gathering progress.
	OnGatheringStateChange(state GatheringState)

	// OnSignalingStateChange reports offer/answer exchange progress.
	OnSignalingStateChange(state SignalingState)

	// OnICEStateChange reports ICE agent transitions.
	OnICEStateChange(state ICEState)

	// OnDataChannel delivers a channel opened by the remote peer, already
	// bound to the handler produced by DataChannelHandler.
	OnDataChannel(channel *DataChannel)

	// DataChannelHandler produces the handler for the next incoming data
	// channel. It must not return nil.
	DataChannelHandler() DataChannelHandler
}

// NopPeerConnectionHandler is a PeerConnectionHandler that ignores every
// event and binds incoming channels to NopDataChannelHandler.
type NopPeerConnectionHandler struct{}

// OnDescription implements PeerConnectionHandler.
func (NopPeerConnectionHandler) OnDescription(*SessionDescription) {}

// OnCandidate implements PeerConnectionHandler.
func (NopPeerConnectionHandler) OnCandidate(ICECandidate) {}

// OnConnectionStateChange implements PeerConnectionHandler.
func (NopPeerConnectionHandler) OnConnectionStateChange(ConnectionState) {}

// OnGatheringStateChange implements PeerConnectionHandler.
func (NopPeerConnectionHandler) OnGatheringStateChange(GatheringState) {}

// OnSignalingStateChange implements PeerConnectionHandler.
func (NopPeerConnectionHandler) OnSignalingStateChange(SignalingState) {}

// OnICEStateChange implements PeerConnectionHandler.
func (NopPeerConnectionHandler) OnICEStateChange(ICEState) {}

// OnDataChannel implements PeerConnectionHandler.
func (NopPeerConnectionHandler) OnDataChannel(*DataChannel) {}

// DataChannelHandler implements PeerConnectionHandler.
func (NopPeerConnectionHandler) DataChannelHandler() DataChannelHandler {
	return NopDataChannelHandler{}
}

// PeerConnection wraps an engine peer connection and marshals its events
// into a PeerConnectionHandler.
//
// dispatchMu serializes handler invocations; mu guards wrapper state.
// Keeping them distinct lets handlers call back into the connection
// (CreateDataChannel from inside OnConnectionStateChange, Send from
// inside OnDataChannel) without deadlocking.
type PeerConnection struct {
	dispatchMu sync.Mutex

	mu     sync.Mutex
	closed bool
	tracks map[*webrtc.RTPReceiver]*Track
	all    []*Track

	autoNegotiate bool
	handler       PeerConnectionHandler
	engine        *webrtc.PeerConnection
	loggerFactory logging.LoggerFactory
	log           logging.LeveledLogger
}

// NewPeerConnection builds a connection from config and binds its events
// to handler. A nil config behaves as the zero Config.
func NewPeerConnection(config *Config, handler PeerConnectionHandler) (*PeerConnection, error) {
	if handler == nil {
		return nil, invalidArg("nil peer connection handler")
	}
	if config == nil {
		config = &Config{}
	}
	setup, err := config.engine()
	if err != nil {
		return nil, err
	}
	engine, err := setup.api.NewPeerConnection(setup.conf)
	if err != nil {
		return nil, wrapEngine(err)
	}

	loggerFactory := config.loggerFactory()
	pc := &PeerConnection{
		tracks:        make(map[*webrtc.RTPReceiver]*Track),
		autoNegotiate: !config.DisableAutoNegotiation,
		handler:       handler,
		engine:        engine,
		loggerFactory: loggerFactory,
		log:           loggerFactory.NewLogger("rtcdc"),
	}

	engine.OnSignalingStateChange(func(s webrtc.SignalingState) {
		pc.dispatch(func(h PeerConnectionHandler) { h.OnSignalingStateChange(newSignalingState(s)) })
	})
	engine.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		state := newConnectionState(s)
		if state == ConnectionStateConnected {
			pc.openTracks()
		}
		pc.dispatch(func(h PeerConnectionHandler) { h.OnConnectionStateChange(state) })
	})
	engine.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		pc.dispatch(func(h PeerConnectionHandler) { h.OnICEStateChange(newICEState(s)) })
	})
	engine.OnICEGatheringStateChange(func(s webrtc.ICEGatheringState) {
		pc.dispatch(func(h PeerConnectionHandler) { h.OnGatheringStateChange(newGatheringState(s)) })
	})
	engine.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			// End of gathering, reported through the gathering state.
			return
		}
		init := c.ToJSON()
		candidate := ICECandidate{Candidate: init.Candidate}
		if init.SDPMid != nil {
			candidate.Mid = *init.SDPMid
		}
		pc.dispatch(func(h PeerConnectionHandler) { h.OnCandidate(candidate) })
	})
	engine.OnDataChannel(func(d *webrtc.DataChannel) {
		pc.acceptDataChannel(d)
	})
	engine.OnNegotiationNeeded(func() {
		if !pc.autoNegotiate {
			return
		}
		if err := pc.applyLocalDescription(SDPTypeOffer); err != nil {
			pc.log.Errorf("auto negotiation failed: %v", err)
		}
	})
	engine.OnTrack(func(remote *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		pc.mu.Lock()
		track := pc.tracks[receiver]
		pc.mu.Unlock()
		if track == nil {
			pc.log.Warnf("ignoring unexpected remote track %s", remote.ID())
			return
		}
		track.attachRemote(remote)
	})

	return pc, nil
}

// dispatch serializes handler invocations and drops events arriving after
// Close.
func (pc *PeerConnection) dispatch(f func(PeerConnectionHandler)) {
	pc.dispatchMu.Lock()
	defer pc.dispatchMu.Unlock()
	pc.mu.Lock()
	closed := pc.closed
	pc.mu.Unlock()
	if closed {
		return
	}
	f(pc.handler)
}

func (pc *PeerConnection) isClosed() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.closed
}

func (pc *PeerConnection) acceptDataChannel(d *webrtc.DataChannel) {
	var handler DataChannelHandler
	pc.dispatch(func(h PeerConnectionHandler) { handler = h.DataChannelHandler() })
	if handler == nil {
		pc.log.Errorf("no handler for incoming data channel %q, dropping it", d.Label())
		return
	}
	channel, err := newDataChannel(d, handler, false, pc.loggerFactory.NewLogger("datachannel"))
	if err != nil {
		pc.log.Errorf("cannot accept data channel %q: %v", d.Label(), err)
		return
	}
	pc.dispatch(func(h PeerConnectionHandler) { h.OnDataChannel(channel) })
}

// CreateDataChannel opens an ordered, reliable channel with the given
// label and binds it to handler.
func (pc *PeerConnection) CreateDataChannel(label string, handler DataChannelHandler) (*DataChannel, error) {
	return pc.CreateDataChannelExt(label, handler, &DataChannelInit{})
}

// CreateDataChannelExt opens a channel with explicit reliability and
// negotiation options.
func (pc *PeerConnection) CreateDataChannelExt(label string, handler DataChannelHandler, init *DataChannelInit) (*DataChannel, error) {
	if pc.isClosed() {
		return nil, ErrConnectionClosed
	}
	if handler == nil {
		return nil, invalidArg("nil data channel handler")
	}
	if init == nil {
		init = &DataChannelInit{}
	}
	engineInit, err := init.engine()
	if err != nil {
		return nil, err
	}
	d, err := pc.engine.CreateDataChannel(label, engineInit)
	if err != nil {
		return nil, wrapEngine(err)
	}
	return newDataChannel(d, handler, init.ManualReceive, pc.loggerFactory.NewLogger("datachannel"))
}

// AddTrack negotiates a media section and binds its events to handler.
func (pc *PeerConnection) AddTrack(init TrackInit, handler TrackHandler) (*Track, error) {
	if pc.isClosed() {
		return nil, ErrConnectionClosed
	}
	if handler == nil {
		return nil, invalidArg("nil track handler")
	}
	capability, err := init.Codec.capability()
	if err != nil {
		return nil, err
	}
	direction, err := init.Direction.engine()
	if err != nil {
		return nil, err
	}

	track := newTrack(init, handler, pc.loggerFactory.NewLogger("track"))
	var transceiver *webrtc.RTPTransceiver
	if direction == webrtc.RTPTransceiverDirectionSendrecv || direction == webrtc.RTPTransceiverDirectionSendonly {
		trackID := init.TrackID
		if trackID == "" {
			trackID = randomTrackIdent()
		}
		streamID := init.MSID
		if streamID == "" {
			streamID = randomTrackIdent()
		}
		local, err := webrtc.NewTrackLocalStaticRTP(capability, trackID, streamID)
		if err != nil {
			return nil, wrapEngine(err)
		}
		transceiver, err = pc.engine.AddTransceiverFromTrack(local, webrtc.RTPTransceiverInit{Direction: direction})
		if err != nil {
			return nil, wrapEngine(err)
		}
		track.local = local
	} else {
		transceiver, err = pc.engine.AddTransceiverFromKind(init.Codec.kind(), webrtc.RTPTransceiverInit{Direction: direction})
		if err != nil {
			return nil, wrapEngine(err)
		}
	}
	track.transceiver = transceiver

	pc.mu.Lock()
	if receiver := transceiver.Receiver(); receiver != nil {
		pc.tracks[receiver] = track
	}
	pc.all = append(pc.all, track)
	pc.mu.Unlock()

	if sender := transceiver.Sender(); sender != nil {
		track.drainRTCP(sender)
	}
	if pc.engine.ConnectionState() == webrtc.PeerConnectionStateConnected {
		track.markOpen()
	}
	return track, nil
}

func (pc *PeerConnection) openTracks() {
	pc.mu.Lock()
	tracks := make([]*Track, len(pc.all))
	copy(tracks, pc.all)
	pc.mu.Unlock()
	for _, track := range tracks {
		track.markOpen()
	}
}

// applyLocalDescription creates a description of the given type, applies
// it and hands it to OnDescription.
func (pc *PeerConnection) applyLocalDescription(t SDPType) error {
	var engineDesc webrtc.SessionDescription
	var err error
	switch t {
	case SDPTypeOffer:
		engineDesc, err = pc.engine.CreateOffer(nil)
	case SDPTypeAnswer:
		engineDesc, err = pc.engine.CreateAnswer(nil)
	default:
		return invalidArg("cannot create %s description", t)
	}
	if err != nil {
		return wrapEngine(err)
	}
	if err := pc.engine.SetLocalDescription(engineDesc); err != nil {
		return wrapEngine(err)
	}
	desc, err := newSessionDescriptionFromEngine(engineDesc)
	if err != nil {
		return err
	}
	pc.dispatch(func(h PeerConnectionHandler) { h.OnDescription(desc) })
	return nil
}

// SetLocalDescription drives negotiation by hand when auto-negotiation is
// disabled: SDPTypeOffer starts an exchange, SDPTypeAnswer responds to a
// remote offer, SDPTypeRollback abandons the exchange in progress. The
// applied description is delivered through OnDescription.
func (pc *PeerConnection) SetLocalDescription(t SDPType) error {
	if pc.isClosed() {
		return ErrConnectionClosed
	}
	switch t {
	case SDPTypeOffer, SDPTypeAnswer:
		return pc.applyLocalDescription(t)
	case SDPTypeRollback:
		return wrapEngine(pc.engine.SetLocalDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeRollback}))
	default:
		return invalidArg("cannot apply local description of type %s", t)
	}
}

// SetRemoteDescription applies a description received from the remote
// peer. Under auto-negotiation a remote offer is answered immediately and
// the answer delivered through OnDescription.
func (pc *PeerConnection) SetRemoteDescription(desc *SessionDescription) error {
	if pc.isClosed() {
		return ErrConnectionClosed
	}
	engineDesc, err := desc.engine()
	if err != nil {
		return err
	}
	if err := pc.engine.SetRemoteDescription(engineDesc); err != nil {
		return wrapEngine(err)
	}
	if desc.Type == SDPTypeOffer && pc.autoNegotiate {
		return pc.applyLocalDescription(SDPTypeAnswer)
	}
	return nil
}

// AddRemoteCandidate applies a candidate received from the remote peer.
// An empty candidate string marks the end of remote candidates.
func (pc *PeerConnection) AddRemoteCandidate(candidate ICECandidate) error {
	if pc.isClosed() {
		return ErrConnectionClosed
	}
	if err := candidate.validate(); err != nil {
		return err
	}
	return wrapEngine(pc.engine.AddICECandidate(candidate.engine()))
}

// LocalDescription returns the currently applied local description, or
// ErrNotAvailable before one exists.
func (pc *PeerConnection) LocalDescription() (*SessionDescription, error) {
	sd := pc.engine.LocalDescription()
	if sd == nil {
		return nil, ErrNotAvailable
	}
	return newSessionDescriptionFromEngine(*sd)
}

// RemoteDescription returns the currently applied remote description, or
// ErrNotAvailable before one exists.
func (pc *PeerConnection) RemoteDescription() (*SessionDescription, error) {
	sd := pc.engine.RemoteDescription()
	if sd == nil {
		return nil, ErrNotAvailable
	}
	return newSessionDescriptionFromEngine(*sd)
}

// ConnectionState returns the current combined transport state.
func (pc *PeerConnection) ConnectionState() ConnectionState {
	return newConnectionState(pc.engine.ConnectionState())
}

// SignalingState returns the current offer/answer exchange state.
func (pc *PeerConnection) SignalingState() SignalingState {
	return newSignalingState(pc.engine.SignalingState())
}

// GatheringState returns the current candidate gathering state.
func (pc *PeerConnection) GatheringState() GatheringState {
	return newGatheringState(pc.engine.ICEGatheringState())
}

func (pc *PeerConnection) selectedPair() (*webrtc.ICECandidatePair, error) {
	sctp := pc.engine.SCTP()
	if sctp == nil {
		return nil, ErrNotAvailable
	}
	dtls := sctp.Transport()
	if dtls == nil {
		return nil, ErrNotAvailable
	}
	transport := dtls.ICETransport()
	if transport == nil {
		return nil, ErrNotAvailable
	}
	pair, err := transport.GetSelectedCandidatePair()
	if err != nil {
		return nil, wrapEngine(err)
	}
	if pair == nil || pair.Local == nil || pair.Remote == nil {
		return nil, ErrNotAvailable
	}
	return pair, nil
}

// SelectedCandidatePair returns the candidate pair ICE settled on, or
// ErrNotAvailable before connectivity checks succeed.
func (pc *PeerConnection) SelectedCandidatePair() (*CandidatePair, error) {
	pair, err := pc.selectedPair()
	if err != nil {
		return nil, err
	}
	return &CandidatePair{Local: pair.Local.String(), Remote: pair.Remote.String()}, nil
}

// LocalAddress returns the local address of the selected candidate pair.
func (pc *PeerConnection) LocalAddress() (string, error) {
	pair, err := pc.selectedPair()
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(pair.Local.Address, strconv.Itoa(int(pair.Local.Port))), nil
}

// RemoteAddress returns the remote address of the selected candidate
// pair.
func (pc *PeerConnection) RemoteAddress() (string, error) {
	pair, err := pc.selectedPair()
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(pair.Remote.Address, strconv.Itoa(int(pair.Remote.Port))), nil
}

// Close shuts the connection down. Tracks receive OnClosed; events
// already in flight elsewhere are dropped.
func (pc *PeerConnection) Close() error {
	pc.mu.Lock()
	if pc.closed {
		pc.mu.Unlock()
		return nil
	}
	pc.closed = true
	tracks := make([]*Track, len(pc.all))
	copy(tracks, pc.all)
	pc.mu.Unlock()

	for _, track := range tracks {
		track.markClosed()
	}
	return wrapEngine(pc.engine.Close())
}
