package rtcdc

import "github.com/pion/webrtc/v4"

// ConnectionState indicates the combined state of the connection's
// ICE and DTLS transports.
type ConnectionState int

const (
	// ConnectionStateNew indicates the connection was just created.
	ConnectionStateNew ConnectionState = iota + 1

	// ConnectionStateConnecting indicates transports are negotiating.
	ConnectionStateConnecting

	// ConnectionStateConnected indicates every transport is up.
	ConnectionStateConnected

	// ConnectionStateDisconnected indicates at least one transport lost
	// connectivity, possibly transiently.
	ConnectionStateDisconnected

	// ConnectionStateFailed indicates a transport failed permanently.
	ConnectionStateFailed

	// ConnectionStateClosed indicates the connection was shut down.
	ConnectionStateClosed
)

func newConnectionState(s webrtc.PeerConnectionState) ConnectionState {
	switch s {
	case webrtc.PeerConnectionStateNew:
		return ConnectionStateNew
	case webrtc.PeerConnectionStateConnecting:
		return ConnectionStateConnecting
	case webrtc.PeerConnectionStateConnected:
		return ConnectionStateConnected
	case webrtc.PeerConnectionStateDisconnected:
		return ConnectionStateDisconnected
	case webrtc.PeerConnectionStateFailed:
		return ConnectionStateFailed
	case webrtc.PeerConnectionStateClosed:
		return ConnectionStateClosed
	default:
		return ConnectionState(0)
	}
}

func (s ConnectionState) String() string {
	switch s {
	case ConnectionStateNew:
		return "new"
	case ConnectionStateConnecting:
		return "connecting"
	case ConnectionStateConnected:
		return "connected"
	case ConnectionStateDisconnected:
		return "disconnected"
	case ConnectionStateFailed:
		return "failed"
	case ConnectionStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// GatheringState indicates the progress of local ICE candidate gathering.
type GatheringState int

const (
	// GatheringStateNew indicates gathering has not started.
	GatheringStateNew GatheringState = iota + 1

	// GatheringStateInProgress indicates candidates are being gathered.
	GatheringStateInProgress

	// GatheringStateComplete indicates all candidates were gathered.
	GatheringStateComplete
)

func newGatheringState(s webrtc.ICEGatheringState) GatheringState {
	switch s {
	case webrtc.ICEGatheringStateNew:
		return GatheringStateNew
	case webrtc.ICEGatheringStateGathering:
		return GatheringStateInProgress
	case webrtc.ICEGatheringStateComplete:
		return GatheringStateComplete
	default:
		return GatheringState(0)
	}
}

func (s GatheringState) String() string {
	switch s {
	case GatheringStateNew:
		return "new"
	case GatheringStateInProgress:
		return "in-progress"
	case GatheringStateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// SignalingState indicates where the connection stands in the
// offer/answer exchange.
type SignalingState int

const (
	// SignalingStateStable indicates no exchange is in progress.
	SignalingStateStable SignalingState = iota + 1

	// SignalingStateHaveLocalOffer indicates a local offer was applied.
	SignalingStateHaveLocalOffer

	// SignalingStateHaveRemoteOffer indicates a remote offer was applied.
	SignalingStateHaveRemoteOffer

	// SignalingStateHaveLocalPranswer indicates a provisional local answer
	// was applied.
	SignalingStateHaveLocalPranswer

	// SignalingStateHaveRemotePranswer indicates a provisional remote
	// answer was applied.
	SignalingStateHaveRemotePranswer

	// SignalingStateClosed indicates the connection was shut down.
	SignalingStateClosed
)

func newSignalingState(s webrtc.SignalingState) SignalingState {
	switch s {
	case webrtc.SignalingStateStable:
		return SignalingStateStable
	case webrtc.SignalingStateHaveLocalOffer:
		return SignalingStateHaveLocalOffer
	case webrtc.SignalingStateHaveRemoteOffer:
		return SignalingStateHaveRemoteOffer
	case webrtc.SignalingStateHaveLocalPranswer:
		return SignalingStateHaveLocalPranswer
	case webrtc.SignalingStateHaveRemotePranswer:
		return SignalingStateHaveRemotePranswer
	case webrtc.SignalingStateClosed:
		return SignalingStateClosed
	default:
		return SignalingState(0)
	}
}

func (s SignalingState) String() string {
	switch s {
	case SignalingStateStable:
		return "stable"
	case SignalingStateHaveLocalOffer:
		return "have-local-offer"
	case SignalingStateHaveRemoteOffer:
		return "have-remote-offer"
	case SignalingStateHaveLocalPranswer:
		return "have-local-pranswer"
	case SignalingStateHaveRemotePranswer:
		return "have-remote-pranswer"
	case SignalingStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ICEState indicates the state of the ICE agent alone, independent of
// the DTLS transport on top of it.
type ICEState int

const (
	// ICEStateNew indicates the agent is idle.
	ICEStateNew ICEState = iota + 1

	// ICEStateChecking indicates connectivity checks are running.
	ICEStateChecking

	// ICEStateConnected indicates a usable candidate pair was found.
	ICEStateConnected

	// ICEStateCompleted indicates checks finished on every pair.
	ICEStateCompleted

	// ICEStateDisconnected indicates connectivity was lost, possibly
	// transiently.
	ICEStateDisconnected

	// ICEStateFailed indicates no candidate pair could be established.
	ICEStateFailed

	// ICEStateClosed indicates the agent was shut down.
	ICEStateClosed
)

func newICEState(s webrtc.ICEConnectionState) ICEState {
	switch s {
	case webrtc.ICEConnectionStateNew:
		return ICEStateNew
	case webrtc.ICEConnectionStateChecking:
		return ICEStateChecking
	case webrtc.ICEConnectionStateConnected:
		return ICEStateConnected
	case webrtc.ICEConnectionStateCompleted:
		return ICEStateCompleted
	case webrtc.ICEConnectionStateDisconnected:
		return ICEStateDisconnected
	case webrtc.ICEConnectionStateFailed:
		return ICEStateFailed
	case webrtc.ICEConnectionStateClosed:
		return ICEStateClosed
	default:
		return ICEState(0)
	}
}

func (s ICEState) String() string {
	switch s {
	case ICEStateNew:
		return "new"
	case ICEStateChecking:
		return "checking"
	case ICEStateConnected:
		return "connected"
	case ICEStateCompleted:
		return "completed"
	case ICEStateDisconnected:
		return "disconnected"
	case ICEStateFailed:
		return "failed"
	case ICEStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
