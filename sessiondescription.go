package rtcdc

import (
	"encoding/json"
	"strings"

	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v4"
)

// SDPType describes how a SessionDescription is to be applied.
type SDPType int

const (
	// SDPTypeOffer indicates the description starts a negotiation.
	SDPTypeOffer SDPType = iota + 1

	// SDPTypeAnswer indicates the description completes a negotiation.
	SDPTypeAnswer

	// SDPTypePranswer indicates a provisional, non-final answer.
	SDPTypePranswer

	// SDPTypeRollback cancels the negotiation in progress and returns to
	// the previous stable state.
	SDPTypeRollback
)

// NewSDPType converts the signaling wire form ("offer", "answer",
// "pranswer", "rollback") into an SDPType. Unrecognized input yields the
// zero value.
func NewSDPType(raw string) SDPType {
	switch strings.ToLower(raw) {
	case "offer":
		return SDPTypeOffer
	case "answer":
		return SDPTypeAnswer
	case "pranswer":
		return SDPTypePranswer
	case "rollback":
		return SDPTypeRollback
	default:
		return SDPType(0)
	}
}

func (t SDPType) String() string {
	switch t {
	case SDPTypeOffer:
		return "offer"
	case SDPTypeAnswer:
		return "answer"
	case SDPTypePranswer:
		return "pranswer"
	case SDPTypeRollback:
		return "rollback"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t SDPType) MarshalText() ([]byte, error) {
	if t < SDPTypeOffer || t > SDPTypeRollback {
		return nil, invalidArg("cannot marshal SDP type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *SDPType) UnmarshalText(b []byte) error {
	parsed := NewSDPType(string(b))
	if parsed == SDPType(0) {
		return invalidArg("unknown SDP type %q", string(b))
	}
	*t = parsed
	return nil
}

func (t SDPType) engine() webrtc.SDPType {
	switch t {
	case SDPTypeOffer:
		return webrtc.SDPTypeOffer
	case SDPTypeAnswer:
		return webrtc.SDPTypeAnswer
	case SDPTypePranswer:
		return webrtc.SDPTypePranswer
	case SDPTypeRollback:
		return webrtc.SDPTypeRollback
	default:
		return webrtc.SDPType(0)
	}
}

// SessionDescription couples a parsed SDP session with the role it plays
// in the offer/answer exchange.
type SessionDescription struct {
	SDP  *sdp.SessionDescription
	Type SDPType
}

// NewSessionDescription parses raw SDP into a SessionDescription of the
// given type.
func NewSessionDescription(t SDPType, raw string) (*SessionDescription, error) {
	if t == SDPType(0) {
		return nil, invalidArg("unknown SDP type")
	}
	parsed := &sdp.SessionDescription{}
	if err := parsed.Unmarshal([]byte(raw)); err != nil {
		return nil, invalidArg("malformed SDP: %s", err)
	}
	return &SessionDescription{SDP: parsed, Type: t}, nil
}

// String returns the serialized SDP body without the type.
func (d *SessionDescription) String() string {
	if d.SDP == nil {
		return ""
	}
	raw, err := d.SDP.Marshal()
	if err != nil {
		return ""
	}
	return string(raw)
}

type sessionDescriptionJSON struct {
	SDP  string  `json:"sdp"`
	Type SDPType `json:"type"`
}

// MarshalJSON serializes to the conventional signaling form
// {"sdp": "...", "type": "offer"}.
func (d *SessionDescription) MarshalJSON() ([]byte, error) {
	if d.SDP == nil {
		return nil, invalidArg("no SDP session")
	}
	return json.Marshal(sessionDescriptionJSON{SDP: d.String(), Type: d.Type})
}

// UnmarshalJSON parses the conventional signaling form.
func (d *SessionDescription) UnmarshalJSON(b []byte) error {
	var wire sessionDescriptionJSON
	if err := json.Unmarshal(b, &wire); err != nil {
		return invalidArg("malformed session description: %s", err)
	}
	parsed, err := NewSessionDescription(wire.Type, wire.SDP)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

func (d *SessionDescription) engine() (webrtc.SessionDescription, error) {
	if d == nil || d.SDP == nil {
		return webrtc.SessionDescription{}, invalidArg("no SDP session")
	}
	engineType := d.Type.engine()
	if engineType == webrtc.SDPType(0) {
		return webrtc.SessionDescription{}, invalidArg("unknown SDP type")
	}
	return webrtc.SessionDescription{Type: engineType, SDP: d.String()}, nil
}

// newSessionDescriptionFromEngine parses a description produced by the
// engine itself, so a parse failure here is a runtime fault rather than
// bad caller input.
func newSessionDescriptionFromEngine(sd webrtc.SessionDescription) (*SessionDescription, error) {
	t := NewSDPType(sd.Type.String())
	if t == SDPType(0) {
		return nil, wrapEngine(invalidArg("unknown SDP type %q", sd.Type.String()))
	}
	parsed := &sdp.SessionDescription{}
	if err := parsed.Unmarshal([]byte(sd.SDP)); err != nil {
		return nil, wrapEngine(err)
	}
	return &SessionDescription{SDP: parsed, Type: t}, nil
}
