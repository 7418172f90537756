package rtcdc

import (
	"strings"

	"github.com/pion/ice/v4"
	"github.com/pion/webrtc/v4"
)

// ICECandidate is a single candidate in the signaling wire form: the
// candidate attribute value plus the media section it belongs to.
type ICECandidate struct {
	Candidate string `json:"candidate"`
	Mid       string `json:"sdpMid"`
}

// validate parses the candidate attribute so obviously broken input is
// rejected before it reaches the engine. An empty candidate string is the
// end-of-candidates marker and passes through untouched.
func (c ICECandidate) validate() error {
	if c.Candidate == "" {
		return nil
	}
	raw := strings.TrimPrefix(c.Candidate, "candidate:")
	if _, err := ice.UnmarshalCandidate(raw); err != nil {
		return invalidArg("malformed candidate %q: %s", c.Candidate, err)
	}
	return nil
}

func (c ICECandidate) engine() webrtc.ICECandidateInit {
	mid := c.Mid
	return webrtc.ICECandidateInit{Candidate: c.Candidate, SDPMid: &mid}
}

// CandidatePair is the selected local/remote candidate pair once
// connectivity checks have settled on one.
type CandidatePair struct {
	Local  string
	Remote string
}
