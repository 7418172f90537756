package rtcdc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestICECandidate_Validate(t *testing.T) {
	valid := ICECandidate{
		Candidate: "candidate:1 1 udp 2130706431 10.0.0.1 53165 typ host",
		Mid:       "0",
	}
	assert.NoError(t, valid.validate())

	// Without the attribute prefix, as some stacks signal it.
	bare := ICECandidate{Candidate: "2 1 udp 1694498815 1.2.3.4 53165 typ srflx raddr 10.0.0.1 rport 53165"}
	assert.NoError(t, bare.validate())

	// Empty marks end-of-candidates.
	assert.NoError(t, ICECandidate{Mid: "0"}.validate())

	for _, raw := range []string{
		"candidate:",
		"nonsense",
		"candidate:1 1 udp notapriority 10.0.0.1 53165 typ host",
	} {
		err := ICECandidate{Candidate: raw}.validate()
		assert.ErrorIs(t, err, ErrInvalidArg, raw)
	}
}

func TestICECandidate_Engine(t *testing.T) {
	init := ICECandidate{Candidate: "candidate:1 1 udp 2130706431 10.0.0.1 53165 typ host", Mid: "0"}.engine()
	assert.Equal(t, "candidate:1 1 udp 2130706431 10.0.0.1 53165 typ host", init.Candidate)
	require.NotNil(t, init.SDPMid)
	assert.Equal(t, "0", *init.SDPMid)
}

func TestICECandidate_JSON(t *testing.T) {
	raw, err := json.Marshal(ICECandidate{Candidate: "candidate:x", Mid: "video0"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"candidate":"candidate:x","sdpMid":"video0"}`, string(raw))

	var decoded ICECandidate
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "candidate:x", decoded.Candidate)
	assert.Equal(t, "video0", decoded.Mid)
}
