package rtcdc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalSDP = "v=0\r\n" +
	"o=- 4962303333179871722 1 IN IP4 0.0.0.0\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n"

func TestNewSDPType(t *testing.T) {
	testCases := []struct {
		raw          string
		expectedType SDPType
	}{
		{"offer", SDPTypeOffer},
		{"answer", SDPTypeAnswer},
		{"pranswer", SDPTypePranswer},
		{"rollback", SDPTypeRollback},
		{"OFFER", SDPTypeOffer},
		{"bogus", SDPType(0)},
		{"", SDPType(0)},
	}

	for i, testCase := range testCases {
		assert.Equal(t, testCase.expectedType, NewSDPType(testCase.raw), "testCase: %d %v", i, testCase)
	}
}

func TestSDPType_String(t *testing.T) {
	testCases := []struct {
		sdpType        SDPType
		expectedString string
	}{
		{SDPTypeOffer, "offer"},
		{SDPTypeAnswer, "answer"},
		{SDPTypePranswer, "pranswer"},
		{SDPTypeRollback, "rollback"},
		{SDPType(0), "unknown"},
	}

	for i, testCase := range testCases {
		assert.Equal(t, testCase.expectedString, testCase.sdpType.String(), "testCase: %d %v", i, testCase)
	}
}

func TestSDPType_TextMarshaling(t *testing.T) {
	raw, err := SDPTypeAnswer.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "answer", string(raw))

	var parsed SDPType
	require.NoError(t, parsed.UnmarshalText([]byte("rollback")))
	assert.Equal(t, SDPTypeRollback, parsed)

	assert.ErrorIs(t, parsed.UnmarshalText([]byte("bogus")), ErrInvalidArg)

	_, err = SDPType(42).MarshalText()
	assert.ErrorIs(t, err, ErrInvalidArg)
}

func TestNewSessionDescription(t *testing.T) {
	desc, err := NewSessionDescription(SDPTypeOffer, minimalSDP)
	require.NoError(t, err)
	assert.Equal(t, SDPTypeOffer, desc.Type)
	assert.Equal(t, minimalSDP, desc.String())

	_, err = NewSessionDescription(SDPTypeOffer, "not sdp at all")
	assert.ErrorIs(t, err, ErrInvalidArg)

	_, err = NewSessionDescription(SDPType(0), minimalSDP)
	assert.ErrorIs(t, err, ErrInvalidArg)
}

func TestSessionDescription_JSON(t *testing.T) {
	desc, err := NewSessionDescription(SDPTypeOffer, minimalSDP)
	require.NoError(t, err)

	raw, err := json.Marshal(desc)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"sdp":"v=0\r\no=- 4962303333179871722 1 IN IP4 0.0.0.0\r\ns=-\r\nt=0 0\r\n","type":"offer"}`,
		string(raw),
	)

	var decoded SessionDescription
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, SDPTypeOffer, decoded.Type)
	assert.Equal(t, desc.String(), decoded.String())

	assert.Error(t, json.Unmarshal([]byte(`{"sdp":"v=0","type":"nonsense"}`), &decoded))
}

func TestSessionDescription_Engine(t *testing.T) {
	desc, err := NewSessionDescription(SDPTypeAnswer, minimalSDP)
	require.NoError(t, err)

	engineDesc, err := desc.engine()
	require.NoError(t, err)
	assert.Equal(t, "answer", engineDesc.Type.String())
	assert.Equal(t, minimalSDP, engineDesc.SDP)

	roundTripped, err := newSessionDescriptionFromEngine(engineDesc)
	require.NoError(t, err)
	assert.Equal(t, SDPTypeAnswer, roundTripped.Type)
	assert.Equal(t, desc.String(), roundTripped.String())

	var nilDesc *SessionDescription
	_, err = nilDesc.engine()
	assert.ErrorIs(t, err, ErrInvalidArg)
}
