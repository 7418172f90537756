package rtcdc

import (
	"errors"
	"io"
	"testing"

	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTrackHandler struct {
	NopTrackHandler

	opened    int
	closed    int
	available int
	messages  [][]byte
	errs      []error
}

func (h *recordingTrackHandler) OnOpen()              { h.opened++ }
func (h *recordingTrackHandler) OnClosed()            { h.closed++ }
func (h *recordingTrackHandler) OnAvailable()         { h.available++ }
func (h *recordingTrackHandler) OnMessage(msg []byte) { h.messages = append(h.messages, msg) }
func (h *recordingTrackHandler) OnError(err error)    { h.errs = append(h.errs, err) }

func TestDirection_Engine(t *testing.T) {
	testCases := []struct {
		direction         Direction
		expectedDirection webrtc.RTPTransceiverDirection
	}{
		{DirectionUnknown, webrtc.RTPTransceiverDirectionSendrecv},
		{DirectionSendRecv, webrtc.RTPTransceiverDirectionSendrecv},
		{DirectionSendOnly, webrtc.RTPTransceiverDirectionSendonly},
		{DirectionRecvOnly, webrtc.RTPTransceiverDirectionRecvonly},
		{DirectionInactive, webrtc.RTPTransceiverDirectionInactive},
	}

	for i, testCase := range testCases {
		direction, err := testCase.direction.engine()
		require.NoError(t, err, "testCase: %d %v", i, testCase)
		assert.Equal(t, testCase.expectedDirection, direction, "testCase: %d %v", i, testCase)
	}

	_, err := Direction(42).engine()
	assert.ErrorIs(t, err, ErrInvalidArg)
}

func TestCodec_Capability(t *testing.T) {
	testCases := []struct {
		codec        Codec
		expectedMime string
		expectedKind webrtc.RTPCodecType
	}{
		{CodecH264, webrtc.MimeTypeH264, webrtc.RTPCodecTypeVideo},
		{CodecVP8, webrtc.MimeTypeVP8, webrtc.RTPCodecTypeVideo},
		{CodecVP9, webrtc.MimeTypeVP9, webrtc.RTPCodecTypeVideo},
		{CodecAV1, webrtc.MimeTypeAV1, webrtc.RTPCodecTypeVideo},
		{CodecOpus, webrtc.MimeTypeOpus, webrtc.RTPCodecTypeAudio},
	}

	for i, testCase := range testCases {
		capability, err := testCase.codec.capability()
		require.NoError(t, err, "testCase: %d %v", i, testCase)
		assert.Equal(t, testCase.expectedMime, capability.MimeType, "testCase: %d %v", i, testCase)
		assert.Equal(t, testCase.expectedKind, testCase.codec.kind(), "testCase: %d %v", i, testCase)
	}

	_, err := Codec(42).capability()
	assert.ErrorIs(t, err, ErrInvalidArg)
}

func TestTrack_OpenCloseOnce(t *testing.T) {
	handler := &recordingTrackHandler{}
	track := newTrack(TrackInit{Mid: "video0"}, handler, logging.NewDefaultLoggerFactory().NewLogger("test"))

	track.markOpen()
	track.markOpen()
	assert.Equal(t, 1, handler.opened)

	track.markClosed()
	track.markClosed()
	assert.Equal(t, 1, handler.closed)

	// No events after close.
	track.markOpen()
	assert.Equal(t, 1, handler.opened)
}

func TestTrack_SendValidation(t *testing.T) {
	handler := &recordingTrackHandler{}
	track := newTrack(
		TrackInit{Direction: DirectionRecvOnly, Codec: CodecVP8, Mid: "video0"},
		handler,
		logging.NewDefaultLoggerFactory().NewLogger("test"),
	)

	err := track.Send([]byte{0x00})
	assert.ErrorIs(t, err, ErrInvalidArg, "truncated RTP packet must be rejected")

	// A well-formed packet on a receive-only track has nowhere to go.
	packet := make([]byte, 12)
	packet[0] = 0x80
	err = track.Send(packet)
	assert.ErrorIs(t, err, ErrInvalidArg)

	track.markClosed()
	err = track.Send(packet)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestTrack_IncomingDelivery(t *testing.T) {
	handler := &recordingTrackHandler{}
	track := newTrack(TrackInit{Mid: "video0"}, handler, logging.NewDefaultLoggerFactory().NewLogger("test"))

	track.handleIncoming([]byte{0x80, 0x00})
	require.Len(t, handler.messages, 1)
	assert.Zero(t, handler.available)

	_, err := track.Receive()
	assert.ErrorIs(t, err, ErrNotAvailable)
}

func TestTrack_ManualReceive(t *testing.T) {
	handler := &recordingTrackHandler{}
	track := newTrack(TrackInit{Mid: "video0", ManualReceive: true}, handler, logging.NewDefaultLoggerFactory().NewLogger("test"))

	track.handleIncoming([]byte("one"))
	track.handleIncoming([]byte("twotwo"))

	assert.Empty(t, handler.messages)
	assert.Equal(t, 2, handler.available)
	assert.Equal(t, 9, track.AvailableAmount())

	small := make([]byte, 2)
	_, err := track.ReceiveInto(small)
	assert.ErrorIs(t, err, ErrTooSmall)
	// Packet stays queued after a short read attempt.
	assert.Equal(t, 9, track.AvailableAmount())

	msg, err := track.Receive()
	require.NoError(t, err)
	assert.Equal(t, "one", string(msg))

	buf := make([]byte, 16)
	n, err := track.ReceiveInto(buf)
	require.NoError(t, err)
	assert.Equal(t, "twotwo", string(buf[:n]))
	assert.Zero(t, track.AvailableAmount())

	_, err = track.Receive()
	assert.ErrorIs(t, err, ErrNotAvailable)

	track.markClosed()
	track.handleIncoming([]byte("late"))
	_, err = track.Receive()
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestTrack_ReadErrorReachesHandler(t *testing.T) {
	handler := &recordingTrackHandler{}
	track := newTrack(TrackInit{Mid: "video0"}, handler, logging.NewDefaultLoggerFactory().NewLogger("test"))

	// Orderly shutdowns of the remote track stay out of the handler.
	track.handleReadError(io.EOF)
	track.handleReadError(io.ErrClosedPipe)
	assert.Empty(t, handler.errs)

	track.handleReadError(errors.New("srtp: decryption failed"))
	require.Len(t, handler.errs, 1)
	assert.ErrorIs(t, handler.errs[0], ErrRuntime)

	track.markClosed()
	track.handleReadError(errors.New("late"))
	assert.Len(t, handler.errs, 1)
}

func TestTrack_MidFallback(t *testing.T) {
	track := newTrack(TrackInit{Mid: "audio3"}, &recordingTrackHandler{}, logging.NewDefaultLoggerFactory().NewLogger("test"))
	assert.Equal(t, "audio3", track.Mid())
}

func TestRandomTrackIdent(t *testing.T) {
	a := randomTrackIdent()
	b := randomTrackIdent()
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}
