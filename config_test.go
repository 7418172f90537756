package rtcdc

import (
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseICEServer(t *testing.T) {
	testCases := []struct {
		raw            string
		expectedServer webrtc.ICEServer
	}{
		{
			"stun:stun.l.google.com:19302",
			webrtc.ICEServer{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
		{
			"stun:stun.example.org",
			webrtc.ICEServer{URLs: []string{"stun:stun.example.org"}},
		},
		{
			"turn:alice:wonderland@turn.example.org:3478",
			webrtc.ICEServer{
				URLs:       []string{"turn:turn.example.org:3478"},
				Username:   "alice",
				Credential: "wonderland",
			},
		},
		{
			"turns:bob:builder@turn.example.org:5349?transport=tcp",
			webrtc.ICEServer{
				URLs:       []string{"turns:turn.example.org:5349?transport=tcp"},
				Username:   "bob",
				Credential: "builder",
			},
		},
		{
			"turn:we%3Aird:pa%40ss@turn.example.org:3478",
			webrtc.ICEServer{
				URLs:       []string{"turn:turn.example.org:3478"},
				Username:   "we:ird",
				Credential: "pa@ss",
			},
		},
	}

	for i, testCase := range testCases {
		server, err := parseICEServer(testCase.raw)
		require.NoError(t, err, "testCase: %d %v", i, testCase)
		assert.Equal(t, testCase.expectedServer, server, "testCase: %d %v", i, testCase)
	}
}

func TestParseICEServer_Invalid(t *testing.T) {
	testCases := []string{
		"",
		"stun",
		"stun:",
		"http://example.org",
		"turn:turn.example.org:3478",                // missing credentials
		"turn:alice@turn.example.org:3478",          // missing password
		"stun:stun.example.org:notaport",            // malformed port
		"turn:a%ZZ:pw@turn.example.org:3478",        // broken escape
		"turn:user:pw@turn.example.org:3478?transport=sctp", // bad transport
	}

	for i, raw := range testCases {
		_, err := parseICEServer(raw)
		assert.ErrorIs(t, err, ErrInvalidArg, "testCase: %d %q", i, raw)
	}
}

func TestConfig_Certificates(t *testing.T) {
	defaultCerts, err := (&Config{}).certificates()
	require.NoError(t, err)
	assert.Empty(t, defaultCerts)

	ecdsaCerts, err := (&Config{CertificateType: CertificateTypeECDSA}).certificates()
	require.NoError(t, err)
	assert.Len(t, ecdsaCerts, 1)

	rsaCerts, err := (&Config{CertificateType: CertificateTypeRSA}).certificates()
	require.NoError(t, err)
	assert.Len(t, rsaCerts, 1)

	_, err = (&Config{CertificateType: CertificateType(9)}).certificates()
	assert.ErrorIs(t, err, ErrInvalidArg)
}

func TestConfig_TransportPolicy(t *testing.T) {
	policy, err := (&Config{}).transportPolicy()
	require.NoError(t, err)
	assert.Equal(t, webrtc.ICETransportPolicyAll, policy)

	policy, err = (&Config{ICETransportPolicy: TransportPolicyRelay}).transportPolicy()
	require.NoError(t, err)
	assert.Equal(t, webrtc.ICETransportPolicyRelay, policy)

	_, err = (&Config{ICETransportPolicy: TransportPolicy(9)}).transportPolicy()
	assert.ErrorIs(t, err, ErrInvalidArg)
}

func TestConfig_Engine(t *testing.T) {
	config := &Config{
		ICEServers:     []string{"stun:stun.l.google.com:19302"},
		PortRangeBegin: 5000,
		PortRangeEnd:   5100,
		MTU:            1400,
		MaxMessageSize: 256 * 1024,
		EnableICETCP:   true,
	}
	setup, err := config.engine()
	require.NoError(t, err)
	require.NotNil(t, setup.api)
	require.Len(t, setup.conf.ICEServers, 1)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, setup.conf.ICEServers[0].URLs)
}

func TestConfig_Engine_Invalid(t *testing.T) {
	_, err := (&Config{PortRangeBegin: 6000, PortRangeEnd: 5000}).engine()
	assert.ErrorIs(t, err, ErrInvalidArg)

	_, err = (&Config{MTU: -1}).engine()
	assert.ErrorIs(t, err, ErrInvalidArg)

	_, err = (&Config{MTU: 1 << 20}).engine()
	assert.ErrorIs(t, err, ErrInvalidArg)

	_, err = (&Config{MaxMessageSize: -1}).engine()
	assert.ErrorIs(t, err, ErrInvalidArg)

	_, err = (&Config{ICEServers: []string{"bogus"}}).engine()
	assert.ErrorIs(t, err, ErrInvalidArg)
}

func TestCertificateType_String(t *testing.T) {
	assert.Equal(t, "default", CertificateTypeDefault.String())
	assert.Equal(t, "ecdsa", CertificateTypeECDSA.String())
	assert.Equal(t, "rsa", CertificateTypeRSA.String())
	assert.Equal(t, "unknown", CertificateType(9).String())
}

func TestTransportPolicy_String(t *testing.T) {
	assert.Equal(t, "all", TransportPolicyAll.String())
	assert.Equal(t, "relay", TransportPolicyRelay.String())
	assert.Equal(t, "unknown", TransportPolicy(9).String())
}
