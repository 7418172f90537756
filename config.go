package rtcdc

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"net/url"
	"strings"

	"github.com/pion/interceptor"
	"github.com/pion/logging"
	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
)

// CertificateType selects the key algorithm of the self-signed DTLS
// certificate generated for the connection.
type CertificateType int

const (
	// CertificateTypeDefault lets the engine pick.
	CertificateTypeDefault CertificateType = iota

	// CertificateTypeECDSA generates a P-256 ECDSA certificate.
	CertificateTypeECDSA

	// CertificateTypeRSA generates a 2048-bit RSA certificate.
	CertificateTypeRSA
)

func (t CertificateType) String() string {
	switch t {
	case CertificateTypeDefault:
		return "default"
	case CertificateTypeECDSA:
		return "ecdsa"
	case CertificateTypeRSA:
		return "rsa"
	default:
		return "unknown"
	}
}

// TransportPolicy restricts which ICE candidates are used.
type TransportPolicy int

const (
	// TransportPolicyAll considers every gathered candidate.
	TransportPolicyAll TransportPolicy = iota

	// TransportPolicyRelay considers only TURN-relayed candidates, hiding
	// host addresses from the remote peer.
	TransportPolicyRelay
)

func (p TransportPolicy) String() string {
	switch p {
	case TransportPolicyAll:
		return "all"
	case TransportPolicyRelay:
		return "relay"
	default:
		return "unknown"
	}
}

// Config carries everything needed to build a PeerConnection. The zero
// value is usable: no ICE servers, default certificate, all transports.
type Config struct {
	// ICEServers lists STUN/TURN servers as URLs with inline credentials,
	// e.g. "stun:stun.l.google.com:19302" or
	// "turn:user:pass@turn.example.org:3478?transport=tcp".
	ICEServers []string

	// CertificateType selects the DTLS certificate key algorithm.
	CertificateType CertificateType

	// ICETransportPolicy filters candidate use.
	ICETransportPolicy TransportPolicy

	// EnableICETCP additionally gathers and accepts TCP candidates.
	EnableICETCP bool

	// PortRangeBegin and PortRangeEnd bound the local UDP ports used for
	// ICE. Zero leaves the range unrestricted.
	PortRangeBegin uint16
	PortRangeEnd   uint16

	// MTU caps the size of a single received packet. Zero keeps the
	// engine default.
	MTU int

	// MaxMessageSize bounds buffered incoming SCTP data. Zero keeps the
	// engine default.
	MaxMessageSize int

	// DisableAutoNegotiation turns off automatic offer/answer handling;
	// the caller drives negotiation through SetLocalDescription.
	DisableAutoNegotiation bool

	// LoggerFactory provides scoped loggers for the connection and
	// everything created from it. Defaults to the pion console logger.
	LoggerFactory logging.LoggerFactory
}

func (c *Config) loggerFactory() logging.LoggerFactory {
	if c.LoggerFactory != nil {
		return c.LoggerFactory
	}
	return logging.NewDefaultLoggerFactory()
}

// parseICEServer splits inline credentials ("turn:user:pass@host") off
// an ICE URL and validates the remainder as a STUN/TURN URI.
func parseICEServer(raw string) (webrtc.ICEServer, error) {
	scheme, rest, found := strings.Cut(raw, ":")
	scheme = strings.ToLower(scheme)
	if !found || rest == "" {
		return webrtc.ICEServer{}, invalidArg("malformed ICE server %q", raw)
	}
	switch scheme {
	case "stun", "stuns", "turn", "turns":
	default:
		return webrtc.ICEServer{}, invalidArg("unsupported ICE server scheme %q", scheme)
	}

	var username, password string
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		creds := rest[:at]
		rest = rest[at+1:]
		username, password, _ = strings.Cut(creds, ":")
		var err error
		if username, err = url.PathUnescape(username); err != nil {
			return webrtc.ICEServer{}, invalidArg("malformed ICE server username in %q", raw)
		}
		if password, err = url.PathUnescape(password); err != nil {
			return webrtc.ICEServer{}, invalidArg("malformed ICE server password in %q", raw)
		}
	}

	uri := scheme + ":" + rest
	parsed, err := stun.ParseURI(uri)
	if err != nil {
		return webrtc.ICEServer{}, invalidArg("malformed ICE server %q: %s", raw, err)
	}
	isTURN := parsed.Scheme == stun.SchemeTypeTURN || parsed.Scheme == stun.SchemeTypeTURNS
	if isTURN && (username == "" || password == "") {
		return webrtc.ICEServer{}, invalidArg("TURN server %q requires user:pass credentials", raw)
	}

	server := webrtc.ICEServer{URLs: []string{uri}}
	if username != "" {
		server.Username = username
		server.Credential = password
	}
	return server, nil
}

func (c *Config) iceServers() ([]webrtc.ICEServer, error) {
	servers := make([]webrtc.ICEServer, 0, len(c.ICEServers))
	for _, raw := range c.ICEServers {
		server, err := parseICEServer(raw)
		if err != nil {
			return nil, err
		}
		servers = append(servers, server)
	}
	return servers, nil
}

func (c *Config) certificates() ([]webrtc.Certificate, error) {
	switch c.CertificateType {
	case CertificateTypeDefault:
		return nil, nil
	case CertificateTypeECDSA:
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, wrapEngine(err)
		}
		cert, err := webrtc.GenerateCertificate(key)
		if err != nil {
			return nil, wrapEngine(err)
		}
		return []webrtc.Certificate{*cert}, nil
	case CertificateTypeRSA:
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, wrapEngine(err)
		}
		cert, err := webrtc.GenerateCertificate(key)
		if err != nil {
			return nil, wrapEngine(err)
		}
		return []webrtc.Certificate{*cert}, nil
	default:
		return nil, invalidArg("unknown certificate type %d", int(c.CertificateType))
	}
}

func (c *Config) transportPolicy() (webrtc.ICETransportPolicy, error) {
	switch c.ICETransportPolicy {
	case TransportPolicyAll:
		return webrtc.ICETransportPolicyAll, nil
	case TransportPolicyRelay:
		return webrtc.ICETransportPolicyRelay, nil
	default:
		return webrtc.ICETransportPolicyAll, invalidArg("unknown transport policy %d", int(c.ICETransportPolicy))
	}
}

// engineSetup is the translated form of a Config: an engine API bound to
// the setting/media/interceptor engines plus the per-connection
// configuration struct.
type engineSetup struct {
	api  *webrtc.API
	conf webrtc.Configuration
}

func (c *Config) engine() (*engineSetup, error) {
	servers, err := c.iceServers()
	if err != nil {
		return nil, err
	}
	certificates, err := c.certificates()
	if err != nil {
		return nil, err
	}
	policy, err := c.transportPolicy()
	if err != nil {
		return nil, err
	}

	settings := webrtc.SettingEngine{LoggerFactory: c.loggerFactory()}
	if c.PortRangeBegin != 0 || c.PortRangeEnd != 0 {
		if c.PortRangeEnd < c.PortRangeBegin {
			return nil, invalidArg("port range %d-%d is inverted", c.PortRangeBegin, c.PortRangeEnd)
		}
		if err := settings.SetEphemeralUDPPortRange(c.PortRangeBegin, c.PortRangeEnd); err != nil {
			return nil, invalidArg("port range %d-%d: %s", c.PortRangeBegin, c.PortRangeEnd, err)
		}
	}
	if c.MTU != 0 {
		if c.MTU < 0 || c.MTU > 65535 {
			return nil, invalidArg("MTU %d out of range", c.MTU)
		}
		settings.SetReceiveMTU(uint(c.MTU))
	}
	if c.MaxMessageSize != 0 {
		if c.MaxMessageSize < 0 {
			return nil, invalidArg("max message size %d out of range", c.MaxMessageSize)
		}
		settings.SetSCTPMaxReceiveBufferSize(uint32(c.MaxMessageSize))
	}
	if c.EnableICETCP {
		settings.SetNetworkTypes([]webrtc.NetworkType{
			webrtc.NetworkTypeUDP4,
			webrtc.NetworkTypeUDP6,
			webrtc.NetworkTypeTCP4,
			webrtc.NetworkTypeTCP6,
		})
	}

	media := &webrtc.MediaEngine{}
	if err := media.RegisterDefaultCodecs(); err != nil {
		return nil, wrapEngine(err)
	}
	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(media, registry); err != nil {
		return nil, wrapEngine(err)
	}

	return &engineSetup{
		api: webrtc.NewAPI(
			webrtc.WithSettingEngine(settings),
			webrtc.WithMediaEngine(media),
			webrtc.WithInterceptorRegistry(registry),
		),
		conf: webrtc.Configuration{
			ICEServers:         servers,
			ICETransportPolicy: policy,
			Certificates:       certificates,
		},
	}, nil
}
