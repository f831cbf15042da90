package webrtcdirect

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gordian-engine/webrtcdirect/internal/wtrace"
	"github.com/gordian-engine/webrtcdirect/waddr"
	"github.com/gordian-engine/webrtcdirect/werr"
	"github.com/gordian-engine/webrtcdirect/wrtc"
	"github.com/gordian-engine/webrtcdirect/wsec"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/prometheus/client_golang/prometheus"
)

// HandshakeTimeout bounds the wait for the handshake data channel to open.
const HandshakeTimeout = 10 * time.Second

// HandshakeChannelLabel labels the negotiated data channel
// that carries the secure-channel handshake.
const HandshakeChannelLabel = "handshake"

// Transport dials WebRTC direct addresses.
//
// A Transport holds no per-dial state,
// so concurrent calls to [*Transport.Dial] are independent.
type Transport struct {
	log *slog.Logger

	identity  crypto.PrivKey
	localPeer peer.ID

	engine     wrtc.Engine
	handshaker wsec.Handshaker
	upgrader   Upgrader
	muxer      MuxerFactory

	tracer  wtrace.Tracer
	metrics *Metrics

	handshakeTimeout time.Duration
}

// TransportConfig is the configuration for a [Transport].
type TransportConfig struct {
	// The local libp2p identity, presented during the secure-channel handshake.
	Identity crypto.PrivKey

	// Creates certificates and peer connections.
	// Use [wrtc.NewPionEngine] outside of tests.
	Engine wrtc.Engine

	// Authenticates the remote peer.
	// If nil, a [wsec.NoiseHandshaker] is used.
	Handshaker wsec.Handshaker

	// Produces the final connection.
	// If nil, a [BasicUpgrader] is used.
	Upgrader Upgrader

	// Handed to the upgrader.
	// If nil, a [DataChannelMuxer] is used.
	Muxer MuxerFactory

	// If nil, tracing is disabled.
	TracerProvider wtrace.TracerProvider

	// If nil, metrics are collected but not registered.
	Registerer prometheus.Registerer
}

// validate panics if there are any illegal settings in the configuration.
func (c TransportConfig) validate() {
	var panicErrs error

	if c.Identity == nil {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("TransportConfig.Identity must not be nil"),
		)
	}

	if c.Engine == nil {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("TransportConfig.Engine must not be nil"),
		)
	}

	if panicErrs != nil {
		panic(panicErrs)
	}
}

// NewTransport returns a new Transport.
// It panics if cfg is missing required fields.
func NewTransport(log *slog.Logger, cfg TransportConfig) (*Transport, error) {
	cfg.validate()

	localPeer, err := peer.IDFromPrivateKey(cfg.Identity)
	if err != nil {
		return nil, fmt.Errorf("failed to derive local peer ID: %w", err)
	}

	if cfg.Handshaker == nil {
		cfg.Handshaker = wsec.NoiseHandshaker{}
	}
	if cfg.Upgrader == nil {
		cfg.Upgrader = BasicUpgrader{}
	}
	if cfg.Muxer == nil {
		cfg.Muxer = DataChannelMuxer{}
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = wtrace.NopTracerProvider()
	}

	metrics, err := NewMetrics(cfg.Registerer)
	if err != nil {
		return nil, err
	}

	return &Transport{
		log: log,

		identity:  cfg.Identity,
		localPeer: localPeer,

		engine:     cfg.Engine,
		handshaker: cfg.Handshaker,
		upgrader:   cfg.Upgrader,
		muxer:      cfg.Muxer,

		tracer:  cfg.TracerProvider.Tracer(wtrace.TracerName),
		metrics: metrics,

		handshakeTimeout: HandshakeTimeout,
	}, nil
}

// LocalPeer returns the peer ID derived from the configured identity.
func (t *Transport) LocalPeer() peer.ID {
	return t.localPeer
}

// CanDial reports whether addr looks like a dialable WebRTC direct address.
func (t *Transport) CanDial(addr ma.Multiaddr) bool {
	return waddr.IsDialable(addr)
}

// Filter returns the dialable subset of addrs, preserving order.
func (t *Transport) Filter(addrs []ma.Multiaddr) []ma.Multiaddr {
	return waddr.Filter(addrs)
}

// Listen is not supported; it always returns a [werr.UnimplementedError].
func (t *Transport) Listen(ma.Multiaddr) error {
	return werr.UnimplementedError{Op: "listen"}
}
