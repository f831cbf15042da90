// Package wrtc is the boundary between the dialer and the WebRTC engine
// that owns ICE, DTLS, and SCTP.
//
// The dialer only needs a narrow slice of a peer connection:
// certificate generation, local and remote descriptions,
// and negotiated data channels with open and error events.
// [PionEngine] provides that slice on top of pion/webrtc,
// and the wrtctest package provides a scriptable fake.
package wrtc

import (
	"io"

	"github.com/gordian-engine/webrtcdirect/wcert"
	"github.com/pion/webrtc/v4"
)

// Engine creates certificates and peer connections.
type Engine interface {
	GenerateCertificate() (*webrtc.Certificate, error)
	NewPeerConnection(PeerConnectionConfig) (PeerConnection, error)
}

// PeerConnectionConfig is the per-attempt configuration
// for [Engine.NewPeerConnection].
type PeerConnectionConfig struct {
	// The only certificate the peer connection may use.
	Certificate *webrtc.Certificate

	// Used as both the local ICE username fragment and password.
	Ufrag string
}

// PeerConnection is one WebRTC peer connection,
// exclusively owned by a single dial attempt.
type PeerConnection interface {
	// Certificates reports the certificates in use, for fingerprinting.
	Certificates() []wcert.Source

	CreateDataChannel(label string, init *webrtc.DataChannelInit) (DataChannel, error)

	CreateOffer() (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	SetRemoteDescription(webrtc.SessionDescription) error

	Close() error
}

// DataChannel is a reliable data channel on a [PeerConnection].
type DataChannel interface {
	Label() string
	ReadyState() webrtc.DataChannelState

	// OnOpen sets the handler called when the channel opens.
	// If the channel is already open, the handler is still called.
	OnOpen(func())

	// OnError sets the handler called when the channel errors.
	OnError(func(error))

	// Detach returns the channel as a byte stream.
	// It is only valid once the channel is open.
	Detach() (io.ReadWriteCloser, error)

	Close() error
}
