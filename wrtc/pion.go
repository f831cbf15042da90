package wrtc

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/gordian-engine/webrtcdirect/wcert"
	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"
)

// PionEngine is an [Engine] backed by pion/webrtc.
type PionEngine struct {
	loggerFactory logging.LoggerFactory
}

// NewPionEngine returns a PionEngine
// whose internal pion logs are written to log.
func NewPionEngine(log *slog.Logger) PionEngine {
	return PionEngine{
		loggerFactory: SlogLoggerFactory{Log: log},
	}
}

func (PionEngine) GenerateCertificate() (*webrtc.Certificate, error) {
	return wcert.GenerateCertificate()
}

func (e PionEngine) NewPeerConnection(cfg PeerConnectionConfig) (PeerConnection, error) {
	if cfg.Certificate == nil {
		panic(fmt.Errorf("BUG: PeerConnectionConfig.Certificate must not be nil"))
	}

	var se webrtc.SettingEngine
	se.LoggerFactory = e.loggerFactory

	// Data channels are consumed as byte streams.
	se.DetachDataChannels()

	// Pion takes the local ICE credentials from its agent,
	// not from the SDP passed to SetLocalDescription,
	// so the ufrag has to be set here too.
	se.SetICECredentials(cfg.Ufrag, cfg.Ufrag)

	// Dialing a listener on the same host needs loopback candidates.
	se.SetIncludeLoopbackCandidate(true)

	api := webrtc.NewAPI(webrtc.WithSettingEngine(se))
	pc, err := api.NewPeerConnection(webrtc.Configuration{
		Certificates: []webrtc.Certificate{*cfg.Certificate},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	return pionPeerConnection{pc: pc}, nil
}

type pionPeerConnection struct {
	pc *webrtc.PeerConnection
}

func (p pionPeerConnection) Certificates() []wcert.Source {
	certs := p.pc.GetConfiguration().Certificates
	out := make([]wcert.Source, len(certs))
	for i := range certs {
		out[i] = &certs[i]
	}
	return out
}

func (p pionPeerConnection) CreateDataChannel(
	label string, init *webrtc.DataChannelInit,
) (DataChannel, error) {
	dc, err := p.pc.CreateDataChannel(label, init)
	if err != nil {
		return nil, err
	}
	return pionDataChannel{DataChannel: dc}, nil
}

func (p pionPeerConnection) CreateOffer() (webrtc.SessionDescription, error) {
	return p.pc.CreateOffer(nil)
}

func (p pionPeerConnection) SetLocalDescription(d webrtc.SessionDescription) error {
	return p.pc.SetLocalDescription(d)
}

func (p pionPeerConnection) SetRemoteDescription(d webrtc.SessionDescription) error {
	return p.pc.SetRemoteDescription(d)
}

func (p pionPeerConnection) Close() error {
	return p.pc.Close()
}

// pionDataChannel narrows Detach's return type to io.ReadWriteCloser.
type pionDataChannel struct {
	*webrtc.DataChannel
}

func (d pionDataChannel) Detach() (io.ReadWriteCloser, error) {
	return d.DataChannel.Detach()
}
