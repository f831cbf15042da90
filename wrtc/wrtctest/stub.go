// Package wrtctest contains a scriptable fake of the [wrtc.Engine] boundary.
//
// Stub data channels open only when a test fires them,
// or automatically once the remote description is set
// if the engine was created with auto-open.
// Detached channels are one end of a [net.Pipe];
// the other end is available to the test as [StubDataChannel.Remote].
package wrtctest

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/gordian-engine/webrtcdirect/wcert"
	"github.com/gordian-engine/webrtcdirect/wrtc"
	"github.com/pion/webrtc/v4"
)

// StubEngine is a [wrtc.Engine] producing [*StubPeerConnection] values.
type StubEngine struct {
	autoOpen bool

	// Created receives every peer connection as it is created.
	// It is buffered; tests that create more connections than its capacity
	// must drain it.
	Created chan *StubPeerConnection

	// If set, NewPeerConnection fails with this error.
	NewPeerConnectionErr error
}

// NewStubEngine returns a StubEngine.
// If autoOpen is set, data channels open as soon as
// the remote description is installed.
func NewStubEngine(autoOpen bool) *StubEngine {
	return &StubEngine{
		autoOpen: autoOpen,
		Created:  make(chan *StubPeerConnection, 8),
	}
}

func (e *StubEngine) GenerateCertificate() (*webrtc.Certificate, error) {
	return wcert.GenerateCertificate()
}

func (e *StubEngine) NewPeerConnection(cfg wrtc.PeerConnectionConfig) (wrtc.PeerConnection, error) {
	if e.NewPeerConnectionErr != nil {
		return nil, e.NewPeerConnectionErr
	}

	pc := &StubPeerConnection{
		Config:   cfg,
		autoOpen: e.autoOpen,
	}

	select {
	case e.Created <- pc:
	default:
		panic(errors.New("BUG: StubEngine.Created is full; drain it in the test"))
	}

	return pc, nil
}

// StubPeerConnection is a [wrtc.PeerConnection] that records
// the descriptions set on it.
type StubPeerConnection struct {
	Config wrtc.PeerConnectionConfig

	autoOpen bool

	mu        sync.Mutex
	local     webrtc.SessionDescription
	remote    webrtc.SessionDescription
	remoteSet bool
	channels  []*StubDataChannel
	closed    bool

	// If set, SetRemoteDescription fails with this error.
	SetRemoteDescriptionErr error
}

func (pc *StubPeerConnection) Certificates() []wcert.Source {
	return []wcert.Source{pc.Config.Certificate}
}

func (pc *StubPeerConnection) CreateDataChannel(
	label string, init *webrtc.DataChannelInit,
) (wrtc.DataChannel, error) {
	local, remote := net.Pipe()
	dc := &StubDataChannel{
		label:  label,
		state:  webrtc.DataChannelStateConnecting,
		local:  local,
		Remote: remote,
	}
	if init != nil && init.ID != nil {
		dc.ID = *init.ID
	}

	pc.mu.Lock()
	pc.channels = append(pc.channels, dc)
	open := pc.autoOpen && pc.remoteSet
	pc.mu.Unlock()

	if open {
		go dc.FireOpen()
	}

	return dc, nil
}

// CreateOffer returns an offer carrying ICE credentials
// that differ from the configured ufrag,
// the way a real engine's offer would before munging.
func (pc *StubPeerConnection) CreateOffer() (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP: "v=0\r\n" +
			"o=- 1 1 IN IP4 0.0.0.0\r\n" +
			"s=-\r\n" +
			"t=0 0\r\n" +
			"m=application 9 UDP/DTLS/SCTP webrtc-datachannel\r\n" +
			"c=IN IP4 0.0.0.0\r\n" +
			"a=setup:actpass\r\n" +
			"a=mid:0\r\n" +
			"a=ice-ufrag:stubEngineUfrag\r\n" +
			"a=ice-pwd:stubEnginePasswordPasswordPassword\r\n" +
			"a=sctp-port:5000\r\n",
	}, nil
}

func (pc *StubPeerConnection) SetLocalDescription(d webrtc.SessionDescription) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.local = d
	return nil
}

func (pc *StubPeerConnection) SetRemoteDescription(d webrtc.SessionDescription) error {
	if pc.SetRemoteDescriptionErr != nil {
		return pc.SetRemoteDescriptionErr
	}

	pc.mu.Lock()
	pc.remote = d
	pc.remoteSet = true
	var toOpen []*StubDataChannel
	if pc.autoOpen {
		toOpen = append(toOpen, pc.channels...)
	}
	pc.mu.Unlock()

	for _, dc := range toOpen {
		go dc.FireOpen()
	}

	return nil
}

func (pc *StubPeerConnection) Close() error {
	pc.mu.Lock()
	pc.closed = true
	channels := pc.channels
	pc.mu.Unlock()

	for _, dc := range channels {
		_ = dc.Close()
	}
	return nil
}

// LocalDescription returns the last description passed to SetLocalDescription.
func (pc *StubPeerConnection) LocalDescription() webrtc.SessionDescription {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.local
}

// RemoteDescription returns the last description passed to SetRemoteDescription.
func (pc *StubPeerConnection) RemoteDescription() webrtc.SessionDescription {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.remote
}

// Channels returns the data channels created so far, in creation order.
func (pc *StubPeerConnection) Channels() []*StubDataChannel {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return append([]*StubDataChannel(nil), pc.channels...)
}

// IsClosed reports whether Close has been called.
func (pc *StubPeerConnection) IsClosed() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.closed
}

// StubDataChannel is a [wrtc.DataChannel] whose events are fired by the test.
type StubDataChannel struct {
	ID uint16

	// The far end of the detached stream.
	Remote net.Conn

	label string
	local net.Conn

	mu      sync.Mutex
	state   webrtc.DataChannelState
	onOpen  func()
	onError func(error)
}

func (dc *StubDataChannel) Label() string { return dc.label }

func (dc *StubDataChannel) ReadyState() webrtc.DataChannelState {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.state
}

func (dc *StubDataChannel) OnOpen(f func()) {
	dc.mu.Lock()
	dc.onOpen = f
	open := dc.state == webrtc.DataChannelStateOpen
	dc.mu.Unlock()

	if open {
		go f()
	}
}

func (dc *StubDataChannel) OnError(f func(error)) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.onError = f
}

// FireOpen moves the channel to the open state and calls the open handler.
// It fires even on a closed channel, to simulate a late engine event.
func (dc *StubDataChannel) FireOpen() {
	dc.mu.Lock()
	dc.state = webrtc.DataChannelStateOpen
	f := dc.onOpen
	dc.mu.Unlock()

	if f != nil {
		f()
	}
}

// FireError calls the error handler with err.
func (dc *StubDataChannel) FireError(err error) {
	dc.mu.Lock()
	f := dc.onError
	dc.mu.Unlock()

	if f != nil {
		f(err)
	}
}

func (dc *StubDataChannel) Detach() (io.ReadWriteCloser, error) {
	if s := dc.ReadyState(); s != webrtc.DataChannelStateOpen {
		return nil, fmt.Errorf("cannot detach data channel in state %s", s)
	}
	return dc.local, nil
}

func (dc *StubDataChannel) Close() error {
	dc.mu.Lock()
	dc.state = webrtc.DataChannelStateClosed
	dc.mu.Unlock()

	return dc.local.Close()
}
