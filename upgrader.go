package webrtcdirect

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/gordian-engine/webrtcdirect/wrtc"
)

// Upgrader turns an authenticated [RawConn] into the final [Conn].
type Upgrader interface {
	Upgrade(ctx context.Context, raw *RawConn, muxer MuxerFactory) (*Conn, error)
}

// MuxerFactory creates the stream multiplexer for a connection.
//
// WebRTC data channels are already multiplexed,
// so a muxer here is a thin layer over opening more data channels.
type MuxerFactory interface {
	NewMuxer(raw *RawConn) Muxer
}

// Muxer opens streams on one connection.
type Muxer interface {
	OpenStream(ctx context.Context) (net.Conn, error)
}

// BasicUpgrader wraps the raw connection with a muxer from the factory.
type BasicUpgrader struct{}

func (BasicUpgrader) Upgrade(_ context.Context, raw *RawConn, muxer MuxerFactory) (*Conn, error) {
	if raw.PeerConnection == nil {
		panic(fmt.Errorf("BUG: RawConn.PeerConnection must not be nil"))
	}
	return NewConn(raw, muxer.NewMuxer(raw)), nil
}

// DataChannelMuxer opens each stream as a new data channel.
type DataChannelMuxer struct{}

func (DataChannelMuxer) NewMuxer(raw *RawConn) Muxer {
	return &dataChannelMuxer{raw: raw}
}

type dataChannelMuxer struct {
	raw *RawConn

	n atomic.Uint64
}

func (m *dataChannelMuxer) OpenStream(ctx context.Context) (net.Conn, error) {
	label := fmt.Sprintf("stream-%d", m.n.Add(1))

	// In-band negotiation; the engine assigns the stream ID.
	dc, err := m.raw.PeerConnection.CreateDataChannel(label, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create data channel %q: %w", label, err)
	}

	w := newOpenWaiter(dc)
	if err := w.Wait(ctx, HandshakeTimeout); err != nil {
		_ = dc.Close()
		return nil, err
	}

	rwc, err := dc.Detach()
	if err != nil {
		_ = dc.Close()
		return nil, fmt.Errorf("failed to detach data channel %q: %w", label, err)
	}

	return wrtc.NewDataChannelConn(
		rwc,
		wrtc.DataChannelAddr{Label: label},
		wrtc.DataChannelAddr{UDP: m.raw.RemoteUDPAddr, Label: label},
	), nil
}
