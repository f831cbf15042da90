package webrtcdirect

import (
	"context"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gordian-engine/webrtcdirect/wrtc"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// RawConn is an authenticated peer connection before upgrading.
// It is handed to the [Upgrader] at the end of a successful dial.
type RawConn struct {
	PeerConnection wrtc.PeerConnection

	// The address passed to [*Transport.Dial].
	RemoteAddr ma.Multiaddr

	// Nil if the address host was not a literal IP.
	RemoteUDPAddr *net.UDPAddr

	RemotePeer peer.ID
	LocalPeer  peer.ID

	// When the secure channel was established.
	Opened time.Time
}

// Conn is an upgraded connection returned from [*Transport.Dial].
type Conn struct {
	id  string
	raw *RawConn
	mux Muxer

	// Set by the transport after upgrading.
	timeline []StateTransition

	closeOnce sync.Once
	closeErr  error
}

// NewConn returns a Conn over raw.
// Custom [Upgrader] implementations use it to build their result.
func NewConn(raw *RawConn, mux Muxer) *Conn {
	return &Conn{
		id:  uuid.NewString(),
		raw: raw,
		mux: mux,
	}
}

// ID is a unique identifier for the connection, for logging and tracing.
func (c *Conn) ID() string { return c.id }

// RemoteMultiaddr returns the address that was dialed.
func (c *Conn) RemoteMultiaddr() ma.Multiaddr { return c.raw.RemoteAddr }

func (c *Conn) RemotePeer() peer.ID { return c.raw.RemotePeer }
func (c *Conn) LocalPeer() peer.ID  { return c.raw.LocalPeer }

// Opened returns when the secure channel was established.
func (c *Conn) Opened() time.Time { return c.raw.Opened }

// Timeline returns the dial states reached, in order, with timestamps.
func (c *Conn) Timeline() []StateTransition {
	return slices.Clone(c.timeline)
}

// OpenStream opens a new bidirectional stream to the remote.
func (c *Conn) OpenStream(ctx context.Context) (net.Conn, error) {
	return c.mux.OpenStream(ctx)
}

// Close closes the underlying peer connection, and every stream with it.
// Subsequent calls return the first call's result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.raw.PeerConnection.Close()
	})
	return c.closeErr
}
