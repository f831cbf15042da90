package wsec

import (
	"context"
	"fmt"
	"net"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/security/noise"
)

// Handshaker authenticates the remote peer over an established byte stream.
//
// A nil error means conn is authenticated as remote
// under the given prologue.
// Implementations must not close conn.
type Handshaker interface {
	Handshake(
		ctx context.Context,
		prologue []byte,
		local crypto.PrivKey,
		conn net.Conn,
		remote peer.ID,
	) error
}

// NoiseHandshaker runs the libp2p Noise XX handshake with the prologue bound in.
//
// The dialing side of a WebRTC direct connection is the Noise responder,
// since the listener learns the dialer's ICE ufrag first
// and is the side able to start the handshake.
// Set AsInitiator to run the opposite role,
// which is only useful for tests and for a listening side.
type NoiseHandshaker struct {
	AsInitiator bool
}

func (h NoiseHandshaker) Handshake(
	ctx context.Context,
	prologue []byte,
	local crypto.PrivKey,
	conn net.Conn,
	remote peer.ID,
) error {
	tpt, err := noise.New(noise.ID, local, nil)
	if err != nil {
		return fmt.Errorf("failed to create noise transport: %w", err)
	}

	st, err := tpt.WithSessionOptions(noise.Prologue(prologue))
	if err != nil {
		return fmt.Errorf("failed to apply noise prologue: %w", err)
	}

	if h.AsInitiator {
		_, err = st.SecureOutbound(ctx, conn, remote)
	} else {
		_, err = st.SecureInbound(ctx, conn, remote)
	}
	if err != nil {
		return fmt.Errorf("noise handshake with %s failed: %w", remote, err)
	}

	return nil
}

// HandshakerFunc adapts a function to a [Handshaker].
type HandshakerFunc func(
	ctx context.Context,
	prologue []byte,
	local crypto.PrivKey,
	conn net.Conn,
	remote peer.ID,
) error

func (f HandshakerFunc) Handshake(
	ctx context.Context,
	prologue []byte,
	local crypto.PrivKey,
	conn net.Conn,
	remote peer.ID,
) error {
	return f(ctx, prologue, local, conn, remote)
}
