// Package wsec binds the certificate fingerprints of a WebRTC direct connection
// into the secure-channel handshake that authenticates the remote peer.
//
// DTLS on its own only proves that the remote holds the certificate
// named in the certhash; it says nothing about the peer identity.
// Both sides therefore feed a prologue built from the two certificate
// fingerprints into a Noise handshake. A man in the middle terminating
// DTLS with its own certificate produces a different prologue,
// and the handshake fails.
package wsec

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/gordian-engine/webrtcdirect/waddr"
	"github.com/gordian-engine/webrtcdirect/wcert"
	"github.com/gordian-engine/webrtcdirect/werr"
	ma "github.com/multiformats/go-multiaddr"
)

// ProloguePrefix starts every prologue.
const ProloguePrefix = "libp2p-webrtc-noise:"

// BuildPrologue returns the handshake prologue for a dial
// from the local certificate in certs to remote.
//
// certs must hold exactly one certificate,
// reporting a fingerprint that uses [wcert.OutboundAlgorithm].
// The remote fingerprint comes from remote's certhash component.
func BuildPrologue(certs []wcert.Source, remote ma.Multiaddr) ([]byte, error) {
	switch len(certs) {
	case 0:
		return nil, werr.InvalidArgumentError{Reason: "no local certificate"}
	case 1:
		// Okay.
	default:
		return nil, werr.InvalidArgumentError{
			Reason: fmt.Sprintf("expected one local certificate, got %d", len(certs)),
		}
	}

	fps, err := certs[0].GetFingerprints()
	if err != nil {
		return nil, fmt.Errorf("failed to get local certificate fingerprints: %w", err)
	}
	if len(fps) == 0 {
		return nil, werr.InvalidArgumentError{Reason: "local certificate has no fingerprint"}
	}

	local, err := wcert.FromDTLS(fps[0])
	if err != nil {
		return nil, fmt.Errorf("invalid local fingerprint: %w", err)
	}
	if local.Code != wcert.OutboundAlgorithm {
		return nil, werr.UnsupportedHashAlgorithmError{Name: local.Algorithm}
	}

	certHash, err := waddr.CertHash(remote)
	if err != nil {
		return nil, err
	}
	remoteFP, err := wcert.Derive(certHash)
	if err != nil {
		return nil, fmt.Errorf("invalid remote fingerprint: %w", err)
	}

	return Prologue(local.Multihash(), remoteFP.Multihash()), nil
}

// Prologue concatenates [ProloguePrefix] with the two multihash-wrapped
// fingerprints in ascending byte order.
//
// Ordering by value rather than by role means both ends of a connection
// compute the same bytes: Prologue(a, b) equals Prologue(b, a).
func Prologue(a, b []byte) []byte {
	pair := [][]byte{a, b}
	slices.SortFunc(pair, bytes.Compare)

	out := make([]byte, 0, len(ProloguePrefix)+len(a)+len(b))
	out = append(out, ProloguePrefix...)
	out = append(out, pair[0]...)
	out = append(out, pair[1]...)
	return out
}
