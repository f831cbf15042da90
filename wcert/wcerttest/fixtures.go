// Package wcerttest contains fixtures for tests involving
// certificate hashes, peer identities, and dialable addresses.
package wcerttest

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"strings"
	"testing"

	"github.com/gordian-engine/webrtcdirect/wcert"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/multiformats/go-multibase"
	mh "github.com/multiformats/go-multihash"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"
)

// Identity is a libp2p key pair and its derived peer ID.
type Identity struct {
	Key crypto.PrivKey
	ID  peer.ID
}

// NewIdentity generates a fresh Ed25519 identity.
func NewIdentity(t testing.TB) Identity {
	t.Helper()

	key, _, err := crypto.GenerateEd25519Key(rand.Reader)
	require.NoError(t, err)

	id, err := peer.IDFromPrivateKey(key)
	require.NoError(t, err)

	return Identity{Key: key, ID: id}
}

// SHA256Digest returns the SHA-256 digest of seed,
// for tests that need a stable but arbitrary certificate digest.
func SHA256Digest(seed string) []byte {
	d := sha256.Sum256([]byte(seed))
	return d[:]
}

// CertHash encodes digest as a certhash component value for the given algorithm.
func CertHash(t testing.TB, digest []byte, code uint64) string {
	t.Helper()

	s, err := wcert.EncodeCertHash(digest, code)
	require.NoError(t, err)
	return s
}

// UnsupportedCertHash returns a certhash value whose multihash
// uses an algorithm outside the allow-list (sha3-256).
func UnsupportedCertHash(t testing.TB) string {
	t.Helper()

	// Bypass EncodeCertHash, since it would reject the algorithm.
	raw, err := mh.Encode(SHA256Digest("unsupported"), mh.SHA3_256)
	require.NoError(t, err)

	s, err := multibase.Encode(multibase.Base64url, raw)
	require.NoError(t, err)
	return s
}

// Multiaddr parses s, failing the test on error.
func Multiaddr(t testing.TB, s string) ma.Multiaddr {
	t.Helper()

	a, err := ma.NewMultiaddr(s)
	require.NoError(t, err)
	return a
}

// DialableAddr returns
// /ip4/<ip>/udp/<port>/webrtc-direct/certhash/<certHash>/p2p/<id>.
func DialableAddr(t testing.TB, ip string, port int, certHash string, id peer.ID) ma.Multiaddr {
	t.Helper()

	return Multiaddr(t, fmt.Sprintf(
		"/ip4/%s/udp/%d/webrtc-direct/certhash/%s/p2p/%s",
		ip, port, certHash, id,
	))
}

// StubSource is a [wcert.Source] returning fixed values.
type StubSource struct {
	Fingerprints []webrtc.DTLSFingerprint
	Err          error
}

func (s StubSource) GetFingerprints() ([]webrtc.DTLSFingerprint, error) {
	return s.Fingerprints, s.Err
}

// SHA256Source returns a StubSource reporting digest as a sha-256 fingerprint,
// in the lowercase form DTLS stacks use.
func SHA256Source(digest []byte) StubSource {
	f := wcert.Fingerprint{Algorithm: "SHA-256", Code: mh.SHA2_256, Digest: digest}
	return StubSource{
		Fingerprints: []webrtc.DTLSFingerprint{
			{Algorithm: "sha-256", Value: strings.ToLower(f.Hex())},
		},
	}
}
