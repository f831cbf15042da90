package wsec_test

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"

	"github.com/gordian-engine/webrtcdirect/internal/wtest"
	"github.com/gordian-engine/webrtcdirect/wcert"
	"github.com/gordian-engine/webrtcdirect/wcert/wcerttest"
	"github.com/gordian-engine/webrtcdirect/werr"
	"github.com/gordian-engine/webrtcdirect/wsec"
	mh "github.com/multiformats/go-multihash"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"
)

func TestPrologue_symmetric(t *testing.T) {
	t.Parallel()

	f1 := []byte{0x12, 0x20, 0x01, 0x02}
	f2 := []byte{0x12, 0x20, 0x01, 0x03}
	require.Negative(t, bytes.Compare(f1, f2))

	want := append([]byte(wsec.ProloguePrefix), append(append([]byte(nil), f1...), f2...)...)

	require.Equal(t, want, wsec.Prologue(f1, f2))
	require.Equal(t, want, wsec.Prologue(f2, f1))
}

func TestBuildPrologue_symmetric(t *testing.T) {
	t.Parallel()

	// Two digests whose multihash encodings sort in a known order.
	d1 := bytes.Repeat([]byte{0x01}, 32)
	d2 := bytes.Repeat([]byte{0x02}, 32)

	id := wcerttest.NewIdentity(t)
	certsFor := func(d []byte) []wcert.Source {
		return []wcert.Source{wcerttest.SHA256Source(d)}
	}

	a1 := wcerttest.DialableAddr(t, "1.2.3.4", 1, wcerttest.CertHash(t, d1, mh.SHA2_256), id.ID)
	a2 := wcerttest.DialableAddr(t, "1.2.3.4", 1, wcerttest.CertHash(t, d2, mh.SHA2_256), id.ID)

	// Local d1 dialing remote d2, and local d2 dialing remote d1.
	p12, err := wsec.BuildPrologue(certsFor(d1), a2)
	require.NoError(t, err)
	p21, err := wsec.BuildPrologue(certsFor(d2), a1)
	require.NoError(t, err)

	require.Equal(t, p12, p21)

	mh1, err := mh.Encode(d1, mh.SHA2_256)
	require.NoError(t, err)
	mh2, err := mh.Encode(d2, mh.SHA2_256)
	require.NoError(t, err)

	want := append([]byte(wsec.ProloguePrefix), mh1...)
	want = append(want, mh2...)
	require.Equal(t, want, p12)
}

func TestBuildPrologue_errors(t *testing.T) {
	t.Parallel()

	id := wcerttest.NewIdentity(t)
	digest := wtest.RandomDataForTest(t, 32)
	remote := wcerttest.DialableAddr(t, "1.2.3.4", 1, wcerttest.CertHash(t, digest, mh.SHA2_256), id.ID)

	t.Run("no certificate", func(t *testing.T) {
		t.Parallel()

		_, err := wsec.BuildPrologue(nil, remote)
		var iae werr.InvalidArgumentError
		require.ErrorAs(t, err, &iae)
		require.Contains(t, iae.Reason, "no local certificate")
	})

	t.Run("no fingerprint", func(t *testing.T) {
		t.Parallel()

		_, err := wsec.BuildPrologue([]wcert.Source{wcerttest.StubSource{}}, remote)
		var iae werr.InvalidArgumentError
		require.ErrorAs(t, err, &iae)
		require.Contains(t, iae.Reason, "no fingerprint")
	})

	t.Run("fingerprint error", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		_, err := wsec.BuildPrologue([]wcert.Source{wcerttest.StubSource{Err: boom}}, remote)
		require.ErrorIs(t, err, boom)
	})

	t.Run("local algorithm not sha-256", func(t *testing.T) {
		t.Parallel()

		src := wcerttest.StubSource{
			Fingerprints: []webrtc.DTLSFingerprint{{
				Algorithm: "md5",
				Value:     "00:11:22:33:44:55:66:77:88:99:aa:bb:cc:dd:ee:ff",
			}},
		}
		_, err := wsec.BuildPrologue([]wcert.Source{src}, remote)
		var uhae werr.UnsupportedHashAlgorithmError
		require.ErrorAs(t, err, &uhae)
		require.Equal(t, "MD5", uhae.Name)
	})

	t.Run("remote missing certhash", func(t *testing.T) {
		t.Parallel()

		a := wcerttest.Multiaddr(t, "/ip4/1.2.3.4/udp/1/webrtc-direct/p2p/"+id.ID.String())
		_, err := wsec.BuildPrologue([]wcert.Source{wcerttest.SHA256Source(digest)}, a)
		var iae werr.InappropriateAddressError
		require.ErrorAs(t, err, &iae)
	})

	t.Run("remote unsupported algorithm", func(t *testing.T) {
		t.Parallel()

		a := wcerttest.Multiaddr(t, "/ip4/1.2.3.4/udp/1/webrtc-direct/certhash/"+wcerttest.UnsupportedCertHash(t))
		_, err := wsec.BuildPrologue([]wcert.Source{wcerttest.SHA256Source(digest)}, a)
		var uhae werr.UnsupportedHashAlgorithmError
		require.ErrorAs(t, err, &uhae)
	})
}

func TestNoiseHandshaker(t *testing.T) {
	t.Parallel()

	dialer := wcerttest.NewIdentity(t)
	listener := wcerttest.NewIdentity(t)

	prologue := wsec.Prologue([]byte("a"), []byte("b"))

	t.Run("matching prologue", func(t *testing.T) {
		t.Parallel()

		errs := runHandshakePair(t, dialer, listener, prologue, prologue)
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
	})

	t.Run("mismatched prologue", func(t *testing.T) {
		t.Parallel()

		other := wsec.Prologue([]byte("a"), []byte("c"))
		errs := runHandshakePair(t, dialer, listener, prologue, other)
		require.True(t, errs[0] != nil || errs[1] != nil)
	})
}

// runHandshakePair runs the dialer as responder and the listener as initiator
// over an in-memory pipe, returning the dialer's and listener's errors.
func runHandshakePair(
	t *testing.T,
	dialer, listener wcerttest.Identity,
	dialerPrologue, listenerPrologue []byte,
) [2]error {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), wtest.ScheduleTimeout)
	defer cancel()

	dc, lc := net.Pipe()
	defer dc.Close()
	defer lc.Close()

	listenerErr := make(chan error, 1)
	go func() {
		err := wsec.NoiseHandshaker{AsInitiator: true}.Handshake(
			ctx, listenerPrologue, listener.Key, lc, dialer.ID,
		)
		if err != nil {
			// Unblock the other side.
			_ = lc.Close()
		}
		listenerErr <- err
	}()

	dialerErr := wsec.NoiseHandshaker{}.Handshake(
		ctx, dialerPrologue, dialer.Key, dc, listener.ID,
	)
	if dialerErr != nil {
		_ = dc.Close()
	}

	return [2]error{dialerErr, wtest.ReceiveSoon(t, listenerErr)}
}
