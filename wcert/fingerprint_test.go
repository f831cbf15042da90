package wcert_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/gordian-engine/webrtcdirect/internal/wtest"
	"github.com/gordian-engine/webrtcdirect/wcert"
	"github.com/gordian-engine/webrtcdirect/wcert/wcerttest"
	"github.com/gordian-engine/webrtcdirect/werr"
	"github.com/multiformats/go-multibase"
	mh "github.com/multiformats/go-multihash"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"
)

func TestDerive_roundTrip(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name    string
		code    uint64
		size    int
		display string
	}{
		{name: "md5", code: mh.MD5, size: 16, display: "MD5"},
		{name: "sha2-256", code: mh.SHA2_256, size: 32, display: "SHA-256"},
		{name: "sha2-512", code: mh.SHA2_512, size: 64, display: "SHA-512"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			digest := wtest.RandomDataForTest(t, tc.size)
			encoded := wcerttest.CertHash(t, digest, tc.code)

			f, err := wcert.Derive(encoded)
			require.NoError(t, err)

			require.Equal(t, tc.display, f.Algorithm)
			require.Equal(t, tc.code, f.Code)
			require.Equal(t, digest, f.Digest)

			// Build the expected display form independently of Fingerprint.Hex.
			pairs := make([]string, len(digest))
			for i, b := range digest {
				pairs[i] = fmt.Sprintf("%02X", b)
			}
			require.Equal(t, tc.display+" "+strings.Join(pairs, ":"), f.String())
		})
	}
}

func TestDerive_anyMultibase(t *testing.T) {
	t.Parallel()

	digest := wtest.RandomDataForTest(t, 32)
	raw, err := mh.Encode(digest, mh.SHA2_256)
	require.NoError(t, err)

	for _, enc := range []multibase.Encoding{
		multibase.Base58BTC,
		multibase.Base32,
		multibase.Base16,
		multibase.Base64url,
	} {
		s, err := multibase.Encode(enc, raw)
		require.NoError(t, err)

		f, err := wcert.Derive(s)
		require.NoError(t, err)
		require.Equal(t, digest, f.Digest)
	}
}

func TestDerive_unsupportedAlgorithm(t *testing.T) {
	t.Parallel()

	f, err := wcert.Derive(wcerttest.UnsupportedCertHash(t))

	var uhae werr.UnsupportedHashAlgorithmError
	require.ErrorAs(t, err, &uhae)
	require.Equal(t, "sha3-256", uhae.Name)
	require.Zero(t, f)
}

func TestDerive_invalidInput(t *testing.T) {
	t.Parallel()

	t.Run("not multibase", func(t *testing.T) {
		t.Parallel()

		_, err := wcert.Derive("!notmultibase")
		var iae werr.InvalidArgumentError
		require.ErrorAs(t, err, &iae)
	})

	t.Run("not multihash", func(t *testing.T) {
		t.Parallel()

		s, err := multibase.Encode(multibase.Base64url, []byte{0xff})
		require.NoError(t, err)

		_, err = wcert.Derive(s)
		var iae werr.InvalidArgumentError
		require.ErrorAs(t, err, &iae)
	})

	t.Run("digest length mismatch", func(t *testing.T) {
		t.Parallel()

		// A well-formed multihash claiming sha2-256 with only 4 digest bytes.
		raw, err := mh.Encode([]byte{1, 2, 3, 4}, mh.SHA2_256)
		require.NoError(t, err)
		s, err := multibase.Encode(multibase.Base64url, raw)
		require.NoError(t, err)

		_, err = wcert.Derive(s)
		var iae werr.InvalidArgumentError
		require.ErrorAs(t, err, &iae)
	})
}

func TestFromDTLS(t *testing.T) {
	t.Parallel()

	digest := wtest.RandomDataForTest(t, 32)
	src := wcerttest.SHA256Source(digest)

	f, err := wcert.FromDTLS(src.Fingerprints[0])
	require.NoError(t, err)
	require.Equal(t, "SHA-256", f.Algorithm)
	require.Equal(t, digest, f.Digest)

	// Same policy as Derive.
	_, err = wcert.FromDTLS(webrtc.DTLSFingerprint{
		Algorithm: "sha-384",
		Value:     src.Fingerprints[0].Value,
	})
	var uhae werr.UnsupportedHashAlgorithmError
	require.ErrorAs(t, err, &uhae)
	require.Equal(t, "sha-384", uhae.Name)
}

func TestFingerprint_Multihash(t *testing.T) {
	t.Parallel()

	digest := wtest.RandomDataForTest(t, 32)
	encoded := wcerttest.CertHash(t, digest, mh.SHA2_256)

	f, err := wcert.Derive(encoded)
	require.NoError(t, err)

	_, raw, err := multibase.Decode(encoded)
	require.NoError(t, err)

	require.True(t, bytes.Equal(raw, f.Multihash()))
}

func TestEncodeCertHash_rejectsUnsupported(t *testing.T) {
	t.Parallel()

	_, err := wcert.EncodeCertHash(make([]byte, 32), mh.SHA3_256)
	var uhae werr.UnsupportedHashAlgorithmError
	require.ErrorAs(t, err, &uhae)
}

func TestGenerateCertificate(t *testing.T) {
	t.Parallel()

	cert, err := wcert.GenerateCertificate()
	require.NoError(t, err)

	f, err := wcert.LocalFingerprint(cert)
	require.NoError(t, err)
	require.Equal(t, "SHA-256", f.Algorithm)
	require.Len(t, f.Digest, 32)

	// Each call yields a distinct certificate.
	other, err := wcert.GenerateCertificate()
	require.NoError(t, err)
	g, err := wcert.LocalFingerprint(other)
	require.NoError(t, err)
	require.NotEqual(t, f.Digest, g.Digest)
}
