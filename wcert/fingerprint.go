// Package wcert handles certificate fingerprints for WebRTC direct connections.
//
// A remote's DTLS certificate is never validated against a certificate authority.
// Instead the dialer learns the certificate's hash from the certhash component
// of the remote address, and tells the local WebRTC engine to expect exactly
// that fingerprint.
//
// The supported hash algorithms are a fixed allow-list.
// [Derive] and [FromDTLS] both consult the same table,
// so remote and local fingerprints are accepted or rejected identically.
package wcert

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gordian-engine/webrtcdirect/werr"
	"github.com/multiformats/go-multibase"
	mh "github.com/multiformats/go-multihash"
	"github.com/pion/webrtc/v4"
)

// OutboundAlgorithm is the multihash code of the only algorithm
// accepted for the local certificate when dialing.
const OutboundAlgorithm = mh.SHA2_256

// algorithm is one entry of the allow-list.
type algorithm struct {
	Code uint64

	// Name used in the SDP fingerprint display form.
	Display string

	// Name reported by DTLS stacks, as in "sha-256".
	DTLS string

	// Digest length in bytes.
	Size int
}

var allowed = [...]algorithm{
	{Code: mh.MD5, Display: "MD5", DTLS: "md5", Size: 16},
	{Code: mh.SHA2_256, Display: "SHA-256", DTLS: "sha-256", Size: 32},
	{Code: mh.SHA2_512, Display: "SHA-512", DTLS: "sha-512", Size: 64},
}

func byCode(code uint64) (algorithm, bool) {
	for _, a := range allowed {
		if a.Code == code {
			return a, true
		}
	}
	return algorithm{}, false
}

func byDTLSName(name string) (algorithm, bool) {
	name = strings.ToLower(name)
	for _, a := range allowed {
		if a.DTLS == name {
			return a, true
		}
	}
	return algorithm{}, false
}

// Fingerprint is one certificate's hash,
// restricted to an allow-listed algorithm.
type Fingerprint struct {
	// Display name of the algorithm, e.g. "SHA-256".
	Algorithm string

	// Multihash code of the algorithm.
	Code uint64

	// Raw digest bytes, not multihash-wrapped.
	Digest []byte
}

// Derive decodes a multibase-encoded multihash, as found in a certhash
// address component, into a Fingerprint.
//
// A value that is not valid multibase or multihash
// results in a [werr.InvalidArgumentError].
// A valid multihash using an algorithm outside the allow-list
// results in a [werr.UnsupportedHashAlgorithmError];
// no partial Fingerprint is returned in either case.
func Derive(encoded string) (Fingerprint, error) {
	_, raw, err := multibase.Decode(encoded)
	if err != nil {
		return Fingerprint{}, werr.InvalidArgumentError{
			Reason: fmt.Sprintf("certhash %q is not multibase: %v", encoded, err),
		}
	}

	dm, err := mh.Decode(raw)
	if err != nil {
		return Fingerprint{}, werr.InvalidArgumentError{
			Reason: fmt.Sprintf("certhash %q is not a multihash: %v", encoded, err),
		}
	}

	a, ok := byCode(dm.Code)
	if !ok {
		name := dm.Name
		if name == "" {
			name = fmt.Sprintf("0x%x", dm.Code)
		}
		return Fingerprint{}, werr.UnsupportedHashAlgorithmError{Name: name}
	}

	if len(dm.Digest) != a.Size {
		return Fingerprint{}, werr.InvalidArgumentError{
			Reason: fmt.Sprintf(
				"certhash %q has a %d-byte digest, but %s digests are %d bytes",
				encoded, len(dm.Digest), a.Display, a.Size,
			),
		}
	}

	return Fingerprint{
		Algorithm: a.Display,
		Code:      a.Code,
		Digest:    dm.Digest,
	}, nil
}

// FromDTLS converts a fingerprint reported by the WebRTC engine,
// such as {"sha-256", "ab:cd:..."}, into a Fingerprint.
func FromDTLS(fp webrtc.DTLSFingerprint) (Fingerprint, error) {
	a, ok := byDTLSName(fp.Algorithm)
	if !ok {
		return Fingerprint{}, werr.UnsupportedHashAlgorithmError{Name: fp.Algorithm}
	}

	digest, err := hex.DecodeString(strings.ReplaceAll(fp.Value, ":", ""))
	if err != nil {
		return Fingerprint{}, werr.InvalidArgumentError{
			Reason: fmt.Sprintf("fingerprint value %q is not colon-delimited hex: %v", fp.Value, err),
		}
	}
	if len(digest) != a.Size {
		return Fingerprint{}, werr.InvalidArgumentError{
			Reason: fmt.Sprintf(
				"%s fingerprint has %d bytes, expected %d", a.Display, len(digest), a.Size,
			),
		}
	}

	return Fingerprint{
		Algorithm: a.Display,
		Code:      a.Code,
		Digest:    digest,
	}, nil
}

// Hex renders the digest as uppercase hex byte pairs joined by colons.
func (f Fingerprint) Hex() string {
	if len(f.Digest) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(3*len(f.Digest) - 1)

	h := strings.ToUpper(hex.EncodeToString(f.Digest))
	for i := 0; i < len(h); i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(h[i : i+2])
	}
	return b.String()
}

// String returns the display form used in SDP fingerprint lines,
// as in "SHA-256 AB:CD:...".
func (f Fingerprint) String() string {
	return f.Algorithm + " " + f.Hex()
}

// Multihash returns the digest wrapped in its multihash encoding.
func (f Fingerprint) Multihash() []byte {
	out, err := mh.Encode(f.Digest, f.Code)
	if err != nil {
		// Only a digest length mismatch would fail here,
		// and every constructor reads the length from a real digest.
		panic(fmt.Errorf("BUG: failed to encode %s multihash: %w", f.Algorithm, err))
	}
	return out
}

// EncodeCertHash returns the certhash component value for digest,
// as a base64url multibase string of the multihash.
//
// The algorithm code must be in the allow-list.
func EncodeCertHash(digest []byte, code uint64) (string, error) {
	a, ok := byCode(code)
	if !ok {
		name, ok := mh.Codes[code]
		if !ok {
			name = fmt.Sprintf("0x%x", code)
		}
		return "", werr.UnsupportedHashAlgorithmError{Name: name}
	}
	if len(digest) != a.Size {
		return "", werr.InvalidArgumentError{
			Reason: fmt.Sprintf("%s digest must be %d bytes, got %d", a.Display, a.Size, len(digest)),
		}
	}

	raw, err := mh.Encode(digest, code)
	if err != nil {
		return "", werr.InvalidArgumentError{
			Reason: fmt.Sprintf("cannot encode digest as multihash: %v", err),
		}
	}

	s, err := multibase.Encode(multibase.Base64url, raw)
	if err != nil {
		panic(fmt.Errorf("BUG: base64url multibase encoding failed: %w", err))
	}
	return s, nil
}
