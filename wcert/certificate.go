package wcert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// Source is anything that reports DTLS fingerprints for a certificate.
// [*webrtc.Certificate] satisfies it.
type Source interface {
	GetFingerprints() ([]webrtc.DTLSFingerprint, error)
}

// GenerateCertificate creates a fresh self-signed DTLS certificate
// on an ECDSA P-256 key.
//
// The curve is fixed, not configurable,
// since P-256 is the curve every WebRTC stack accepts.
func GenerateCertificate() (*webrtc.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate certificate key: %w", err)
	}

	cert, err := webrtc.GenerateCertificate(key)
	if err != nil {
		return nil, fmt.Errorf("failed to generate certificate: %w", err)
	}

	return cert, nil
}

// LocalFingerprint returns the first fingerprint of src that uses
// [OutboundAlgorithm].
//
// It is a convenience for reporting a local certificate's certhash;
// the prologue builder applies its own stricter checks.
func LocalFingerprint(src Source) (Fingerprint, error) {
	fps, err := src.GetFingerprints()
	if err != nil {
		return Fingerprint{}, fmt.Errorf("failed to get certificate fingerprints: %w", err)
	}

	for _, fp := range fps {
		f, err := FromDTLS(fp)
		if err != nil {
			continue
		}
		if f.Code == OutboundAlgorithm {
			return f, nil
		}
	}

	return Fingerprint{}, fmt.Errorf("certificate has no SHA-256 fingerprint among %d", len(fps))
}
