// Package wsdp builds and rewrites the SDP documents
// handed to the local WebRTC engine during a direct dial.
//
// No signaling channel exists.
// The dialer instead fabricates the remote's answer from the remote address
// and forces both sides' ICE credentials to one locally generated ufrag.
package wsdp

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/gordian-engine/webrtcdirect/waddr"
	"github.com/gordian-engine/webrtcdirect/wcert"
	"github.com/gordian-engine/webrtcdirect/werr"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/pion/webrtc/v4"
)

const (
	// SCTPPort is the fixed SCTP port advertised in the answer.
	SCTPPort = 5000

	// MaxMessageSize is the fixed max-message-size advertised in the answer.
	MaxMessageSize = 16384

	// UfragPrefix starts every generated ufrag,
	// so a listener can recognize direct-dial ICE traffic.
	UfragPrefix = "libp2p+webrtc+v1/"

	ufragRandomLen = 32
	ufragAlphabet  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewUfrag returns a fresh ICE ufrag for one dial attempt.
// The same value is also used as the ICE password.
func NewUfrag() string {
	// Rejection sampling keeps the alphabet distribution uniform.
	const maxByte = 255 - (256 % len(ufragAlphabet))

	out := make([]byte, 0, ufragRandomLen)
	var buf [ufragRandomLen]byte
	for len(out) < ufragRandomLen {
		if _, err := rand.Read(buf[:]); err != nil {
			panic(fmt.Errorf("BUG: crypto/rand failed: %w", err))
		}
		for _, b := range buf {
			if int(b) > maxByte {
				continue
			}
			out = append(out, ufragAlphabet[int(b)%len(ufragAlphabet)])
			if len(out) == ufragRandomLen {
				break
			}
		}
	}

	return UfragPrefix + string(out)
}

func validateUfrag(ufrag string) error {
	if ufrag == "" {
		return werr.InvalidArgumentError{Reason: "ufrag must not be empty"}
	}
	if strings.ContainsAny(ufrag, " \t\r\n") {
		return werr.InvalidArgumentError{
			Reason: fmt.Sprintf("ufrag %q contains whitespace", ufrag),
		}
	}
	return nil
}

// answerTemplate is the fabricated answer.
// Field order matters to some engines; keep it stable.
//
// Arguments: IP version, host, port, ufrag, fingerprint display form.
const answerTemplate = `v=0
o=- 0 0 IN %[1]s %[2]s
s=-
c=IN %[1]s %[2]s
t=0 0
a=ice-lite
m=application %[3]d UDP/DTLS/SCTP webrtc-datachannel
a=mid:0
a=setup:passive
a=ice-ufrag:%[4]s
a=ice-pwd:%[4]s
a=fingerprint:%[5]s
a=sctp-port:%[6]d
a=max-message-size:%[7]d
a=candidate:1467250027 1 UDP 1467250027 %[2]s %[3]d typ host
`

// SynthesizeAnswer renders the SDP answer the remote would have sent,
// using only addr and ufrag.
//
// The answer declares ICE-lite, passive DTLS setup,
// the certificate fingerprint from addr's certhash,
// and a single host candidate at addr's host and port.
func SynthesizeAnswer(
	log *slog.Logger, addr ma.Multiaddr, ufrag string,
) (webrtc.SessionDescription, error) {
	if err := validateUfrag(ufrag); err != nil {
		return webrtc.SessionDescription{}, err
	}

	d, err := waddr.Decode(log, addr)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}

	certHash, err := waddr.CertHash(addr)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}

	fp, err := wcert.Derive(certHash)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf(
			"failed to derive remote fingerprint: %w", err,
		)
	}

	return webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP: fmt.Sprintf(
			answerTemplate,
			d.IPVersion, d.Host, d.Port,
			ufrag, fp.String(),
			SCTPPort, MaxMessageSize,
		),
	}, nil
}

var (
	ufragLine = regexp.MustCompile(`(?m)^a=ice-ufrag:[^\r\n]*`)
	pwdLine   = regexp.MustCompile(`(?m)^a=ice-pwd:[^\r\n]*`)
)

// MungeICECredentials returns desc with the first ice-ufrag line
// and the first ice-pwd line both rewritten to carry ufrag.
// All other lines, including later ICE credential lines, are untouched.
//
// desc is expected to be an offer generated by the local engine.
// An empty SDP body results in a [werr.InvalidArgumentError].
func MungeICECredentials(
	desc webrtc.SessionDescription, ufrag string,
) (webrtc.SessionDescription, error) {
	if desc.SDP == "" {
		return webrtc.SessionDescription{}, werr.InvalidArgumentError{
			Reason: "session description has no SDP body",
		}
	}
	if err := validateUfrag(ufrag); err != nil {
		return webrtc.SessionDescription{}, err
	}

	s := replaceFirst(ufragLine, desc.SDP, "a=ice-ufrag:"+ufrag)
	s = replaceFirst(pwdLine, s, "a=ice-pwd:"+ufrag)

	return webrtc.SessionDescription{
		Type: desc.Type,
		SDP:  s,
	}, nil
}

func replaceFirst(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}
