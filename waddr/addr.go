// Package waddr decodes WebRTC direct multiaddrs.
//
// A dialable address looks like
//
//	/ip4/192.168.0.1/udp/40000/webrtc-direct/certhash/uEiD.../p2p/12D3KooW...
//
// where the certhash component is a multibase-encoded multihash
// of the remote's self-signed DTLS certificate,
// standing in for certificate authority trust.
package waddr

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/gordian-engine/webrtcdirect/werr"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// Protocol codes that mark an address as WebRTC over UDP.
// The legacy /webrtc name is accepted alongside /webrtc-direct,
// because older peers still advertise it for direct connections.
var markerCodes = [...]int{ma.P_WEBRTC_DIRECT, ma.P_WEBRTC}

// Decoded holds the network-level fields of an address
// that the SDP answer is rendered from.
type Decoded struct {
	// "IP4" or "IP6".
	IPVersion string

	Host string
	Port int
}

// Decode extracts the IP version, host, and UDP port of addr.
//
// The IP version is taken from the first component
// whose protocol name starts with "ip".
// If there is no such component, Decode logs a warning
// and uses "IP6" rather than failing.
func Decode(log *slog.Logger, addr ma.Multiaddr) (Decoded, error) {
	if len(addr) == 0 {
		return Decoded{}, werr.InappropriateAddressError{
			Reason: "address is empty",
		}
	}

	var d Decoded
	for _, c := range addr {
		name := c.Protocol().Name
		if strings.HasPrefix(name, "ip") {
			d.IPVersion = strings.ToUpper(name)
			d.Host = c.Value()
			break
		}
	}

	if d.IPVersion == "" {
		log.Warn(
			"No IP version found in address; defaulting to IP6",
			"addr", addr.String(),
		)
		d.IPVersion = "IP6"

		// Without an IP component, the host is the leading network component,
		// e.g. the name in a /dns6 address.
		d.Host = addr[0].Value()
	}

	if d.Host == "" {
		return Decoded{}, werr.InappropriateAddressError{
			Addr:   addr.String(),
			Reason: "no host component",
		}
	}

	portVal, err := addr.ValueForProtocol(ma.P_UDP)
	if err != nil {
		return Decoded{}, werr.InappropriateAddressError{
			Addr:   addr.String(),
			Reason: "no udp component",
		}
	}
	port, err := strconv.Atoi(portVal)
	if err != nil {
		// The multiaddr parser already validated the port,
		// so this would be a bug in the parser.
		panic(fmt.Errorf("BUG: udp component %q is not an integer: %w", portVal, err))
	}
	d.Port = port

	return d, nil
}

// UDPAddr returns d as a [*net.UDPAddr].
// It fails if the host is not a literal IP address.
func (d Decoded) UDPAddr() (*net.UDPAddr, error) {
	ip := net.ParseIP(d.Host)
	if ip == nil {
		return nil, werr.InappropriateAddressError{
			Reason: fmt.Sprintf("host %q is not an IP address", d.Host),
		}
	}
	return &net.UDPAddr{IP: ip, Port: d.Port}, nil
}

// CertHash returns the value of the first certhash component in addr,
// as the multibase-encoded string.
//
// If addr has no certhash component,
// CertHash returns a [werr.InappropriateAddressError].
func CertHash(addr ma.Multiaddr) (string, error) {
	for _, c := range addr {
		if c.Code() == ma.P_CERTHASH {
			return c.Value(), nil
		}
	}

	return "", werr.InappropriateAddressError{
		Addr:   addr.String(),
		Reason: "no certhash component",
	}
}

// PeerID returns the identity in addr's /p2p component.
func PeerID(addr ma.Multiaddr) (peer.ID, error) {
	v, err := addr.ValueForProtocol(ma.P_P2P)
	if err != nil {
		return "", werr.InappropriateAddressError{
			Addr:   addr.String(),
			Reason: "no peer identity",
		}
	}

	id, err := peer.Decode(v)
	if err != nil {
		return "", werr.InappropriateAddressError{
			Addr:   addr.String(),
			Reason: fmt.Sprintf("invalid peer identity %q: %v", v, err),
		}
	}

	return id, nil
}

// IsDialable reports whether addr has a WebRTC marker,
// a certhash component, and a peer identity.
//
// It is a filter predicate, not a precondition:
// dialing a non-dialable address fails with an explicit error.
func IsDialable(addr ma.Multiaddr) bool {
	var hasMarker, hasCertHash, hasPeer bool
	for _, c := range addr {
		switch code := c.Code(); code {
		case ma.P_CERTHASH:
			hasCertHash = true
		case ma.P_P2P:
			hasPeer = true
		default:
			for _, m := range markerCodes {
				if code == m {
					hasMarker = true
				}
			}
		}
	}

	return hasMarker && hasCertHash && hasPeer
}

// Filter returns the subset of addrs accepted by [IsDialable],
// preserving order. The result may be empty.
func Filter(addrs []ma.Multiaddr) []ma.Multiaddr {
	var out []ma.Multiaddr
	for _, a := range addrs {
		if IsDialable(a) {
			out = append(out, a)
		}
	}
	return out
}
