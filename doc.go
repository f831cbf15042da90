// Package webrtcdirect dials libp2p peers over WebRTC direct,
// with no signaling server and no certificate authority.
//
// A WebRTC engine normally needs an offer/answer exchange
// through some signaling channel before it will connect.
// A WebRTC direct address carries everything that exchange would provide:
// the remote's IP, UDP port, and the hash of its self-signed DTLS certificate.
// [*Transport.Dial] fabricates the remote's SDP answer from the address,
// forces both sides' ICE credentials to one locally generated ufrag,
// and lets the engine connect as if signaling had happened.
//
// DTLS then only proves that the remote holds the certificate in the address.
// To authenticate the remote's peer identity, the dial runs a Noise handshake
// over a negotiated data channel, with a prologue built from both
// certificate fingerprints; see package [github.com/gordian-engine/webrtcdirect/wsec].
//
// The dial proceeds through the states of [DialState] in order,
// and any error ends the dial. Listening is not supported.
package webrtcdirect
