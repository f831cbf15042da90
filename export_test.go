package webrtcdirect

import "time"

// SetHandshakeTimeout overrides the data channel open timeout
// so tests do not wait the full [HandshakeTimeout].
func (t *Transport) SetHandshakeTimeout(d time.Duration) {
	t.handshakeTimeout = d
}
