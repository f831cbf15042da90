package wrtc

import (
	"io"
	"net"
	"os"
	"sync"
	"time"
)

// DataChannelConn presents a detached data channel as a [net.Conn],
// which is what secure-channel handshakes expect.
//
// A detached channel has no native deadlines.
// When a deadline passes, the underlying channel is closed
// to unblock pending I/O, and the conn is unusable afterwards.
// Reads and writes failing for that reason
// return [os.ErrDeadlineExceeded].
type DataChannelConn struct {
	rwc io.ReadWriteCloser

	local, remote net.Addr

	mu         sync.Mutex
	readTimer  *time.Timer
	writeTimer *time.Timer
	expired    bool
}

var _ net.Conn = (*DataChannelConn)(nil)

// NewDataChannelConn wraps rwc.
// The addresses are reported by LocalAddr and RemoteAddr only.
func NewDataChannelConn(rwc io.ReadWriteCloser, local, remote net.Addr) *DataChannelConn {
	return &DataChannelConn{
		rwc:    rwc,
		local:  local,
		remote: remote,
	}
}

func (c *DataChannelConn) Read(b []byte) (int, error) {
	n, err := c.rwc.Read(b)
	if err != nil && c.isExpired() {
		return n, os.ErrDeadlineExceeded
	}
	return n, err
}

func (c *DataChannelConn) Write(b []byte) (int, error) {
	n, err := c.rwc.Write(b)
	if err != nil && c.isExpired() {
		return n, os.ErrDeadlineExceeded
	}
	return n, err
}

func (c *DataChannelConn) Close() error {
	c.mu.Lock()
	stopTimer(&c.readTimer)
	stopTimer(&c.writeTimer)
	c.mu.Unlock()

	return c.rwc.Close()
}

func (c *DataChannelConn) LocalAddr() net.Addr  { return c.local }
func (c *DataChannelConn) RemoteAddr() net.Addr { return c.remote }

func (c *DataChannelConn) SetDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setDeadlineLocked(&c.readTimer, t)
	c.setDeadlineLocked(&c.writeTimer, t)
	return nil
}

func (c *DataChannelConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setDeadlineLocked(&c.readTimer, t)
	return nil
}

func (c *DataChannelConn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setDeadlineLocked(&c.writeTimer, t)
	return nil
}

// setDeadlineLocked replaces the timer in *timer. Must be called with c.mu held.
func (c *DataChannelConn) setDeadlineLocked(timer **time.Timer, t time.Time) {
	stopTimer(timer)
	if t.IsZero() || c.expired {
		return
	}

	d := time.Until(t)
	if d <= 0 {
		c.expireLocked()
		return
	}

	*timer = time.AfterFunc(d, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.expireLocked()
	})
}

func (c *DataChannelConn) expireLocked() {
	if c.expired {
		return
	}
	c.expired = true
	_ = c.rwc.Close()
}

func (c *DataChannelConn) isExpired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

func stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// DataChannelAddr is a synthetic [net.Addr] naming one end of a data channel.
type DataChannelAddr struct {
	// The transport-level address of the peer, if known.
	UDP *net.UDPAddr

	Label string
}

func (DataChannelAddr) Network() string { return "webrtc-direct" }

func (a DataChannelAddr) String() string {
	if a.UDP == nil {
		return a.Label
	}
	return a.UDP.String() + "/" + a.Label
}
