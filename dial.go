package webrtcdirect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordian-engine/webrtcdirect/internal/wtrace"
	"github.com/gordian-engine/webrtcdirect/waddr"
	"github.com/gordian-engine/webrtcdirect/werr"
	"github.com/gordian-engine/webrtcdirect/wrtc"
	"github.com/gordian-engine/webrtcdirect/wsdp"
	"github.com/gordian-engine/webrtcdirect/wsec"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/pion/webrtc/v4"
)

// Dial establishes an authenticated connection to the peer at addr.
//
// addr must carry a UDP host and port, a certhash, and a /p2p identity.
// The remote's certificate is trusted only because its hash
// matches the certhash, and the remote's identity is proven
// by the secure-channel handshake bound to both certificates.
//
// Nothing is retried.
// On failure, every resource created for the attempt is released.
func (t *Transport) Dial(ctx context.Context, addr ma.Multiaddr) (*Conn, error) {
	ctx, span := t.tracer.Start(ctx, "webrtc-direct dial", wtrace.WithAttributes(
		wtrace.StringerAttr("remote_addr", addr),
	))
	defer span.End()

	a := &dialAttempt{
		t:    t,
		addr: addr,
		log:  t.log.With("remote_addr", addr.String()),
		span: span,
	}
	a.advance(DialInit)

	t.metrics.attempts.Inc()

	conn, err := a.run(ctx)
	if err != nil {
		failedIn := a.state
		a.advance(DialFailed)

		t.metrics.failures.WithLabelValues(failureKind(err), failedIn.String()).Inc()
		span.AddEvent("error", wtrace.WithAttributes(wtrace.ErrorAttr(err)))
		wtrace.SpanError(span, err)
		a.log.Debug("Dial failed", "state", failedIn, "err", err)
		return nil, err
	}

	t.metrics.duration.Observe(time.Since(a.timeline[0].At).Seconds())
	return conn, nil
}

// dialAttempt is the state of one call to [*Transport.Dial].
// It is only touched by the dialing goroutine.
type dialAttempt struct {
	t    *Transport
	addr ma.Multiaddr

	log  *slog.Logger
	span wtrace.Span

	state    DialState
	timeline []StateTransition
}

func (a *dialAttempt) advance(s DialState) {
	a.state = s
	a.timeline = append(a.timeline, StateTransition{State: s, At: time.Now()})

	a.span.AddEvent(s.String())
	a.log.Debug("Dial advanced", "state", s)
}

func (a *dialAttempt) run(ctx context.Context) (_ *Conn, err error) {
	remotePeer, err := waddr.PeerID(a.addr)
	if err != nil {
		return nil, err
	}

	decoded, err := waddr.Decode(a.log, a.addr)
	if err != nil {
		return nil, err
	}
	// A non-IP host is allowed through to the engine,
	// so the UDP address is only informational here.
	remoteUDP, _ := decoded.UDPAddr()

	cert, err := a.t.engine.GenerateCertificate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate local certificate: %w", err)
	}
	a.advance(DialCertificateReady)

	ufrag := wsdp.NewUfrag()
	a.span.SetAttributes(wtrace.StringAttr("ufrag", ufrag))

	pc, err := a.t.engine.NewPeerConnection(wrtc.PeerConnectionConfig{
		Certificate: cert,
		Ufrag:       ufrag,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if closeErr := pc.Close(); closeErr != nil {
				a.log.Debug("Failed to close peer connection after failed dial", "err", closeErr)
			}
		}
	}()

	negotiated := true
	var handshakeID uint16
	dc, err := pc.CreateDataChannel(HandshakeChannelLabel, &webrtc.DataChannelInit{
		Negotiated: &negotiated,
		ID:         &handshakeID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create handshake data channel: %w", err)
	}

	// Register for open and error events before anything
	// can cause the channel to open.
	w := newOpenWaiter(dc)

	offer, err := pc.CreateOffer()
	if err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}
	a.advance(DialOfferCreated)

	offer, err = wsdp.MungeICECredentials(offer, ufrag)
	if err != nil {
		return nil, err
	}
	answer, err := wsdp.SynthesizeAnswer(a.log, a.addr, ufrag)
	if err != nil {
		return nil, err
	}
	a.advance(DialAnswerSynthesized)

	if err := pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("failed to set local description: %w", err)
	}
	if err := pc.SetRemoteDescription(answer); err != nil {
		return nil, fmt.Errorf("failed to set remote description: %w", err)
	}
	a.advance(DialRemoteDescriptionSet)

	if err := w.Wait(ctx, a.t.handshakeTimeout); err != nil {
		return nil, err
	}
	a.advance(DialDataChannelOpen)

	prologue, err := wsec.BuildPrologue(pc.Certificates(), a.addr)
	if err != nil {
		return nil, err
	}

	rwc, err := dc.Detach()
	if err != nil {
		return nil, fmt.Errorf("failed to detach handshake data channel: %w", err)
	}
	hsConn := wrtc.NewDataChannelConn(
		rwc,
		wrtc.DataChannelAddr{Label: HandshakeChannelLabel},
		wrtc.DataChannelAddr{UDP: remoteUDP, Label: HandshakeChannelLabel},
	)

	if err := a.t.handshaker.Handshake(ctx, prologue, a.t.identity, hsConn, remotePeer); err != nil {
		return nil, fmt.Errorf("secure channel handshake failed: %w", err)
	}
	a.advance(DialSecureChannelEstablished)

	// The handshake channel has served its purpose.
	if err := hsConn.Close(); err != nil {
		a.log.Debug("Failed to close handshake data channel", "err", err)
	}

	raw := &RawConn{
		PeerConnection: pc,

		RemoteAddr:    a.addr,
		RemoteUDPAddr: remoteUDP,
		RemotePeer:    remotePeer,
		LocalPeer:     a.t.localPeer,

		Opened: time.Now(),
	}

	conn, err := a.t.upgrader.Upgrade(ctx, raw, a.t.muxer)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}
	a.advance(DialUpgraded)

	conn.timeline = a.timeline
	return conn, nil
}

// openWaiter settles exactly once on the first of
// the channel opening, the channel erroring, a timeout, or cancellation.
type openWaiter struct {
	dc wrtc.DataChannel

	once sync.Once
	done chan error
}

func newOpenWaiter(dc wrtc.DataChannel) *openWaiter {
	w := &openWaiter{
		dc:   dc,
		done: make(chan error, 1),
	}

	dc.OnOpen(func() {
		w.settle(nil)
	})
	dc.OnError(func(err error) {
		w.settle(werr.DataChannelError{
			Label: dc.Label(),
			State: dc.ReadyState().String(),
			Err:   err,
		})
	})

	return w
}

// settle reports whether err was the settled outcome.
func (w *openWaiter) settle(err error) bool {
	won := false
	w.once.Do(func() {
		won = true
		w.done <- err
	})
	return won
}

// Wait blocks until the waiter settles, returning the settled outcome.
// The timer only runs for the duration of the call.
func (w *openWaiter) Wait(ctx context.Context, timeout time.Duration) error {
	timer := time.AfterFunc(timeout, func() {
		w.settle(werr.DataChannelError{
			Label:    w.dc.Label(),
			State:    w.dc.ReadyState().String(),
			TimedOut: true,
		})
	})
	defer timer.Stop()

	select {
	case err := <-w.done:
		return err
	case <-ctx.Done():
		// Either this settles the waiter,
		// or another outcome beat it and is already buffered.
		w.settle(context.Cause(ctx))
		return <-w.done
	}
}
