package webrtcdirect_test

import (
	"fmt"
	"testing"

	"github.com/gordian-engine/webrtcdirect"
	"github.com/gordian-engine/webrtcdirect/internal/wtest"
	"github.com/gordian-engine/webrtcdirect/wcert/wcerttest"
	"github.com/gordian-engine/webrtcdirect/werr"
	"github.com/gordian-engine/webrtcdirect/wrtc/wrtctest"
	ma "github.com/multiformats/go-multiaddr"
	mh "github.com/multiformats/go-multihash"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewTransport_validation(t *testing.T) {
	t.Parallel()

	log := wtest.NewLogger(t)

	require.Panics(t, func() {
		_, _ = webrtcdirect.NewTransport(log, webrtcdirect.TransportConfig{})
	})

	require.Panics(t, func() {
		_, _ = webrtcdirect.NewTransport(log, webrtcdirect.TransportConfig{
			Identity: wcerttest.NewIdentity(t).Key,
		})
	})
}

func TestNewTransport_duplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	cfg := webrtcdirect.TransportConfig{
		Identity:   wcerttest.NewIdentity(t).Key,
		Engine:     wrtctest.NewStubEngine(true),
		Registerer: reg,
	}

	_, err := webrtcdirect.NewTransport(wtest.NewLogger(t), cfg)
	require.NoError(t, err)

	_, err = webrtcdirect.NewTransport(wtest.NewLogger(t), cfg)
	require.Error(t, err)
}

func TestTransport_LocalPeer(t *testing.T) {
	t.Parallel()

	id := wcerttest.NewIdentity(t)
	tr, err := webrtcdirect.NewTransport(wtest.NewLogger(t), webrtcdirect.TransportConfig{
		Identity: id.Key,
		Engine:   wrtctest.NewStubEngine(true),
	})
	require.NoError(t, err)
	require.Equal(t, id.ID, tr.LocalPeer())
}

func TestTransport_Listen(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true, nil)

	err := f.Transport.Listen(f.Addr)
	require.Equal(t, werr.UnimplementedError{Op: "listen"}, err)
	require.EqualError(t, err, "listen is not implemented")

	wtest.NotSending(t, f.Engine.Created)
}

func TestTransport_FilterAndCanDial(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true, nil)
	h := wcerttest.CertHash(t, wcerttest.SHA256Digest(t.Name()), mh.SHA2_256)
	id := f.Remote.ID

	addrs := []ma.Multiaddr{
		wcerttest.Multiaddr(t, "/ip4/1.2.3.4/udp/1234/webrtc/certhash/"+h),
		wcerttest.Multiaddr(t, fmt.Sprintf("/ip4/1.2.3.4/udp/1234/webrtc/certhash/%s/p2p/%s", h, id)),
		wcerttest.Multiaddr(t, "/ip4/1.2.3.4/udp/1234/webrtc/p2p/"+id.String()),
		wcerttest.Multiaddr(t, fmt.Sprintf("/ip4/1.2.3.4/udp/1234/certhash/%s/p2p/%s", h, id)),
	}

	got := f.Transport.Filter(addrs)
	require.Len(t, got, 1)
	require.True(t, got[0].Equal(addrs[1]))

	require.False(t, f.Transport.CanDial(addrs[0]))
	require.True(t, f.Transport.CanDial(addrs[1]))
}

func TestDialState_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "init", webrtcdirect.DialInit.String())
	require.Equal(t, "remote_description_set", webrtcdirect.DialRemoteDescriptionSet.String())
	require.Equal(t, "upgraded", webrtcdirect.DialUpgraded.String())
	require.Equal(t, "failed", webrtcdirect.DialFailed.String())
	require.Equal(t, "DialState(200)", webrtcdirect.DialState(200).String())

	require.True(t, webrtcdirect.DialUpgraded.Terminal())
	require.True(t, webrtcdirect.DialFailed.Terminal())
	require.False(t, webrtcdirect.DialDataChannelOpen.Terminal())
}
