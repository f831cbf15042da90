package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gordian-engine/webrtcdirect/wcert"
	"github.com/gordian-engine/webrtcdirect/wcert/wcerttest"
	mh "github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	t.Parallel()

	id := wcerttest.NewIdentity(t)
	digest := wcerttest.SHA256Digest(t.Name())
	h := wcerttest.CertHash(t, digest, mh.SHA2_256)
	addr := wcerttest.DialableAddr(t, "192.168.0.1", 40000, h, id.ID)

	var stdout, stderr bytes.Buffer
	err := newApp(&stdout, &stderr).Run([]string{"webrtcdirect", "inspect", addr.String()})
	require.NoError(t, err)

	fp, err := wcert.Derive(h)
	require.NoError(t, err)

	out := stdout.String()
	require.Contains(t, out, "ip_version: IP4\n")
	require.Contains(t, out, "host: 192.168.0.1\n")
	require.Contains(t, out, "port: 40000\n")
	require.Contains(t, out, "peer: "+id.ID.String()+"\n")
	require.Contains(t, out, "fingerprint: "+fp.String()+"\n")
	require.Contains(t, out, "dialable: true\n")
}

func TestAnswer(t *testing.T) {
	t.Parallel()

	h := wcerttest.CertHash(t, wcerttest.SHA256Digest(t.Name()), mh.SHA2_256)
	addr := "/ip4/10.1.2.3/udp/9999/webrtc-direct/certhash/" + h

	var stdout, stderr bytes.Buffer
	err := newApp(&stdout, &stderr).Run([]string{"webrtcdirect", "answer", addr})
	require.NoError(t, err)

	out := stdout.String()
	require.True(t, strings.HasPrefix(out, "v=0\n"))
	require.Contains(t, out, "a=candidate:1467250027 1 UDP 1467250027 10.1.2.3 9999 typ host\n")
}

func TestAnswer_missingArgument(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := newApp(&stdout, &stderr).Run([]string{"webrtcdirect", "answer"})
	require.Error(t, err)
}
