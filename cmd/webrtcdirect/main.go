// Command webrtcdirect inspects WebRTC direct addresses and dials them.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/gordian-engine/webrtcdirect"
	"github.com/gordian-engine/webrtcdirect/waddr"
	"github.com/gordian-engine/webrtcdirect/wcert"
	"github.com/gordian-engine/webrtcdirect/wrtc"
	"github.com/gordian-engine/webrtcdirect/wsdp"
	"github.com/libp2p/go-libp2p/core/crypto"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:  "webrtcdirect",
		Usage: "inspect and dial WebRTC direct multiaddrs",

		Writer:    stdout,
		ErrWriter: stderr,

		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log at debug level",
			},
		},

		Commands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "print the decoded fields of an address",
				ArgsUsage: "ADDR",
				Action:    inspect,
			},
			{
				Name:      "answer",
				Usage:     "print the SDP answer that would be synthesized for an address",
				ArgsUsage: "ADDR",
				Action:    answer,
			},
			{
				Name:      "dial",
				Usage:     "dial an address with a fresh identity, then close the connection",
				ArgsUsage: "ADDR",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "overall dial timeout",
						Value: 30 * time.Second,
					},
				},
				Action: dial,
			},
		},
	}
}

func logger(c *cli.Context) *slog.Logger {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))
}

func addrArg(c *cli.Context) (ma.Multiaddr, error) {
	if c.NArg() != 1 {
		return nil, errors.New("expected exactly one ADDR argument")
	}

	a, err := ma.NewMultiaddr(c.Args().First())
	if err != nil {
		return nil, fmt.Errorf("failed to parse address: %w", err)
	}
	return a, nil
}

func inspect(c *cli.Context) error {
	a, err := addrArg(c)
	if err != nil {
		return err
	}

	d, err := waddr.Decode(logger(c), a)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "ip_version: %s\n", d.IPVersion)
	fmt.Fprintf(w, "host: %s\n", d.Host)
	fmt.Fprintf(w, "port: %d\n", d.Port)

	if id, err := waddr.PeerID(a); err == nil {
		fmt.Fprintf(w, "peer: %s\n", id)
	} else {
		fmt.Fprintf(w, "peer: (%v)\n", err)
	}

	if h, err := waddr.CertHash(a); err == nil {
		fp, err := wcert.Derive(h)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "fingerprint: %s\n", fp)
	} else {
		fmt.Fprintf(w, "fingerprint: (%v)\n", err)
	}

	fmt.Fprintf(w, "dialable: %t\n", waddr.IsDialable(a))
	return nil
}

func answer(c *cli.Context) error {
	a, err := addrArg(c)
	if err != nil {
		return err
	}

	desc, err := wsdp.SynthesizeAnswer(logger(c), a, wsdp.NewUfrag())
	if err != nil {
		return err
	}

	_, err = io.WriteString(c.App.Writer, desc.SDP)
	return err
}

func dial(c *cli.Context) error {
	a, err := addrArg(c)
	if err != nil {
		return err
	}

	log := logger(c)

	key, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate identity: %w", err)
	}

	t, err := webrtcdirect.NewTransport(log, webrtcdirect.TransportConfig{
		Identity: key,
		Engine:   wrtc.NewPionEngine(log.With("sys", "pion")),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	conn, err := t.Dial(ctx, a)
	if err != nil {
		return err
	}
	defer conn.Close()

	w := c.App.Writer
	fmt.Fprintf(w, "connected: %s\n", conn.ID())
	fmt.Fprintf(w, "local_peer: %s\n", conn.LocalPeer())
	fmt.Fprintf(w, "remote_peer: %s\n", conn.RemotePeer())
	for _, st := range conn.Timeline() {
		fmt.Fprintf(w, "  %s %s\n", st.At.Format(time.RFC3339Nano), st.State)
	}

	return nil
}
