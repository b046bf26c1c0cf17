// Command utp is the CLI driver: it negotiates a UTP connection over a
// real UDP socket, either as a listener or as an initiator, and hands the
// open session to a line-oriented chat front-end over stdin/stdout.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/utp-go/utp/core/events"
	"github.com/utp-go/utp/internal/chatio"
	"github.com/utp-go/utp/internal/config"
	"github.com/utp-go/utp/internal/endpoint"
	"github.com/utp-go/utp/internal/transport"
	"github.com/utp-go/utp/pkg/logger"
)

const version = "1.0.0"

// flagSet is the set of raw CLI flags shared by listen and connect;
// window/payload sizes are parsed as plain ints and narrowed to int16
// without range checks.
type flagSet struct {
	port        int
	wsize       int
	psize       int
	errorRate   int
	timerMicros int64
	trace       bool
}

func registerFlags(cmd *cobra.Command, fs *flagSet) {
	d := config.Defaults()
	cmd.Flags().IntVar(&fs.port, "port", d.Port, "UDP port")
	cmd.Flags().IntVar(&fs.wsize, "wsize", int(d.WindowSize), "window size (frames)")
	cmd.Flags().IntVar(&fs.psize, "psize", int(d.PayloadSize), "payload size (bytes)")
	cmd.Flags().IntVar(&fs.errorRate, "error", d.ErrorRate, "simulated link error rate percent (test only)")
	cmd.Flags().Int64Var(&fs.timerMicros, "timer", d.Timeout.Microseconds(), "resend/request timeout in microseconds")
	cmd.Flags().BoolVar(&fs.trace, "trace", false, "log every frame sent, received, resent or requested")
}

func (fs *flagSet) config() config.Config {
	cfg := config.Defaults()
	cfg.Port = fs.port
	cfg.WindowSize = int16(fs.wsize)
	cfg.PayloadSize = int16(fs.psize)
	cfg.ErrorRate = fs.errorRate
	cfg.Timeout = time.Duration(fs.timerMicros) * time.Microsecond
	cfg.Trace = fs.trace
	return cfg
}

func main() {
	root := &cobra.Command{
		Use:   "utp",
		Short: "Reliable peer-to-peer messaging transport over UDP",
	}

	listenFlags := &flagSet{}
	listenCmd := &cobra.Command{
		Use:     "listen",
		Aliases: []string{"server"},
		Short:   "Wait for an incoming connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListen(cmd, listenFlags.config())
		},
	}
	registerFlags(listenCmd, listenFlags)

	connectFlags := &flagSet{}
	connectCmd := &cobra.Command{
		Use:     "connect <host>",
		Aliases: []string{"client"},
		Short:   "Initiate a connection to a listening peer",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(cmd, args[0], connectFlags.config())
		},
	}
	registerFlags(connectCmd, connectFlags)

	root.AddCommand(listenCmd, connectCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runListen(cmd *cobra.Command, cfg config.Config) error {
	logger.Banner("UTP - Reliable P2P Transport", version)

	ep, err := endpoint.Listen(cfg.Port)
	if err != nil {
		logger.Fatal("listen: %v", err)
		return err
	}
	defer ep.Close()
	logger.Info("listening on %s", ep.LocalAddr())

	return runSession(cmd, ep, true, cfg)
}

func runConnect(cmd *cobra.Command, host string, cfg config.Config) error {
	logger.Banner("UTP - Reliable P2P Transport", version)

	ep, err := endpoint.Dial(host, cfg.Port)
	if err != nil {
		logger.Fatal("dial: %v", err)
		return err
	}
	defer ep.Close()
	logger.Info("connecting to %s", ep.RemoteAddr())

	return runSession(cmd, ep, false, cfg)
}

func runSession(cmd *cobra.Command, ep *endpoint.Endpoint, listener bool, cfg config.Config) error {
	seed := time.Now().UnixMicro()

	var sink events.Sink = events.Nop{}
	if cfg.Trace {
		traceLog := logrus.New()
		traceLog.SetLevel(logrus.TraceLevel)
		sink = events.Logrus{Log: traceLog}
	}

	sess, negotiated, ok := transport.Negotiate(cmd.Context(), ep, listener, cfg.WindowSize, cfg.PayloadSize, cfg.Timeout, seed, sink)
	if !ok {
		logger.Error("handshake did not complete")
		return nil
	}
	logger.Success("connected [%s]: window=%d payload=%d", sess.ConnID(), negotiated.Window, negotiated.Payload)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	runErr := make(chan error, 1)
	go func() { runErr <- sess.Run(ctx) }()

	go chatio.Run(ctx, sess, os.Stdin, os.Stdout)

	select {
	case sig := <-sigCh:
		logger.Warn("received signal: %v", sig)
		sess.Quit()
	case <-sess.Done():
	}

	<-runErr
	if sess.ClosedCleanly() {
		logger.Success("teardown accepted")
	} else {
		logger.Warn("teardown finished due to timeout")
	}
	return nil
}
