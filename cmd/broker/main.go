// AreaNode - Sharded Game World Cache and Dispatch Node
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/areanode

// Command broker runs the inter-area message switch: it accepts one
// long-lived TCP connection per area node, routes forwarded payloads by
// target area identifier, and exposes the same admin HTTP surface as an
// area node.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/areanode/internal/admin"
	"github.com/tomtom215/areanode/internal/broker"
	"github.com/tomtom215/areanode/internal/config"
	"github.com/tomtom215/areanode/internal/logging"
	"github.com/tomtom215/areanode/internal/supervisor"
	"github.com/tomtom215/areanode/internal/supervisor/services"
	"github.com/tomtom215/areanode/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file; optional")
	listenPort := flag.Int("port", 0, "TCP port to accept node links on; overrides broker.port from config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "broker: config:", err)
		os.Exit(1)
	}
	if *listenPort != 0 {
		cfg.Broker.Port = *listenPort
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log := logging.With().Str("component", "broker").Logger()

	node := broker.New(log)
	frames := make(chan broker.Frame, 256)
	svc := broker.NewService(node, frames, log)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Broker.Port))
	if err != nil {
		log.Fatal().Err(err).Msg("listen")
	}

	adminServer := &http.Server{Addr: cfg.Admin.Addr, Handler: admin.NewRouter(nil)}

	tree := supervisor.NewTree(slog.New(logging.NewSlogHandler()), supervisor.DefaultTreeConfig())
	tree.AddBrokerService(svc)
	tree.AddAdminService(services.NewHTTPServerService(adminServer, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go acceptLoop(ctx, listener, node, frames, log)

	log.Info().Int("port", cfg.Broker.Port).Msg("broker starting")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("supervisor tree exited")
	}
	_ = listener.Close()
}

// acceptLoop accepts node links and decodes each inbound frame's leading
// two bytes as (category, method) before handing the remainder to the
// broker service's frame channel, mirroring the dispatch node's own wire
// framing so a single link protocol serves both roles.
func acceptLoop(ctx context.Context, listener net.Listener, node *broker.Node, frames chan<- broker.Frame, log zerolog.Logger) {
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Msg("accept")
			continue
		}
		tcpConn := transport.NewTCPConnection(conn)
		go readConnection(ctx, tcpConn, node, frames, log)
	}
}

func readConnection(ctx context.Context, conn *transport.TCPConnection, node *broker.Node, frames chan<- broker.Frame, log zerolog.Logger) {
	defer func() {
		node.OnDisconnect(conn)
		_ = conn.Close()
	}()
	for frame := range conn.Frames() {
		if len(frame) < 2 {
			continue
		}
		select {
		case frames <- broker.Frame{Conn: conn, Category: frame[0], Method: frame[1], Payload: frame[2:]}:
		case <-ctx.Done():
			return
		}
	}
}
