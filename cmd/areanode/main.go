// AreaNode - Sharded Game World Cache and Dispatch Node
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/areanode

// Command areanode runs one processor node: the spatial object cache for a
// single area, its tick updater, the request-dispatch worker pool, an
// optional outbound broker link, and the admin HTTP surface.
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
	"github.com/tomtom215/areanode/internal/auth"
	"github.com/tomtom215/areanode/internal/cache"
	"github.com/tomtom215/areanode/internal/config"
	"github.com/tomtom215/areanode/internal/idalloc"
	"github.com/tomtom215/areanode/internal/logging"
	"github.com/tomtom215/areanode/internal/model"
	"github.com/tomtom215/areanode/internal/node"
	"github.com/tomtom215/areanode/internal/store"
	"github.com/tomtom215/areanode/internal/supervisor"
	"github.com/tomtom215/areanode/internal/supervisor/services"
	"github.com/tomtom215/areanode/internal/transport"
	"github.com/tomtom215/areanode/internal/updater"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file; optional")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "areanode: config:", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log := logging.With().Str("area_id", fmt.Sprint(cfg.Server.AreaID)).Logger()

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	bounds := cache.Bounds{
		StartX:    cfg.Server.BoundsStartX,
		StartY:    cfg.Server.BoundsStartY,
		EndX:      cfg.Server.BoundsEndX,
		EndY:      cfg.Server.BoundsEndY,
		LOSRadius: cfg.Server.LOSRadius,
	}
	worldCache := cache.New(bounds, log)

	allocator := idalloc.New(db.Conn())
	_ = allocator // identifiers are claimed by concrete handlers, out of scope here

	cacheUpdater := updater.NewCacheUpdater(worldCache, noopHandler, cfg.Server.TickInterval, cfg.Server.UpdatesPerTick, log)

	n := node.New(cfg.Server.Workers, cfg.Server.AreaID, db, log)
	// Concrete handler registration is an external collaborator per
	// spec.md §1; a deployment wires its own handlers here with
	// n.RegisterHandler(category, method, authenticated, factory).

	pool := node.NewPool(n, cfg.Server.Workers*4, log)

	var verifier *auth.Verifier
	if cfg.Security.JWTSecret != "" {
		verifier, err = auth.NewVerifier([]byte(cfg.Security.JWTSecret), cfg.Security.RevokedCapacity, cfg.Security.RevokedTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("construct auth verifier")
		}
	}

	wsMux := http.NewServeMux()
	wsMux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := transport.Upgrade(w, r, cfg.Security.InboundFramesPerSec, cfg.Security.InboundBurst, verifier)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		go serveConnection(r.Context(), conn, pool, n, log)
	})
	wsServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.WSPort), Handler: wsMux}

	adminServer := &http.Server{Addr: cfg.Admin.Addr, Handler: admin.NewRouter(nil)}

	tree := supervisor.NewTree(slogBridge(), supervisor.DefaultTreeConfig())
	for _, w := range pool.Workers() {
		tree.AddDispatchService(w)
	}
	tree.AddUpdaterService(cacheUpdater)
	tree.AddAdminService(services.NewHTTPServerService(adminServer, 10*time.Second))
	tree.AddDispatchService(services.NewHTTPServerService(wsServer, 10*time.Second))

	if cfg.Broker.Address != "" && cfg.Server.AreaID != 0 {
		brokerConn, err := dialBroker(cfg.Broker.Address, cfg.Broker.Port)
		if err != nil {
			log.Error().Err(err).Msg("connect to broker; continuing in standalone mode")
		} else if err := n.SetBrokerConnection(context.Background(), brokerConn); err != nil {
			log.Error().Err(err).Msg("register with broker")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Int("tcp_port", cfg.Server.TCPPort).Int("ws_port", cfg.Server.WSPort).Msg("areanode starting")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("supervisor tree exited")
	}
}

// noopHandler is the default tick handler used when no concrete entity
// behaviors have been registered; deployments replace this with a
// dispatch table keyed by the object's behavior tag.
func noopHandler(obj *model.Object, delta time.Duration) (*model.Object, error) {
	return obj, nil
}

func serveConnection(ctx context.Context, conn *transport.WSConnection, pool *node.Pool, n *node.Node, log zerolog.Logger) {
	defer func() {
		n.OnDisconnect(conn)
		_ = conn.Close()
	}()
	for frame := range conn.Frames() {
		if len(frame) < 2 {
			continue
		}
		req := node.Request{Conn: conn, Category: frame[0], Method: frame[1], Parameters: frame[2:]}
		if err := pool.Submit(ctx, req); err != nil {
			log.Warn().Err(err).Msg("dispatch queue full, dropping request")
		}
	}
}

func dialBroker(address string, port int) (transport.Connection, error) {
	conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", address, port))
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	return transport.NewTCPConnection(conn), nil
}

func slogBridge() *slog.Logger {
	return slog.New(logging.NewSlogHandler())
}
