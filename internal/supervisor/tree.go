// AreaNode - Sharded Game World Cache and Dispatch Node
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/areanode

// Package supervisor wires the node's long-running services — the worker
// pool, the tick updater, the broker's frame-dispatch loop, and the admin
// HTTP surface —
// into a restart-isolated suture tree, so a crash in one layer never takes
// down the others.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

// DefaultTreeConfig returns suture's documented defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree is organized into four layers:
//   - dispatch: the processor node's per-worker request handlers
//   - updater: the tick-driven list/cache updater services
//   - broker: the broker process's frame-dispatch service
//   - admin: the liveness/readiness/metrics HTTP surface
//
// Isolating admin from dispatch means /healthz keeps answering even while
// dispatch workers are backed off after repeated failures.
type Tree struct {
	root     *suture.Supervisor
	dispatch *suture.Supervisor
	updater  *suture.Supervisor
	broker   *suture.Supervisor
	admin    *suture.Supervisor
	logger   *slog.Logger
	config   TreeConfig
}

// NewTree creates a new supervisor tree with the given configuration.
func NewTree(logger *slog.Logger, config TreeConfig) *Tree {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5.0
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = 30.0
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = 15 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	handler := &sutureslog.Handler{Logger: logger}
	eventHook := handler.MustHook()

	rootSpec := suture.Spec{
		EventHook:        eventHook,
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("areanode", rootSpec)
	dispatch := suture.New("dispatch-layer", childSpec)
	updater := suture.New("updater-layer", childSpec)
	broker := suture.New("broker-layer", childSpec)
	admin := suture.New("admin-layer", childSpec)

	root.Add(dispatch)
	root.Add(updater)
	root.Add(broker)
	root.Add(admin)

	return &Tree{
		root:     root,
		dispatch: dispatch,
		updater:  updater,
		broker:   broker,
		admin:    admin,
		logger:   logger,
		config:   config,
	}
}

// AddDispatchService adds a service to the dispatch layer.
func (t *Tree) AddDispatchService(svc suture.Service) suture.ServiceToken {
	return t.dispatch.Add(svc)
}

// AddUpdaterService adds a service to the updater layer.
func (t *Tree) AddUpdaterService(svc suture.Service) suture.ServiceToken {
	return t.updater.Add(svc)
}

// AddBrokerService adds a service to the broker layer.
func (t *Tree) AddBrokerService(svc suture.Service) suture.ServiceToken {
	return t.broker.Add(svc)
}

// AddAdminService adds a service to the admin layer.
func (t *Tree) AddAdminService(svc suture.Service) suture.ServiceToken {
	return t.admin.Add(svc)
}

// Serve starts the tree and blocks until ctx is canceled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the tree in a background goroutine.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport reports services that failed to stop within the
// configured shutdown timeout.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
