// Package app wires the credential store, transport, refresh coordinator,
// executor, offline queue and reachability monitor into one client.
package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/dvcrn/httpkit/internal/auth"
	"github.com/dvcrn/httpkit/internal/config"
	"github.com/dvcrn/httpkit/internal/credentials"
	"github.com/dvcrn/httpkit/internal/netstatus"
	"github.com/dvcrn/httpkit/internal/offline"
	"github.com/dvcrn/httpkit/internal/request"
	"github.com/dvcrn/httpkit/internal/transport"
)

// ErrQueuedOffline is returned by DoOrQueue when the request could not be
// sent and has been queued for replay once the network returns. The queued
// replay's eventual outcome is logged, never surfaced to this caller.
var ErrQueuedOffline = errors.New("request queued for replay when network returns")

type Client struct {
	cfg      config.Config
	executor *request.Executor
	queue    *offline.Queue
	monitor  *netstatus.Monitor
	prober   *netstatus.Prober
	logger   zerolog.Logger
}

func NewClient(cfg config.Config, store credentials.Store, tr transport.Transport, logger zerolog.Logger) *Client {
	coordinator := auth.NewCoordinator(store, tr, cfg.RefreshURL(), logger)

	executor := request.NewExecutor(store, tr, coordinator, logger)
	executor.SetBackoff(cfg.Request.BackoffBase.Std(), cfg.Request.BackoffCap.Std())

	queue := offline.NewQueueWithConfig(cfg.Queue.Capacity, cfg.Queue.RedrainDelay.Std(), logger)

	monitor := netstatus.NewMonitor()
	probeURL := cfg.Probe.URL
	if probeURL == "" {
		probeURL = cfg.BaseURL
	}
	prober := netstatus.NewProber(monitor, tr, probeURL, cfg.Probe.Interval.Std(), logger)

	monitor.OnReconnect(func() {
		logger.Info().Msg("Network restored, draining offline queue")
		go queue.Drain(context.Background())
	})

	return &Client{
		cfg:      cfg,
		executor: executor,
		queue:    queue,
		monitor:  monitor,
		prober:   prober,
		logger:   logger,
	}
}

// Start launches reachability probing. Without it the monitor stays in the
// unknown state and the queue only drains on manual Drain calls.
func (c *Client) Start() {
	c.prober.Start()
}

func (c *Client) Close() {
	c.prober.Close()
}

func (c *Client) Monitor() *netstatus.Monitor {
	return c.monitor
}

func (c *Client) Queue() *offline.Queue {
	return c.queue
}

// Do executes one request through the pipeline, filling unset spec fields
// from the configuration.
func (c *Client) Do(ctx context.Context, spec request.RequestSpec) (*transport.Response, error) {
	if spec.Timeout == 0 {
		spec.Timeout = c.cfg.Request.Timeout.Std()
	}
	if spec.MaxRetries == 0 {
		spec.MaxRetries = c.cfg.Request.MaxRetries
	}
	return c.executor.Execute(ctx, spec)
}

// DoOrQueue executes a side-effecting request, falling back to the offline
// queue when the network is unavailable. A request issued while the monitor
// already reports disconnected is queued without burning retries.
func (c *Client) DoOrQueue(ctx context.Context, spec request.RequestSpec) (*transport.Response, error) {
	if c.monitor.Current().State == netstatus.Disconnected {
		c.enqueue(spec)
		return nil, ErrQueuedOffline
	}

	resp, err := c.Do(ctx, spec)
	if errors.Is(err, transport.ErrNetworkUnavailable) {
		c.enqueue(spec)
		return nil, ErrQueuedOffline
	}
	return resp, err
}

func (c *Client) enqueue(spec request.RequestSpec) {
	c.logger.Info().
		Str("method", spec.Method).
		Str("url", spec.URL).
		Msg("Network unavailable, queueing request for replay")
	c.queue.EnqueueWithRetries(func(ctx context.Context) error {
		_, err := c.Do(ctx, spec)
		return err
	}, c.cfg.Queue.MaxRetries)
}
