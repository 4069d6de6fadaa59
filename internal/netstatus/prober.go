package netstatus

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvcrn/httpkit/internal/transport"
)

const (
	// DefaultProbeInterval spaces out reachability checks.
	DefaultProbeInterval = 30 * time.Second
	probeTimeout         = 5 * time.Second
)

// Prober feeds a Monitor by periodically issuing a HEAD request against a
// reachability URL. Any completed exchange counts as connected regardless of
// status; only transport-level failures mark the network unavailable.
type Prober struct {
	monitor   *Monitor
	transport transport.Transport
	url       string
	interval  time.Duration
	logger    zerolog.Logger
	stopCh    chan struct{}
}

func NewProber(monitor *Monitor, tr transport.Transport, url string, interval time.Duration, logger zerolog.Logger) *Prober {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &Prober{
		monitor:   monitor,
		transport: tr,
		url:       url,
		interval:  interval,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the probe loop. The first probe runs immediately so the
// monitor leaves the unknown state without waiting a full interval.
func (p *Prober) Start() {
	go p.loop()
}

func (p *Prober) loop() {
	p.probe()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.probe()
		case <-p.stopCh:
			p.logger.Debug().Msg("Reachability probing stopped")
			return
		}
	}
}

func (p *Prober) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	_, err := p.transport.Send(ctx, http.MethodHead, p.url, nil, nil)
	if err != nil {
		p.logger.Debug().Err(err).Msg("Reachability probe failed")
		p.monitor.SetStatus(Status{State: Disconnected})
		return
	}
	p.monitor.SetStatus(Status{State: Connected})
}

// Close stops the probe loop.
func (p *Prober) Close() {
	close(p.stopCh)
}
