package endpointstore

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dotbot/transfer-lib/common/types"
)

const (
	// defaultCheckInterval defines the interval between session health checks.
	defaultCheckInterval = 30 * time.Second
	// checkTimeout bounds a single readiness probe.
	checkTimeout = 5 * time.Second
)

// SessionMonitor periodically probes a chain session and records the outcome
// into the health tracker for the session's configured endpoint.
type SessionMonitor struct {
	session  types.ChainSession
	tracker  *Tracker
	logger   *logrus.Logger
	chain    string
	url      string
	interval time.Duration

	stopChan     chan struct{}
	isMonitoring bool
	monitorMutex sync.RWMutex
}

// MonitorOption configures a SessionMonitor.
type MonitorOption func(*SessionMonitor)

// WithCheckInterval overrides the probe interval.
func WithCheckInterval(interval time.Duration) MonitorOption {
	return func(m *SessionMonitor) { m.interval = interval }
}

// NewSessionMonitor creates a new session monitor instance.
//
// Parameters:
// - session: the chain session to probe.
// - tracker: the health tracker receiving observations.
// - logger: the logger for logging purposes.
// - chain: the chain name.
// - url: the endpoint URL the session is connected to.
// - opts: optional configuration.
//
// Returns:
// - *SessionMonitor: the new session monitor instance.
func NewSessionMonitor(session types.ChainSession, tracker *Tracker, logger *logrus.Logger,
	chain, url string, opts ...MonitorOption) *SessionMonitor {
	m := &SessionMonitor{
		session:  session,
		tracker:  tracker,
		logger:   logger,
		chain:    chain,
		url:      url,
		interval: defaultCheckInterval,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start starts session monitoring.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - error: an error if the monitor is already running.
func (m *SessionMonitor) Start(ctx context.Context) error {
	m.monitorMutex.Lock()
	if m.isMonitoring {
		m.monitorMutex.Unlock()
		return errors.Errorf("session monitor is already running for chain %s", m.chain)
	}
	m.isMonitoring = true
	m.monitorMutex.Unlock()

	go m.monitorSession(ctx)
	return nil
}

// Stop stops session monitoring.
func (m *SessionMonitor) Stop() {
	m.monitorMutex.Lock()
	defer m.monitorMutex.Unlock()

	if !m.isMonitoring {
		return
	}

	close(m.stopChan)
	m.isMonitoring = false
}

// monitorSession probes the session on a ticker until stopped.
func (m *SessionMonitor) monitorSession(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.WithField("chain", m.chain).Info("Session monitoring stopped due to context cancellation")
			return

		case <-m.stopChan:
			m.logger.WithField("chain", m.chain).Info("Session monitoring stopped")
			return

		case <-ticker.C:
			m.checkOnce(ctx)
		}
	}
}

// checkOnce runs one bounded readiness probe and records the outcome.
func (m *SessionMonitor) checkOnce(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := m.session.Ready(probeCtx); err != nil {
		m.logger.WithFields(logrus.Fields{
			"chain": m.chain,
			"url":   m.url,
		}).WithError(err).Warn("Session health check failed")
		m.tracker.ReportFailure(m.chain, m.url)
		return
	}
	m.tracker.ReportSuccess(m.chain, m.url)
}
