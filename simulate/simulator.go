// Package simulate dry-runs constructed transactions against a disposable fork
// of chain state, or falls back to a lightweight fee-only check when forking is
// unavailable, and classifies failures as fatal or ignorable.
package simulate

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dotbot/transfer-lib/common/types"
)

// Simulator predicts the outcome of a transaction without broadcasting it.
// Simulation-environment problems never surface as errors; only the
// transaction's own semantics do, through the outcome's failure class.
type Simulator struct {
	session  types.ChainSession
	fork     types.ForkBackend
	provider types.EndpointProvider
	chain    string
	logger   *logrus.Logger

	// feeIgnorePolicy holds, per chain, message substrings for fee-estimation
	// phase failures known to be false positives. The list is deliberately
	// empty by default and must be curated empirically per target chain.
	feeIgnorePolicy map[string][]string
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithForkBackend enables the fork path using the given backend and endpoint
// provider for the named chain.
func WithForkBackend(fork types.ForkBackend, provider types.EndpointProvider, chain string) Option {
	return func(s *Simulator) {
		s.fork = fork
		s.provider = provider
		s.chain = chain
	}
}

// WithFeeIgnorePolicy registers fee-estimation-phase failure substrings that
// are known false positives for the named chain. They are swallowed only for
// that phase, never for dry-run execution.
func WithFeeIgnorePolicy(chain string, substrings ...string) Option {
	return func(s *Simulator) {
		s.feeIgnorePolicy[chain] = append(s.feeIgnorePolicy[chain], substrings...)
	}
}

// New creates a new simulator. Without a fork backend only the fee-only
// fallback path is available.
//
// Parameters:
// - session: the active chain session.
// - logger: the logger for logging purposes.
// - opts: optional configuration.
//
// Returns:
// - *Simulator: the new simulator instance.
func New(session types.ChainSession, logger *logrus.Logger, opts ...Option) *Simulator {
	s := &Simulator{
		session:         session,
		logger:          logger,
		feeIgnorePolicy: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulate dry-runs the extrinsic for the given sender.
//
// Parameters:
// - ctx: the context for managing the request.
// - ext: the constructed extrinsic.
// - sender: the sender address.
//
// Returns:
// - *types.SimulationOutcome: the predicted outcome; Success is false only when
//   the transaction itself would be rejected by the chain.
// - error: only a context error; environment problems degrade to the fallback path.
func (s *Simulator) Simulate(ctx context.Context, ext types.Extrinsic, sender string) (*types.SimulationOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.fork != nil && s.provider != nil {
		outcome, ok := s.simulateOnFork(ctx, ext, sender)
		if ok {
			return outcome, nil
		}
		// Fork unavailable; degrade to the fee-only check.
	}

	return s.simulateFeeOnly(ctx, ext, sender), nil
}

// simulateOnFork runs the fork path. ok is false when the fork environment
// itself is unavailable and the caller should fall back.
func (s *Simulator) simulateOnFork(ctx context.Context, ext types.Extrinsic, sender string) (*types.SimulationOutcome, bool) {
	endpoints, err := s.provider.Endpoints(ctx, s.chain)
	if err != nil {
		s.logger.WithField("chain", s.chain).WithError(err).
			Warn("Endpoint provider unavailable, falling back to fee-only simulation")
		return nil, false
	}

	ordered := OrderEndpoints(endpoints, time.Now())
	if len(ordered) == 0 {
		s.logger.WithField("chain", s.chain).
			Warn("No usable endpoints for fork simulation, falling back to fee-only")
		return nil, false
	}

	result, err := s.fork.DryRun(ctx, EndpointURLs(ordered), ext, sender)
	if err != nil {
		s.logger.WithField("chain", s.chain).WithError(err).
			Warn("Fork backend failed, falling back to fee-only simulation")
		return nil, false
	}

	if result.Success {
		return &types.SimulationOutcome{
			Success:       true,
			EstimatedFee:  result.Fee,
			BalanceDeltas: result.BalanceDeltas,
			ForkUsed:      true,
		}, true
	}

	// The fee-estimation phase has a narrow, enumerated ignore policy; known
	// false positives there do not affect transaction validity. Dry-run
	// execution failures are never ignored.
	if result.Phase == types.PhaseFeeEstimation && s.ignorableFeeError(result.Error) {
		s.logger.WithFields(logrus.Fields{
			"chain": s.chain,
			"error": result.Error,
		}).Info("Ignoring known fee-estimation false positive")
		return &types.SimulationOutcome{
			Success:  true,
			ForkUsed: true,
		}, true
	}

	class, message := classify(result.Error)
	s.logger.WithFields(logrus.Fields{
		"chain": s.chain,
		"class": class,
		"error": result.Error,
	}).Warn("Fork simulation classified transaction as fatal")

	return &types.SimulationOutcome{
		Success:  false,
		Class:    class,
		Error:    message,
		ForkUsed: true,
	}, true
}

// simulateFeeOnly estimates the fee without executing. Estimation failures are
// tolerated and swallowed: some runtimes reject fee estimation for unsigned
// inputs without this implying the real transaction would fail.
func (s *Simulator) simulateFeeOnly(ctx context.Context, ext types.Extrinsic, sender string) *types.SimulationOutcome {
	fee, err := s.session.EstimateFee(ctx, ext, sender)
	if err != nil {
		s.logger.WithError(err).Debug("Fee estimation failed, treating as inconclusive")
		return &types.SimulationOutcome{Success: true}
	}
	return &types.SimulationOutcome{Success: true, EstimatedFee: fee}
}

func (s *Simulator) ignorableFeeError(message string) bool {
	lower := strings.ToLower(message)
	for _, substring := range s.feeIgnorePolicy[s.chain] {
		if strings.Contains(lower, strings.ToLower(substring)) {
			return true
		}
	}
	return false
}
