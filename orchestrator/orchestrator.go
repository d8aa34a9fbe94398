// Package orchestrator turns ordered, declaratively described steps into
// execution queue items by resolving each step to a registered builder.
// Builders are registered by name into a static registry and validated at
// registration time; an unknown builder or operation is a data error, never a
// runtime dispatch failure.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dotbot/transfer-lib/common/types"
	"github.com/dotbot/transfer-lib/queue"
)

// StepBuilder prepares execution items for its declared operations.
type StepBuilder interface {
	// Operations lists the operation names this builder accepts.
	Operations() []string

	// Prepare builds one execution item for the named operation.
	Prepare(ctx context.Context, operation string, params map[string]interface{}) (*types.ExecutionItem, error)
}

// Factory creates a builder instance. Called at most once per registered name
// per orchestrator; the instance is cached and reused across steps.
type Factory func() (StepBuilder, error)

// Registry maps builder names to factories. Registration is validated; lookups
// after that point cannot hit a malformed entry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty builder registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a named builder factory.
//
// Parameters:
// - name: the builder name referenced by steps.
// - factory: the factory creating the builder instance.
//
// Returns:
// - error: if the name is empty, the factory is nil, or the name is taken.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return errors.New("builder name must not be empty")
	}
	if factory == nil {
		return errors.Errorf("builder %q registered with nil factory", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return errors.Errorf("builder %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// MustRegister is Register that panics on error, for static initialization.
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

func (r *Registry) factory(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[name]
	return factory, ok
}

// Step is one abstract unit of work: a builder name, an operation that builder
// understands, and the operation parameters.
type Step struct {
	Builder   string
	Operation string
	Params    map[string]interface{}
}

// StepError ties a failure to the step that produced it.
type StepError struct {
	Step    int
	Builder string
	Message string
}

// Error returns the formatted step error.
func (e StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %s", e.Step, e.Builder, e.Message)
}

// Result reports what an Execute call achieved: the queue item identities of
// successful steps plus every failure encountered.
type Result struct {
	ItemIDs []string
	Errors  []StepError
}

// Orchestrator resolves steps against a registry and feeds the execution queue.
type Orchestrator struct {
	registry *Registry
	queue    *queue.Queue
	logger   *logrus.Logger

	stopOnFirstError bool

	mu        sync.Mutex
	instances map[string]StepBuilder
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStopOnFirstError aborts an Execute run after the first failing step
// instead of continuing and collecting all failures.
func WithStopOnFirstError() Option {
	return func(o *Orchestrator) { o.stopOnFirstError = true }
}

// New creates a new orchestrator.
//
// Parameters:
// - registry: the builder registry.
// - q: the execution queue receiving prepared items.
// - logger: the logger for logging purposes.
// - opts: optional configuration.
//
// Returns:
// - *Orchestrator: the new orchestrator instance.
func New(registry *Registry, q *queue.Queue, logger *logrus.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:  registry,
		queue:     q,
		logger:    logger,
		instances: make(map[string]StepBuilder),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Plan validates all steps without executing any, so a caller can inspect
// every problem before deciding whether to proceed.
//
// Parameters:
// - steps: the ordered steps to validate.
//
// Returns:
// - []StepError: one entry per invalid step; empty when the plan is sound.
func (o *Orchestrator) Plan(steps []Step) []StepError {
	var stepErrors []StepError
	for i, step := range steps {
		if err := o.validateStep(step); err != nil {
			stepErrors = append(stepErrors, StepError{Step: i, Builder: step.Builder, Message: err.Error()})
		}
	}
	return stepErrors
}

func (o *Orchestrator) validateStep(step Step) error {
	if len(step.Params) == 0 {
		return errors.New("step carries no parameters")
	}

	builder, err := o.builderFor(step.Builder)
	if err != nil {
		return err
	}

	for _, op := range builder.Operations() {
		if op == step.Operation {
			return nil
		}
	}
	return errors.Errorf("builder %q has no operation %q", step.Builder, step.Operation)
}

// Execute validates the whole plan, then runs it step by step, appending each
// prepared item to the queue. Planning problems abort the run before any step
// executes. In the default mode a failing step is recorded and the run
// continues; with stop-on-first-error the run aborts at the first failure.
//
// Parameters:
// - ctx: the context for managing the run.
// - steps: the ordered steps to execute.
//
// Returns:
// - *Result: successful item identities and collected failures.
// - error: only a context error.
func (o *Orchestrator) Execute(ctx context.Context, steps []Step) (*Result, error) {
	if planErrors := o.Plan(steps); len(planErrors) > 0 {
		return &Result{Errors: planErrors}, nil
	}

	result := &Result{}
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		item, err := o.runStep(ctx, step)
		if err != nil {
			o.logger.WithFields(logrus.Fields{
				"step":      i,
				"builder":   step.Builder,
				"operation": step.Operation,
			}).WithError(err).Warn("Step preparation failed")

			result.Errors = append(result.Errors, StepError{Step: i, Builder: step.Builder, Message: err.Error()})
			if o.stopOnFirstError {
				return result, nil
			}
			continue
		}

		o.queue.Add(item)
		result.ItemIDs = append(result.ItemIDs, item.ID)
	}
	return result, nil
}

func (o *Orchestrator) runStep(ctx context.Context, step Step) (*types.ExecutionItem, error) {
	builder, err := o.builderFor(step.Builder)
	if err != nil {
		return nil, err
	}

	item, err := builder.Prepare(ctx, step.Operation, step.Params)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, errors.Errorf("builder %q returned no item for operation %q", step.Builder, step.Operation)
	}
	return item, nil
}

// builderFor resolves and caches the instance for a named builder.
func (o *Orchestrator) builderFor(name string) (StepBuilder, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if instance, ok := o.instances[name]; ok {
		return instance, nil
	}

	factory, ok := o.registry.factory(name)
	if !ok {
		return nil, errors.Errorf("unknown builder %q", name)
	}

	instance, err := factory()
	if err != nil {
		return nil, errors.Wrapf(err, "creating builder %q", name)
	}
	o.instances[name] = instance
	return instance, nil
}
