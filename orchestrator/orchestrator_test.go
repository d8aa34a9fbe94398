package orchestrator

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotbot/transfer-lib/common/types"
	"github.com/dotbot/transfer-lib/queue"
)

type fakeBuilder struct {
	operations []string
	prepareErr error
	created    int
	prepared   []string
}

func (b *fakeBuilder) Operations() []string { return b.operations }

func (b *fakeBuilder) Prepare(ctx context.Context, operation string, params map[string]interface{}) (*types.ExecutionItem, error) {
	if b.prepareErr != nil {
		return nil, b.prepareErr
	}
	b.prepared = append(b.prepared, operation)
	return queue.NewFuncItem(types.KindQuery, operation, func(ctx context.Context) error { return nil }), nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newFixture(t *testing.T, builder *fakeBuilder) (*Orchestrator, *queue.Queue) {
	t.Helper()
	registry := NewRegistry()
	require.NoError(t, registry.Register("transfer", func() (StepBuilder, error) {
		builder.created++
		return builder, nil
	}))
	q := queue.New(testLogger())
	return New(registry, q, testLogger()), q
}

func transferStep(operation string) Step {
	return Step{Builder: "transfer", Operation: operation, Params: map[string]interface{}{"to": "addr"}}
}

func TestRegisterValidation(t *testing.T) {
	registry := NewRegistry()

	assert.Error(t, registry.Register("", func() (StepBuilder, error) { return nil, nil }))
	assert.Error(t, registry.Register("transfer", nil))

	require.NoError(t, registry.Register("transfer", func() (StepBuilder, error) { return &fakeBuilder{}, nil }))
	assert.Error(t, registry.Register("transfer", func() (StepBuilder, error) { return &fakeBuilder{}, nil }))
}

func TestPlanCollectsAllProblems(t *testing.T) {
	builder := &fakeBuilder{operations: []string{"send"}}
	o, _ := newFixture(t, builder)

	steps := []Step{
		transferStep("send"),
		{Builder: "missing", Operation: "send", Params: map[string]interface{}{"to": "addr"}},
		{Builder: "transfer", Operation: "burn", Params: map[string]interface{}{"to": "addr"}},
		{Builder: "transfer", Operation: "send"},
	}

	stepErrors := o.Plan(steps)
	require.Len(t, stepErrors, 3)

	assert.Equal(t, 1, stepErrors[0].Step)
	assert.Contains(t, stepErrors[0].Message, "unknown builder")
	assert.Equal(t, 2, stepErrors[1].Step)
	assert.Contains(t, stepErrors[1].Message, "no operation")
	assert.Equal(t, 3, stepErrors[2].Step)
	assert.Contains(t, stepErrors[2].Message, "no parameters")
}

func TestExecuteAppendsItemsInOrder(t *testing.T) {
	builder := &fakeBuilder{operations: []string{"send", "sweep"}}
	o, q := newFixture(t, builder)

	result, err := o.Execute(context.Background(), []Step{transferStep("send"), transferStep("sweep")})
	require.NoError(t, err)

	assert.Empty(t, result.Errors)
	require.Len(t, result.ItemIDs, 2)
	assert.Equal(t, []string{"send", "sweep"}, builder.prepared)
	assert.Equal(t, 2, q.Len())

	first, ok := q.Get(result.ItemIDs[0])
	require.True(t, ok)
	assert.Equal(t, 0, first.Position)
}

func TestExecuteReusesBuilderInstance(t *testing.T) {
	builder := &fakeBuilder{operations: []string{"send"}}
	o, _ := newFixture(t, builder)

	_, err := o.Execute(context.Background(), []Step{transferStep("send"), transferStep("send")})
	require.NoError(t, err)
	assert.Equal(t, 1, builder.created)
}

func TestExecuteRejectsUnsoundPlanUpfront(t *testing.T) {
	builder := &fakeBuilder{operations: []string{"send"}}
	o, q := newFixture(t, builder)

	steps := []Step{
		transferStep("send"),
		{Builder: "missing", Operation: "send", Params: map[string]interface{}{"to": "addr"}},
	}

	result, err := o.Execute(context.Background(), steps)
	require.NoError(t, err)

	// No step ran, not even the valid one.
	require.Len(t, result.Errors, 1)
	assert.Empty(t, result.ItemIDs)
	assert.Empty(t, builder.prepared)
	assert.Equal(t, 0, q.Len())
}

func TestExecuteContinuesPastFailingStep(t *testing.T) {
	failing := &fakeBuilder{operations: []string{"probe"}, prepareErr: errors.New("chain unavailable")}
	working := &fakeBuilder{operations: []string{"send"}}

	registry := NewRegistry()
	require.NoError(t, registry.Register("probe", func() (StepBuilder, error) { return failing, nil }))
	require.NoError(t, registry.Register("transfer", func() (StepBuilder, error) { return working, nil }))

	q := queue.New(testLogger())
	o := New(registry, q, testLogger())

	steps := []Step{
		{Builder: "probe", Operation: "probe", Params: map[string]interface{}{"chain": "westend"}},
		transferStep("send"),
	}

	result, err := o.Execute(context.Background(), steps)
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, 0, result.Errors[0].Step)
	assert.Contains(t, result.Errors[0].Message, "chain unavailable")
	assert.Len(t, result.ItemIDs, 1)
	assert.Equal(t, 1, q.Len())
}

func TestExecuteStopOnFirstError(t *testing.T) {
	failing := &fakeBuilder{operations: []string{"probe"}, prepareErr: errors.New("chain unavailable")}
	working := &fakeBuilder{operations: []string{"send"}}

	registry := NewRegistry()
	require.NoError(t, registry.Register("probe", func() (StepBuilder, error) { return failing, nil }))
	require.NoError(t, registry.Register("transfer", func() (StepBuilder, error) { return working, nil }))

	q := queue.New(testLogger())
	o := New(registry, q, testLogger(), WithStopOnFirstError())

	steps := []Step{
		{Builder: "probe", Operation: "probe", Params: map[string]interface{}{"chain": "westend"}},
		transferStep("send"),
	}

	result, err := o.Execute(context.Background(), steps)
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.Empty(t, result.ItemIDs)
	assert.Empty(t, working.prepared)
	assert.Equal(t, 0, q.Len())
}

func TestExecuteHonorsContext(t *testing.T) {
	builder := &fakeBuilder{operations: []string{"send"}}
	o, _ := newFixture(t, builder)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Execute(ctx, []Step{transferStep("send")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFactoryFailureSurfacesAsStepError(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("broken", func() (StepBuilder, error) {
		return nil, errors.New("missing session")
	}))

	o := New(registry, queue.New(testLogger()), testLogger())

	stepErrors := o.Plan([]Step{{Builder: "broken", Operation: "send", Params: map[string]interface{}{"to": "addr"}}})
	require.Len(t, stepErrors, 1)
	assert.Contains(t, stepErrors[0].Message, "missing session")
}
