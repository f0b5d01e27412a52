package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/parallelizer/internal/models"
)

// continuationFixture plans a(10) -> b(10) and c(5) -> e(5) on two agents:
// batch 0 = [a c], batch 1 = [e], batch 2 = [b].
func continuationFixture(t *testing.T) (*models.DependencyGraph, *models.BatchPlan) {
	t.Helper()
	g := mustGraph(t, task("a", 10), task("b", 10, "a"), task("c", 5), task("e", 5, "c"))
	plan, err := OptimizeBatches(g, OptimizeOptions{MaxAgents: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, plan.Batches[0].TaskIDs)
	require.Equal(t, []string{"e"}, plan.Batches[1].TaskIDs)
	require.Equal(t, []string{"b"}, plan.Batches[2].TaskIDs)
	return g, plan
}

func outcome(id string, status models.TaskStatus) models.TaskOutcome {
	return models.TaskOutcome{TaskID: id, Status: status}
}

func batchIDs(batches []models.Batch) [][]string {
	out := [][]string{}
	for _, b := range batches {
		out = append(out, b.TaskIDs)
	}
	return out
}

func TestContinue_Conservative(t *testing.T) {
	g, plan := continuationFixture(t)

	t.Run("failure halts after the current batch", func(t *testing.T) {
		c, err := Continue(g, plan, []models.TaskOutcome{
			outcome("a", models.StatusFailed),
			outcome("c", models.StatusCompleted),
		}, models.FailureConservative)
		require.NoError(t, err)

		assert.True(t, c.Halted)
		assert.Equal(t, []string{"a"}, c.Failed)
		assert.Equal(t, []string{"c"}, c.Completed)
		assert.Equal(t, []string{"b"}, c.Blocked)
		assert.Equal(t, []string{"e"}, c.Skipped)
		assert.Empty(t, c.RemainingBatches)
		assert.Contains(t, c.Reason, "task a failed")
	})

	t.Run("rest of the current batch may finish", func(t *testing.T) {
		c, err := Continue(g, plan, []models.TaskOutcome{
			outcome("a", models.StatusFailed),
		}, models.FailureConservative)
		require.NoError(t, err)

		assert.True(t, c.Halted)
		assert.Equal(t, [][]string{{"c"}}, batchIDs(c.RemainingBatches))
		assert.Equal(t, []string{"e"}, c.Skipped)
	})

	t.Run("cancellation blocks dependents without halting", func(t *testing.T) {
		c, err := Continue(g, plan, []models.TaskOutcome{
			outcome("a", models.StatusCancelled),
			outcome("c", models.StatusCompleted),
		}, models.FailureConservative)
		require.NoError(t, err)

		assert.False(t, c.Halted)
		assert.Equal(t, []string{"a"}, c.Cancelled)
		assert.Equal(t, []string{"b"}, c.Blocked)
		assert.Equal(t, [][]string{{"e"}}, batchIDs(c.RemainingBatches))
		assert.Equal(t, 0, c.RemainingBatches[0].Index)
	})

	t.Run("empty strategy defaults to conservative", func(t *testing.T) {
		c, err := Continue(g, plan, []models.TaskOutcome{outcome("a", models.StatusFailed)}, "")
		require.NoError(t, err)
		assert.Equal(t, models.FailureConservative, c.Strategy)
		assert.True(t, c.Halted)
	})
}

func TestContinue_Aggressive(t *testing.T) {
	g, plan := continuationFixture(t)

	c, err := Continue(g, plan, []models.TaskOutcome{
		outcome("a", models.StatusFailed),
		outcome("c", models.StatusCompleted),
	}, models.FailureAggressive)
	require.NoError(t, err)

	assert.False(t, c.Halted)
	assert.Equal(t, []string{"b"}, c.Blocked)
	assert.Empty(t, c.Skipped)
	assert.Equal(t, [][]string{{"e"}}, batchIDs(c.RemainingBatches))
	assert.Contains(t, c.Reason, "blocked")
}

func TestContinue_NoOutcomes(t *testing.T) {
	g, plan := continuationFixture(t)

	c, err := Continue(g, plan, nil, models.FailureAggressive)
	require.NoError(t, err)
	assert.Equal(t, batchIDs(plan.Batches), batchIDs(c.RemainingBatches))
	assert.Empty(t, c.Blocked)
	assert.Empty(t, c.Reason)
}

func TestContinue_IgnoresUnknownTasksAndPendingStatus(t *testing.T) {
	g, plan := continuationFixture(t)

	c, err := Continue(g, plan, []models.TaskOutcome{
		outcome("ghost", models.StatusFailed),
		outcome("a", models.StatusPending),
	}, models.FailureConservative)
	require.NoError(t, err)
	assert.False(t, c.Halted)
	assert.Empty(t, c.Failed)
	assert.Len(t, c.RemainingBatches, 3)
}

func TestContinue_InvalidInput(t *testing.T) {
	g, plan := continuationFixture(t)

	_, err := Continue(g, plan, nil, "reckless")
	assert.True(t, models.IsInvalidConfigurationError(err))

	_, err = Continue(g, nil, nil, models.FailureAggressive)
	assert.True(t, models.IsInvalidConfigurationError(err))

	_, err = Continue(nil, plan, nil, models.FailureAggressive)
	assert.True(t, models.IsInvalidConfigurationError(err))
}
