package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/parallelizer/internal/models"
)

func TestParseResults(t *testing.T) {
	t.Run("json with nulls and missing fields", func(t *testing.T) {
		results, err := ParseResults(strings.NewReader(`{"results": [
			{"task_id": "T1", "agent_id": "agent-1", "success": true, "modified_resources": ["x.ts"], "batch": 0},
			{"task_id": "T2", "agent_id": "agent-2", "modified_resources": null, "changeset": null},
			{"task_id": "T3"}
		]}`), FormatJSON)
		require.NoError(t, err)
		require.Len(t, results, 3)

		require.NotNil(t, results[0].Batch)
		assert.Equal(t, 0, *results[0].Batch)
		assert.Nil(t, results[1].Batch)
		assert.Nil(t, results[1].ModifiedResources)
		assert.Equal(t, "T3", results[2].TaskID)
	})

	t.Run("yaml list with changeset", func(t *testing.T) {
		results, err := ParseResults(strings.NewReader(`- task_id: T1
  agent_id: agent-1
  changeset:
    - resource: api.ts
      action: create
      identifiers: [fetchUser]
`), FormatYAML)
		require.NoError(t, err)
		require.Len(t, results, 1)
		require.Len(t, results[0].Changeset, 1)
		assert.Equal(t, models.ActionCreate, results[0].Changeset[0].Action)
		assert.Equal(t, []string{"fetchUser"}, results[0].Changeset[0].Identifiers)
	})

	t.Run("empty input", func(t *testing.T) {
		results, err := ParseResults(strings.NewReader(""), FormatJSON)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})
}

func TestParseProgress(t *testing.T) {
	agents, err := ParseProgress(strings.NewReader(`agents:
  - agent_id: agent-1
    percent_complete: 100
  - agent_id: agent-2
    percent_complete: 50
    current_task_id: B
`), FormatYAML)
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, 50.0, agents[1].PercentComplete)
	assert.Equal(t, "B", agents[1].CurrentTaskID)
}

func TestParseOutcomes(t *testing.T) {
	outcomes, err := ParseOutcomes(strings.NewReader(`[{"task_id": "a", "status": "failed"}, {"task_id": "c", "status": "completed"}]`), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, []models.TaskOutcome{
		{TaskID: "a", Status: models.StatusFailed},
		{TaskID: "c", Status: models.StatusCompleted},
	}, outcomes)

	_, err = ParseOutcomes(strings.NewReader(`{"results": []}`), FormatJSON)
	assert.ErrorContains(t, err, `missing "outcomes"`)
}

func TestParseFiles(t *testing.T) {
	dir := t.TempDir()

	results, err := ParseResultsFile(writeFile(t, dir, "results.json", `[{"task_id": "T1"}]`))
	require.NoError(t, err)
	assert.Len(t, results, 1)

	// Unknown extensions are read as YAML
	agents, err := ParseProgressFile(writeFile(t, dir, "snapshot.txt", "- agent_id: a\n  percent_complete: 10\n"))
	require.NoError(t, err)
	assert.Len(t, agents, 1)

	outcomes, err := ParseOutcomesFile(writeFile(t, dir, "outcomes.yml", "outcomes:\n  - task_id: x\n    status: cancelled\n"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, outcomes[0].Status)

	_, err = ParseResultsFile(writeFile(t, dir, "results.md", "# nope"))
	assert.ErrorContains(t, err, "markdown is only supported for task lists")

	_, err = ParseResultsFile(writeFile(t, dir, "broken.json", "{"))
	assert.ErrorContains(t, err, "broken.json")

	_, err = ParseOutcomesFile("/does/not/exist.json")
	assert.Error(t, err)
}
