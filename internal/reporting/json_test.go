package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/encore-e2e/internal/scenario"
)

func TestWriteJSON(t *testing.T) {
	report := &scenario.RunReport{
		RunID:      "run-json",
		TargetURL:  "http://localhost:5173",
		StartedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 8, 1, 12, 1, 30, 0, time.UTC),
		Outcomes: []scenario.StepOutcome{
			{Key: "homepage", Label: "Load homepage", Status: scenario.StatusOK, Detail: "ok"},
		},
		PageErrors: []string{"boom"},
	}

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteJSON(path, report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var restored scenario.RunReport
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, report.RunID, restored.RunID)
	assert.Equal(t, report.Outcomes, restored.Outcomes)
	assert.Equal(t, report.PageErrors, restored.PageErrors)
	assert.Nil(t, restored.Fatal)
}

func TestWriteJSONBadPath(t *testing.T) {
	err := WriteJSON(filepath.Join(t.TempDir(), "missing", "report.json"), &scenario.RunReport{})
	assert.Error(t, err)
}
