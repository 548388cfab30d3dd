package db

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/catalog-agent/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow satisfies pgx.Row by copying fixed values into the scan targets.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *bool:
			*p = r.values[i].(bool)
		case *[]byte:
			if r.values[i] != nil {
				*p = r.values[i].([]byte)
			}
		case *time.Time:
			*p = r.values[i].(time.Time)
		case **time.Time:
			if r.values[i] != nil {
				t := r.values[i].(time.Time)
				*p = &t
			}
		}
	}
	return nil
}

func TestEncodeJob_NilStagesBecomeEmptyArray(t *testing.T) {
	stages, result, err := encodeJob(&types.Job{ID: "j1"})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(stages))
	assert.Nil(t, result)
}

func TestScanJob(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(3 * time.Second)

	job := &types.Job{
		Stages: []types.StageRecord{
			{Name: "data_scouting", Status: types.StageStatusCompleted, DurationMs: 12, Provider: "gemini"},
		},
		Result: &types.FinalResult{VideoScript: &types.VideoScriptResult{Script: "Meet the mug."}},
	}
	stages, result, err := encodeJob(job)
	require.NoError(t, err)

	got, err := scanJob(fakeRow{values: []any{
		"j1", "p1", "completed", "gemini", "", started, finished, stages, result,
	}})
	require.NoError(t, err)

	assert.Equal(t, "j1", got.ID)
	assert.Equal(t, types.JobStatusCompleted, got.Status)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, finished.Equal(*got.FinishedAt))
	require.Len(t, got.Stages, 1)
	assert.Equal(t, "gemini", got.Stages[0].Provider)
	require.NotNil(t, got.Result)
	assert.Equal(t, "Meet the mug.", got.Result.VideoScript.Script)
}

func TestScanJob_RunningWithoutResult(t *testing.T) {
	got, err := scanJob(fakeRow{values: []any{
		"j2", "p1", "running", "", "", time.Now(), nil, []byte(`[]`), nil,
	}})
	require.NoError(t, err)
	assert.Nil(t, got.FinishedAt)
	assert.Nil(t, got.Result)
	assert.NotNil(t, got.Stages)
	assert.Empty(t, got.Stages)
}

func TestScanJob_CorruptStages(t *testing.T) {
	_, err := scanJob(fakeRow{values: []any{
		"j3", "p1", "running", "", "", time.Now(), nil, []byte(`{`), nil,
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stages")
}

func TestScanProduct(t *testing.T) {
	now := time.Now().UTC()
	analysis, err := json.Marshal(&types.Job{ID: "j1", Status: types.JobStatusCompleted})
	require.NoError(t, err)

	p, err := scanProduct(fakeRow{values: []any{
		"p1", "Galactic Mug", "A mug", "https://shop.example/mug", "analysis_completed", true,
		analysis, "", now, now,
	}})
	require.NoError(t, err)
	assert.Equal(t, types.ProductStatusAnalysisCompleted, p.Status)
	assert.True(t, p.Published)
	require.NotNil(t, p.AnalysisResult)
	assert.Equal(t, "j1", p.AnalysisResult.ID)
}

func TestEncodeAnalysis(t *testing.T) {
	data, err := encodeAnalysis(&types.Product{})
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = encodeAnalysis(&types.Product{AnalysisResult: &types.Job{ID: "j1"}})
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"job_id":"j1"`))
}

func TestSchemaIsIdempotent(t *testing.T) {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		assert.Contains(t, stmt, "IF NOT EXISTS")
	}
}
