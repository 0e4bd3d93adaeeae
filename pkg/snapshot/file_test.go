package snapshot_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/canopy-network/gaugewatch/pkg/gauge"
	"github.com/canopy-network/gaugewatch/pkg/snapshot"
)

func sample(filled string) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		FetchedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Data:      []gauge.Record{{"id": "1", "filled_epochs": filled}},
	}
}

func newFileStore(t *testing.T, strict bool) *snapshot.FileStore {
	s := snapshot.NewFileStore(t.TempDir(), strict, zaptest.NewLogger(t))
	require.NoError(t, s.Ensure())
	return s
}

func TestFileStoreRotation(t *testing.T) {
	s := newFileStore(t, false)

	_, err := s.LoadCurrent()
	require.ErrorIs(t, err, snapshot.ErrNotFound)
	_, err = s.LoadPrevious()
	require.ErrorIs(t, err, snapshot.ErrNotFound)
	require.ErrorIs(t, s.PromoteCurrentToPrevious(), snapshot.ErrNotFound)

	require.NoError(t, s.SaveCurrent(sample("5")))
	require.NoError(t, s.PromoteCurrentToPrevious())
	require.NoError(t, s.SaveCurrent(sample("6")))

	cur, err := s.LoadCurrent()
	require.NoError(t, err)
	prev, err := s.LoadPrevious()
	require.NoError(t, err)

	assert.Equal(t, "6", cur.Data[0]["filled_epochs"])
	assert.Equal(t, "5", prev.Data[0]["filled_epochs"])
	assert.True(t, cur.FetchedAt.Equal(sample("6").FetchedAt))
}

func TestFileStoreCorruptSnapshot(t *testing.T) {
	t.Run("lenient treats it as missing", func(t *testing.T) {
		s := newFileStore(t, false)
		require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "previous.json"), []byte("{not json"), 0644))

		_, err := s.LoadPrevious()
		require.ErrorIs(t, err, snapshot.ErrNotFound)
	})

	t.Run("strict returns the error", func(t *testing.T) {
		s := newFileStore(t, true)
		require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "previous.json"), []byte("{not json"), 0644))

		_, err := s.LoadPrevious()
		require.Error(t, err)
		require.NotErrorIs(t, err, snapshot.ErrNotFound)
	})
}

func TestFileStoreReadsUpstreamShape(t *testing.T) {
	s := newFileStore(t, false)
	raw := `{"data": [{"id": "7", "num_epochs_paid_over": 14, "coins": [{"denom": "uosmo", "amount": "10"}]}]}`
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "current.json"), []byte(raw), 0644))

	cur, err := s.LoadCurrent()
	require.NoError(t, err)
	require.Len(t, cur.Data, 1)
	assert.Equal(t, json.Number("14"), cur.Data[0]["num_epochs_paid_over"])
}

func TestFileStoreWriteResult(t *testing.T) {
	s := newFileStore(t, false)
	require.NoError(t, s.WriteResult("run-1", map[string]any{"events": []string{"a"}}))

	data, err := os.ReadFile(filepath.Join(s.Dir(), "results", "run-1.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"events": ["a"]}`, string(data))
}

func TestMemoryStore(t *testing.T) {
	m := snapshot.NewMemoryStore()

	_, err := m.LoadPrevious()
	require.ErrorIs(t, err, snapshot.ErrNotFound)

	snap := sample("1")
	require.NoError(t, m.SaveCurrent(snap))
	snap.Data[0]["filled_epochs"] = "mutated"

	require.NoError(t, m.PromoteCurrentToPrevious())
	prev, err := m.LoadPrevious()
	require.NoError(t, err)
	assert.Equal(t, "1", prev.Data[0]["filled_epochs"])

	require.NoError(t, m.WriteResult("r", []int{1}))
	b, ok := m.Result("r")
	require.True(t, ok)
	assert.JSONEq(t, `[1]`, string(b))
}
