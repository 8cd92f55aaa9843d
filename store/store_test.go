package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkcheck/arkcheck/accuracy"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := &Store{DBPath: filepath.Join(t.TempDir(), "history.db")}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string, created time.Time) Run {
	return Run{
		ID:      id,
		Model:   "https://example.com/speech.tflite",
		Backend: "cpu",
		Prefer:  "fast",
		Report: accuracy.Report{
			MaxError:    0.5,
			AvgError:    0.1,
			AvgRMS:      0.2,
			StdDev:      0.05,
			MaxRelError: 0.7,
			AvgRelError: 0.01,
			NumErrors:   3,
			NumScores:   3425,
			Frames:      1,
		},
		RMSSpread:     accuracy.Spread{P50: 0.2, P95: 0.3},
		LatencyMeanMS: 1.25,
		LatencyP95MS:  2.5,
		CreatedAt:     created,
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	s := newTestStore(t)
	want := sampleRun("run-1", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	require.NoError(t, s.SaveRun(want))

	got, err := s.Run("run-1")
	require.NoError(t, err)

	// Max wird nicht gespeichert
	if diff := cmp.Diff(want, got, cmpopts.EquateApproxTime(time.Millisecond)); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}
}

func TestRunsOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveRun(sampleRun(id, base.Add(time.Duration(i)*time.Minute))))
	}

	runs, err := s.Runs(0)
	require.NoError(t, err)
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)

	runs, err = s.Runs(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunsEmpty(t *testing.T) {
	s := newTestStore(t)

	runs, err := s.Runs(10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestRunNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Run("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, s.DeleteRun("missing"), ErrRunNotFound)
}

func TestDeleteRun(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveRun(sampleRun("x", time.Now())))

	require.NoError(t, s.DeleteRun("x"))
	_, err := s.Run("x")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSaveRunRequiresID(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.SaveRun(Run{Model: "m.onnx"}))
}

func TestSaveRunDefaultsTimestamp(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveRun(Run{ID: "now", Model: "m.onnx"}))

	got, err := s.Run("now")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)
}

func TestSchemaVersion(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Runs(1)
	require.NoError(t, err)

	version, err := s.db.getSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}

func TestNewerSchemaRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")

	s := &Store{DBPath: path}
	require.NoError(t, s.SaveRun(sampleRun("a", time.Now())))
	require.NoError(t, s.Close())

	conn, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = conn.Exec(`UPDATE settings SET schema_version = ?`, currentSchemaVersion+1)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	s = &Store{DBPath: path}
	t.Cleanup(func() { s.Close() })

	_, err = s.Runs(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}
