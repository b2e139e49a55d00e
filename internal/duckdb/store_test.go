package duckdb

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/strain-seq/internal/strain"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRun(id string, started time.Time) Run {
	return Run{
		ID:              id,
		StartedAt:       started,
		Assembly:        "GRCm39",
		Chrom:           "6",
		WindowStart:     20239701,
		ReferenceLength: 1000000,
		Reference:       FileFingerprint{Path: "chr6_ref.fasta", Size: 1016000, ModTime: started.Add(-time.Hour)},
		Table:           FileFingerprint{Path: "chr6_CC_Founders_Cleaned.csv", Size: 52000, ModTime: started.Add(-time.Hour)},
		Strategy:        "report-only",
		Insertion:       "after-anchor",
	}
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NoError(t, s.db.Ping())
	assert.Equal(t, "", s.Path())
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestRecordRunAndRuns(t *testing.T) {
	s := openInMemory(t)

	t0 := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordRun(testRun("run-1", t0)))
	require.NoError(t, s.RecordRun(testRun("run-2", t0.Add(time.Hour))))

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, "run-1", runs[1].ID)
	assert.Equal(t, "GRCm39", runs[1].Assembly)
	assert.Equal(t, int64(20239701), runs[1].WindowStart)
	assert.Equal(t, "chr6_CC_Founders_Cleaned.csv", runs[1].Table.Path)
	assert.Equal(t, int64(52000), runs[1].Table.Size)
	assert.True(t, t0.Equal(runs[1].StartedAt))

	// Run IDs are unique.
	assert.Error(t, s.RecordRun(testRun("run-1", t0)))
}

func TestWriteAndReadStrainResults(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.RecordRun(testRun("run-1", time.Now())))

	results := []StrainResult{
		{RunID: "run-1", Strain: "NOD/ShiLtJ", OutputPath: "out/NOD_ShiLtJ_CHR6.txt",
			EditedLength: 1000004, FinalLength: 1000000, Delta: 4, Applied: 120, Skipped: 3, NoCalls: 900, Status: StatusOK},
		{RunID: "run-1", Strain: "A/J", OutputPath: "out/A_J_CHR6.txt",
			EditedLength: 999990, FinalLength: 999990, Delta: -10, Applied: 80, Dropped: 2, Status: StatusOK},
		{RunID: "run-1", Strain: "A/J", OutputPath: "duplicate", Status: StatusOK},
	}
	require.NoError(t, s.WriteStrainResults(results))

	got, err := s.RunResults("run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "A/J", got[0].Strain)
	assert.Equal(t, "out/A_J_CHR6.txt", got[0].OutputPath)
	assert.Equal(t, int64(-10), got[0].Delta)
	assert.Equal(t, int64(2), got[0].Dropped)
	assert.Equal(t, "NOD/ShiLtJ", got[1].Strain)
	assert.Equal(t, int64(1000000), got[1].FinalLength)
	assert.Equal(t, int64(900), got[1].NoCalls)

	none, err := s.RunResults("run-404")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWriteStrainResults_Empty(t *testing.T) {
	s := openInMemory(t)
	assert.NoError(t, s.WriteStrainResults(nil))
}

func TestLookupStrain(t *testing.T) {
	s := openInMemory(t)

	t0 := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordRun(testRun("old", t0)))
	require.NoError(t, s.RecordRun(testRun("new", t0.Add(24*time.Hour))))

	require.NoError(t, s.WriteStrainResults([]StrainResult{
		{RunID: "old", Strain: "CAST/EiJ", Delta: 5, Status: StatusOK},
		{RunID: "old", Strain: "PWK/PhJ", Delta: 1, Status: StatusOK},
	}))
	require.NoError(t, s.WriteStrainResults([]StrainResult{
		{RunID: "new", Strain: "CAST/EiJ", Status: StatusFailed, Error: "unexpected allele encoding"},
	}))

	got, err := s.LookupStrain("CAST/EiJ")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].RunID)
	assert.Equal(t, StatusFailed, got[0].Status)
	assert.Equal(t, "unexpected allele encoding", got[0].Error)
	assert.Equal(t, "old", got[1].RunID)
	assert.Equal(t, int64(5), got[1].Delta)

	got, err = s.LookupStrain("WSB/EiJ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewStrainResult(t *testing.T) {
	ok := NewStrainResult("r", &strain.Result{
		Strain: "A/J", EditedLength: 9, FinalLength: 8, Delta: 1, Applied: 2, Skipped: 1, NoOps: 4, Dropped: 1,
	}, "out/A_J_CHR6.txt")

	assert.Equal(t, StrainResult{
		RunID: "r", Strain: "A/J", OutputPath: "out/A_J_CHR6.txt",
		EditedLength: 9, FinalLength: 8, Delta: 1, Applied: 2, Skipped: 1, NoCalls: 4, Dropped: 1,
		Status: StatusOK,
	}, ok)

	failed := NewStrainResult("r", &strain.Result{
		Strain: "CAST/EiJ",
		Err:    &strain.Error{Strain: "CAST/EiJ", Err: errors.New("bad allele")},
	}, "")
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "strain CAST/EiJ: bad allele", failed.Error)
}

func TestStatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "variants.csv")
	require.NoError(t, os.WriteFile(path, []byte("Location,Ref.\n"), 0644))

	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(14), fp.Size)
	assert.True(t, fp.Matches())

	require.NoError(t, os.WriteFile(path, []byte("Location,Ref.,A/J\n"), 0644))
	assert.False(t, fp.Matches())

	_, err = StatFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
	assert.False(t, FileFingerprint{Path: "missing"}.Matches())
}
