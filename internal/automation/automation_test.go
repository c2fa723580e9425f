package automation

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/san-kum/ctrlkit/internal/config"
	"github.com/san-kum/ctrlkit/internal/converter"
	"github.com/san-kum/ctrlkit/internal/experiment"
	"github.com/san-kum/ctrlkit/internal/storage"
)

const batchYAML = `
name: coursework
description: all exercises
steps:
  - exercise: hw1-inverse
    save: true
  - exercise: hw1-inverse
    preset: oscillatory
  - exercise: hw9
sweeps:
  - param: ro
    min: 2
    max: 8
    steps: 3
`

func writeBatch(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadBatch(t *testing.T) {
	batch, err := LoadBatch(writeBatch(t, batchYAML))
	if err != nil {
		t.Fatal(err)
	}
	if batch.Name != "coursework" || len(batch.Steps) != 3 || len(batch.Sweeps) != 1 {
		t.Errorf("unexpected batch %+v", batch)
	}
	if !batch.Steps[0].Save || batch.Steps[1].Preset != "oscillatory" {
		t.Errorf("step fields not parsed: %+v", batch.Steps)
	}

	if _, err := LoadBatch(writeBatch(t, "name: empty\n")); err == nil {
		t.Error("expected error for empty batch")
	}
}

func TestRunBatch_ContinuesAfterFailure(t *testing.T) {
	batch, err := LoadBatch(writeBatch(t, batchYAML))
	if err != nil {
		t.Fatal(err)
	}
	store := storage.New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}

	results, err := RunBatch(context.Background(), batch, config.DefaultConfig(), experiment.NewRegistry(), store, logr.Discard())
	if !errors.Is(err, experiment.ErrUnknownExercise) {
		t.Errorf("expected joined ErrUnknownExercise, got %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Err != nil || results[0].RunID == "" {
		t.Errorf("first step: err=%v id=%q", results[0].Err, results[0].RunID)
	}
	if results[1].Err != nil || results[1].Report.Preset != "oscillatory" {
		t.Errorf("second step: %+v", results[1])
	}
	if results[2].Err == nil {
		t.Error("unknown exercise should fail")
	}

	runs, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 stored run, got %d", len(runs))
	}
}

func TestRunSweep(t *testing.T) {
	study := converter.DefaultStudy()
	study.Samples = 4000
	study.TrailingSamples = 200

	points, err := RunSweep(context.Background(), Sweep{Param: "target_error", Min: 0.05, Max: 0.2, Steps: 4}, study, logr.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 4 {
		t.Fatalf("expected 4 points, got %d", len(points))
	}
	for i, pt := range points {
		if pt.Err != nil {
			t.Fatalf("point %d: %v", i, pt.Err)
		}
		if i > 0 && math.Abs(pt.K) >= math.Abs(points[i-1].K) {
			t.Errorf("|K| should shrink as the error target grows: %v then %v", points[i-1].K, pt.K)
		}
	}
	if math.Abs(points[0].Value-0.05) > 1e-12 || math.Abs(points[3].Value-0.2) > 1e-12 {
		t.Errorf("sweep endpoints %v .. %v", points[0].Value, points[3].Value)
	}
}

func TestRunSweep_Errors(t *testing.T) {
	study := converter.DefaultStudy()
	if _, err := RunSweep(context.Background(), Sweep{Param: "mass", Min: 1, Max: 2, Steps: 3}, study, logr.Discard()); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("expected ErrUnknownParam, got %v", err)
	}
	if _, err := RunSweep(context.Background(), Sweep{Param: "ro", Min: 1, Max: 2, Steps: 1}, study, logr.Discard()); err == nil {
		t.Error("expected error for a single step")
	}

	// D = 1 makes the plant invalid; the point records the error
	study.Samples = 2000
	study.TrailingSamples = 100
	points, err := RunSweep(context.Background(), Sweep{Param: "d", Min: 0.5, Max: 1, Steps: 2}, study, logr.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if points[0].Err != nil || points[1].Err == nil {
		t.Errorf("expected only the second point to fail: %v, %v", points[0].Err, points[1].Err)
	}
}
