package storage

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/ctrlkit/internal/response"
)

func sampleRun(t *testing.T) Run {
	t.Helper()
	resp, err := response.New("Closed Loop", []float64{0, 0.5, 1}, []float64{-16, -15.2, -15.1})
	if err != nil {
		t.Fatal(err)
	}
	return Run{
		Exercise:  "dcdc",
		Preset:    "buck-boost",
		Method:    "zoh",
		Metrics:   map[string]float64{"rise_time": 1.5e-5, "time_constant": math.NaN()},
		Notes:     []string{"time constant undefined"},
		Summary:   "K = -0.135",
		Responses: []response.Sampled{resp},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(sampleRun(t))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Exercise != "dcdc" || meta.Preset != "buck-boost" {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Metrics["rise_time"] != 1.5e-5 {
		t.Errorf("expected rise_time 1.5e-5, got %v", meta.Metrics["rise_time"])
	}
	if len(meta.Undefined) != 1 || meta.Undefined[0] != "time_constant" {
		t.Errorf("expected time_constant undefined, got %v", meta.Undefined)
	}
	if len(meta.Responses) != 1 || meta.Responses[0] != "closed_loop" {
		t.Fatalf("responses = %v", meta.Responses)
	}

	resp, err := st.LoadResponse(runID, "closed_loop")
	if err != nil {
		t.Fatalf("load response failed: %v", err)
	}
	if resp.Len() != 3 || resp.Amplitude[1] != -15.2 {
		t.Errorf("response not preserved: %+v", resp)
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	for i := 0; i < 2; i++ {
		if _, err := st.Save(sampleRun(t)); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID == runs[1].ID {
		t.Error("run IDs must be unique")
	}
}

func TestStoreList_MissingDir(t *testing.T) {
	runs, err := New(filepath.Join(t.TempDir(), "absent")).List()
	if err != nil || len(runs) != 0 {
		t.Errorf("got %v, %v", runs, err)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	run := sampleRun(t)
	dup := run.Responses[0]
	run.Responses = append(run.Responses, dup)

	runID, err := st.Save(run)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	for _, name := range []string{"metadata.json", "closed_loop.csv", "closed_loop_2.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}

	all, err := st.LoadResponses(runID)
	if err != nil || len(all) != 2 {
		t.Errorf("LoadResponses = %d, %v", len(all), err)
	}
}

func TestStoreLoad_NotFound(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.LoadResponse("nope", "x"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}
