// Package storage keeps exercise runs on disk: one directory per run with
// metadata.json and a CSV per response curve.
package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/san-kum/ctrlkit/internal/response"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

// Run is what an exercise hands to Save.
type Run struct {
	Exercise  string
	Preset    string
	Method    string
	Metrics   map[string]float64
	Notes     []string
	Summary   string
	Responses []response.Sampled
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Exercise  string             `json:"exercise"`
	Preset    string             `json:"preset,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Method    string             `json:"method,omitempty"`
	Metrics   map[string]float64 `json:"metrics"`
	// Undefined lists metrics that were NaN; JSON cannot carry them.
	Undefined []string `json:"undefined,omitempty"`
	Notes     []string `json:"notes,omitempty"`
	Responses []string `json:"responses"`
	Summary   string   `json:"summary,omitempty"`
}

// Save writes run into a fresh directory and returns its ID.
func (s *Store) Save(run Run) (string, error) {
	now := time.Now()
	runID, runDir, err := s.allocate(run.Exercise, now)
	if err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Exercise:  run.Exercise,
		Preset:    run.Preset,
		Timestamp: now,
		Method:    run.Method,
		Metrics:   make(map[string]float64, len(run.Metrics)),
		Notes:     run.Notes,
		Responses: make([]string, 0, len(run.Responses)),
		Summary:   run.Summary,
	}
	for k, v := range run.Metrics {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			meta.Undefined = append(meta.Undefined, k)
			continue
		}
		meta.Metrics[k] = v
	}
	sort.Strings(meta.Undefined)

	seen := make(map[string]bool)
	for _, resp := range run.Responses {
		name := fileName(resp.Name)
		for i := 2; seen[name]; i++ {
			name = fmt.Sprintf("%s_%d", fileName(resp.Name), i)
		}
		seen[name] = true

		if err := writeResponse(filepath.Join(runDir, name+".csv"), resp); err != nil {
			return "", err
		}
		meta.Responses = append(meta.Responses, name)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := atomic.WriteFile(filepath.Join(runDir, "metadata.json"), bytes.NewReader(data)); err != nil {
		return "", err
	}
	return runID, nil
}

func (s *Store) allocate(exercise string, now time.Time) (string, string, error) {
	base := fmt.Sprintf("%s_%d", fileName(exercise), now.Unix())
	runID := base
	for i := 2; ; i++ {
		runDir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			return runID, runDir, nil
		}
		if !os.IsExist(err) {
			return "", "", err
		}
		runID = fmt.Sprintf("%s-%d", base, i)
	}
}

func writeResponse(path string, resp response.Sampled) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"time", "amplitude"}); err != nil {
		return err
	}
	for i := range resp.Time {
		row := []string{
			strconv.FormatFloat(resp.Time[i], 'g', -1, 64),
			strconv.FormatFloat(resp.Amplitude[i], 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return atomic.WriteFile(path, &buf)
}

func fileName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return "run"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w", metaPath, err)
	}
	return &meta, nil
}

// LoadResponse reads one stored curve back.
func (s *Store) LoadResponse(runID, name string) (response.Sampled, error) {
	path := filepath.Join(s.baseDir, runID, fileName(name)+".csv")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return response.Sampled{}, fmt.Errorf("%w: %s/%s", ErrRunNotFound, runID, name)
	}
	resp, err := response.LoadCSV(path, response.DefaultLoadOptions())
	if err != nil {
		return response.Sampled{}, err
	}
	return resp, nil
}

// LoadResponses reads every curve of a run in stored order.
func (s *Store) LoadResponses(runID string) ([]response.Sampled, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	out := make([]response.Sampled, 0, len(meta.Responses))
	for _, name := range meta.Responses {
		resp, err := s.LoadResponse(runID, name)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}
