package export

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"time"

	"github.com/natefinch/atomic"
	"github.com/san-kum/ctrlkit/internal/response"
	"github.com/san-kum/ctrlkit/internal/storage"
)

type Curve struct {
	Name      string    `json:"name"`
	Time      []float64 `json:"time"`
	Amplitude []float64 `json:"amplitude"`
}

// ExportData is the self-contained JSON form of a stored run. Undefined
// metrics are written as null.
type ExportData struct {
	ID        string              `json:"id"`
	Exercise  string              `json:"exercise"`
	Preset    string              `json:"preset,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
	Method    string              `json:"method,omitempty"`
	Metrics   map[string]*float64 `json:"metrics"`
	Notes     []string            `json:"notes,omitempty"`
	Summary   string              `json:"summary,omitempty"`
	Responses []Curve             `json:"responses"`
}

func NewExportData(meta storage.RunMetadata, responses []response.Sampled) ExportData {
	data := ExportData{
		ID:        meta.ID,
		Exercise:  meta.Exercise,
		Preset:    meta.Preset,
		Timestamp: meta.Timestamp,
		Method:    meta.Method,
		Metrics:   make(map[string]*float64, len(meta.Metrics)+len(meta.Undefined)),
		Notes:     meta.Notes,
		Summary:   meta.Summary,
		Responses: make([]Curve, 0, len(responses)),
	}
	for k, v := range meta.Metrics {
		data.Metrics[k] = finiteOrNil(v)
	}
	for _, k := range meta.Undefined {
		data.Metrics[k] = nil
	}
	for _, r := range responses {
		data.Responses = append(data.Responses, Curve{Name: r.Name, Time: r.Time, Amplitude: r.Amplitude})
	}
	return data
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func WriteJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSON(path string, data ExportData) error {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, data); err != nil {
		return err
	}
	return atomic.WriteFile(path, &buf)
}
