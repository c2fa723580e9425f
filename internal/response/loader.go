package response

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
)

type LoadOptions struct {
	Delimiter       rune
	TimeColumn      int
	AmplitudeColumn int
	Logger          logr.Logger
}

func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Delimiter:       ',',
		TimeColumn:      0,
		AmplitudeColumn: 1,
		Logger:          logr.Discard(),
	}
}

// LoadCSV reads a two-column numeric table. A first row that does not parse
// as numbers is treated as a header.
func LoadCSV(path string, opts LoadOptions) (Sampled, error) {
	file, err := os.Open(path)
	if err != nil {
		return Sampled{}, err
	}
	defer file.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s, err := ReadCSV(file, name, opts)
	if err != nil {
		return Sampled{}, fmt.Errorf("%s: %w", path, err)
	}
	opts.Logger.V(1).Info("loaded response", "path", path, "samples", s.Len(), "start", s.Start(), "end", s.End())
	return s, nil
}

// ErrBadColumns reports negative or identical column indexes.
var ErrBadColumns = errors.New("response: time and amplitude columns must be distinct and non-negative")

// ReadCSV parses r as LoadCSV does. Errors name physical input lines.
func ReadCSV(r io.Reader, name string, opts LoadOptions) (Sampled, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.TimeColumn < 0 || opts.AmplitudeColumn < 0 {
		return Sampled{}, fmt.Errorf("time column %d, amplitude column %d: %w", opts.TimeColumn, opts.AmplitudeColumn, ErrBadColumns)
	}
	if opts.TimeColumn == opts.AmplitudeColumn {
		return Sampled{}, fmt.Errorf("both columns are %d: %w", opts.TimeColumn, ErrBadColumns)
	}
	need := max(opts.TimeColumn, opts.AmplitudeColumn) + 1

	cr := csv.NewReader(r)
	cr.Comma = opts.Delimiter
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var times, amps []float64
	records := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Sampled{}, err
		}
		// physical line in the input, counting comments and blank lines
		line, _ := cr.FieldPos(0)
		if isBlank(record) {
			continue
		}
		records++
		if len(record) < need {
			return Sampled{}, fmt.Errorf("line %d: expected %d columns, got %d", line, need, len(record))
		}

		t, errT := parseFloat(record[opts.TimeColumn])
		y, errY := parseFloat(record[opts.AmplitudeColumn])
		if errT != nil || errY != nil {
			if records == 1 {
				opts.Logger.V(1).Info("skipping header", "fields", record)
				continue
			}
			return Sampled{}, fmt.Errorf("line %d: %w", line, errors.Join(errT, errY))
		}
		times = append(times, t)
		amps = append(amps, y)
	}

	return New(name, times, amps)
}

func parseFloat(field string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(field), 64)
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
