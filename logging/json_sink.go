package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reportstream/rs-acceptor/types"
)

const ResultsFilename = "results.jsonl"

// ResultRecord is one line of results.jsonl.
type ResultRecord struct {
	RunID          string  `json:"run_id"`
	Test           string  `json:"test"`
	Classification string  `json:"classification"`
	Status         string  `json:"status"`
	Seconds        float64 `json:"duration_seconds"`
	Error          string  `json:"error,omitempty"`
}

// JSONLinesSink appends one json object per test to results.jsonl.
type JSONLinesSink struct {
	logger *FileLogger
	files  map[string]*os.File
}

func NewJSONLinesSink(logger *FileLogger) *JSONLinesSink {
	return &JSONLinesSink{logger: logger, files: make(map[string]*os.File)}
}

func (s *JSONLinesSink) Consume(result *types.TestResult, runID string) error {
	f, err := s.file(runID)
	if err != nil {
		return err
	}
	rec := ResultRecord{
		RunID:          runID,
		Test:           result.ID,
		Classification: string(result.Classification),
		Status:         string(result.Status),
		Seconds:        result.Duration.Seconds(),
	}
	if result.Error != nil {
		rec.Error = result.Error.Error()
	}
	return json.NewEncoder(f).Encode(rec)
}

func (s *JSONLinesSink) Complete(runID string) error {
	f, ok := s.files[runID]
	if !ok {
		return nil
	}
	delete(s.files, runID)
	return f.Close()
}

func (s *JSONLinesSink) file(runID string) (*os.File, error) {
	if f, ok := s.files[runID]; ok {
		return f, nil
	}
	dir, err := s.logger.GetDirectoryForRunID(runID)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, ResultsFilename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	s.files[runID] = f
	return f, nil
}
