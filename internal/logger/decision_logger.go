package logger

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/yourusername/linelogic/internal/models"
)

// DecisionLogger appends decisions to a JSON lines file, one object per line.
type DecisionLogger struct {
	path string
	mu   sync.Mutex
}

// NewDecisionLogger creates a logger writing to path.
func NewDecisionLogger(path string) *DecisionLogger {
	return &DecisionLogger{path: path}
}

// Path returns the file being written.
func (dl *DecisionLogger) Path() string {
	return dl.path
}

// SaveDecisions appends decisions to the file.
func (dl *DecisionLogger) SaveDecisions(ctx context.Context, decisions []models.StakeDecision) error {
	if len(decisions) == 0 {
		return nil
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(dl.path), 0o755); err != nil {
		return fmt.Errorf("failed to create decision log directory: %w", err)
	}
	f, err := os.OpenFile(dl.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open decision log: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, d := range decisions {
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("failed to write decision %s: %w", d.ID, err)
		}
	}
	return w.Flush()
}

// ReadDecisions loads every decision in the file. A missing file yields none.
func (dl *DecisionLogger) ReadDecisions() ([]models.StakeDecision, error) {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	f, err := os.Open(dl.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open decision log: %w", err)
	}
	defer f.Close()

	var out []models.StakeDecision
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var d models.StakeDecision
		if err := json.Unmarshal(scanner.Bytes(), &d); err != nil {
			return nil, fmt.Errorf("failed to parse decision log line: %w", err)
		}
		out = append(out, d)
	}
	return out, scanner.Err()
}
