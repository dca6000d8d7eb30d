package rating

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint is a self-describing snapshot of ratings and the hyperparameters
// that produced them.
type Checkpoint struct {
	Ratings          map[string]float64 `json:"ratings"`
	KFactor          float64            `json:"k_factor"`
	HomeAdvantage    float64            `json:"home_advantage"`
	InitialRating    float64            `json:"initial_rating"`
	MarginMultiplier float64            `json:"margin_multiplier"`
	SavedAt          time.Time          `json:"saved_at"`
}

// Config returns the hyperparameters the checkpoint was built with.
func (cp *Checkpoint) Config() Config {
	return Config{
		KFactor:          cp.KFactor,
		HomeAdvantage:    cp.HomeAdvantage,
		InitialRating:    cp.InitialRating,
		MarginMultiplier: cp.MarginMultiplier,
	}
}

// CheckpointStore persists rating checkpoints.
type CheckpointStore interface {
	Load(ctx context.Context) (*Checkpoint, error)
	Save(ctx context.Context, cp *Checkpoint) error
}

// ErrNoCheckpoint is returned by stores that hold no checkpoint yet.
var ErrNoCheckpoint = errors.New("rating: no checkpoint stored")

// Checkpoint captures the current ratings.
func (e *Engine) Checkpoint() *Checkpoint {
	return &Checkpoint{
		Ratings:          e.Ratings(),
		KFactor:          e.cfg.KFactor,
		HomeAdvantage:    e.cfg.HomeAdvantage,
		InitialRating:    e.cfg.InitialRating,
		MarginMultiplier: e.cfg.MarginMultiplier,
		SavedAt:          time.Now().UTC(),
	}
}

// Restore replaces the engine's ratings with the checkpoint's. A checkpoint
// produced with different hyperparameters is rejected.
func (e *Engine) Restore(cp *Checkpoint) error {
	if cp == nil {
		return ErrNoCheckpoint
	}
	if got := cp.Config(); got != e.cfg {
		return fmt.Errorf("%w: checkpoint k=%v home_adv=%v initial=%v margin=%v, engine k=%v home_adv=%v initial=%v margin=%v",
			ErrHyperparameterMismatch,
			got.KFactor, got.HomeAdvantage, got.InitialRating, got.MarginMultiplier,
			e.cfg.KFactor, e.cfg.HomeAdvantage, e.cfg.InitialRating, e.cfg.MarginMultiplier)
	}
	ratings := make(map[string]float64, len(cp.Ratings))
	for team, r := range cp.Ratings {
		ratings[team] = r
	}
	e.ratings = ratings
	return nil
}

// FileCheckpointStore keeps a checkpoint as an indented JSON file.
type FileCheckpointStore struct {
	Path string
}

// NewFileCheckpointStore creates a store writing to path.
func NewFileCheckpointStore(path string) *FileCheckpointStore {
	return &FileCheckpointStore{Path: path}
}

// Load reads the checkpoint file.
func (s *FileCheckpointStore) Load(ctx context.Context) (*Checkpoint, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCheckpoint
		}
		return nil, fmt.Errorf("failed to read rating checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to parse rating checkpoint %s: %w", s.Path, err)
	}
	if cp.Ratings == nil {
		cp.Ratings = map[string]float64{}
	}
	return &cp, nil
}

// Save writes the checkpoint atomically via a temp file rename.
func (s *FileCheckpointStore) Save(ctx context.Context, cp *Checkpoint) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode rating checkpoint: %w", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write rating checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("failed to replace rating checkpoint: %w", err)
	}
	return nil
}
