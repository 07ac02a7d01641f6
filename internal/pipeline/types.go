package pipeline

import (
	"time"

	"github.com/keagan/stepsnap/internal/sampler"
)

// Manifest describes one extraction run and where its frames were written
type Manifest struct {
	RunID        string          `json:"run_id"`
	Input        string          `json:"input"`
	Mode         sampler.Mode    `json:"mode"`
	Duration     float64         `json:"duration"`
	Width        int             `json:"width"`
	Height       int             `json:"height"`
	ChangePoints int             `json:"change_points"`
	Backfilled   bool            `json:"backfilled"`
	Frames       []ManifestFrame `json:"frames"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ManifestFrame is one step frame of a Manifest
type ManifestFrame struct {
	Index     int     `json:"index"`
	Timestamp float64 `json:"timestamp"`
	Time      string  `json:"time"`
	// Score is 0 for evenly spaced frames
	Score    float64 `json:"score"`
	Key      string  `json:"key"`
	Location string  `json:"location"`
	Bytes    int     `json:"bytes"`
}

// Result is the outcome of one input of a batch
type Result struct {
	Input    string
	Manifest *Manifest
	Err      error
}

// Config holds pipeline-specific configuration
type Config struct {
	Workers     int
	SequenceFPS float64
}
