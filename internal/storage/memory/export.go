package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/moonward/lander/internal/model"
)

// roundExport is the root JSON structure written per round.
type roundExport struct {
	model.Round
	Ticks []model.Tick `json:"ticks"`
}

// exportJSON writes the round and its telemetry to a file named
// <status>-<timestamp>, gzipped when configured. Callers hold b.mu.
func (b *Backend) exportJSON(r *model.Round) error {
	endedAt := r.StartedAt
	if r.EndedAt != nil {
		endedAt = *r.EndedAt
	}
	filename := fmt.Sprintf("%s-%s.json", r.Status, endedAt.Format("20060102_150405"))
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	export := roundExport{Round: *r, Ticks: b.ticks}

	if b.cfg.CompressOutput {
		gz := gzip.NewWriter(f)
		if err := json.NewEncoder(gz).Encode(export); err != nil {
			gz.Close()
			return fmt.Errorf("failed to encode export: %w", err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("failed to finish gzip stream: %w", err)
		}
	} else {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(export); err != nil {
			return fmt.Errorf("failed to encode export: %w", err)
		}
	}

	b.exportedPath = outputPath
	b.ticks = nil
	return nil
}
