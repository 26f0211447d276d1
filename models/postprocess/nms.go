// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"sort"

	"github.com/nvr-ai/roi-detect/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	ScoreThreshold float32 `yaml:"score"`       // Entries below this score are discarded first.
	IoUThreshold   float32 `yaml:"iou"`         // Overlap at or above which a box is suppressed.
	ClassAware     bool    `yaml:"class_aware"` // If true, suppress only within same class.
}

// DefaultNMSConfig returns joint suppression with score and IoU thresholds of 0.5.
func DefaultNMSConfig() NMSConfig {
	return NMSConfig{ScoreThreshold: 0.5, IoUThreshold: 0.5}
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression.
//
// Entries below the score threshold are dropped, the rest are stably sorted by descending
// score (equal scores keep their input order) and a box is kept only if its IoU with every
// already kept box is below the IoU threshold. With ClassAware set, boxes of different classes
// never suppress each other.
//
// Arguments:
//   - detections: Detections in candidate order.
//   - config: NMS configuration.
//
// Returns:
//   - The retained detections in descending score order. Empty input yields an empty slice.
func ApplyGreedyNMS(detections []Detection, config NMSConfig) []Detection {
	sorted := make([]Detection, 0, len(detections))
	for _, d := range detections {
		if d.Score >= config.ScoreThreshold {
			sorted = append(sorted, d)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	filtered := make([]Detection, 0, len(sorted))
	for _, candidate := range sorted {
		keep := true
		for _, kept := range filtered {
			if config.ClassAware && kept.ClassID != candidate.ClassID {
				continue
			}
			if images.CalculateIoU(kept.Box.Rect(), candidate.Box.Rect()) >= config.IoUThreshold {
				keep = false
				break
			}
		}
		if keep {
			filtered = append(filtered, candidate)
		}
	}

	return filtered
}
