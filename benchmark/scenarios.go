// Package benchmark measures the detection pipeline on recorded frames.
package benchmark

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nvr-ai/roi-detect/annotate"
	"github.com/nvr-ai/roi-detect/images"
	"github.com/pkg/errors"
)

// Resolution is the size frames are scaled to before detection. A zero value keeps the frame size.
type Resolution struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Name   string `json:"name"`
}

// Scenario defines one benchmark configuration.
type Scenario struct {
	Name       string                 `json:"name"`
	Resolution Resolution             `json:"resolution"`
	Region     images.Rect            `json:"region"`
	Display    annotate.DisplayConfig `json:"display"`
	Iterations int                    `json:"iterations"`
	WarmupRuns int                    `json:"warmup_runs"`
}

// Validate checks the scenario can be run.
func (s Scenario) Validate() error {
	if s.Name == "" {
		return errors.New("scenario name is required")
	}
	if s.Iterations <= 0 {
		return errors.Errorf("scenario %s: iterations must be positive", s.Name)
	}
	if (s.Resolution.Width == 0) != (s.Resolution.Height == 0) || s.Resolution.Width < 0 || s.Resolution.Height < 0 {
		return errors.Errorf("scenario %s: invalid resolution %dx%d", s.Name, s.Resolution.Width, s.Resolution.Height)
	}
	return nil
}

// ScenarioBuilder helps build scenarios with a fluent API.
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder creates a builder with 100 iterations and 10 warmup runs.
func NewScenarioBuilder(name string) *ScenarioBuilder {
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:       name,
			Iterations: 100,
			WarmupRuns: 10,
		},
	}
}

// WithResolution scales frames to width x height.
func (sb *ScenarioBuilder) WithResolution(width, height int) *ScenarioBuilder {
	sb.scenario.Resolution = Resolution{
		Width:  width,
		Height: height,
		Name:   fmt.Sprintf("%dx%d", width, height),
	}
	return sb
}

// WithRegion sets the region corners, in frame coordinates after scaling.
func (sb *ScenarioBuilder) WithRegion(x1, y1, x2, y2 int) *ScenarioBuilder {
	sb.scenario.Region = images.Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
	return sb
}

// WithDisplay sets the annotation options.
func (sb *ScenarioBuilder) WithDisplay(display annotate.DisplayConfig) *ScenarioBuilder {
	sb.scenario.Display = display
	return sb
}

// WithIterations sets the number of measured runs.
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of unmeasured runs.
func (sb *ScenarioBuilder) WithWarmupRuns(runs int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = runs
	return sb
}

// Build returns the scenario.
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// LoadScenarios reads a JSON array of scenarios.
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading scenarios %s", path)
	}
	var scenarios []Scenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return nil, errors.Wrapf(err, "parsing scenarios %s", path)
	}
	for _, s := range scenarios {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return scenarios, nil
}
