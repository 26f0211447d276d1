// Package annotate aggregates detections into per-class counts and draws them onto the region.
package annotate

import "strings"

// Option is a display token accepted from callers.
type Option string

const (
	// OptionBox draws box outlines.
	OptionBox Option = "Box"
	// OptionLabel draws "<name> <score>%" labels.
	OptionLabel Option = "Label"
)

// DisplayConfig is the closed set of display options. With neither flag set a centroid marker
// is drawn per detection.
type DisplayConfig struct {
	ShowBoxes  bool `json:"show_boxes"`
	ShowLabels bool `json:"show_labels"`
}

// Markers reports whether centroid markers are drawn instead of boxes and labels.
func (d DisplayConfig) Markers() bool {
	return !d.ShowBoxes && !d.ShowLabels
}

// ParseDisplayOptions maps caller tokens onto a DisplayConfig.
//
// Tokens are matched case-insensitively and may also be comma separated within one value.
// Unknown tokens are ignored.
//
// @example
//
//	ParseDisplayOptions([]string{"Box,label"}) // DisplayConfig{ShowBoxes: true, ShowLabels: true}
func ParseDisplayOptions(tokens []string) DisplayConfig {
	var d DisplayConfig
	for _, value := range tokens {
		for _, tok := range strings.Split(value, ",") {
			switch {
			case strings.EqualFold(strings.TrimSpace(tok), string(OptionBox)):
				d.ShowBoxes = true
			case strings.EqualFold(strings.TrimSpace(tok), string(OptionLabel)):
				d.ShowLabels = true
			}
		}
	}
	return d
}
