package emotion

import (
	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed themes.yaml
var themesYAML []byte

// ThemeProfile describes the cinematic score and report styling for one
// dominant emotion.
type ThemeProfile struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Color       string     `yaml:"color"`
	Icon        string     `yaml:"icon"`
	Key         string     `yaml:"key"`
	Tempo       float64    `yaml:"tempo"` // BPM
	Chord       []float64  `yaml:"chord"` // sustained chord frequencies in Hz
	Melody      []float64  `yaml:"melody"`
	Harmonics   []Harmonic `yaml:"harmonics"`
	Tremolo     Tremolo    `yaml:"tremolo"`
}

// Harmonic is a partial added to each base frequency.
type Harmonic struct {
	Ratio  float64 `yaml:"ratio"`
	Weight float64 `yaml:"weight"`
}

// Tremolo is a slow amplitude modulation. Zero depth disables it.
type Tremolo struct {
	Rate  float64 `yaml:"rate"` // Hz
	Depth float64 `yaml:"depth"`
}

type themesFile struct {
	Themes map[string]ThemeProfile `yaml:"themes"`
}

var themes map[string]ThemeProfile

func init() {
	var file themesFile
	if err := yaml.Unmarshal(themesYAML, &file); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded themes.yaml: " + err.Error())
	}
	themes = file.Themes
	for _, label := range Labels {
		if _, ok := themes[label]; !ok {
			panic("embedded themes.yaml is missing theme for label " + label)
		}
	}
}

// ThemeFor resolves the theme profile for an emotion label.
// Unknown labels fall back to the neutral theme.
func ThemeFor(label string) ThemeProfile {
	if theme, ok := themes[label]; ok {
		return theme
	}
	return themes["neutral"]
}
