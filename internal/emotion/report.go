package emotion

// Report is the emotion analysis summary returned to clients.
// The JSON field names are a compatibility surface and must not change.
type Report struct {
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Color           string         `json:"color"`
	Icon            string         `json:"icon"`
	DominantEmotion string         `json:"dominant_emotion"`
	EmotionCounts   map[string]int `json:"emotion_counts"`
	Caption         string         `json:"caption,omitempty"`
}

// BuildReport assembles the report for a tally. The theme is resolved from
// the tally's dominant label; all labels appear in the counts, zeros included.
func BuildReport(tally Tally) Report {
	dominant := tally.Dominant()
	theme := ThemeFor(dominant)

	counts := make(map[string]int, len(Labels))
	for _, label := range Labels {
		counts[label] = tally[label]
	}

	return Report{
		Name:            theme.Name,
		Description:     theme.Description,
		Color:           theme.Color,
		Icon:            theme.Icon,
		DominantEmotion: dominant,
		EmotionCounts:   counts,
	}
}
