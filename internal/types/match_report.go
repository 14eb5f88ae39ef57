package types

// MatchReport is the model's assessment of how well a profile fits a job description.
type MatchReport struct {
	ID              string   `json:"id" validate:"required"`
	Score           float64  `json:"score" validate:"min=0,max=100"`
	Summary         string   `json:"summary" validate:"required"`
	MatchedKeywords []string `json:"matchedKeywords"`
	MissingKeywords []string `json:"missingKeywords"`
	Suggestions     []string `json:"suggestions,omitempty"`
}
