package models

// PositionedToken is a single text fragment extracted from a statement page,
// with its position on the page. X grows left to right, Y grows bottom to top
// (PDF coordinate space). Tokens are produced once per document by the
// extraction collaborator and never mutated.
type PositionedToken struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}
