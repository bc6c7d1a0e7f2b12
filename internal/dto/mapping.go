package dto

// RevealResponse returns the original value behind a reversible pseudonym.
type RevealResponse struct {
	Pseudonym string `json:"pseudonym"`
	Value     string `json:"value"`
}
