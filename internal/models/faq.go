package models

// FAQEntry is one question/answer pair of the FAQ set.
type FAQEntry struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
