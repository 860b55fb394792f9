package models

import "time"

type Collection struct {
	Name      string    `db:"name"`
	Dimension int       `db:"dimension"`
	CreatedAt time.Time `db:"created_at"`
}

// VectorDocument is a stored document with its embedding and free-form metadata.
type VectorDocument struct {
	ID        string         `db:"id"`
	Document  string         `db:"document"`
	Metadata  map[string]any `db:"metadata"`
	Embedding []float32      `db:"embedding"`
}

type VectorMatch struct {
	ID       string
	Document string
	Metadata map[string]any
	Distance float64
}
