package models

import (
	"bytes"
	"encoding/json"
)

type Product struct {
	ProductLink  string  `db:"product_link" json:"product_link"`
	Title        string  `db:"title" json:"title"`
	Brand        string  `db:"brand" json:"brand"`
	Price        int     `db:"price" json:"price"`
	Discount     float64 `db:"discount" json:"discount"`
	AvgRating    float64 `db:"avg_rating" json:"avg_rating"`
	TotalRatings int     `db:"total_ratings" json:"total_ratings"`
}

type Field struct {
	Name  string
	Value any
}

// Record is one result row with its columns in query order.
type Record []Field

func (r Record) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Project keeps only the named columns, preserving the record's own order.
func (r Record) Project(names ...string) Record {
	keep := make(map[string]struct{}, len(names))
	for _, n := range names {
		keep[n] = struct{}{}
	}
	out := make(Record, 0, len(names))
	for _, f := range r {
		if _, ok := keep[f.Name]; ok {
			out = append(out, f)
		}
	}
	return out
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
