package domain

import (
	"fmt"
	"time"
)

// MenuItem is owned by the retrieval index; the decision engine only reads it.
type MenuItem struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"index"`
	Description  string    `json:"description"`
	Category     string    `json:"category,omitempty"`
	Ingredients  string    `json:"ingredients,omitempty"`
	Price        float64   `json:"price"`
	Currency     string    `json:"currency"`
	Available    bool      `json:"available" gorm:"index"`
	Embedding    []float32 `json:"-" gorm:"serializer:json"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Document returns the text that gets embedded for retrieval.
func (m *MenuItem) Document() string {
	doc := fmt.Sprintf("%s: %s", m.Name, m.Description)
	if m.Category != "" {
		doc += fmt.Sprintf(" Category: %s", m.Category)
	}
	if m.Ingredients != "" {
		doc += fmt.Sprintf(" Ingredients: %s", m.Ingredients)
	}
	return doc
}

// ScoredItem is a retrieval hit with its relevance score.
type ScoredItem struct {
	Item  MenuItem `json:"item"`
	Score float64  `json:"score"`
}
