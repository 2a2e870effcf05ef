package models

// Achievement is a badge earned by satisfying one rule of the achievement table.
type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}
