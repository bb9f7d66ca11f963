package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	MaxCatNameLength  = 100
	MaxCatColorLength = 50
	MinCatAge         = 0
	MaxCatAge         = 50
)

// Cat is the single game entity a player may own.
type Cat struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Age   int    `json:"age"`
}

// CatInput is the desired state of a player's cat.
type CatInput struct {
	Name  string
	Color string
	Age   int
}

// Normalize trims surrounding whitespace and checks field bounds.
func (in CatInput) Normalize() (CatInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)

	switch {
	case in.Name == "":
		return in, NewValidationError("name", "is required")
	case utf8.RuneCountInString(in.Name) > MaxCatNameLength:
		return in, NewValidationError("name", "must be at most 100 characters")
	case in.Color == "":
		return in, NewValidationError("color", "is required")
	case utf8.RuneCountInString(in.Color) > MaxCatColorLength:
		return in, NewValidationError("color", "must be at most 50 characters")
	case in.Age < MinCatAge || in.Age > MaxCatAge:
		return in, NewValidationError("age", "must be between 0 and 50")
	}
	return in, nil
}
