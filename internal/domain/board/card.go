package board

import (
	"context"
	"strings"
)

type Card struct {
	ID          string
	Title       string
	Description string
	SourceList  string
}

// IsAnnotation reports whether the card title starts with marker. An empty
// marker disables the check.
func (c Card) IsAnnotation(marker string) bool {
	return marker != "" && strings.HasPrefix(c.Title, marker)
}

type Provider interface {
	Name() string
	FetchActiveCards(ctx context.Context, boardID string) ([]Card, error)
}
