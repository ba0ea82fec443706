package domain

import "time"

// Content kinds produced by the generation pipeline.
const (
	ContentKindArticle = "article"
	ContentKindKeyword = "keyword"
)

// Content is a team-owned artifact. Every read and write is scoped by TeamID.
type Content struct {
	ID        string
	TeamID    string
	CreatorID string
	Kind      string
	Title     string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResourceTypeForKind maps a content kind to the quota it consumes.
func ResourceTypeForKind(kind string) (string, bool) {
	switch kind {
	case ContentKindArticle:
		return ResourceArticles, true
	case ContentKindKeyword:
		return ResourceKeywords, true
	}
	return "", false
}
