package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Document is an uploaded SOP with the embedding computed from its content at ingestion.
// Content is immutable once stored; there is no update path.
type Document struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Category  string    `json:"category" db:"category"`
	Content   string    `json:"content" db:"content"`
	FileType  string    `json:"file_type" db:"file_type"`
	Embedding []float32 `json:"embedding" db:"embedding"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Document model
func (Document) TableName() string {
	return "sop_documents"
}

// NewDocument creates a new Document owned by userID
func NewDocument(userID uuid.UUID, title, category, content, fileType string, embedding []float32) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Category:  category,
		Content:   content,
		FileType:  fileType,
		Embedding: embedding,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks that every field required by the store is present.
// dims is the expected embedding length; zero skips the length check.
func (d *Document) Validate(dims int) error {
	var errs []error
	if d.ID == uuid.Nil {
		errs = append(errs, errors.New("id is required"))
	}
	if d.UserID == uuid.Nil {
		errs = append(errs, errors.New("user_id is required"))
	}
	if strings.TrimSpace(d.Title) == "" {
		errs = append(errs, errors.New("title is required"))
	}
	if strings.TrimSpace(d.Category) == "" {
		errs = append(errs, errors.New("category is required"))
	}
	if d.Content == "" {
		errs = append(errs, errors.New("content is required"))
	}
	if d.FileType == "" {
		errs = append(errs, errors.New("file_type is required"))
	}
	switch {
	case len(d.Embedding) == 0:
		errs = append(errs, errors.New("embedding is required"))
	case dims > 0 && len(d.Embedding) != dims:
		errs = append(errs, fmt.Errorf("embedding has %d dimensions, expected %d", len(d.Embedding), dims))
	}
	return errors.Join(errs...)
}

// DocumentSummary is the list projection of a Document
type DocumentSummary struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	FileType  string    `json:"file_type"`
}

// SearchResult is a Document matched by similarity. Similarity is computed
// per query and never stored.
type SearchResult struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	Content    string    `json:"content"`
	Similarity float64   `json:"similarity"`
}

// CategoryCount is the number of documents in one category
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DocumentStats aggregates a user's documents by category
type DocumentStats struct {
	TotalDocuments int             `json:"totalDocuments"`
	Categories     []CategoryCount `json:"categories"`
}

// NewDocumentStats totals the counts and orders categories by count descending,
// breaking ties by name.
func NewDocumentStats(counts []CategoryCount) *DocumentStats {
	categories := make([]CategoryCount, len(counts))
	copy(categories, counts)

	total := 0
	for _, c := range categories {
		total += c.Count
	}

	sort.SliceStable(categories, func(i, j int) bool {
		if categories[i].Count != categories[j].Count {
			return categories[i].Count > categories[j].Count
		}
		return categories[i].Name < categories[j].Name
	})

	return &DocumentStats{
		TotalDocuments: total,
		Categories:     categories,
	}
}
