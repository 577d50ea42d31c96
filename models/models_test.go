package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Document tests
func TestNewDocument(t *testing.T) {
	userID := uuid.New()
	embedding := []float32{0.1, 0.2, 0.3}

	doc := NewDocument(userID, "Cleaning Protocol A", "Sanitation", "wipe the mixer", "text/plain", embedding)

	assert.NotEqual(t, uuid.Nil, doc.ID)
	assert.Equal(t, userID, doc.UserID)
	assert.Equal(t, "Cleaning Protocol A", doc.Title)
	assert.Equal(t, "Sanitation", doc.Category)
	assert.Equal(t, "wipe the mixer", doc.Content)
	assert.Equal(t, "text/plain", doc.FileType)
	assert.Equal(t, embedding, doc.Embedding)
	assert.False(t, doc.CreatedAt.IsZero())
	assert.Equal(t, doc.CreatedAt, doc.UpdatedAt)
}

func TestNewDocument_DistinctIDs(t *testing.T) {
	userID := uuid.New()
	a := NewDocument(userID, "t", "c", "same", "text/plain", []float32{1})
	b := NewDocument(userID, "t", "c", "same", "text/plain", []float32{1})

	assert.NotEqual(t, a.ID, b.ID)
}

func TestDocument_TableName(t *testing.T) {
	assert.Equal(t, "sop_documents", Document{}.TableName())
}

func TestDocument_Validate(t *testing.T) {
	valid := func() *Document {
		return NewDocument(uuid.New(), "Title", "Category", "content", "text/plain", []float32{0.1, 0.2})
	}

	tests := []struct {
		name    string
		mutate  func(d *Document)
		dims    int
		wantErr string
	}{
		{name: "valid", mutate: func(d *Document) {}, dims: 2},
		{name: "dimension check disabled", mutate: func(d *Document) {}, dims: 0},
		{name: "missing id", mutate: func(d *Document) { d.ID = uuid.Nil }, wantErr: "id is required"},
		{name: "missing owner", mutate: func(d *Document) { d.UserID = uuid.Nil }, wantErr: "user_id is required"},
		{name: "blank title", mutate: func(d *Document) { d.Title = "   " }, wantErr: "title is required"},
		{name: "blank category", mutate: func(d *Document) { d.Category = "" }, wantErr: "category is required"},
		{name: "empty content", mutate: func(d *Document) { d.Content = "" }, wantErr: "content is required"},
		{name: "missing file type", mutate: func(d *Document) { d.FileType = "" }, wantErr: "file_type is required"},
		{name: "missing embedding", mutate: func(d *Document) { d.Embedding = nil }, wantErr: "embedding is required"},
		{name: "wrong dimensions", mutate: func(d *Document) {}, dims: 1536, wantErr: "expected 1536"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := valid()
			tt.mutate(doc)

			err := doc.Validate(tt.dims)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewDocumentStats(t *testing.T) {
	counts := []CategoryCount{
		{Name: "Quality", Count: 2},
		{Name: "Sanitation", Count: 5},
		{Name: "Audit", Count: 2},
	}

	stats := NewDocumentStats(counts)

	assert.Equal(t, 9, stats.TotalDocuments)
	assert.Equal(t, []CategoryCount{
		{Name: "Sanitation", Count: 5},
		{Name: "Audit", Count: 2},
		{Name: "Quality", Count: 2},
	}, stats.Categories)
	// input is left in its original order
	assert.Equal(t, "Quality", counts[0].Name)
}

func TestNewDocumentStats_Empty(t *testing.T) {
	stats := NewDocumentStats(nil)

	assert.Equal(t, 0, stats.TotalDocuments)
	data, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalDocuments":0,"categories":[]}`, string(data))
}

// Message tests
func TestMessageConstructors(t *testing.T) {
	assert.Equal(t, Message{Role: RoleUser, Content: "hi"}, NewUserMessage("hi"))
	assert.Equal(t, Message{Role: RoleSystem, Content: "ctx"}, NewSystemMessage("ctx"))

	plain := NewAssistantMessage("answer", nil)
	assert.Nil(t, plain.SourceDocuments)

	sources := []SearchResult{{ID: uuid.New(), Title: "A", Similarity: 0.7}}
	cited := NewAssistantMessage("answer", sources)
	assert.Equal(t, sources, cited.SourceDocuments)

	sources[0].Title = "changed"
	assert.Equal(t, "A", cited.SourceDocuments[0].Title)
}

func TestMessage_JSONOmitsEmptySources(t *testing.T) {
	data, err := json.Marshal(NewAssistantMessage("answer", []SearchResult{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"assistant","content":"answer"}`, string(data))

	data, err = json.Marshal(NewAssistantMessage("answer", []SearchResult{{Title: "A"}}))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sourceDocuments"`)
}

func TestMessage_Validate(t *testing.T) {
	assert.NoError(t, NewUserMessage("q").Validate())
	assert.NoError(t, NewAssistantMessage("a", []SearchResult{{Title: "A"}}).Validate())

	assert.Error(t, Message{Role: "tool", Content: "x"}.Validate())
	assert.Error(t, Message{Role: RoleUser, SourceDocuments: []SearchResult{{Title: "A"}}}.Validate())
}

func TestLastUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		want     int
	}{
		{"empty", nil, -1},
		{"no user message", []Message{NewSystemMessage("s"), NewAssistantMessage("a", nil)}, -1},
		{"single", []Message{NewUserMessage("q")}, 0},
		{"last of several", []Message{NewUserMessage("q1"), NewAssistantMessage("a", nil), NewUserMessage("q2"), NewAssistantMessage("a2", nil)}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LastUserMessage(tt.messages))
		})
	}
}

// Conversation tests
func TestNewConversation(t *testing.T) {
	userID := uuid.New()
	messages := []Message{NewUserMessage("How do I clean the mixer?")}

	conv := NewConversation("abc", userID, messages)

	assert.Equal(t, "abc", conv.ID)
	assert.Equal(t, "How do I clean the mixer?", conv.Title)
	assert.Equal(t, userID, conv.UserID)
	assert.Equal(t, "/chat/abc", conv.Path)
	assert.Equal(t, messages, conv.Messages)
	assert.False(t, conv.CreatedAt.IsZero())
	assert.True(t, conv.IsOwnedBy(userID))
	assert.False(t, conv.IsOwnedBy(uuid.New()))
}

func TestConversationTitle(t *testing.T) {
	short := "short question"
	assert.Equal(t, short, ConversationTitle(short))

	long := strings.Repeat("a", 150)
	assert.Len(t, ConversationTitle(long), MaxTitleLength)

	// multi-byte characters count once each
	accented := strings.Repeat("é", 120)
	assert.Equal(t, strings.Repeat("é", 100), ConversationTitle(accented))
}

func TestConversation_JSONFieldNames(t *testing.T) {
	conv := NewConversation("abc", uuid.New(), []Message{NewUserMessage("q")})

	data, err := json.Marshal(conv)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"userId"`)
	assert.Contains(t, string(data), `"createdAt"`)
	assert.Contains(t, string(data), `"path":"/chat/abc"`)
}

func TestConversation_TableName(t *testing.T) {
	assert.Equal(t, "chats", Conversation{}.TableName())
}
