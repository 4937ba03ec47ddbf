package blog

import (
	"encoding/json"
	"strings"

	"github.com/nihongowithmoeno/moeno/core"
)

// Table is the remote table holding blog posts.
const Table = "BlogPosts"

const DefaultAuthor = "Moeno"

// remote column names
const (
	ColTitle         = "Title"
	ColCategory      = "Category"
	ColDescription   = "Description"
	ColDatePublished = "Date Published"
	ColDateEdited    = "Date Edited (Optional)"
	ColAuthor        = "Author"
	ColContent       = "Content"
)

type Post struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	DatePublished string `json:"datePublished"`
	DateEdited    string `json:"dateEdited"`
	Author        string `json:"author"`
	Content       string `json:"content"` // serialized document tree
	ContentHTML   string `json:"contentHtml,omitempty"`
}

// NewPost contains information needed to publish a Post.
// Content is accepted either as the document object or as its JSON string.
type NewPost struct {
	Title         string          `json:"title" validate:"required"`
	Category      string          `json:"category"`
	Description   string          `json:"description" validate:"required"`
	Content       json.RawMessage `json:"content" validate:"required"`
	DatePublished string          `json:"datePublished"`
	DateEdited    string          `json:"dateEdited"`
	Author        string          `json:"author"`
}

func (np *NewPost) clean() {
	np.Title = core.CleanString(np.Title)
	np.Category = core.CleanString(np.Category)
	np.Description = core.CleanString(np.Description)
	np.Author = core.CleanString(np.Author)
	if strings.TrimSpace(string(np.Content)) == "null" {
		np.Content = nil
	}
}

// contentString unwraps a JSON string holding the document, or keeps the raw document object.
func (np NewPost) contentString() string {
	var s string
	if err := json.Unmarshal(np.Content, &s); err == nil {
		return s
	}
	return string(np.Content)
}

func fromRecord(rec core.Record) Post {
	p := Post{
		ID:            rec.ID,
		Title:         rec.StringField(ColTitle),
		Category:      rec.StringField(ColCategory),
		Description:   rec.StringField(ColDescription),
		DatePublished: rec.StringField(ColDatePublished),
		DateEdited:    rec.StringField(ColDateEdited),
		Author:        rec.StringField(ColAuthor),
		Content:       rec.StringField(ColContent),
	}
	if p.Author == "" {
		p.Author = DefaultAuthor
	}
	return p
}
