package notion

import (
	"encoding/json"
	"strings"
	"time"
)

// RichText is one span of Notion rich text.
type RichText struct {
	PlainText string `json:"plain_text"`
	Href      string `json:"href,omitempty"`
}

// PlainText concatenates the plain text of all spans.
func PlainText(spans []RichText) string {
	var sb strings.Builder
	for _, rt := range spans {
		sb.WriteString(rt.PlainText)
	}
	return sb.String()
}

// User is a Notion user reference. Name and Person are only present when
// the integration has user-read capability.
type User struct {
	Object string `json:"object"`
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Person *struct {
		Email string `json:"email"`
	} `json:"person,omitempty"`
}

// Email returns the user's email when known.
func (u User) Email() string {
	if u.Person == nil {
		return ""
	}
	return u.Person.Email
}

// DisplayName returns the name, or the id when the name is hidden.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}

// Parent points at the container of a page, database, block or comment.
type Parent struct {
	Type       string `json:"type"`
	PageID     string `json:"page_id,omitempty"`
	DatabaseID string `json:"database_id,omitempty"`
	BlockID    string `json:"block_id,omitempty"`
	Workspace  bool   `json:"workspace,omitempty"`
}

// ID returns the id of the parent object, or "" for workspace parents.
func (p Parent) ID() string {
	switch p.Type {
	case "page_id":
		return p.PageID
	case "database_id":
		return p.DatabaseID
	case "block_id":
		return p.BlockID
	default:
		return ""
	}
}

// Object is a search result: a page or a database.
type Object struct {
	Object         string                     `json:"object"`
	ID             string                     `json:"id"`
	URL            string                     `json:"url"`
	CreatedTime    time.Time                  `json:"created_time"`
	LastEditedTime time.Time                  `json:"last_edited_time"`
	CreatedBy      User                       `json:"created_by"`
	LastEditedBy   User                       `json:"last_edited_by"`
	Parent         Parent                     `json:"parent"`
	Archived       bool                       `json:"archived"`
	InTrash        bool                       `json:"in_trash"`
	Properties     map[string]json.RawMessage `json:"properties"`
	Title          []RichText                 `json:"title,omitempty"`       // databases only
	Description    []RichText                 `json:"description,omitempty"` // databases only
}

// IsDatabase reports whether the object is a database.
func (o *Object) IsDatabase() bool {
	return o.Object == "database"
}

// SchemaProperty is one column definition of a database.
type SchemaProperty struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// FileRef is a hosted or external file link.
type FileRef struct {
	URL string `json:"url"`
}

// BlockData holds the payload of a block. Notion nests the payload under a key
// named after the block type; the fields used by the supported types share
// names, so one struct covers them all.
type BlockData struct {
	RichText   []RichText   `json:"rich_text,omitempty"`
	Checked    bool         `json:"checked,omitempty"`
	Language   string       `json:"language,omitempty"`
	Caption    []RichText   `json:"caption,omitempty"`
	Title      string       `json:"title,omitempty"`
	URL        string       `json:"url,omitempty"`
	Expression string       `json:"expression,omitempty"`
	Cells      [][]RichText `json:"cells,omitempty"`
	Name       string       `json:"name,omitempty"`
	External   *FileRef     `json:"external,omitempty"`
	File       *FileRef     `json:"file,omitempty"`
}

// FileURL returns the external or hosted url of a media block.
func (d BlockData) FileURL() string {
	if d.External != nil && d.External.URL != "" {
		return d.External.URL
	}
	if d.File != nil {
		return d.File.URL
	}
	return ""
}

// Block is one Notion block. Children are filled in by the adapter.
type Block struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	HasChildren bool      `json:"has_children"`
	Parent      Parent    `json:"parent"`
	Data        BlockData `json:"-"`
	Children    []Block   `json:"-"`
}

// UnmarshalJSON lifts the type-named payload into Data.
func (b *Block) UnmarshalJSON(data []byte) error {
	type plain Block
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Block(p)
	if payload, ok := raw[b.Type]; ok && len(payload) > 0 && payload[0] == '{' {
		if err := json.Unmarshal(payload, &b.Data); err != nil {
			return err
		}
	}
	return nil
}

// Comment is a discussion comment on a page or block.
type Comment struct {
	ID          string     `json:"id"`
	CreatedTime time.Time  `json:"created_time"`
	CreatedBy   User       `json:"created_by"`
	RichText    []RichText `json:"rich_text"`
}

type listResponse[T any] struct {
	Results    []T    `json:"results"`
	NextCursor string `json:"next_cursor"`
	HasMore    bool   `json:"has_more"`
}

type searchRequest struct {
	StartCursor string      `json:"start_cursor,omitempty"`
	PageSize    int         `json:"page_size,omitempty"`
	Sort        *searchSort `json:"sort,omitempty"`
}

type searchSort struct {
	Direction string `json:"direction"`
	Timestamp string `json:"timestamp"`
}

// APIError is the error body returned by the Notion API.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return "notion api error " + e.Code + ": " + e.Message
}
