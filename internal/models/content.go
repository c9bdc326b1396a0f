package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const (
	ContentFormatEditorJS = "editorjs"
	ContentSchemaVersion  = 1

	// EditorVersion is the block editor release new documents are stamped with.
	EditorVersion = "2.19.0"
)

// Content is a page body. The body is the block editor's document and is
// passed through untouched; format and schema version tag it so readers can
// detect documents they do not understand.
type Content struct {
	Format        string          `json:"format"`
	SchemaVersion int             `json:"schemaVersion"`
	Body          json.RawMessage `json:"body"`
}

// EditorDocument is the subset of the block editor document the server reads.
type EditorDocument struct {
	Time    int64   `json:"time"`
	Blocks  []Block `json:"blocks"`
	Version string  `json:"version"`
}

type Block struct {
	ID   string          `json:"id,omitempty"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EmptyContent returns a document with no blocks.
func EmptyContent(now time.Time) Content {
	body, _ := json.Marshal(EditorDocument{
		Time:    now.UnixMilli(),
		Blocks:  []Block{},
		Version: EditorVersion,
	})
	return Content{Format: ContentFormatEditorJS, SchemaVersion: ContentSchemaVersion, Body: body}
}

// NewContent wraps a raw editor document.
func NewContent(body json.RawMessage) Content {
	return Content{Format: ContentFormatEditorJS, SchemaVersion: ContentSchemaVersion, Body: body}
}

func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = Content{}
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return fmt.Errorf("content: %w", err)
	}
	if _, tagged := fields["format"]; tagged {
		type plain Content
		var p plain
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return fmt.Errorf("content: %w", err)
		}
		*c = Content(p)
		return nil
	}
	if _, ok := fields["blocks"]; ok {
		// Untagged editor documents predate the envelope.
		*c = NewContent(append(json.RawMessage(nil), trimmed...))
		return nil
	}
	return fmt.Errorf("content: neither a tagged payload nor an editor document")
}

// Supported reports whether the server knows how to read this payload.
func (c Content) Supported() bool {
	return c.Format == ContentFormatEditorJS && c.SchemaVersion >= 1 && c.SchemaVersion <= ContentSchemaVersion
}

// Document decodes the body as an editor document.
func (c Content) Document() (EditorDocument, error) {
	var doc EditorDocument
	if !c.Supported() {
		return doc, fmt.Errorf("content: unsupported format %q v%d", c.Format, c.SchemaVersion)
	}
	if len(c.Body) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(c.Body, &doc); err != nil {
		return doc, fmt.Errorf("content: %w", err)
	}
	return doc, nil
}
