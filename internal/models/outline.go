package models

import "time"

type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Order int    `json:"order"`
}

// Page belongs to the section named by SectionID; it is stored under that
// section's pages sub-collection.
type Page struct {
	ID        string  `json:"id"`
	SectionID string  `json:"sectionId"`
	Title     string  `json:"title"`
	Order     int     `json:"order"`
	Content   Content `json:"content"`
}

const SnapshotSchemaVersion = 1

type Snapshot struct {
	SchemaVersion int       `json:"schemaVersion"`
	Sections      []Section `json:"sections"`
	Pages         []Page    `json:"pages"`
}

type Version struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
	CreatedBy string    `json:"createdBy,omitempty"`
	Data      Snapshot  `json:"data"`
}
