package domain

import "time"

// SourceType classifies how a logical table came to exist.
type SourceType string

const (
	// SourceImported marks a table materialized directly from an uploaded file.
	SourceImported SourceType = "imported"
	// SourceDerived marks a table produced by merge or reshape.
	SourceDerived SourceType = "derived"
)

// DataFile is an immutable record of an uploaded source file.
type DataFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Size       int64     `json:"size"`
	StoredPath string    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Table is a named logical dataset. Its identity persists across content
// versions; exactly one TableVersion is active at any time.
type Table struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	SourceType   SourceType `json:"sourceType"`
	SourceFileID *string    `json:"sourceFileId,omitempty"`
	Dirty        bool       `json:"dirty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// TableVersion is an immutable snapshot of a table's content. Versions are
// never deleted; undo works by re-pointing the active flag.
type TableVersion struct {
	ID           string    `json:"id"`
	TableID      string    `json:"tableId"`
	Version      int       `json:"version"`
	PhysicalName string    `json:"physicalName"`
	OpLogID      *string   `json:"opLogId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	IsActive     bool      `json:"isActive"`
}

// FieldMeta is the merged per-column view: engine type plus profile facts
// plus explicit/inferred key flags.
type FieldMeta struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Nullable     bool     `json:"nullable"`
	IsPrimaryKey bool     `json:"isPrimaryKey"`
	IsUnique     bool     `json:"isUnique,omitempty"`
	IsIdentity   bool     `json:"isIdentity,omitempty"`
	IsForeignKey bool     `json:"isForeignKey,omitempty"`
	RefTable     *string  `json:"refTable,omitempty"`
	RefField     *string  `json:"refField,omitempty"`
	MissingCount int64    `json:"missingCount"`
	MissingRate  float64  `json:"missingRate"`
}

// TableMeta is the outward view of a table merged with its field metadata.
type TableMeta struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Fields       []FieldMeta `json:"fields"`
	RowCount     int64       `json:"rowCount"`
	SourceType   SourceType  `json:"sourceType"`
	Dirty        bool        `json:"dirty"`
	SourceFileID *string     `json:"sourceFileId,omitempty"`
}
