package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// RawJSON is a schema-less JSON document stored verbatim (jsonb on Postgres, text on SQLite).
// It is never interpreted by domain logic.
type RawJSON json.RawMessage

// Value implements driver.Valuer.
func (j RawJSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements sql.Scanner.
func (j *RawJSON) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[:0], v...)
	case string:
		*j = RawJSON(v)
	default:
		return fmt.Errorf("unsupported type %T for RawJSON", src)
	}
	return nil
}

// MarshalJSON emits the stored document, or null when empty.
func (j RawJSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON stores the document as received.
func (j *RawJSON) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*j = nil
		return nil
	}
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON document")
	}
	*j = append((*j)[:0], data...)
	return nil
}

// GormDataType tells GORM how to migrate the column.
func (RawJSON) GormDataType() string {
	return "json"
}
