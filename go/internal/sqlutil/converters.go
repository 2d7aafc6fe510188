package sqlutil

import (
	"encoding/json"

	"github.com/sqlc-dev/pqtype"
)

// Helper functions for moving JSON documents in and out of nullable columns

// ToNullRawMessage wraps data for a nullable JSON column. Empty or null input is stored as NULL.
func ToNullRawMessage(data []byte) pqtype.NullRawMessage {
	if len(data) == 0 || string(data) == "null" {
		return pqtype.NullRawMessage{Valid: false}
	}
	return pqtype.NullRawMessage{RawMessage: json.RawMessage(data), Valid: true}
}

// FromNullRawMessage returns the column text, or defaultVal when it is NULL
func FromNullRawMessage(val pqtype.NullRawMessage, defaultVal string) string {
	if !val.Valid {
		return defaultVal
	}
	return string(val.RawMessage)
}

// MarshalJSONColumn encodes v for a NOT NULL JSON column
func MarshalJSONColumn(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}
