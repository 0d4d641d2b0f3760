// Package models holds the Bun ORM row types for MAGNET's durable stores.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONBMap stores an arbitrary JSON object in a JSONB column.
type JSONBMap map[string]any

// Value implements driver.Valuer.
func (j JSONBMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	bytes, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Scan implements sql.Scanner.
func (j *JSONBMap) Scan(value any) error {
	if value == nil {
		*j = make(JSONBMap)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return errors.New("failed to scan JSONBMap: value is not []byte or string")
		}
	}
	if len(bytes) == 0 {
		*j = make(JSONBMap)
		return nil
	}
	return json.Unmarshal(bytes, j)
}
