package model

import (
	"bytes"
	"encoding/json"
)

// ID is a record identifier that accepts either a JSON string or a JSON
// number. Legacy records carry numeric ids.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	*id = ID(data)
	return nil
}

func (id ID) String() string {
	return string(id)
}
