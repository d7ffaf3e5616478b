package store

import "encoding/json"

// encodeStrings serializes a string set for a JSONB column. A nil slice
// encodes as an empty array rather than SQL NULL.
func encodeStrings(values []string) []byte {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return []byte("[]")
	}
	return data
}
