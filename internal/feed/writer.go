package feed

import (
	"encoding/json"
	"os"

	commonerrors "primetime-intel/internal/common/errors"
)

// WriteJSON writes a record sequence as indented JSON. Any failure here
// is batch-level and fatal to the run.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return commonerrors.NewOutputWriteError(err.Error())
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return commonerrors.NewOutputWriteError(err.Error())
	}

	return nil
}
