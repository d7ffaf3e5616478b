package programs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "primetime-intel/internal/common/errors"
)

const sampleDictJSON = `{
	"F35": {
		"full_name": "F-35 Lightning II Joint Strike Fighter",
		"prime_contractor": "Lockheed Martin",
		"acronyms": ["JSF", "F-35"],
		"code_names": ["Lightning II"],
		"key_skills": ["avionics", "stealth"]
	},
	"B21": {
		"full_name": "B-21 Raider",
		"prime_contractor": "Northrop Grumman"
	}
}`

func TestLoad(t *testing.T) {
	dict, err := Load(strings.NewReader(sampleDictJSON))
	require.NoError(t, err)
	require.Len(t, dict, 2)

	f35 := dict["F35"]
	assert.Equal(t, "F35", f35.Code)
	assert.Equal(t, "F-35 Lightning II Joint Strike Fighter", f35.FullName)
	assert.Equal(t, "Lockheed Martin", f35.PrimeContractor)
	assert.Equal(t, []string{"JSF", "F-35"}, f35.Acronyms)
	assert.Equal(t, []string{"Lightning II"}, f35.CodeNames)
	assert.Equal(t, []string{"avionics", "stealth"}, f35.KeySkills)
}

func TestLoad_MissingListsDefaultEmpty(t *testing.T) {
	dict, err := Load(strings.NewReader(sampleDictJSON))
	require.NoError(t, err)

	b21 := dict["B21"]
	assert.Equal(t, "B21", b21.Code)
	assert.Equal(t, []string{}, b21.Acronyms)
	assert.Equal(t, []string{}, b21.CodeNames)
	assert.Equal(t, []string{}, b21.KeySkills)
}

func TestLoad_MalformedJSON(t *testing.T) {
	dict, err := Load(strings.NewReader(`{"F35": `))

	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeDictionaryLoadFailed, commonerrors.CodeOf(err))
	assert.Empty(t, dict)
	assert.NotNil(t, dict)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "programs.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDictJSON), 0o644))

	dict, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, dict, 2)
}

func TestLoadFile_MissingFileFailsOpen(t *testing.T) {
	dict, err := LoadFile(filepath.Join(t.TempDir(), "does-not-exist.json"))

	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeDictionaryLoadFailed, commonerrors.CodeOf(err))
	// Fail-open: callers always get a usable, empty dictionary.
	assert.NotNil(t, dict)
	assert.Empty(t, dict)
}

func TestCodes_Sorted(t *testing.T) {
	dict := Dictionary{
		"SDA_T2TL": {},
		"B21":      {},
		"F35":      {},
		"CVN78":    {},
	}

	assert.Equal(t, []string{"B21", "CVN78", "F35", "SDA_T2TL"}, dict.Codes())
}
