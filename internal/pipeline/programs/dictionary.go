// Package programs holds the defense-program reference data consumed by
// the mapping cascade. The dictionary is loaded once at startup and is
// read-only afterwards, so it may be shared across workers.
package programs

import (
	"encoding/json"
	"io"
	"os"
	"sort"

	commonerrors "primetime-intel/internal/common/errors"
)

// ProgramDefinition describes one defense acquisition program.
type ProgramDefinition struct {
	Code            string   `json:"-"`
	FullName        string   `json:"full_name"`
	PrimeContractor string   `json:"prime_contractor"`
	Acronyms        []string `json:"acronyms"`
	CodeNames       []string `json:"code_names"`
	KeySkills       []string `json:"key_skills"`
}

// Dictionary maps program code to its definition.
type Dictionary map[string]ProgramDefinition

// Load decodes a dictionary from JSON: an object keyed by program code
// where each entry carries full_name, prime_contractor and optional
// acronym/code-name/skill lists.
func Load(r io.Reader) (Dictionary, error) {
	var raw map[string]ProgramDefinition
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Dictionary{}, commonerrors.NewDictionaryLoadError(err.Error())
	}

	dict := make(Dictionary, len(raw))
	for code, def := range raw {
		def.Code = code
		if def.Acronyms == nil {
			def.Acronyms = []string{}
		}
		if def.CodeNames == nil {
			def.CodeNames = []string{}
		}
		if def.KeySkills == nil {
			def.KeySkills = []string{}
		}
		dict[code] = def
	}

	return dict, nil
}

// LoadFile loads the dictionary from disk. A missing or malformed file
// yields an empty dictionary alongside the error: the pipeline fails
// open and every classification degrades to "no programs matched"
// instead of aborting.
func LoadFile(path string) (Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dictionary{}, commonerrors.NewDictionaryLoadError(err.Error())
	}
	defer f.Close()

	return Load(f)
}

// Codes returns the program codes in sorted order, for deterministic
// iteration.
func (d Dictionary) Codes() []string {
	codes := make([]string, 0, len(d))
	for code := range d {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
