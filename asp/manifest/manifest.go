// Package manifest loads fragment definitions into a store, either from
// JSON manifest documents or from directories of program files. Manifest
// documents are schema-validated before any store mutation, so a rejected
// manifest never leaves the store half-updated.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/hornetworks/aspcache/asp/fragment"
)

// documentSchema is the JSON schema every manifest must satisfy.
const documentSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["fragments"],
	"additionalProperties": false,
	"properties": {
		"fragments": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["key", "text"],
				"additionalProperties": false,
				"properties": {
					"key": {"type": "string", "minLength": 1},
					"text": {"type": "string"},
					"categories": {
						"type": "array",
						"items": {"type": "string", "minLength": 1}
					}
				}
			}
		}
	}
}`

// Document is the manifest wire format.
type Document struct {
	Fragments []Entry `json:"fragments"`
}

// Entry describes a single fragment registration.
type Entry struct {
	Key        string   `json:"key"`
	Text       string   `json:"text"`
	Categories []string `json:"categories,omitempty"`
}

// Parse validates raw manifest bytes against the embedded schema and
// decodes them. Malformed JSON and schema violations both reject the
// whole document.
func Parse(data []byte) (*Document, error) {
	schemaLoader := gojsonschema.NewStringLoader(documentSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("manifest validation failed: %w", err)
	}

	if !result.Valid() {
		var errors []string
		for _, e := range result.Errors() {
			errors = append(errors, e.String())
		}
		return nil, fmt.Errorf("manifest schema errors: %s", strings.Join(errors, "; "))
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &doc, nil
}

// Load reads a JSON manifest and registers every entry in the store.
// Existing fragments under other keys are left alone; entries sharing a
// key with an existing fragment replace it. Returns the number of
// fragments registered.
func Load(r io.Reader, store *fragment.Store) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read manifest: %w", err)
	}

	doc, err := Parse(data)
	if err != nil {
		return 0, err
	}
	return apply(doc, store)
}

// LoadFile is Load for a manifest on disk.
func LoadFile(path string, store *fragment.Store) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open manifest %s: %w", path, err)
	}
	defer f.Close()
	return Load(f, store)
}

// Replace validates raw manifest bytes and swaps the store's contents
// for the document's fragments. On any validation failure the store is
// untouched.
func Replace(data []byte, store *fragment.Store) (int, error) {
	doc, err := Parse(data)
	if err != nil {
		return 0, err
	}
	store.RemoveAll()
	return apply(doc, store)
}

func apply(doc *Document, store *fragment.Store) (int, error) {
	for _, e := range doc.Fragments {
		if err := store.SetFragment(e.Key, e.Text, e.Categories); err != nil {
			return 0, fmt.Errorf("failed to register fragment %q: %w", e.Key, err)
		}
	}
	return len(doc.Fragments), nil
}
