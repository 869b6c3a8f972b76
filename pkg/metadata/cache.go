// SPDX-License-Identifier: Apache-2.0

package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// cacheSchemaDoc describes the on-disk shape written by WriteCache / read by
// LoadCache (the `metadata.json` registry snapshot). Structured files the
// registry trusts from disk are validated against a JSON Schema before
// being accepted (internal/jsonschema in the
// pack, there applied to migration files; here applied to the metadata
// cache LoadFromPath can skip re-parsing source for).
const cacheSchemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["entities"],
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["className", "table", "columns"],
        "properties": {
          "className": {"type": "string", "minLength": 1},
          "table": {"type": "string", "minLength": 1},
          "columns": {"type": "array"},
          "relations": {"type": "array"},
          "indexes": {"type": "array"}
        }
      }
    }
  }
}`

func compileCacheSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("metadata-cache.json", mustUnmarshalJSON(cacheSchemaDoc)); err != nil {
		return nil, err
	}
	return c.Compile("metadata-cache.json")
}

func mustUnmarshalJSON(doc string) any {
	var v any
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		panic(err)
	}
	return v
}

type cacheDocument struct {
	Entities []*EntityMetadata `json:"entities"`
}

// WriteCache serialises every registered entity to w as JSON, validated
// against cacheSchemaDoc before being written.
func (r *Registry) WriteCache(w io.Writer) error {
	r.mu.RLock()
	doc := cacheDocument{Entities: make([]*EntityMetadata, 0, len(r.entities))}
	for _, m := range r.entities {
		doc.Entities = append(doc.Entities, m)
	}
	r.mu.RUnlock()

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("metadata: marshal cache: %w", err)
	}

	if err := validateCacheDoc(raw); err != nil {
		return fmt.Errorf("metadata: cache document failed validation: %w", err)
	}

	_, err = w.Write(raw)
	return err
}

// LoadCache reads a metadata.json cache previously written by WriteCache,
// validates it, and registers every entity it contains.
func (r *Registry) LoadCache(src io.Reader) error {
	raw, err := io.ReadAll(src)
	if err != nil {
		return err
	}

	if err := validateCacheDoc(raw); err != nil {
		return fmt.Errorf("metadata: cache document failed validation: %w", err)
	}

	var doc cacheDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("metadata: unmarshal cache: %w", err)
	}

	for _, m := range doc.Entities {
		if err := r.put(m); err != nil {
			return err
		}
	}
	return nil
}

func validateCacheDoc(raw []byte) error {
	schema, err := compileCacheSchema()
	if err != nil {
		return err
	}

	var v any
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&v); err != nil {
		return err
	}

	return schema.Validate(v)
}
