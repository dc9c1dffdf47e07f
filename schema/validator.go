// Package payloadschema validates the JSON payloads crossing the engine's
// boundaries: incoming article files and content records read back from the
// cache. A record that fails validation is malformed and must be skipped, not
// propagated into similarity math.
package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed article.schema.json
var articleSchemaJSON string

//go:embed content_record.schema.json
var contentRecordSchemaJSON string

// ArticlePayload is the wire shape of one fetched article.
type ArticlePayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url"`
	Source      string   `json:"source"`
	Keywords    []string `json:"keywords,omitempty"`
	Topic       string   `json:"topic,omitempty"`
	PublishedAt string   `json:"published_at,omitempty"`
}

// ContentRecord is the cached record stored under content:<fingerprint>.
// Timestamp is epoch milliseconds at store time.
type ContentRecord struct {
	Title     string   `json:"title"`
	Content   string   `json:"content,omitempty"`
	Source    string   `json:"source"`
	Timestamp int64    `json:"timestamp"`
	URL       string   `json:"url"`
	Topic     string   `json:"topic,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
}

type compiledEntry struct {
	once   sync.Once
	schema *jsonschema.Schema
	err    error
}

var (
	articleCompiled compiledEntry
	recordCompiled  compiledEntry
)

// ValidateArticlePayload checks an article JSON document against the schema
// and returns the decoded payload.
func ValidateArticlePayload(payload json.RawMessage) (*ArticlePayload, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema(&articleCompiled, "article.schema.json", articleSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var item ArticlePayload
	if err := json.Unmarshal(normalized, &item); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateArticleSemantics(&item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ValidateContentRecord checks a cached record blob; any missing required
// field makes the record malformed.
func ValidateContentRecord(payload json.RawMessage) (*ContentRecord, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode record JSON: %w", err)
	}

	schema, err := loadSchema(&recordCompiled, "content_record.schema.json", contentRecordSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize record JSON: %w", err)
	}

	var record ContentRecord
	if err := json.Unmarshal(normalized, &record); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &record, nil
}

func loadSchema(entry *compiledEntry, name, source string) (*jsonschema.Schema, error) {
	entry.once.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource(name, strings.NewReader(source)); err != nil {
			entry.err = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile(name)
		if err != nil {
			entry.err = fmt.Errorf("compile schema: %w", err)
			return
		}
		entry.schema = schema
	})

	if entry.err != nil {
		return nil, entry.err
	}
	if entry.schema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return entry.schema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateArticleSemantics(item *ArticlePayload) error {
	if item == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(item.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	if strings.TrimSpace(item.Source) == "" {
		return fmt.Errorf("source must not be empty")
	}
	if err := validateURI("url", item.URL); err != nil {
		return err
	}
	if strings.TrimSpace(item.PublishedAt) != "" {
		if _, err := time.Parse(time.RFC3339, strings.TrimSpace(item.PublishedAt)); err != nil {
			return fmt.Errorf("published_at must be RFC3339: %w", err)
		}
	}
	for i, keyword := range item.Keywords {
		if strings.TrimSpace(keyword) == "" {
			return fmt.Errorf("keywords[%d] must not be empty", i)
		}
	}
	return nil
}

func validateURI(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	return nil
}
