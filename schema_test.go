package record

import (
	"context"
	"encoding/json"
	"testing"
)

func TestSchemaDescriptors(t *testing.T) {
	ctx := context.Background()
	s, err := New(map[string]any{
		"name": "cat",
		"stats": map[string]any{
			"lifeSpan": 14,
		},
		"tags": []any{"pet"},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	doc, err := s.Schema(ctx)
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}
	if doc.Format != SchemaFormatDescriptors {
		t.Fatalf("unexpected format: %v", doc.Format)
	}
	descriptors, ok := doc.Document.([]FieldDescriptor)
	if !ok {
		t.Fatalf("unexpected document type: %T", doc.Document)
	}

	byPath := map[string]string{}
	for _, descriptor := range descriptors {
		byPath[descriptor.Path] = descriptor.Type
	}
	if byPath["name"] != "string" {
		t.Fatalf("expected string at name, got %q", byPath["name"])
	}
	if byPath["stats.lifeSpan"] != "int" {
		t.Fatalf("expected int at stats.lifeSpan, got %q", byPath["stats.lifeSpan"])
	}
	if byPath["tags"] != "[]string" {
		t.Fatalf("expected []string at tags, got %q", byPath["tags"])
	}
}

func TestSchemaEmptyStore(t *testing.T) {
	doc, err := Empty().Schema(context.Background())
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}
	descriptors, ok := doc.Document.([]FieldDescriptor)
	if !ok || len(descriptors) != 0 {
		t.Fatalf("expected empty descriptors, got %v", doc.Document)
	}
}

func TestTypedSchemaIsSerialisable(t *testing.T) {
	type species struct {
		ScientificName string `json:"scientificName"`
		LifeSpan       int    `json:"lifeSpan"`
	}
	doc := TypedSchema[species]()
	if doc.Format != SchemaFormatJSONSchema {
		t.Fatalf("unexpected format: %v", doc.Format)
	}
	payload, err := json.Marshal(doc.Document)
	if err != nil {
		t.Fatalf("schema document must be JSON-serialisable: %v", err)
	}
	if len(payload) == 0 {
		t.Fatal("expected non-empty schema payload")
	}
}
