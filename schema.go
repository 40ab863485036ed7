package record

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
)

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatDescriptors represents flattened field descriptors.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
	// SchemaFormatJSONSchema represents a reflected JSON Schema document.
	SchemaFormatJSONSchema SchemaFormat = "jsonschema"
)

// SchemaDocument encapsulates a generated schema output alongside its format
// identifier. Document must be JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
}

// FieldDescriptor describes a serialized record path and the inferred type.
type FieldDescriptor struct {
	Path string
	Type string
}

// Schema generates a descriptor document for the store's serialized snapshot.
// Getter overrides participate because the snapshot is taken via Serialize.
func (s *Store) Schema(ctx context.Context) (SchemaDocument, error) {
	snapshot, err := s.Serialize(ctx)
	if err != nil {
		return SchemaDocument{}, err
	}
	descriptors := deriveFieldDescriptors(snapshot, "")
	if descriptors == nil {
		descriptors = []FieldDescriptor{}
	}
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: descriptors,
	}, nil
}

// TypedSchema reflects a JSON Schema document for a hydration target type.
func TypedSchema[T any]() SchemaDocument {
	var target T
	return SchemaDocument{
		Format:   SchemaFormatJSONSchema,
		Document: jsonschema.Reflect(&target),
	}
}

func deriveFieldDescriptors(value any, prefix string) []FieldDescriptor {
	if value == nil {
		return nil
	}

	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 {
			return []FieldDescriptor{{
				Path: prefix,
				Type: "map[string]any",
			}}
		}
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var fields []FieldDescriptor
		for _, key := range keys {
			nextPrefix := joinPath(prefix, key)
			fields = append(fields, deriveFieldDescriptors(typed[key], nextPrefix)...)
		}
		return fields
	case []any:
		elementType := "any"
		if len(typed) > 0 {
			elementType = typeName(typed[0])
		}
		return []FieldDescriptor{{
			Path: prefix,
			Type: "[]" + elementType,
		}}
	default:
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{
			Path: prefix,
			Type: typeName(typed),
		}}
	}
}

func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
