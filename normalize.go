package record

import (
	"strings"

	"github.com/stoewer/go-strcase"
)

// NormalizePropertyForStorage is the default storage-key normalizer. It maps
// snake, kebab, Pascal, space separated, and mixed spellings onto a single
// lower-camel form, so "scientific_name", "scientific-name", and
// "ScientificName" all address the same property.
func NormalizePropertyForStorage(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return trimmed
	}
	return strcase.LowerCamelCase(strings.ReplaceAll(trimmed, " ", "_"))
}

// NormalizePropertyForSerialization is the default serialization-key
// normalizer: identity. Shapes override it when the outward form differs from
// storage keys (snake_case payloads, for instance).
func NormalizePropertyForSerialization(name string) string {
	return name
}

// SnakeCaseNormalizer converts names to snake_case; handy as a serialization
// normalizer for wire payloads.
func SnakeCaseNormalizer(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return trimmed
	}
	return strcase.SnakeCase(trimmed)
}

// KebabCaseNormalizer converts names to kebab-case.
func KebabCaseNormalizer(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return trimmed
	}
	return strcase.KebabCase(trimmed)
}
