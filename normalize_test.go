package record

import "testing"

func TestNormalizePropertyForStorage(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"scientific_name", "scientificName"},
		{"scientific-name", "scientificName"},
		{"ScientificName", "scientificName"},
		{"scientificName", "scientificName"},
		{"scientific name", "scientificName"},
		{" scientific_name ", "scientificName"},
		{"x", "x"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizePropertyForStorage(tc.in); got != tc.want {
			t.Errorf("NormalizePropertyForStorage(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStorageNormalizationIsIdempotent(t *testing.T) {
	// Serialize re-normalizes stored keys, so normalized names must be
	// fixpoints.
	for _, name := range []string{"scientific_name", "LifeSpan", "is-domestic"} {
		once := NormalizePropertyForStorage(name)
		if twice := NormalizePropertyForStorage(once); twice != once {
			t.Errorf("normalization of %q not idempotent: %q -> %q", name, once, twice)
		}
	}
}

func TestNormalizePropertyForSerializationIsIdentity(t *testing.T) {
	for _, name := range []string{"scientificName", "life_span", ""} {
		if got := NormalizePropertyForSerialization(name); got != name {
			t.Errorf("expected identity for %q, got %q", name, got)
		}
	}
}

func TestSnakeAndKebabNormalizers(t *testing.T) {
	if got := SnakeCaseNormalizer("scientificName"); got != "scientific_name" {
		t.Errorf("SnakeCaseNormalizer = %q", got)
	}
	if got := KebabCaseNormalizer("scientificName"); got != "scientific-name" {
		t.Errorf("KebabCaseNormalizer = %q", got)
	}
}
