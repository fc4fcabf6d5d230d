package extract_test

import (
	"encoding/json"
	"testing"

	"github.com/coursegate/coursegate/internal/webhook/extract"
	"github.com/stretchr/testify/assert"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()

	var tree map[string]any
	if err := json.Unmarshal([]byte(raw), &tree); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return tree
}

func TestFindEmailPrefersEmailLikeKeys(t *testing.T) {
	tree := decode(t, `{
		"comment": "reach me at support@vendor.example",
		"buyer": {"contact_email": "jane@example.com"}
	}`)

	email, ok := extract.FindEmail(tree)
	assert.True(t, ok)
	assert.Equal(t, "jane@example.com", email)
}

func TestFindEmailScansNestedArrays(t *testing.T) {
	tree := decode(t, `{"items": [{"note": "n/a"}, {"contact": {"email": "jane@example.com"}}]}`)

	email, ok := extract.FindEmail(tree)
	assert.True(t, ok)
	assert.Equal(t, "jane@example.com", email)
}

func TestFindEmailMissing(t *testing.T) {
	tree := decode(t, `{"name": "Jane", "city": "Utrecht"}`)

	_, ok := extract.FindEmail(tree)
	assert.False(t, ok)
}

func TestFindNameRejectsEmailLeaves(t *testing.T) {
	tree := decode(t, `{"customer": {"email": "jane@example.com"}, "details": {"full_name": "Jane Smith"}}`)

	name, ok := extract.FindName(tree)
	assert.True(t, ok)
	assert.Equal(t, "Jane Smith", name)
}

func TestFindNameDirectStringUnderPreferredKeyWins(t *testing.T) {
	// A string sitting directly under a name-like key is returned as is,
	// even when blank.
	tree := decode(t, `{"name": "", "fallback": "Other"}`)

	name, ok := extract.FindName(tree)
	assert.True(t, ok)
	assert.Equal(t, "", name)
}

func TestFindByKeyHonorsCandidatePriority(t *testing.T) {
	tree := decode(t, `{"postal_code": "9999", "zipcode": "1012AB"}`)

	value, ok := extract.FindByKey(tree, []string{"zipcode", "zip", "postal_code"})
	assert.True(t, ok)
	assert.Equal(t, "1012AB", value)
}

func TestFindByKeyMatchesCaseInsensitively(t *testing.T) {
	tree := decode(t, `{"buyer": {"FirstName": "Jane"}}`)

	value, ok := extract.FindByKey(tree, []string{"first_name", "firstName", "first"})
	assert.True(t, ok)
	assert.Equal(t, "Jane", value)
}

func TestFindByKeyIgnoresUnrelatedStrings(t *testing.T) {
	tree := decode(t, `{"email": "jane@example.com", "name": "Jane"}`)

	_, ok := extract.FindByKey(tree, []string{"document", "cpf", "cnpj"})
	assert.False(t, ok)
}

func TestFindByKeyDescendsMatchedSubtree(t *testing.T) {
	tree := decode(t, `{"document": {"value": "12345678900"}}`)

	value, ok := extract.FindByKey(tree, []string{"document"})
	assert.True(t, ok)
	assert.Equal(t, "12345678900", value)
}

func TestHasKeyIsExactAndRecursive(t *testing.T) {
	tree := decode(t, `{"data": {"buyer": {"name": "Jane"}}}`)

	assert.True(t, extract.HasKey(tree, "name"))
	assert.False(t, extract.HasKey(tree, "Name"))
	assert.False(t, extract.HasKey(tree, "email"))
}
