package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentDirtyTracking(t *testing.T) {
	schema := NewSchema("DocProfile")
	doc := hydrate(schema, map[string]any{
		"_id":  "p1",
		"name": "Ada",
		"bio":  map[string]any{"city": "London"},
	})

	assert.True(t, doc.Exists())
	assert.Empty(t, doc.Dirty())

	doc.Set("name", "Ada Lovelace")
	dirty := doc.Dirty()
	require.Len(t, dirty, 1)
	assert.Equal(t, "Ada Lovelace", dirty["name"])
}

func TestDocumentDirtyNestedMutation(t *testing.T) {
	schema := NewSchema("DocAccount")
	doc := hydrate(schema, map[string]any{
		"_id":      "a1",
		"settings": map[string]any{"theme": "dark"},
	})

	settings := doc.Get("settings").(map[string]any)
	settings["theme"] = "light"

	dirty := doc.Dirty()
	require.Contains(t, dirty, "settings")
}

func TestDocumentDirtyTypedSliceValues(t *testing.T) {
	schema := NewSchema("DocPost")
	doc := hydrate(schema, map[string]any{
		"_id":  "p1",
		"tags": []string{"go", "odm"},
	})

	assert.Empty(t, doc.Dirty())

	doc.Set("tags", []string{"go", "odm", "mongo"})
	dirty := doc.Dirty()
	require.Contains(t, dirty, "tags")
	assert.Equal(t, []string{"go", "odm", "mongo"}, dirty["tags"])
}

func TestDocumentDirtyReportsRemovedFields(t *testing.T) {
	schema := NewSchema("DocSession")
	doc := hydrate(schema, map[string]any{"_id": "s1", "token": "abc"})

	doc.Unset("token")
	dirty := doc.Dirty()
	require.Contains(t, dirty, "token")
	assert.Nil(t, dirty["token"])
}

func TestDocumentSyncOriginal(t *testing.T) {
	schema := NewSchema("DocTicket")
	doc := NewDocument(schema, map[string]any{"subject": "help"})
	assert.False(t, doc.Exists())

	doc.syncOriginal()
	assert.True(t, doc.Exists())
	assert.Empty(t, doc.Dirty())

	doc.Set("subject", "urgent help")
	assert.Len(t, doc.Dirty(), 1)
}

func TestDocumentRelatedAccessors(t *testing.T) {
	parentSchema := NewSchema("DocAuthor")
	childSchema := NewSchema("DocBook")

	parent := hydrate(parentSchema, map[string]any{"_id": "a1"})
	book := hydrate(childSchema, map[string]any{"_id": "b1"})

	parent.SetRelated("favorite", book)
	parent.SetRelated("books", []*Document{book})

	assert.Same(t, book, parent.Related("favorite"))
	require.Len(t, parent.RelatedMany("books"), 1)
	assert.Nil(t, parent.Related("missing"))
	assert.Nil(t, parent.RelatedMany("favorite"))
}

func TestDocumentToMapDetaches(t *testing.T) {
	schema := NewSchema("DocOrder")
	doc := hydrate(schema, map[string]any{
		"_id":   "o1",
		"items": []any{map[string]any{"sku": "x"}},
	})

	snapshot := doc.ToMap()
	snapshot["_id"] = "mutated"
	assert.Equal(t, "o1", doc.Get("_id"))
}
