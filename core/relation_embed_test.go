package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedsOneEagerLoadIssuesNoQuery(t *testing.T) {
	orderSchema := NewSchema("EmbOrder")
	addressSchema := NewSchema("EmbAddress")
	orderSchema.EmbedsOne("shipping", addressSchema)

	driver := newFakeDriver()
	driver.seed(orderSchema.Collection, map[string]any{
		"_id":      "o1",
		"shipping": map[string]any{"_id": "ad1", "city": "Lisbon"},
	})

	model := NewModel(orderSchema, driver)
	docs, err := model.FindMany(model.Query()).With("shipping").Run(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	// only the parent query; embedded data never hits the driver
	assert.Equal(t, 1, driver.findCalls)

	shipping := docs[0].Related("shipping")
	require.NotNil(t, shipping)
	assert.True(t, shipping.Exists())
	assert.Equal(t, "Lisbon", shipping.Get("city"))
	assert.Same(t, addressSchema, shipping.Schema())
}

func TestEmbedsOneSave(t *testing.T) {
	orderSchema := NewSchema("EmbInvoice")
	addressSchema := NewSchema("EmbBilling")
	orderSchema.EmbedsOne("billing", addressSchema)

	driver := newFakeDriver()
	model := NewModel(orderSchema, driver)

	order := model.New(map[string]any{"number": 7})
	require.NoError(t, model.Create(context.Background(), order))

	rel, err := model.Relation("billing", order)
	require.NoError(t, err)

	address := NewDocument(addressSchema, map[string]any{"city": "Porto"})
	saved, err := rel.Save(context.Background(), address)
	require.NoError(t, err)

	// a generated key keeps the embedded document addressable
	assert.NotEmpty(t, saved.PrimaryValue())

	embedded, ok := order.Get("billing").(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Porto", embedded["city"])

	row := driver.rows[orderSchema.Collection][0]
	persisted, ok := row["billing"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Porto", persisted["city"])
}

func TestEmbedsOneSaveSucceedsOnEmptyParentKey(t *testing.T) {
	draftSchema := NewSchema("EmbDraft")
	noteSchema := NewSchema("EmbNote")
	draftSchema.EmbedsOne("note", noteSchema)

	model := NewModel(draftSchema, newFakeDriver())

	// persisted parent without a key: warns but must not abort
	draft := hydrate(draftSchema, map[string]any{})
	rel, err := model.Relation("note", draft)
	require.NoError(t, err)

	saved, err := rel.Save(context.Background(), NewDocument(noteSchema, map[string]any{"text": "remember"}))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.PrimaryValue())

	embedded, ok := draft.Get("note").(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "remember", embedded["text"])
}

func TestEmbedsManySaveSucceedsOnEmptyParentKey(t *testing.T) {
	boardSchema := NewSchema("EmbBoard")
	pinSchema := NewSchema("EmbPin")
	boardSchema.EmbedsMany("pins", pinSchema)

	model := NewModel(boardSchema, newFakeDriver())

	board := hydrate(boardSchema, map[string]any{})
	rel, err := model.Relation("pins", board)
	require.NoError(t, err)

	_, err = rel.Save(context.Background(), NewDocument(pinSchema, map[string]any{"url": "a"}))
	require.NoError(t, err)

	entries, ok := board.Get("pins").([]any)
	require.True(t, ok)
	assert.Len(t, entries, 1)
}

func TestEmbedsOneSaveRequiresSavedParent(t *testing.T) {
	cartSchema := NewSchema("EmbCart")
	couponSchema := NewSchema("EmbCoupon")
	cartSchema.EmbedsOne("coupon", couponSchema)

	model := NewModel(cartSchema, newFakeDriver())
	cart := model.New(nil)
	rel, err := model.Relation("coupon", cart)
	require.NoError(t, err)

	_, err = rel.Save(context.Background(), NewDocument(couponSchema, nil))
	assert.ErrorIs(t, err, ErrUnsavedTarget)
}

func TestEmbedsOneSaveRejectsWrongSchema(t *testing.T) {
	boxSchema := NewSchema("EmbBox")
	labelSchema := NewSchema("EmbLabel")
	straySchema := NewSchema("EmbStray")
	boxSchema.EmbedsOne("label", labelSchema)

	model := NewModel(boxSchema, newFakeDriver())
	box := hydrate(boxSchema, map[string]any{"_id": "bx1"})
	rel, err := model.Relation("label", box)
	require.NoError(t, err)

	_, err = rel.Save(context.Background(), NewDocument(straySchema, nil))
	assert.ErrorIs(t, err, ErrRelationMismatch)
}

func TestEmbedsOneDeleteClearsField(t *testing.T) {
	fileSchema := NewSchema("EmbFile")
	metaSchema := NewSchema("EmbMeta")
	fileSchema.EmbedsOne("meta", metaSchema)

	driver := newFakeDriver()
	driver.seed(fileSchema.Collection, map[string]any{
		"_id":  "f1",
		"meta": map[string]any{"_id": "m1", "size": 42},
	})
	model := NewModel(fileSchema, driver)

	file, err := model.FindOne(model.Query().Filter(Field("_id").Eq("f1"))).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, file)

	rel, err := model.Relation("meta", file)
	require.NoError(t, err)
	require.NoError(t, rel.Delete(context.Background()))

	assert.Nil(t, file.Get("meta"))
	assert.Nil(t, driver.rows[fileSchema.Collection][0]["meta"])
}

func TestEmbedsManySaveAppendsAndUpserts(t *testing.T) {
	surveySchema := NewSchema("EmbSurvey")
	answerSchema := NewSchema("EmbAnswer")
	surveySchema.EmbedsMany("answers", answerSchema)

	driver := newFakeDriver()
	model := NewModel(surveySchema, driver)

	survey := model.New(nil)
	require.NoError(t, model.Create(context.Background(), survey))

	rel, err := model.Relation("answers", survey)
	require.NoError(t, err)

	first, err := rel.Save(context.Background(), NewDocument(answerSchema, map[string]any{"text": "yes"}))
	require.NoError(t, err)
	_, err = rel.Save(context.Background(), NewDocument(answerSchema, map[string]any{"text": "no"}))
	require.NoError(t, err)

	entries, ok := survey.Get("answers").([]any)
	require.True(t, ok)
	assert.Len(t, entries, 2)

	// saving a document with a known key replaces its entry
	first.Set("text", "definitely")
	_, err = rel.Save(context.Background(), first)
	require.NoError(t, err)

	entries = survey.Get("answers").([]any)
	require.Len(t, entries, 2)
	updated := entries[0].(map[string]any)
	assert.Equal(t, "definitely", updated["text"])
}

func TestEmbedsManyEagerLoad(t *testing.T) {
	recipeSchema := NewSchema("EmbRecipe")
	stepSchema := NewSchema("EmbStep")
	recipeSchema.EmbedsMany("steps", stepSchema)

	driver := newFakeDriver()
	driver.seed(recipeSchema.Collection, map[string]any{
		"_id": "r1",
		"steps": []any{
			map[string]any{"_id": "s1", "text": "chop"},
			map[string]any{"_id": "s2", "text": "fry"},
		},
	})

	model := NewModel(recipeSchema, driver)
	docs, err := model.FindMany(model.Query()).With("steps").Run(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 1, driver.findCalls)

	steps := docs[0].RelatedMany("steps")
	require.Len(t, steps, 2)
	assert.Equal(t, "chop", steps[0].Get("text"))
	assert.True(t, steps[1].Exists())
}

func TestEmbedsManyDeleteClearsArray(t *testing.T) {
	gallerySchema := NewSchema("EmbGallery")
	photoSchema := NewSchema("EmbPhoto")
	gallerySchema.EmbedsMany("photos", photoSchema)

	driver := newFakeDriver()
	driver.seed(gallerySchema.Collection, map[string]any{
		"_id":    "g1",
		"photos": []any{map[string]any{"_id": "p1"}},
	})
	model := NewModel(gallerySchema, driver)

	gallery, err := model.FindOne(model.Query().Filter(Field("_id").Eq("g1"))).Run(context.Background())
	require.NoError(t, err)

	rel, err := model.Relation("photos", gallery)
	require.NoError(t, err)
	require.NoError(t, rel.Delete(context.Background()))
	assert.Nil(t, gallery.Get("photos"))
}
