package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelCreateAssignsKeyAndTimestamps(t *testing.T) {
	schema := NewSchema("ModelUser", Timestamps("createdAt", "updatedAt"))
	driver := newFakeDriver()
	model := NewModel(schema, driver)

	doc := model.New(map[string]any{"email": "ada@example.com"})
	require.NoError(t, model.Create(context.Background(), doc))

	assert.True(t, doc.Exists())
	assert.NotEmpty(t, doc.PrimaryValue())
	assert.IsType(t, time.Time{}, doc.Get("createdAt"))
	assert.IsType(t, time.Time{}, doc.Get("updatedAt"))
	assert.Equal(t, 1, driver.insertCalls)
	assert.Empty(t, doc.Dirty())
}

func TestModelCreateKeepsExplicitKey(t *testing.T) {
	schema := NewSchema("ModelDevice")
	model := NewModel(schema, newFakeDriver())

	doc := model.New(map[string]any{"_id": "dev-1"})
	require.NoError(t, model.Create(context.Background(), doc))
	assert.Equal(t, "dev-1", doc.PrimaryValue())
}

func TestModelSaveUpdatesOnlyDirtyFields(t *testing.T) {
	schema := NewSchema("ModelContact")
	driver := newFakeDriver()
	model := NewModel(schema, driver)

	doc := model.New(map[string]any{"_id": "c1", "name": "Ada", "city": "London"})
	require.NoError(t, model.Create(context.Background(), doc))

	require.NoError(t, model.Save(context.Background(), doc))
	assert.Equal(t, 0, driver.updateCalls)

	doc.Set("city", "Cambridge")
	require.NoError(t, model.Save(context.Background(), doc))
	assert.Equal(t, 1, driver.updateCalls)
	assert.Empty(t, doc.Dirty())

	row := driver.rows[schema.Collection][0]
	assert.Equal(t, "Cambridge", row["city"])
	assert.Equal(t, "Ada", row["name"])
}

func TestModelSaveRefreshesUpdatedAt(t *testing.T) {
	schema := NewSchema("ModelArticle", Timestamps("createdAt", "updatedAt"))
	driver := newFakeDriver()
	model := NewModel(schema, driver)

	doc := model.New(map[string]any{"title": "draft"})
	require.NoError(t, model.Create(context.Background(), doc))
	created := doc.Get("updatedAt").(time.Time)

	time.Sleep(time.Millisecond)
	doc.Set("title", "published")
	require.NoError(t, model.Save(context.Background(), doc))

	stamped := doc.Get("updatedAt").(time.Time)
	assert.True(t, stamped.After(created))
	assert.Empty(t, doc.Dirty())

	row := driver.rows[schema.Collection][0]
	assert.Equal(t, stamped, row["updatedAt"])
}

func TestModelSoftDelete(t *testing.T) {
	schema := NewSchema("ModelMember", SoftDeletes("deletedAt"))
	driver := newFakeDriver()
	model := NewModel(schema, driver)

	driver.seed(schema.Collection,
		map[string]any{"_id": "m1", "name": "kept"},
		map[string]any{"_id": "m2", "name": "gone"},
	)

	require.NoError(t, model.Delete(context.Background(), Field("_id").Eq("m2")))
	assert.Equal(t, 0, driver.deleteCalls)
	assert.Equal(t, 1, driver.updateCalls)

	docs, err := model.FindMany(model.Query()).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "m1", docs[0].PrimaryValue())

	trashed, err := model.FindMany(model.Query().OnlyTrashed()).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, trashed, 1)
	assert.Equal(t, "m2", trashed[0].PrimaryValue())

	all, err := model.FindMany(model.Query().WithTrashed()).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	count, err := model.Count(context.Background(), model.Query())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestModelHardDeleteWithoutSoftDeletes(t *testing.T) {
	schema := NewSchema("ModelToken")
	driver := newFakeDriver()
	model := NewModel(schema, driver)
	driver.seed(schema.Collection, map[string]any{"_id": "t1"})

	require.NoError(t, model.Delete(context.Background(), Field("_id").Eq("t1")))
	assert.Equal(t, 1, driver.deleteCalls)
	assert.Empty(t, driver.rows[schema.Collection])
}

func TestModelFindOne(t *testing.T) {
	schema := NewSchema("ModelCity")
	driver := newFakeDriver()
	model := NewModel(schema, driver)
	driver.seed(schema.Collection, map[string]any{"_id": "lon", "name": "London"})

	doc, err := model.FindOne(model.Query().Filter(Field("_id").Eq("lon"))).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "London", doc.Get("name"))

	missing, err := model.FindOne(model.Query().Filter(Field("_id").Eq("nyc"))).Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestModelPrefixAndTenant(t *testing.T) {
	schema := NewSchema("ModelInvoice")
	model := NewModel(schema, newFakeDriver())

	ns := model.WithPrefix("acme_").namespace()
	assert.Equal(t, "acme_model_invoices", ns.Collection)

	ns = model.WithPrefix("acme_").WithoutPrefix().namespace()
	assert.Equal(t, "model_invoices", ns.Collection)

	ns = model.WithPrefix("acme_").Collection("ledger").namespace()
	assert.Equal(t, "acme_ledger", ns.Collection)

	ns = model.WithTenant("tenant_a").namespace()
	assert.Equal(t, "tenant_a", ns.Database)
}

func TestModelPrefixNotDoubled(t *testing.T) {
	schema := NewSchema("ModelEntry")
	model := NewModel(schema, newFakeDriver()).WithPrefix("app_").Collection("app_custom")
	assert.Equal(t, "app_custom", model.namespace().Collection)
}

func TestModelHooks(t *testing.T) {
	schema := NewSchema("ModelSignup")
	driver := newFakeDriver()
	model := NewModel(schema, driver)

	schema.RegisterPreHook(PreInsert, func(doc *Document) error {
		doc.Set("normalized", true)
		return nil
	})
	var post int
	schema.RegisterPostHook(PostInsert, func(doc *Document) error {
		post++
		return nil
	})

	doc := model.New(map[string]any{"email": "x@example.com"})
	require.NoError(t, model.Create(context.Background(), doc))
	assert.Equal(t, true, doc.Get("normalized"))
	assert.Equal(t, 1, post)
}

func TestModelPreHookAbortsOperation(t *testing.T) {
	schema := NewSchema("ModelGuarded")
	driver := newFakeDriver()
	model := NewModel(schema, driver)

	hookErr := errors.New("rejected")
	schema.RegisterPreHook(PreInsert, func(doc *Document) error { return hookErr })

	err := model.Create(context.Background(), model.New(nil))
	assert.ErrorIs(t, err, hookErr)
	assert.Equal(t, 0, driver.insertCalls)
}

func TestRunTransactionCommitsAndRollsBack(t *testing.T) {
	driver := newFakeDriver()

	require.NoError(t, RunTransaction(context.Background(), driver, func(txCtx context.Context) error {
		assert.NotNil(t, TransactionFrom(txCtx))
		return nil
	}))

	failure := errors.New("boom")
	err := RunTransaction(context.Background(), driver, func(txCtx context.Context) error {
		return failure
	})
	assert.ErrorIs(t, err, failure)
}

func TestEventEmitOnInsert(t *testing.T) {
	schema := NewSchema("ModelAudit")
	model := NewModel(schema, newFakeDriver())

	received := make(chan InsertPayload, 1)
	On(EventInsert, func(payload any) {
		if p, ok := payload.(InsertPayload); ok && p.Schema == schema {
			received <- p
		}
	})

	doc := model.New(map[string]any{"action": "login"})
	require.NoError(t, model.Create(context.Background(), doc))

	select {
	case p := <-received:
		assert.Same(t, doc, p.Doc)
	case <-time.After(time.Second):
		t.Fatal("insert event was not emitted")
	}
}
