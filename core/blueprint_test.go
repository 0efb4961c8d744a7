package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlueprintAppliesCreatesThenDrops(t *testing.T) {
	schema := NewSchema("BpLog")
	driver := newFakeDriver()
	model := NewModel(schema, driver)

	err := model.Blueprint().
		Index("by_level", []Sort{{FieldName: "level", Order: 1}}, nil).
		DropIndex("stale_one").
		Unique("by_trace", Sort{FieldName: "traceId", Order: 1}).
		DropIndex("stale_two").
		Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"create index by_level",
		"create index by_trace",
		"drop index stale_one",
		"drop index stale_two",
	}, driver.ddlOps)
}

func TestBlueprintValidation(t *testing.T) {
	schema := NewSchema("BpEvent")
	driver := newFakeDriver()
	model := NewModel(schema, driver)

	err := model.Blueprint().
		Index("", []Sort{{FieldName: "x", Order: 1}}, nil).
		Build(context.Background())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = model.Blueprint().
		Index("empty_keys", nil, nil).
		Build(context.Background())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = model.Blueprint().
		DropIndex("").
		Build(context.Background())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// nothing was applied for any of the failed change sets
	assert.Empty(t, driver.ddlOps)
}

func TestBlueprintFieldDeclarationsAreInert(t *testing.T) {
	schema := NewSchema("BpDoc")
	driver := newFakeDriver()
	model := NewModel(schema, driver)

	err := model.Blueprint().
		Field("title", "string").
		Timestamps().
		Build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, driver.ddlOps)
}

func TestCollectionLifecycle(t *testing.T) {
	schema := NewSchema("BpArchive")
	driver := newFakeDriver()
	model := NewModel(schema, driver).WithPrefix("app_")

	require.NoError(t, model.CreateCollection(context.Background()))
	require.NoError(t, model.RenameCollection(context.Background(), "bp_archives_old"))
	require.NoError(t, model.DropCollection(context.Background()))

	assert.Equal(t, []string{
		"create collection app_bp_archives",
		"rename collection app_bp_archives to app_bp_archives_old",
		"drop collection app_bp_archives",
	}, driver.ddlOps)
}

func TestCreateCollectionIfNotExists(t *testing.T) {
	schema := NewSchema("BpCache")
	driver := newFakeDriver()
	model := NewModel(schema, driver)

	require.NoError(t, model.CreateCollectionIfNotExists(context.Background()))
	assert.Equal(t, []string{"create collection bp_caches"}, driver.ddlOps)

	// once the collection holds data it is considered existing
	driver.seed(schema.Collection, map[string]any{"_id": "x"})
	require.NoError(t, model.CreateCollectionIfNotExists(context.Background()))
	assert.Len(t, driver.ddlOps, 1)
}
