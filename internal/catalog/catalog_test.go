package catalog_test

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/localnerve/layersdb/internal/catalog"
	layererrors "github.com/localnerve/layersdb/internal/errors"
	"github.com/localnerve/layersdb/internal/fieldtypes"
	"github.com/localnerve/layersdb/internal/models"
	"github.com/localnerve/layersdb/internal/testutil"
)

func createTable(t *testing.T, db *gorm.DB, scope, name, dbTable, owner string) *models.TableDefinition {
	t.Helper()
	table := &models.TableDefinition{
		NameScope:   scope,
		Name:        name,
		DisplayName: name,
		OwnerID:     owner,
		DBTable:     dbTable,
	}
	require.NoError(t, catalog.CreateTable(db, table))
	require.NoError(t, catalog.AddOwner(db, table.ID, owner))
	return table
}

func TestCreateAndGetTable(t *testing.T) {
	db := testutil.OpenDB(t)

	table := createTable(t, db, "alice", "cities", "ul_cities_a", "alice")
	require.NotZero(t, table.ID)

	require.NoError(t, catalog.CreateField(db, &models.FieldDefinition{
		TableID: table.ID, Name: "name", DisplayName: "Name", Kind: fieldtypes.Text,
	}))
	require.NoError(t, catalog.CreateField(db, &models.FieldDefinition{
		TableID: table.ID, Name: "geometry", DisplayName: "geometry", Kind: fieldtypes.Geometry, Null: true, System: true,
	}))

	got, err := catalog.GetTable(db, table.ID)
	require.NoError(t, err)
	assert.Equal(t, "ul_cities_a", got.DBTable)
	require.Len(t, got.Fields, 2)
	assert.Equal(t, "name", got.Fields[0].Name)
	assert.True(t, got.Fields[1].System)

	byName, err := catalog.GetTableByLogicalName(db, "alice", "cities")
	require.NoError(t, err)
	assert.Equal(t, table.ID, byName.ID)

	_, err = catalog.GetTable(db, table.ID+100)
	assert.True(t, errors.Is(err, layererrors.NotFound))
}

func TestCreateTableDuplicates(t *testing.T) {
	db := testutil.OpenDB(t)
	createTable(t, db, "alice", "cities", "ul_cities_a", "alice")

	err := catalog.CreateTable(db, &models.TableDefinition{NameScope: "alice", Name: "cities", OwnerID: "alice", DBTable: "ul_cities_b"})
	assert.True(t, errors.Is(err, layererrors.DuplicateName))

	err = catalog.CreateTable(db, &models.TableDefinition{NameScope: "bob", Name: "towns", OwnerID: "bob", DBTable: "ul_cities_a"})
	assert.True(t, errors.Is(err, layererrors.DuplicateName))

	// same logical name in another owner's scope
	createTable(t, db, "bob", "cities", "ul_cities_b", "bob")
}

func TestListTablesForOwner(t *testing.T) {
	db := testutil.OpenDB(t)
	a := createTable(t, db, "alice", "cities", "ul_cities_a", "alice")
	createTable(t, db, "bob", "rivers", "ul_rivers_b", "bob")

	tables, err := catalog.ListTablesForOwner(db, models.User{ID: "alice"})
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, a.ID, tables[0].ID)

	tables, err = catalog.ListTablesForOwner(db, models.User{ID: "root", Superuser: true})
	require.NoError(t, err)
	assert.Len(t, tables, 2)

	tables, err = catalog.ListTablesForOwner(db, models.Anonymous)
	require.NoError(t, err)
	assert.Empty(t, tables)

	ids, err := catalog.OwnedTableIDs(db, "alice")
	require.NoError(t, err)
	assert.Equal(t, []uint64{a.ID}, ids)
}

func TestOwners(t *testing.T) {
	db := testutil.OpenDB(t)
	table := createTable(t, db, "alice", "cities", "ul_cities_a", "alice")

	require.NoError(t, catalog.AddOwner(db, table.ID, "alice"))
	require.NoError(t, catalog.AddOwner(db, table.ID, "carol"))

	owners, err := catalog.Owners(db, table.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, owners)

	ok, err := catalog.IsOwner(db, table.ID, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateTable(t *testing.T) {
	db := testutil.OpenDB(t)
	a := createTable(t, db, "alice", "cities", "ul_cities_a", "alice")
	createTable(t, db, "alice", "towns", "ul_towns_a", "alice")

	a.Name = "towns"
	err := catalog.UpdateTable(db, a)
	assert.True(t, errors.Is(err, layererrors.DuplicateName))

	a.Name = "places"
	a.DisplayName = "Places"
	a.DBTable = "ul_places_a"
	require.NoError(t, catalog.UpdateTable(db, a))

	got, err := catalog.GetTable(db, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "places", got.Name)
	assert.Equal(t, "ul_places_a", got.DBTable)
}

func TestFieldLifecycle(t *testing.T) {
	db := testutil.OpenDB(t)
	table := createTable(t, db, "alice", "cities", "ul_cities_a", "alice")

	name := &models.FieldDefinition{TableID: table.ID, Name: "name", DisplayName: "Name", Kind: fieldtypes.Text}
	require.NoError(t, catalog.CreateField(db, name))

	err := catalog.CreateField(db, &models.FieldDefinition{TableID: table.ID, Name: "name", Kind: fieldtypes.Integer})
	assert.True(t, errors.Is(err, layererrors.DuplicateName))

	err = catalog.CreateField(db, &models.FieldDefinition{TableID: table.ID, Name: "id", Kind: fieldtypes.Integer})
	assert.True(t, errors.Is(err, layererrors.ReservedName))

	pop := &models.FieldDefinition{TableID: table.ID, Name: "population", DisplayName: "Population", Kind: fieldtypes.Integer}
	require.NoError(t, catalog.CreateField(db, pop))

	err = catalog.RenameField(db, pop, "name", "Name")
	assert.True(t, errors.Is(err, layererrors.DuplicateName))

	require.NoError(t, catalog.RenameField(db, pop, "inhabitants", "Inhabitants"))
	got, err := catalog.GetField(db, pop.ID)
	require.NoError(t, err)
	assert.Equal(t, "inhabitants", got.Name)
	assert.Equal(t, fieldtypes.Integer, got.Kind)

	require.NoError(t, catalog.DeleteField(db, name.ID))
	fields, err := catalog.ListFields(db, table.ID)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "inhabitants", fields[0].Name)

	assert.True(t, errors.Is(catalog.DeleteField(db, name.ID), layererrors.NotFound))
}

func TestDeleteTableCascades(t *testing.T) {
	db := testutil.OpenDB(t)
	table := createTable(t, db, "alice", "cities", "ul_cities_a", "alice")
	require.NoError(t, catalog.CreateField(db, &models.FieldDefinition{TableID: table.ID, Name: "name", Kind: fieldtypes.Text}))
	require.NoError(t, catalog.CreateFile(db, &models.AttachedFile{TableID: table.ID, RowID: 1, Path: "attached_files/a.png"}))

	files, err := catalog.DeleteTable(db, table.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "attached_files/a.png", files[0].Path)

	fields, err := catalog.ListFields(db, table.ID)
	require.NoError(t, err)
	assert.Empty(t, fields)

	owners, err := catalog.Owners(db, table.ID)
	require.NoError(t, err)
	assert.Empty(t, owners)

	_, err = catalog.DeleteTable(db, table.ID)
	assert.True(t, errors.Is(err, layererrors.NotFound))
}

func TestRowFiles(t *testing.T) {
	db := testutil.OpenDB(t)
	table := createTable(t, db, "alice", "cities", "ul_cities_a", "alice")

	for _, p := range []string{"a.png", "b.pdf"} {
		require.NoError(t, catalog.CreateFile(db, &models.AttachedFile{TableID: table.ID, RowID: 7, Path: p}))
	}
	require.NoError(t, catalog.CreateFile(db, &models.AttachedFile{TableID: table.ID, RowID: 8, Path: "c.png"}))

	files, err := catalog.ListFiles(db, table.ID, 7)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	removed, err := catalog.DeleteRowFiles(db, table.ID, 7)
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	files, err = catalog.ListFiles(db, table.ID, 8)
	require.NoError(t, err)
	require.Len(t, files, 1)

	require.NoError(t, catalog.DeleteFile(db, files[0].ID))
	_, err = catalog.GetFile(db, files[0].ID)
	assert.True(t, errors.Is(err, layererrors.NotFound))
}
