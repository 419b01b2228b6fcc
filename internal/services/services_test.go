// services_test.go
//
// User defined spatial tables over a relational database
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of layersdb.
// layersdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// layersdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with layersdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/localnerve/layersdb/internal/catalog"
	layererrors "github.com/localnerve/layersdb/internal/errors"
	"github.com/localnerve/layersdb/internal/event"
	"github.com/localnerve/layersdb/internal/fieldtypes"
	"github.com/localnerve/layersdb/internal/materializer"
	"github.com/localnerve/layersdb/internal/models"
	"github.com/localnerve/layersdb/internal/naming"
	"github.com/localnerve/layersdb/internal/services"
	"github.com/localnerve/layersdb/internal/testutil"
)

var (
	alice = models.User{ID: "alice"}
	bob   = models.User{ID: "bob"}
	root  = models.User{ID: "root", Superuser: true}
)

type recorder struct {
	mu      sync.Mutex
	created []event.Table
	updated []event.Table
	deleted []event.Table
}

func (r *recorder) listen(m *event.Manager) {
	m.ListenForTableCreated(func(_ context.Context, t event.Table) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.created = append(r.created, t)
	})
	m.ListenForTableUpdated(func(_ context.Context, t event.Table) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.updated = append(r.updated, t)
	})
	m.ListenForTableDeleted(func(_ context.Context, t event.Table) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.deleted = append(r.deleted, t)
	})
}

func newService(t *testing.T, opts ...services.Option) (*services.Service, *gorm.DB, *recorder) {
	t.Helper()
	db := testutil.OpenDB(t)
	rec := &recorder{}
	events := &event.Manager{}
	rec.listen(events)
	opts = append([]services.Option{services.WithEvents(events), services.WithFilesDir(t.TempDir())}, opts...)
	return services.New(db, opts...), db, rec
}

func liveColumns(t *testing.T, svc *services.Service, db *gorm.DB, dbTable string) []string {
	t.Helper()
	live, err := svc.Materializer().GetLiveShape(db, dbTable)
	require.NoError(t, err)
	names := make([]string, len(live))
	for i, c := range live {
		names[i] = c.Name
	}
	return names
}

func validationField(t *testing.T, err error) string {
	t.Helper()
	var verr *layererrors.ValidationError
	require.True(t, errors.As(err, &verr), "expected a validation error, got %v", err)
	return verr.Field
}

func notNull() *bool {
	b := false
	return &b
}

func TestCreateTableForUser(t *testing.T) {
	ctx := context.Background()
	svc, db, rec := newService(t)

	def, err := svc.CreateTableForUser(ctx, alice, services.CreateTableInput{
		Name: "Cities",
		Fields: []services.FieldInput{
			{Name: "Name", Type: fieldtypes.Varchar, Null: notNull()},
			{Name: "Population", Type: fieldtypes.Integer},
			{Name: "2nd name", Type: fieldtypes.Text},
		},
		GeometryType: "Point",
	})
	require.NoError(t, err)

	assert.Equal(t, "cities", def.Name)
	assert.Equal(t, "Cities", def.DisplayName)
	assert.Equal(t, "alice", def.OwnerID)
	assert.Regexp(t, `^ul_cities_[a-z0-9]+$`, def.DBTable)

	stored, err := catalog.GetTable(db, def.ID)
	require.NoError(t, err)
	require.Len(t, stored.Fields, 4)
	names := []string{}
	for _, f := range stored.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"name", "population", "f_2nd_name", "geometry"}, names)
	assert.False(t, stored.Fields[0].Null)
	assert.True(t, stored.Fields[1].Null)

	geom := stored.Fields[3]
	assert.True(t, geom.System)
	assert.Equal(t, fieldtypes.Point, geom.Kind)
	params, err := geom.FieldParams()
	require.NoError(t, err)
	assert.Equal(t, fieldtypes.DefaultSRID, params.SRID)
	assert.False(t, params.Is3D())

	assert.ElementsMatch(t, []string{"id", "name", "population", "f_2nd_name", "geometry"}, liveColumns(t, svc, db, def.DBTable))

	owners, err := catalog.Owners(db, def.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, owners)

	require.Len(t, rec.created, 1)
	assert.Equal(t, def.ID, rec.created[0].TableID)
	assert.Equal(t, "alice", rec.created[0].OwnerID)
	assert.Equal(t, def.Locators(), rec.created[0].Locators)
}

func TestCreateTableKeepsRequestedGeometry(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newService(t)

	def, err := svc.CreateTableForUser(ctx, alice, services.CreateTableInput{
		Name: "Tracks",
		Fields: []services.FieldInput{
			{Name: "route", Type: fieldtypes.LineString, Params: fieldtypes.Params{Dim: 3}},
		},
	})
	require.NoError(t, err)

	fields, err := catalog.ListFields(db, def.ID)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "route", fields[0].Name)
	assert.False(t, fields[0].System)
	params, err := fields[0].FieldParams()
	require.NoError(t, err)
	assert.True(t, params.Is3D())
	assert.Equal(t, fieldtypes.DefaultSRID, params.SRID)
	assert.ElementsMatch(t, []string{"id", "route"}, liveColumns(t, svc, db, def.DBTable))
}

func TestCreateTableGeometry3DHint(t *testing.T) {
	svc, db, _ := newService(t, services.WithDefaultSRID(3857))

	def, err := svc.CreateTableForUser(context.Background(), alice, services.CreateTableInput{
		Name:       "Peaks",
		Geometry3D: true,
	})
	require.NoError(t, err)

	fields, err := catalog.ListFields(db, def.ID)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, fieldtypes.Geometry, fields[0].Kind)
	params, err := fields[0].FieldParams()
	require.NoError(t, err)
	assert.True(t, params.Is3D())
	assert.Equal(t, 3857, params.SRID)
}

func TestCreateTableValidation(t *testing.T) {
	ctx := context.Background()
	svc, db, rec := newService(t)

	tests := []struct {
		name  string
		user  models.User
		in    services.CreateTableInput
		kind  error
		field string
	}{
		{
			name: "anonymous",
			user: models.Anonymous,
			in:   services.CreateTableInput{Name: "Cities"},
			kind: layererrors.Unauthorized,
		},
		{
			name:  "empty table name",
			user:  alice,
			in:    services.CreateTableInput{Name: "  !! "},
			kind:  layererrors.InvalidName,
			field: "name",
		},
		{
			name:  "unknown field type",
			user:  alice,
			in:    services.CreateTableInput{Name: "Cities", Fields: []services.FieldInput{{Name: "x", Type: "money"}}},
			kind:  layererrors.UnknownFieldType,
			field: "fields.0.type",
		},
		{
			name: "duplicate field names",
			user: alice,
			in: services.CreateTableInput{Name: "Cities", Fields: []services.FieldInput{
				{Name: "Name", Type: fieldtypes.Text},
				{Name: "name", Type: fieldtypes.Varchar},
			}},
			kind:  layererrors.DuplicateName,
			field: "fields.1.name",
		},
		{
			name: "system geometry name taken",
			user: alice,
			in: services.CreateTableInput{Name: "Cities", Fields: []services.FieldInput{
				{Name: "Geometry", Type: fieldtypes.Text},
			}},
			kind:  layererrors.ReservedName,
			field: "fields.0.name",
		},
		{
			name:  "unknown geometry hint",
			user:  alice,
			in:    services.CreateTableInput{Name: "Cities", GeometryType: "Circle"},
			kind:  layererrors.UnknownFieldType,
			field: "geometry_type",
		},
		{
			name: "bad dimension",
			user: alice,
			in: services.CreateTableInput{Name: "Cities", Fields: []services.FieldInput{
				{Name: "where", Type: fieldtypes.Point, Params: fieldtypes.Params{Dim: 4}},
			}},
			kind:  layererrors.InvalidValue,
			field: "fields.0.params.dim",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTableForUser(ctx, tt.user, tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
			if tt.field != "" {
				assert.Equal(t, tt.field, validationField(t, err))
			}
		})
	}

	tables, err := catalog.ListTables(db)
	require.NoError(t, err)
	assert.Empty(t, tables)
	assert.Empty(t, rec.created)
}

func TestDuplicateTableNames(t *testing.T) {
	ctx := context.Background()

	t.Run("owner scope", func(t *testing.T) {
		svc, _, _ := newService(t)
		_, err := svc.CreateTableForUser(ctx, alice, services.CreateTableInput{Name: "Cities"})
		require.NoError(t, err)

		_, err = svc.CreateTableForUser(ctx, alice, services.CreateTableInput{Name: "cities"})
		assert.True(t, errors.Is(err, layererrors.DuplicateName), "got %v", err)
		assert.Equal(t, "name", validationField(t, err))

		_, err = svc.CreateTableForUser(ctx, bob, services.CreateTableInput{Name: "Cities"})
		assert.NoError(t, err)
	})

	t.Run("global scope", func(t *testing.T) {
		svc, _, _ := newService(t, services.WithNameScope(services.ScopeGlobal))
		_, err := svc.CreateTableForUser(ctx, alice, services.CreateTableInput{Name: "Cities"})
		require.NoError(t, err)

		_, err = svc.CreateTableForUser(ctx, bob, services.CreateTableInput{Name: "Cities"})
		assert.True(t, errors.Is(err, layererrors.DuplicateName), "got %v", err)
	})
}

func TestPhysicalNameCollision(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newService(t, services.WithNamer(naming.New(naming.WithSuffixSource(func() string { return "fixed" }))))

	first, err := svc.CreateTableForUser(ctx, alice, services.CreateTableInput{Name: "Cities"})
	require.NoError(t, err)
	assert.Equal(t, "ul_cities_fixed", first.DBTable)

	_, err = svc.CreateTableForUser(ctx, bob, services.CreateTableInput{Name: "Cities"})
	assert.True(t, errors.Is(err, layererrors.DuplicateName), "got %v", err)

	tables, err := catalog.ListTables(db)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, first.ID, tables[0].ID)

	var fields int64
	require.NoError(t, db.Model(&models.FieldDefinition{}).Count(&fields).Error)
	assert.Equal(t, int64(1), fields)
}

func TestConcurrentDuplicateCreation(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newService(t)

	const n = 4
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateTableForUser(ctx, alice, services.CreateTableInput{Name: "Rivers"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, layererrors.DuplicateName), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)

	tables, err := catalog.ListTables(db)
	require.NoError(t, err)
	assert.Len(t, tables, 1)
}

func TestFieldLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newService(t)

	def, err := svc.CreateTableForUser(ctx, alice, services.CreateTableInput{
		Name:   "Cities",
		Fields: []services.FieldInput{{Name: "name", Type: fieldtypes.Text}},
	})
	require.NoError(t, err)

	f, err := svc.AddField(ctx, alice, def.ID, services.FieldInput{Name: "Population", Type: fieldtypes.Integer})
	require.NoError(t, err)
	assert.Equal(t, "population", f.Name)
	assert.ElementsMatch(t, []string{"id", "name", "population", "geometry"}, liveColumns(t, svc, db, def.DBTable))

	_, err = svc.InsertRow(ctx, alice, def.ID, map[string]interface{}{"name": "Paris", "population": 2100000})
	require.NoError(t, err)

	renamed, err := svc.RenameField(ctx, alice, f.ID, services.RenameFieldInput{Name: "Inhabitants"})
	require.NoError(t, err)
	assert.Equal(t, "inhabitants", renamed.Name)
	assert.ElementsMatch(t, []string{"id", "name", "inhabitants", "geometry"}, liveColumns(t, svc, db, def.DBTable))

	page, err := svc.ListRows(ctx, alice, def.ID, materializer.Page{})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, int64(2100000), page.Rows[0]["inhabitants"])
	assert.NotContains(t, page.Rows[0], "population")

	_, err = svc.InsertRow(ctx, alice, def.ID, map[string]interface{}{"name": "Lyon", "inhabitants": 520000})
	require.NoError(t, err)
	_, err = svc.InsertRow(ctx, alice, def.ID, map[string]interface{}{"population": 1})
	assert.True(t, errors.Is(err, layererrors.InvalidValue), "got %v", err)

	_, err = svc.AddField(ctx, alice, def.ID, services.FieldInput{Name: "name", Type: fieldtypes.Text})
	assert.True(t, errors.Is(err, layererrors.DuplicateName), "got %v", err)
	idField, err := svc.AddField(ctx, alice, def.ID, services.FieldInput{Name: "id", Type: fieldtypes.Text})
	require.NoError(t, err)
	assert.Equal(t, "id_", idField.Name)
	assert.Contains(t, liveColumns(t, svc, db, def.DBTable), "id_")
	row, err := svc.InsertRow(ctx, alice, def.ID, map[string]interface{}{"id_": "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", row["id_"])

	require.NoError(t, svc.DeleteField(ctx, alice, f.ID))
	assert.ElementsMatch(t, []string{"id", "name", "id_", "geometry"}, liveColumns(t, svc, db, def.DBTable))
	_, err = svc.GetField(ctx, alice, f.ID)
	assert.True(t, errors.Is(err, layererrors.NotFound))

	fields, err := svc.ListFields(ctx, alice, def.ID)
	require.NoError(t, err)
	assert.Len(t, fields, 3)
}

func TestAddFieldAdoptsExistingColumn(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newService(t)

	def, err := svc.CreateTableForUser(ctx, alice, services.CreateTableInput{Name: "Cities"})
	require.NoError(t, err)
	require.NoError(t, db.Exec("ALTER TABLE ? ADD COLUMN ? TEXT", clause.Table{Name: def.DBTable}, clause.Column{Name: "legacy"}).Error)

	f, err := svc.AddField(ctx, alice, def.ID, services.FieldInput{Name: "Legacy", Type: fieldtypes.Text})
	require.NoError(t, err)
	assert.Equal(t, "legacy", f.Name)

	row, err := svc.InsertRow(ctx, alice, def.ID, map[string]interface{}{"legacy": "kept"})
	require.NoError(t, err)
	assert.Equal(t, "kept", row["legacy"])
}

func TestDeleteFieldToleratesMissingColumn(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newService(t)

	def, err := svc.CreateTableForUser(ctx, alice, services.CreateTableInput{
		Name:   "Cities",
		Fields: []services.FieldInput{{Name: "note", Type: fieldtypes.Text}},
	})
	require.NoError(t, err)
	require.NoError(t, db.Exec("ALTER TABLE ? DROP COLUMN ?", clause.Table{Name: def.DBTable}, clause.Column{Name: "note"}).Error)

	require.NoError(t, svc.DeleteField(ctx, alice, def.Fields[0].ID))
	fields, err := svc.ListFields(ctx, alice, def.ID)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "geometry", fields[0].Name)
}

func TestUpdateTable(t *testing.T) {
	ctx := context.Background()
	svc, db, rec := newService(t)

	def, err := svc.CreateTableForUser(ctx, alice, services.CreateTableInput{
		Name:   "Cities",
		Fields: []services.FieldInput{{Name: "name", Type: fieldtypes.Text}},
	})
	require.NoError(t, err)
	_, err = svc.InsertRow(ctx, alice, def.ID, map[string]interface{}{"name": "Paris"})
	require.NoError(t, err)
	// Warm the shape cache so the rename must invalidate it.
	_, err = svc.ListRows(ctx, alice, def.ID, materializer.Page{})
	require.NoError(t, err)

	same, err := svc.UpdateTable(ctx, alice, def.ID, services.UpdateTableInput{Name: "CITIES"})
	require.NoError(t, err)
	assert.Equal(t, def.DBTable, same.DBTable)
	assert.Equal(t, "CITIES", same.DisplayName)

	moved, err := svc.UpdateTable(ctx, alice, def.ID, services.UpdateTableInput{Name: "Towns"})
	require.NoError(t, err)
	assert.Equal(t, "towns", moved.Name)
	assert.NotEqual(t, def.DBTable, moved.DBTable)
	assert.Regexp(t, `^ul_towns_`, moved.DBTable)
	assert.False(t, db.Migrator().HasTable(def.DBTable))
	assert.True(t, db.Migrator().HasTable(moved.DBTable))

	page, err := svc.ListRows(ctx, alice, def.ID, materializer.Page{})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "Paris", page.Rows[0]["name"])

	_, err = svc.CreateTableForUser(ctx, alice, services.CreateTableInput{Name: "Rivers"})
	require.NoError(t, err)
	_, err = svc.UpdateTable(ctx, alice, def.ID, services.UpdateTableInput{Name: "rivers"})
	assert.True(t, errors.Is(err, layererrors.DuplicateName), "got %v", err)

	_, err = svc.UpdateTable(ctx, bob, def.ID, services.UpdateTableInput{Name: "Mine"})
	assert.True(t, errors.Is(err, layererrors.NotFound), "got %v", err)

	require.Len(t, rec.updated, 2)
	assert.Equal(t, "towns", rec.updated[1].Name)
}

func TestDeleteTable(t *testing.T) {
	ctx := context.Background()
	svc, db, rec := newService(t)

	def, err := svc.CreateTableForUser(ctx, alice, services.CreateTableInput{
		Name: "Cities",
		Fields: []services.FieldInput{
			{Name: "name", Type: fieldtypes.Text},
			{Name: "neighbours", Type: fieldtypes.ManyToMany},
		},
	})
	require.NoError(t, err)
	join := naming.JoinTableName(def.DBTable, def.Fields[1].ID)
	require.True(t, db.Migrator().HasTable(join))

	assert.True(t, errors.Is(svc.DeleteTable(ctx, bob, def.ID), layererrors.NotFound))
	assert.True(t, errors.Is(svc.DeleteTable(ctx, models.Anonymous, def.ID), layererrors.Unauthorized))

	require.NoError(t, svc.DeleteTable(ctx, alice, def.ID))
	assert.False(t, db.Migrator().HasTable(def.DBTable))
	assert.False(t, db.Migrator().HasTable(join))

	_, err = catalog.GetTable(db, def.ID)
	assert.True(t, errors.Is(err, layererrors.NotFound))
	var count int64
	require.NoError(t, db.Model(&models.FieldDefinition{}).Where("table_id = ?", def.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.UserToTable{}).Where("table_id = ?", def.ID).Count(&count).Error)
	assert.Zero(t, count)

	require.Len(t, rec.deleted, 1)
	assert.Equal(t, def.ID, rec.deleted[0].TableID)

	// The table is gone for its owner too.
	_, err = svc.GetTable(ctx, alice, def.ID)
	assert.True(t, errors.Is(err, layererrors.NotFound))
}

func TestAccessScenario(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	cities, err := svc.CreateTableForUser(ctx, alice, services.CreateTableInput{
		Name:   "cities",
		Fields: []services.FieldInput{{Name: "name", Type: fieldtypes.Text}},
	})
	require.NoError(t, err)
	rivers, err := svc.CreateTableForUser(ctx, bob, services.CreateTableInput{Name: "rivers"})
	require.NoError(t, err)
	row, err := svc.InsertRow(ctx, alice, cities.ID, map[string]interface{}{"name": "Paris"})
	require.NoError(t, err)

	list, err := svc.ListTables(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, cities.ID, list[0].ID)

	list, err = svc.ListTables(ctx, root)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.ListTables(ctx, models.Anonymous)
	assert.True(t, errors.Is(err, layererrors.Unauthorized))

	// Bob cannot learn that alice's table exists.
	_, err = svc.GetTable(ctx, bob, cities.ID)
	assert.True(t, errors.Is(err, layererrors.NotFound))
	_, missing := svc.GetTable(ctx, bob, 9999)
	assert.Equal(t, errors.Is(err, layererrors.NotFound), errors.Is(missing, layererrors.NotFound))

	_, err = svc.ListRows(ctx, bob, cities.ID, materializer.Page{})
	assert.True(t, errors.Is(err, layererrors.NotFound))
	_, err = svc.GetRow(ctx, bob, cities.ID, row.ID())
	assert.True(t, errors.Is(err, layererrors.NotFound))
	_, err = svc.InsertRow(ctx, bob, cities.ID, map[string]interface{}{"name": "Berlin"})
	assert.True(t, errors.Is(err, layererrors.NotFound))
	_, err = svc.GetField(ctx, bob, cities.Fields[0].ID)
	assert.True(t, errors.Is(err, layererrors.NotFound))
	_, err = svc.AddField(ctx, bob, cities.ID, services.FieldInput{Name: "x", Type: fieldtypes.Text})
	assert.True(t, errors.Is(err, layererrors.NotFound))

	_, err = svc.GetRow(ctx, models.Anonymous, cities.ID, row.ID())
	assert.True(t, errors.Is(err, layererrors.Unauthorized))

	// Superusers bypass ownership.
	got, err := svc.GetRow(ctx, root, cities.ID, row.ID())
	require.NoError(t, err)
	assert.Equal(t, "Paris", got["name"])
	_, err = svc.GetTable(ctx, root, rivers.ID)
	assert.NoError(t, err)
}

func TestRowLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	def, err := svc.CreateTableForUser(ctx, alice, services.CreateTableInput{
		Name: "Cities",
		Fields: []services.FieldInput{
			{Name: "name", Type: fieldtypes.Varchar, Params: fieldtypes.Params{MaxLength: 10}},
			{Name: "contact", Type: fieldtypes.Email},
		},
		GeometryType: "point",
	})
	require.NoError(t, err)

	row, err := svc.InsertRow(ctx, alice, def.ID, map[string]interface{}{
		"name":     "Paris",
		"contact":  "mairie@paris.fr",
		"geometry": map[string]interface{}{"type": "Point", "coordinates": []interface{}{2.35, 48.85}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Paris", row["name"])

	_, err = svc.InsertRow(ctx, alice, def.ID, map[string]interface{}{"name": "Saint-Remy-de-Provence"})
	assert.True(t, errors.Is(err, layererrors.InvalidValue), "got %v", err)
	assert.Equal(t, "name", validationField(t, err))

	_, err = svc.InsertRow(ctx, alice, def.ID, map[string]interface{}{"contact": "not an email"})
	assert.True(t, errors.Is(err, layererrors.InvalidValue), "got %v", err)

	_, err = svc.InsertRow(ctx, alice, def.ID, map[string]interface{}{
		"geometry": map[string]interface{}{"type": "LineString", "coordinates": []interface{}{[]interface{}{0, 0}, []interface{}{1, 1}}},
	})
	assert.True(t, errors.Is(err, layererrors.InvalidGeometry), "got %v", err)

	updated, err := svc.UpdateRow(ctx, alice, def.ID, row.ID(), map[string]interface{}{"name": "Lutetia"})
	require.NoError(t, err)
	assert.Equal(t, "Lutetia", updated["name"])
	assert.Equal(t, "mairie@paris.fr", updated["contact"])

	page, err := svc.ListRows(ctx, alice, def.ID, materializer.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	require.NoError(t, svc.DeleteRow(ctx, alice, def.ID, row.ID()))
	_, err = svc.GetRow(ctx, alice, def.ID, row.ID())
	assert.True(t, errors.Is(err, layererrors.NotFound))
}
