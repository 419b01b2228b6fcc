// materializer.go
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

// Package materializer turns catalog definitions into physical tables and
// reads and writes the rows of those tables through a TableShape.
package materializer

import (
	"strings"

	"github.com/juju/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	layererrors "github.com/localnerve/layersdb/internal/errors"
	"github.com/localnerve/layersdb/internal/fieldtypes"
	"github.com/localnerve/layersdb/internal/models"
	"github.com/localnerve/layersdb/internal/naming"
)

// Join table columns of many-to-many fields.
const (
	SourceColumn = "source_id"
	TargetColumn = "target_id"
)

// Materializer issues DDL for user tables and caches their shapes.
type Materializer struct {
	registry *fieldtypes.Registry
	cache    *ShapeCache
	log      zerolog.Logger
}

// New returns a Materializer with an empty shape cache.
func New(registry *fieldtypes.Registry, log zerolog.Logger) *Materializer {
	return &Materializer{
		registry: registry,
		cache:    NewShapeCache(),
		log:      log.With().Str("component", "materializer").Logger(),
	}
}

// Cache returns the shape cache.
func (m *Materializer) Cache() *ShapeCache {
	return m.cache
}

// Invalidate drops the cached shape of a table. Call it after the
// transaction that changed the table commits.
func (m *Materializer) Invalidate(tableID uint64) {
	m.cache.Invalidate(tableID)
}

func silent(db *gorm.DB) *gorm.DB {
	return db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)})
}

func quote(db *gorm.DB, name string) string {
	var b strings.Builder
	db.Dialector.QuoteTo(&b, name)
	return b.String()
}

func primaryKey(dialect string) string {
	switch dialect {
	case fieldtypes.Postgres:
		return "BIGSERIAL PRIMARY KEY"
	case fieldtypes.MySQL:
		return "BIGINT AUTO_INCREMENT PRIMARY KEY"
	case fieldtypes.SQLServer:
		return "BIGINT IDENTITY(1,1) PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (m *Materializer) column(dialect string, f models.FieldDefinition) (fieldtypes.FieldType, fieldtypes.Params, fieldtypes.ColumnSpec, error) {
	ft, err := m.registry.Lookup(f.Kind)
	if err != nil {
		return ft, fieldtypes.Params{}, fieldtypes.ColumnSpec{}, err
	}
	p, err := f.FieldParams()
	if err != nil {
		return ft, p, fieldtypes.ColumnSpec{}, err
	}
	p = ft.WithDefaults(p)
	return ft, p, ft.ColumnSpec(dialect, p), nil
}

// CreatePhysicalTable creates the table of def with one column per field
// after the row identifier. Fields must already carry their catalog ids.
func (m *Materializer) CreatePhysicalTable(tx *gorm.DB, def *models.TableDefinition, fields []models.FieldDefinition) error {
	dialect := tx.Dialector.Name()
	if tx.Migrator().HasTable(def.DBTable) {
		return errors.Annotatef(layererrors.DuplicateName, "physical table %q", def.DBTable)
	}

	var b strings.Builder
	vars := []interface{}{clause.Table{Name: def.DBTable}, clause.Column{Name: naming.RowIdentifier}}
	b.WriteString("CREATE TABLE ? (? ")
	b.WriteString(primaryKey(dialect))

	var unique, joins []models.FieldDefinition
	for _, f := range fields {
		_, _, spec, err := m.column(dialect, f)
		if err != nil {
			return err
		}
		if spec.JoinTable {
			joins = append(joins, f)
			continue
		}
		b.WriteString(", ? ")
		b.WriteString(spec.SQL())
		vars = append(vars, clause.Column{Name: f.Name})
		if spec.Unique {
			unique = append(unique, f)
		}
	}
	b.WriteString(")")

	if err := tx.Exec(b.String(), vars...).Error; err != nil {
		return errors.Annotatef(err, "creating table %s", def.DBTable)
	}
	for _, f := range unique {
		if err := createUniqueIndex(tx, def.DBTable, f); err != nil {
			return err
		}
	}
	for _, f := range joins {
		if err := createJoinTable(tx, def.DBTable, f); err != nil {
			return err
		}
	}

	m.log.Debug().Str("table", def.DBTable).Int("fields", len(fields)).Msg("created physical table")
	return nil
}

func createUniqueIndex(tx *gorm.DB, table string, f models.FieldDefinition) error {
	name := naming.UniqueIndexName(f.ID)
	err := tx.Exec("CREATE UNIQUE INDEX ? ON ? (?)", clause.Column{Name: name}, clause.Table{Name: table}, clause.Column{Name: f.Name}).Error
	return errors.Annotatef(err, "creating index %s", name)
}

func createJoinTable(tx *gorm.DB, table string, f models.FieldDefinition) error {
	name := naming.JoinTableName(table, f.ID)
	err := tx.Exec("CREATE TABLE ? (? "+primaryKey(tx.Dialector.Name())+", ? BIGINT NOT NULL, ? BIGINT NOT NULL)",
		clause.Table{Name: name},
		clause.Column{Name: naming.RowIdentifier},
		clause.Column{Name: SourceColumn},
		clause.Column{Name: TargetColumn},
	).Error
	return errors.Annotatef(err, "creating join table %s", name)
}

// liveColumnNames reads the column names of table from the database. Names
// are compared exactly; the sqlite migrators match HasColumn with LIKE.
func liveColumnNames(tx *gorm.DB, table string) (map[string]bool, error) {
	types, err := silent(tx).Migrator().ColumnTypes(table)
	if err != nil {
		return nil, errors.Annotatef(err, "reading columns of %s", table)
	}
	names := make(map[string]bool, len(types))
	for _, ct := range types {
		names[ct.Name()] = true
	}
	return names, nil
}

func hasColumn(tx *gorm.DB, table, name string) (bool, error) {
	live, err := liveColumnNames(tx, table)
	if err != nil {
		return false, err
	}
	return live[name], nil
}

// AddColumn adds the column of f to table. A column already present in the
// live schema fails with ColumnExists.
func (m *Materializer) AddColumn(tx *gorm.DB, table *models.TableDefinition, f models.FieldDefinition) error {
	dialect := tx.Dialector.Name()
	_, _, spec, err := m.column(dialect, f)
	if err != nil {
		return err
	}
	migrator := tx.Migrator()

	if spec.JoinTable {
		join := naming.JoinTableName(table.DBTable, f.ID)
		if migrator.HasTable(join) {
			return errors.Annotatef(layererrors.ColumnExists, "join table %q", join)
		}
		return createJoinTable(tx, table.DBTable, f)
	}

	exists, err := hasColumn(tx, table.DBTable, f.Name)
	if err != nil {
		return err
	}
	if exists {
		return errors.Annotatef(layererrors.ColumnExists, "%s.%s", table.DBTable, f.Name)
	}

	stmt := "ALTER TABLE ? ADD COLUMN ? "
	if dialect == fieldtypes.SQLServer {
		stmt = "ALTER TABLE ? ADD ? "
	}
	if err := tx.Exec(stmt+spec.SQL(), clause.Table{Name: table.DBTable}, clause.Column{Name: f.Name}).Error; err != nil {
		return errors.Annotatef(err, "adding column %s.%s", table.DBTable, f.Name)
	}
	if spec.Unique {
		return createUniqueIndex(tx, table.DBTable, f)
	}
	return nil
}

// DropColumn removes the column of f from table. A column absent from the
// live schema fails with ColumnMissing.
func (m *Materializer) DropColumn(tx *gorm.DB, table *models.TableDefinition, f models.FieldDefinition) error {
	_, _, spec, err := m.column(tx.Dialector.Name(), f)
	if err != nil {
		return err
	}
	migrator := tx.Migrator()

	if spec.JoinTable {
		join := naming.JoinTableName(table.DBTable, f.ID)
		if !migrator.HasTable(join) {
			return errors.Annotatef(layererrors.ColumnMissing, "join table %q", join)
		}
		return errors.Annotatef(migrator.DropTable(join), "dropping join table %s", join)
	}

	exists, err := hasColumn(tx, table.DBTable, f.Name)
	if err != nil {
		return err
	}
	if !exists {
		return errors.Annotatef(layererrors.ColumnMissing, "%s.%s", table.DBTable, f.Name)
	}
	if spec.Unique {
		idx := naming.UniqueIndexName(f.ID)
		if migrator.HasIndex(table.DBTable, idx) {
			if err := migrator.DropIndex(table.DBTable, idx); err != nil {
				return errors.Annotatef(err, "dropping index %s", idx)
			}
		}
	}
	err = tx.Exec("ALTER TABLE ? DROP COLUMN ?", clause.Table{Name: table.DBTable}, clause.Column{Name: f.Name}).Error
	return errors.Annotatef(err, "dropping column %s.%s", table.DBTable, f.Name)
}

// RenameColumn renames the column of f to newName. Many-to-many fields
// have no column and are left untouched.
func (m *Materializer) RenameColumn(tx *gorm.DB, table *models.TableDefinition, f models.FieldDefinition, newName string) error {
	_, _, spec, err := m.column(tx.Dialector.Name(), f)
	if err != nil {
		return err
	}
	if spec.JoinTable || f.Name == newName {
		return nil
	}
	live, err := liveColumnNames(tx, table.DBTable)
	if err != nil {
		return err
	}
	if !live[f.Name] {
		return errors.Annotatef(layererrors.ColumnMissing, "%s.%s", table.DBTable, f.Name)
	}
	if live[newName] {
		return errors.Annotatef(layererrors.ColumnExists, "%s.%s", table.DBTable, newName)
	}
	return errors.Annotatef(tx.Migrator().RenameColumn(table.DBTable, f.Name, newName), "renaming column %s.%s", table.DBTable, f.Name)
}

// RenameTable moves the physical table of def, and its join tables, to
// newName. def.DBTable still holds the current name.
func (m *Materializer) RenameTable(tx *gorm.DB, def *models.TableDefinition, newName string) error {
	if def.DBTable == newName {
		return nil
	}
	migrator := tx.Migrator()
	if migrator.HasTable(newName) {
		return errors.Annotatef(layererrors.DuplicateName, "physical table %q", newName)
	}
	if !migrator.HasTable(def.DBTable) {
		return errors.Annotatef(layererrors.NotFound, "physical table %q", def.DBTable)
	}
	if err := migrator.RenameTable(def.DBTable, newName); err != nil {
		return errors.Annotatef(err, "renaming table %s", def.DBTable)
	}

	for _, f := range def.Fields {
		if f.Kind != fieldtypes.ManyToMany {
			continue
		}
		from, to := naming.JoinTableName(def.DBTable, f.ID), naming.JoinTableName(newName, f.ID)
		if !migrator.HasTable(from) {
			m.log.Warn().Str("table", from).Msg("join table missing during rename")
			continue
		}
		if err := migrator.RenameTable(from, to); err != nil {
			return errors.Annotatef(err, "renaming join table %s", from)
		}
	}
	return nil
}

// DropPhysicalTable drops the table of def and its join tables. Tables
// already gone are logged and skipped.
func (m *Materializer) DropPhysicalTable(tx *gorm.DB, def *models.TableDefinition) error {
	migrator := tx.Migrator()
	for _, f := range def.Fields {
		if f.Kind != fieldtypes.ManyToMany {
			continue
		}
		join := naming.JoinTableName(def.DBTable, f.ID)
		if migrator.HasTable(join) {
			if err := migrator.DropTable(join); err != nil {
				return errors.Annotatef(err, "dropping join table %s", join)
			}
		}
	}
	if !migrator.HasTable(def.DBTable) {
		m.log.Warn().Str("table", def.DBTable).Msg("physical table already dropped")
		return nil
	}
	return errors.Annotatef(migrator.DropTable(def.DBTable), "dropping table %s", def.DBTable)
}
