// catalog.go
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

// Package catalog persists the definitions of user tables and their fields.
// Every function works on the *gorm.DB it is given, so callers pass their
// transaction to group catalog writes with DDL.
package catalog

import (
	"strings"

	"github.com/juju/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/hints"

	layererrors "github.com/localnerve/layersdb/internal/errors"
	"github.com/localnerve/layersdb/internal/models"
	"github.com/localnerve/layersdb/internal/naming"
)

// Models lists the catalog models in migration order.
var Models = []interface{}{
	&models.TableDefinition{},
	&models.FieldDefinition{},
	&models.UserToTable{},
	&models.AttachedFile{},
}

// Migrate creates or updates the catalog tables.
func Migrate(db *gorm.DB) error {
	return errors.Annotate(db.AutoMigrate(Models...), "migrating catalog")
}

func silent(db *gorm.DB) *gorm.DB {
	return db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)})
}

// uniqueViolations are the messages the supported drivers use when a unique
// index rejects a write and gorm could not translate the error.
var uniqueViolations = []string{
	"UNIQUE constraint failed",
	"duplicate key value",
	"Duplicate entry",
	"Cannot insert duplicate key",
}

// IsDuplicate reports whether err is a unique index violation.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, layererrors.DuplicateName) {
		return true
	}
	msg := err.Error()
	for _, s := range uniqueViolations {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Annotatef(layererrors.NotFound, format, args...)
	}
	return errors.Trace(err)
}

func withFields(db *gorm.DB) *gorm.DB {
	return db.Preload("Fields", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	})
}

// CreateTable inserts t without its fields. The logical name must be unused
// in t.NameScope and the physical name unused everywhere.
func CreateTable(db *gorm.DB, t *models.TableDefinition) error {
	var count int64
	if err := silent(db).Model(&models.TableDefinition{}).
		Where("(name_scope = ? AND name = ?) OR db_table = ?", t.NameScope, t.Name, t.DBTable).
		Count(&count).Error; err != nil {
		return errors.Trace(err)
	}
	if count > 0 {
		return layererrors.Validation("name", errors.Annotatef(layererrors.DuplicateName, "table %q", t.Name))
	}

	if err := db.Omit(clause.Associations).Create(t).Error; err != nil {
		if IsDuplicate(err) {
			return layererrors.Validation("name", errors.Annotatef(layererrors.DuplicateName, "table %q", t.Name))
		}
		return errors.Trace(err)
	}
	return nil
}

// GetTable returns the table with its fields ordered by creation.
func GetTable(db *gorm.DB, id uint64) (*models.TableDefinition, error) {
	var t models.TableDefinition
	if err := withFields(silent(db)).First(&t, id).Error; err != nil {
		return nil, notFound(err, "table %d", id)
	}
	return &t, nil
}

// GetTableByLogicalName finds a table by its slug within a naming scope.
func GetTableByLogicalName(db *gorm.DB, scope, name string) (*models.TableDefinition, error) {
	var t models.TableDefinition
	err := withFields(silent(db)).
		Where("name_scope = ? AND name = ?", scope, name).
		First(&t).Error
	if err != nil {
		return nil, notFound(err, "table %q", name)
	}
	return &t, nil
}

// ListTables returns every table.
func ListTables(db *gorm.DB) ([]models.TableDefinition, error) {
	var tables []models.TableDefinition
	if err := withFields(silent(db)).Order("id").Find(&tables).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return tables, nil
}

// ListTablesForOwner returns the tables user owns. Superusers see every
// table and anonymous users none.
func ListTablesForOwner(db *gorm.DB, user models.User) ([]models.TableDefinition, error) {
	if user.Superuser {
		return ListTables(db)
	}
	if user.IsAnonymous() {
		return []models.TableDefinition{}, nil
	}

	var tables []models.TableDefinition
	err := withFields(silent(db)).
		Clauses(hints.CommentBefore("select", "layersdb:owner-tables")).
		Where("id IN (?)", silent(db).Model(&models.UserToTable{}).Select("table_id").Where("user_id = ?", user.ID)).
		Order("id").
		Find(&tables).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	return tables, nil
}

// UpdateTable saves the name columns of t.
func UpdateTable(db *gorm.DB, t *models.TableDefinition) error {
	var count int64
	if err := silent(db).Model(&models.TableDefinition{}).
		Where("id <> ? AND ((name_scope = ? AND name = ?) OR db_table = ?)", t.ID, t.NameScope, t.Name, t.DBTable).
		Count(&count).Error; err != nil {
		return errors.Trace(err)
	}
	if count > 0 {
		return layererrors.Validation("name", errors.Annotatef(layererrors.DuplicateName, "table %q", t.Name))
	}

	err := db.Model(t).Select("name", "display_name", "db_table", "updated_at").Updates(t).Error
	if err != nil {
		if IsDuplicate(err) {
			return layererrors.Validation("name", errors.Annotatef(layererrors.DuplicateName, "table %q", t.Name))
		}
		return errors.Trace(err)
	}
	return nil
}

// DeleteTable removes the table record with its fields, ownership links and
// attached file records. The removed file records are returned so the caller
// can delete their content once the transaction commits.
func DeleteTable(db *gorm.DB, id uint64) ([]models.AttachedFile, error) {
	var files []models.AttachedFile
	if err := db.Where("table_id = ?", id).Find(&files).Error; err != nil {
		return nil, errors.Trace(err)
	}

	for _, m := range []interface{}{&models.AttachedFile{}, &models.UserToTable{}, &models.FieldDefinition{}} {
		if err := db.Where("table_id = ?", id).Delete(m).Error; err != nil {
			return nil, errors.Trace(err)
		}
	}

	result := db.Delete(&models.TableDefinition{}, id)
	if result.Error != nil {
		return nil, errors.Trace(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, errors.Annotatef(layererrors.NotFound, "table %d", id)
	}
	return files, nil
}

// IsReservedFieldName reports whether name collides with a system column.
func IsReservedFieldName(name string) bool {
	return name == naming.RowIdentifier
}

// CreateField inserts f. Its name must be free within the table.
func CreateField(db *gorm.DB, f *models.FieldDefinition) error {
	if IsReservedFieldName(f.Name) {
		return layererrors.Validation("name", errors.Annotatef(layererrors.ReservedName, "field %q", f.Name))
	}

	var count int64
	if err := silent(db).Model(&models.FieldDefinition{}).
		Where("table_id = ? AND name = ?", f.TableID, f.Name).
		Count(&count).Error; err != nil {
		return errors.Trace(err)
	}
	if count > 0 {
		return layererrors.Validation("name", errors.Annotatef(layererrors.DuplicateName, "field %q", f.Name))
	}

	if err := db.Create(f).Error; err != nil {
		if IsDuplicate(err) {
			return layererrors.Validation("name", errors.Annotatef(layererrors.DuplicateName, "field %q", f.Name))
		}
		return errors.Trace(err)
	}
	return nil
}

// GetField returns one field.
func GetField(db *gorm.DB, id uint64) (*models.FieldDefinition, error) {
	var f models.FieldDefinition
	if err := silent(db).First(&f, id).Error; err != nil {
		return nil, notFound(err, "field %d", id)
	}
	return &f, nil
}

// ListFields returns the fields of a table ordered by creation.
func ListFields(db *gorm.DB, tableID uint64) ([]models.FieldDefinition, error) {
	var fields []models.FieldDefinition
	if err := silent(db).Where("table_id = ?", tableID).Order("id").Find(&fields).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return fields, nil
}

// RenameField changes the column and display names of f.
func RenameField(db *gorm.DB, f *models.FieldDefinition, name, displayName string) error {
	if IsReservedFieldName(name) {
		return layererrors.Validation("name", errors.Annotatef(layererrors.ReservedName, "field %q", name))
	}
	if name != f.Name {
		var count int64
		if err := silent(db).Model(&models.FieldDefinition{}).
			Where("table_id = ? AND name = ? AND id <> ?", f.TableID, name, f.ID).
			Count(&count).Error; err != nil {
			return errors.Trace(err)
		}
		if count > 0 {
			return layererrors.Validation("name", errors.Annotatef(layererrors.DuplicateName, "field %q", name))
		}
	}

	f.Name = name
	f.DisplayName = displayName
	if err := db.Model(f).Select("name", "display_name", "updated_at").Updates(f).Error; err != nil {
		if IsDuplicate(err) {
			return layererrors.Validation("name", errors.Annotatef(layererrors.DuplicateName, "field %q", name))
		}
		return errors.Trace(err)
	}
	return nil
}

// DeleteField removes one field record.
func DeleteField(db *gorm.DB, id uint64) error {
	result := db.Delete(&models.FieldDefinition{}, id)
	if result.Error != nil {
		return errors.Trace(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.Annotatef(layererrors.NotFound, "field %d", id)
	}
	return nil
}

// AddOwner links userID to the table. Adding an existing owner is a no-op.
func AddOwner(db *gorm.DB, tableID uint64, userID string) error {
	link := models.UserToTable{TableID: tableID, UserID: userID}
	err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error
	if err != nil && !IsDuplicate(err) {
		return errors.Trace(err)
	}
	return nil
}

// Owners returns the user ids linked to a table.
func Owners(db *gorm.DB, tableID uint64) ([]string, error) {
	var ids []string
	err := silent(db).Model(&models.UserToTable{}).
		Where("table_id = ?", tableID).
		Order("id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	return ids, nil
}

// IsOwner reports whether userID is linked to the table.
func IsOwner(db *gorm.DB, tableID uint64, userID string) (bool, error) {
	var count int64
	err := silent(db).Model(&models.UserToTable{}).
		Where("table_id = ? AND user_id = ?", tableID, userID).
		Count(&count).Error
	if err != nil {
		return false, errors.Trace(err)
	}
	return count > 0, nil
}

// OwnedTableIDs returns the ids of the tables linked to userID.
func OwnedTableIDs(db *gorm.DB, userID string) ([]uint64, error) {
	var ids []uint64
	err := silent(db).Model(&models.UserToTable{}).
		Where("user_id = ?", userID).
		Order("table_id").
		Pluck("table_id", &ids).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	return ids, nil
}
