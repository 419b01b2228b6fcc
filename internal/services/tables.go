// tables.go
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

package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/juju/errors"
	"gorm.io/gorm"

	"github.com/localnerve/layersdb/internal/catalog"
	layererrors "github.com/localnerve/layersdb/internal/errors"
	"github.com/localnerve/layersdb/internal/event"
	"github.com/localnerve/layersdb/internal/fieldtypes"
	"github.com/localnerve/layersdb/internal/models"
	"github.com/localnerve/layersdb/internal/naming"
	"github.com/localnerve/layersdb/internal/policy"
)

// GeometryField is the name of the geometry field seeded into new tables.
const GeometryField = "geometry"

// CreateTableForUser creates a table owned by owner. Unless a geometry field
// is requested, a system geometry field shaped by the input hints is added.
// Catalog records, physical table and ownership link commit together.
func (s *Service) CreateTableForUser(ctx context.Context, owner models.User, in CreateTableInput) (*models.TableDefinition, error) {
	if !policy.CanCreate(owner) {
		return nil, errors.Annotatef(layererrors.Unauthorized, "creating table")
	}
	if err := inputError(in.validate(s.registry)); err != nil {
		return nil, err
	}
	fields, err := s.planFields(in)
	if err != nil {
		return nil, err
	}

	var def *models.TableDefinition
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		var err error
		def, err = s.createTable(tx, owner, in.Name, fields)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint64("table", def.ID).Str("owner", owner.ID).Str("db_table", def.DBTable).Msg("table created")
	s.events.TriggerTableCreated(ctx, event.NewTable(def))
	return def, nil
}

func (s *Service) planFields(in CreateTableInput) ([]models.FieldDefinition, error) {
	fields := make([]models.FieldDefinition, 0, len(in.Fields)+1)
	seen := make(map[string]int, len(in.Fields))
	hasGeometry := false

	for i, fi := range in.Fields {
		path := fmt.Sprintf("fields.%d", i)
		f, err := s.fieldDefinition(fi)
		if err != nil {
			return nil, layererrors.Validation(path, err)
		}
		if j, dup := seen[f.Name]; dup {
			return nil, layererrors.Validationf(path+".name", layererrors.DuplicateName, "%q repeats fields.%d", f.Name, j)
		}
		seen[f.Name] = i
		ft, _ := s.registry.Lookup(f.Kind)
		hasGeometry = hasGeometry || ft.IsGeometry()
		fields = append(fields, f)
	}

	if !hasGeometry {
		if i, taken := seen[GeometryField]; taken {
			return nil, layererrors.Validationf(fmt.Sprintf("fields.%d.name", i), layererrors.ReservedName, "%q is the system geometry field", GeometryField)
		}
		fields = append(fields, s.systemGeometry(in.GeometryType, in.Geometry3D))
	}
	return fields, nil
}

func (s *Service) fieldDefinition(fi FieldInput) (models.FieldDefinition, error) {
	name, err := naming.NormalizeFieldName(fi.Name)
	if err != nil {
		return models.FieldDefinition{}, err
	}
	ft, err := s.registry.Lookup(fi.Type)
	if err != nil {
		return models.FieldDefinition{}, err
	}

	p := fi.Params
	if ft.IsGeometry() && p.SRID == 0 {
		p.SRID = s.defaultSRID
	}
	params, err := models.NewJSON(p)
	if err != nil {
		return models.FieldDefinition{}, errors.Trace(err)
	}

	null := true
	if fi.Null != nil {
		null = *fi.Null
	}
	return models.FieldDefinition{
		Name:        name,
		DisplayName: strings.TrimSpace(fi.Name),
		Kind:        ft.Kind,
		Params:      params,
		Null:        null,
		Blank:       fi.Blank,
	}, nil
}

func (s *Service) systemGeometry(hint fieldtypes.Kind, is3D bool) models.FieldDefinition {
	kind := fieldtypes.Geometry
	if k, ok := fieldtypes.GeometryKindForType(string(hint)); ok {
		kind = k
	}
	p := fieldtypes.Params{SRID: s.defaultSRID, Dim: 2}
	if is3D {
		p.Dim = 3
	}
	params, _ := models.NewJSON(p)
	return models.FieldDefinition{
		Name:        GeometryField,
		DisplayName: GeometryField,
		Kind:        kind,
		Params:      params,
		Null:        true,
		Blank:       true,
		System:      true,
	}
}

// createTable records and materializes a table on tx.
func (s *Service) createTable(tx *gorm.DB, owner models.User, displayName string, fields []models.FieldDefinition) (*models.TableDefinition, error) {
	slug, err := naming.TableSlug(displayName)
	if err != nil {
		return nil, layererrors.Validation("name", err)
	}
	dbTable, err := s.namer.DeriveTableIdentifier(displayName, owner.ID)
	if err != nil {
		return nil, layererrors.Validation("name", err)
	}

	def := &models.TableDefinition{
		NameScope:   s.scope(owner),
		Name:        slug,
		DisplayName: strings.TrimSpace(displayName),
		OwnerID:     owner.ID,
		DBTable:     dbTable,
	}
	if err := catalog.CreateTable(tx, def); err != nil {
		return nil, err
	}
	for i := range fields {
		fields[i].ID = 0
		fields[i].TableID = def.ID
		if err := catalog.CreateField(tx, &fields[i]); err != nil {
			return nil, err
		}
	}
	if err := s.materializer.CreatePhysicalTable(tx, def, fields); err != nil {
		if errors.Is(err, layererrors.DuplicateName) {
			return nil, layererrors.Validation("name", err)
		}
		return nil, err
	}
	if err := catalog.AddOwner(tx, def.ID, owner.ID); err != nil {
		return nil, err
	}
	def.Fields = fields
	return def, nil
}

// GetTable returns one table visible to user.
func (s *Service) GetTable(ctx context.Context, user models.User, id uint64) (*models.TableDefinition, error) {
	if err := s.policy.Check(ctx, user, policy.Table(id)); err != nil {
		return nil, err
	}
	return catalog.GetTable(s.db.WithContext(ctx), id)
}

// ListTables returns the tables visible to user.
func (s *Service) ListTables(ctx context.Context, user models.User) ([]models.TableDefinition, error) {
	if user.IsAnonymous() {
		return nil, errors.Annotatef(layererrors.Unauthorized, "listing tables")
	}
	tables, err := catalog.ListTablesForOwner(s.db.WithContext(ctx), user)
	if err != nil {
		return nil, err
	}
	return s.policy.FilterVisible(ctx, user, tables), nil
}

// UpdateTable renames a table. A new logical name moves the physical table
// to a freshly derived name in the same transaction.
func (s *Service) UpdateTable(ctx context.Context, user models.User, id uint64, in UpdateTableInput) (*models.TableDefinition, error) {
	if err := inputError(in.validate()); err != nil {
		return nil, err
	}
	if err := s.policy.Check(ctx, user, policy.Table(id)); err != nil {
		return nil, err
	}
	slug, err := naming.TableSlug(in.Name)
	if err != nil {
		return nil, layererrors.Validation("name", err)
	}

	var def *models.TableDefinition
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if def, err = catalog.GetTable(tx, id); err != nil {
			return err
		}
		old := *def
		def.DisplayName = strings.TrimSpace(in.Name)
		if slug != def.Name {
			dbTable, err := s.namer.DeriveTableIdentifier(in.Name, def.OwnerID)
			if err != nil {
				return layererrors.Validation("name", err)
			}
			def.Name = slug
			def.DBTable = dbTable
		}
		if err := catalog.UpdateTable(tx, def); err != nil {
			return err
		}
		return s.materializer.RenameTable(tx, &old, def.DBTable)
	})
	if err != nil {
		return nil, err
	}

	s.materializer.Invalidate(id)
	s.log.Info().Uint64("table", id).Str("db_table", def.DBTable).Msg("table updated")
	s.events.TriggerTableUpdated(ctx, event.NewTable(def))
	return def, nil
}

// DeleteTable drops a table with its fields, ownership links and attached
// files.
func (s *Service) DeleteTable(ctx context.Context, user models.User, id uint64) error {
	if err := s.policy.Check(ctx, user, policy.Table(id)); err != nil {
		return err
	}

	var (
		def   *models.TableDefinition
		files []models.AttachedFile
	)
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if def, err = catalog.GetTable(tx, id); err != nil {
			return err
		}
		if err := s.materializer.DropPhysicalTable(tx, def); err != nil {
			return err
		}
		files, err = catalog.DeleteTable(tx, id)
		return err
	})
	if err != nil {
		return err
	}

	s.materializer.Invalidate(id)
	s.removeFiles(files)
	s.log.Info().Uint64("table", id).Str("db_table", def.DBTable).Int("files", len(files)).Msg("table deleted")
	s.events.TriggerTableDeleted(ctx, event.NewTable(def))
	return nil
}
