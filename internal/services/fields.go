package services

import (
	"context"
	"strings"

	"github.com/juju/errors"
	"gorm.io/gorm"

	"github.com/localnerve/layersdb/internal/catalog"
	layererrors "github.com/localnerve/layersdb/internal/errors"
	"github.com/localnerve/layersdb/internal/models"
	"github.com/localnerve/layersdb/internal/naming"
	"github.com/localnerve/layersdb/internal/policy"
)

// ListFields returns the fields of a table.
func (s *Service) ListFields(ctx context.Context, user models.User, tableID uint64) ([]models.FieldDefinition, error) {
	if err := s.policy.Check(ctx, user, policy.Table(tableID)); err != nil {
		return nil, err
	}
	if _, err := catalog.GetTable(s.db.WithContext(ctx), tableID); err != nil {
		return nil, err
	}
	return catalog.ListFields(s.db.WithContext(ctx), tableID)
}

// GetField returns one field, authorized through its table.
func (s *Service) GetField(ctx context.Context, user models.User, id uint64) (*models.FieldDefinition, error) {
	if user.IsAnonymous() {
		return nil, errors.Annotatef(layererrors.Unauthorized, "field %d", id)
	}
	f, err := catalog.GetField(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Check(ctx, user, policy.Field(*f)); err != nil {
		return nil, err
	}
	return f, nil
}

// AddField adds a field and its column to a table. A column already present
// in the physical table is adopted.
func (s *Service) AddField(ctx context.Context, user models.User, tableID uint64, in FieldInput) (*models.FieldDefinition, error) {
	if err := inputError(in.validate(s.registry)); err != nil {
		return nil, err
	}
	if err := s.policy.Check(ctx, user, policy.Table(tableID)); err != nil {
		return nil, err
	}
	f, err := s.fieldDefinition(in)
	if err != nil {
		return nil, layererrors.Validation("name", err)
	}

	err = s.transaction(ctx, func(tx *gorm.DB) error {
		def, err := catalog.GetTable(tx, tableID)
		if err != nil {
			return err
		}
		f.TableID = def.ID
		if err := catalog.CreateField(tx, &f); err != nil {
			return err
		}
		err = s.materializer.AddColumn(tx, def, f)
		if errors.Is(err, layererrors.ColumnExists) {
			s.log.Warn().Err(err).Uint64("table", def.ID).Str("field", f.Name).Msg("column already present, keeping physical column")
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.materializer.Invalidate(tableID)
	s.log.Info().Uint64("table", tableID).Str("field", f.Name).Msg("field added")
	return &f, nil
}

// RenameField renames a field and its column.
func (s *Service) RenameField(ctx context.Context, user models.User, id uint64, in RenameFieldInput) (*models.FieldDefinition, error) {
	if err := inputError(in.validate()); err != nil {
		return nil, err
	}
	f, err := s.GetField(ctx, user, id)
	if err != nil {
		return nil, err
	}
	name, err := naming.NormalizeFieldName(in.Name)
	if err != nil {
		return nil, layererrors.Validation("name", err)
	}

	err = s.transaction(ctx, func(tx *gorm.DB) error {
		def, err := catalog.GetTable(tx, f.TableID)
		if err != nil {
			return err
		}
		current := *f
		if err := catalog.RenameField(tx, f, name, strings.TrimSpace(in.Name)); err != nil {
			return err
		}
		err = s.materializer.RenameColumn(tx, def, current, name)
		if errors.Is(err, layererrors.ColumnMissing) {
			s.log.Warn().Err(err).Uint64("table", def.ID).Str("field", current.Name).Msg("column missing, renaming field only")
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.materializer.Invalidate(f.TableID)
	s.log.Info().Uint64("table", f.TableID).Str("field", name).Msg("field renamed")
	return f, nil
}

// DeleteField removes a field and its column. A column already missing from
// the physical table is tolerated.
func (s *Service) DeleteField(ctx context.Context, user models.User, id uint64) error {
	f, err := s.GetField(ctx, user, id)
	if err != nil {
		return err
	}

	err = s.transaction(ctx, func(tx *gorm.DB) error {
		def, err := catalog.GetTable(tx, f.TableID)
		if err != nil {
			return err
		}
		err = s.materializer.DropColumn(tx, def, *f)
		if errors.Is(err, layererrors.ColumnMissing) {
			s.log.Warn().Err(err).Uint64("table", def.ID).Str("field", f.Name).Msg("column already dropped")
		} else if err != nil {
			return err
		}
		return catalog.DeleteField(tx, f.ID)
	})
	if err != nil {
		return err
	}

	s.materializer.Invalidate(f.TableID)
	s.log.Info().Uint64("table", f.TableID).Str("field", f.Name).Msg("field deleted")
	return nil
}
