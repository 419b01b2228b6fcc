package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/localnerve/layersdb/internal/catalog"
	"github.com/localnerve/layersdb/internal/materializer"
	"github.com/localnerve/layersdb/internal/models"
	"github.com/localnerve/layersdb/internal/policy"
)

// RowPage is one page of table rows.
type RowPage struct {
	Total int64              `json:"total"`
	Rows  []materializer.Row `json:"rows"`
}

// shape authorizes user on the rows of a table and returns its shape.
func (s *Service) shape(ctx context.Context, user models.User, tableID uint64) (*materializer.TableShape, error) {
	if err := s.policy.Check(ctx, user, policy.Rows(tableID)); err != nil {
		return nil, err
	}
	return s.materializer.Shape(s.db.WithContext(ctx), tableID)
}

// ListRows returns a page of rows.
func (s *Service) ListRows(ctx context.Context, user models.User, tableID uint64, page materializer.Page) (*RowPage, error) {
	shape, err := s.shape(ctx, user, tableID)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	total, err := s.materializer.CountRows(db, shape)
	if err != nil {
		return nil, err
	}
	rows, err := s.materializer.ListRows(db, shape, page)
	if err != nil {
		return nil, err
	}
	return &RowPage{Total: total, Rows: rows}, nil
}

// GetRow returns one row.
func (s *Service) GetRow(ctx context.Context, user models.User, tableID uint64, rowID int64) (materializer.Row, error) {
	shape, err := s.shape(ctx, user, tableID)
	if err != nil {
		return nil, err
	}
	return s.materializer.GetRow(s.db.WithContext(ctx), shape, rowID)
}

// InsertRow adds a row and returns it as stored.
func (s *Service) InsertRow(ctx context.Context, user models.User, tableID uint64, values map[string]interface{}) (materializer.Row, error) {
	shape, err := s.shape(ctx, user, tableID)
	if err != nil {
		return nil, err
	}
	var row materializer.Row
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		id, err := s.materializer.InsertRow(tx, shape, values)
		if err != nil {
			return err
		}
		row, err = s.materializer.GetRow(tx, shape, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// UpdateRow changes the given values of one row and returns it.
func (s *Service) UpdateRow(ctx context.Context, user models.User, tableID uint64, rowID int64, values map[string]interface{}) (materializer.Row, error) {
	shape, err := s.shape(ctx, user, tableID)
	if err != nil {
		return nil, err
	}
	var row materializer.Row
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		if err := s.materializer.UpdateRow(tx, shape, rowID, values); err != nil {
			return err
		}
		row, err = s.materializer.GetRow(tx, shape, rowID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// DeleteRow removes a row together with its attached files.
func (s *Service) DeleteRow(ctx context.Context, user models.User, tableID uint64, rowID int64) error {
	shape, err := s.shape(ctx, user, tableID)
	if err != nil {
		return err
	}
	var files []models.AttachedFile
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		if err := s.materializer.DeleteRow(tx, shape, rowID); err != nil {
			return err
		}
		files, err = catalog.DeleteRowFiles(tx, tableID, rowID)
		return err
	})
	if err != nil {
		return err
	}
	s.removeFiles(files)
	return nil
}
