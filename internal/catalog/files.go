package catalog

import (
	"github.com/juju/errors"
	"gorm.io/gorm"

	layererrors "github.com/localnerve/layersdb/internal/errors"
	"github.com/localnerve/layersdb/internal/models"
)

// CreateFile records an attached file.
func CreateFile(db *gorm.DB, f *models.AttachedFile) error {
	return errors.Trace(db.Create(f).Error)
}

// GetFile returns one attached file record.
func GetFile(db *gorm.DB, id uint64) (*models.AttachedFile, error) {
	var f models.AttachedFile
	if err := silent(db).First(&f, id).Error; err != nil {
		return nil, notFound(err, "file %d", id)
	}
	return &f, nil
}

// ListFiles returns the files attached to one row.
func ListFiles(db *gorm.DB, tableID uint64, rowID int64) ([]models.AttachedFile, error) {
	var files []models.AttachedFile
	err := silent(db).
		Where("table_id = ? AND row_id = ?", tableID, rowID).
		Order("id").
		Find(&files).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	return files, nil
}

// DeleteFile removes one attached file record.
func DeleteFile(db *gorm.DB, id uint64) error {
	result := db.Delete(&models.AttachedFile{}, id)
	if result.Error != nil {
		return errors.Trace(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.Annotatef(layererrors.NotFound, "file %d", id)
	}
	return nil
}

// DeleteRowFiles removes the records of every file attached to a row and
// returns them.
func DeleteRowFiles(db *gorm.DB, tableID uint64, rowID int64) ([]models.AttachedFile, error) {
	files, err := ListFiles(db, tableID, rowID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	if err := db.Where("table_id = ? AND row_id = ?", tableID, rowID).Delete(&models.AttachedFile{}).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return files, nil
}
