package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"gorm.io/gorm"

	"github.com/localnerve/layersdb/internal/catalog"
	layererrors "github.com/localnerve/layersdb/internal/errors"
	"github.com/localnerve/layersdb/internal/models"
	"github.com/localnerve/layersdb/internal/policy"
)

// FilesSubdir is the directory under the files root holding attachments.
const FilesSubdir = "attached_files"

// FileUpload is one file attached to a row.
type FileUpload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// AttachFile stores an uploaded file against an existing row.
func (s *Service) AttachFile(ctx context.Context, user models.User, tableID uint64, rowID int64, up FileUpload) (*models.AttachedFile, error) {
	shape, err := s.shape(ctx, user, tableID)
	if err != nil {
		return nil, err
	}
	if _, err := s.materializer.GetRow(s.db.WithContext(ctx), shape, rowID); err != nil {
		return nil, err
	}

	rel := filepath.ToSlash(filepath.Join(FilesSubdir, strings.ReplaceAll(uuid.NewString(), "-", "")+strings.ToLower(filepath.Ext(up.Name))))
	size, err := s.writeFile(rel, up.Body)
	if err != nil {
		return nil, err
	}

	f := &models.AttachedFile{
		TableID:      tableID,
		RowID:        rowID,
		Path:         rel,
		OriginalName: filepath.Base(up.Name),
		ContentType:  up.ContentType,
		Size:         size,
	}
	if err := catalog.CreateFile(s.db.WithContext(ctx), f); err != nil {
		s.removeFiles([]models.AttachedFile{*f})
		return nil, err
	}
	s.log.Info().Uint64("table", tableID).Int64("row", rowID).Str("path", rel).Int64("size", size).Msg("file attached")
	return f, nil
}

func (s *Service) writeFile(rel string, body io.Reader) (int64, error) {
	full := filepath.Join(s.filesDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, errors.Annotate(err, "creating files directory")
	}
	out, err := os.Create(full)
	if err != nil {
		return 0, errors.Annotate(err, "creating file")
	}
	size, err := io.Copy(out, body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(full)
		return 0, errors.Annotate(err, "writing file")
	}
	return size, nil
}

// ListFiles returns the files attached to a row.
func (s *Service) ListFiles(ctx context.Context, user models.User, tableID uint64, rowID int64) ([]models.AttachedFile, error) {
	if err := s.policy.Check(ctx, user, policy.Rows(tableID)); err != nil {
		return nil, err
	}
	return catalog.ListFiles(s.db.WithContext(ctx), tableID, rowID)
}

// GetFile returns one attached file record, authorized through its table.
func (s *Service) GetFile(ctx context.Context, user models.User, id uint64) (*models.AttachedFile, error) {
	if user.IsAnonymous() {
		return nil, errors.Annotatef(layererrors.Unauthorized, "file %d", id)
	}
	f, err := catalog.GetFile(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Check(ctx, user, policy.File(*f)); err != nil {
		return nil, err
	}
	return f, nil
}

// FilePath returns where the contents of f are stored on disk.
func (s *Service) FilePath(f *models.AttachedFile) string {
	return filepath.Join(s.filesDir, filepath.FromSlash(f.Path))
}

// DeleteFile removes an attached file record and its contents.
func (s *Service) DeleteFile(ctx context.Context, user models.User, id uint64) error {
	f, err := s.GetFile(ctx, user, id)
	if err != nil {
		return err
	}
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		return catalog.DeleteFile(tx, id)
	})
	if err != nil {
		return err
	}
	s.removeFiles([]models.AttachedFile{*f})
	return nil
}

// removeFiles deletes file contents from disk. Failures are logged only, the
// records are already gone.
func (s *Service) removeFiles(files []models.AttachedFile) {
	for i := range files {
		path := s.FilePath(&files[i])
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", path).Msg("removing attached file")
		}
	}
}
