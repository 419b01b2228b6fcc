// Package policy decides whether a user may see or change a user table and
// everything reached through it: fields, rows and attached files.
package policy

import (
	"context"

	"github.com/juju/errors"
	"gorm.io/gorm"

	"github.com/localnerve/layersdb/internal/catalog"
	layererrors "github.com/localnerve/layersdb/internal/errors"
	"github.com/localnerve/layersdb/internal/models"
)

// ResourceKind names what a Resource addresses.
type ResourceKind string

const (
	KindTable ResourceKind = "table"
	KindField ResourceKind = "field"
	KindRows  ResourceKind = "rows"
	KindFile  ResourceKind = "file"
)

// Resource is authorized through the table it belongs to.
type Resource struct {
	Kind    ResourceKind
	TableID uint64
}

func Table(id uint64) Resource { return Resource{Kind: KindTable, TableID: id} }

func Field(f models.FieldDefinition) Resource { return Resource{Kind: KindField, TableID: f.TableID} }

func Rows(tableID uint64) Resource { return Resource{Kind: KindRows, TableID: tableID} }

func File(f models.AttachedFile) Resource { return Resource{Kind: KindFile, TableID: f.TableID} }

// Evaluator answers policy questions against the ownership records.
type Evaluator struct {
	db *gorm.DB
}

// New returns an Evaluator reading ownership from db.
func New(db *gorm.DB) *Evaluator {
	return &Evaluator{db: db}
}

// CanCreate reports whether user may create tables.
func CanCreate(user models.User) bool {
	return !user.IsAnonymous()
}

// Check returns nil when user may access r. Anonymous users get
// Unauthorized; other denials are reported as NotFound so the existence of
// the table is never confirmed.
func (e *Evaluator) Check(ctx context.Context, user models.User, r Resource) error {
	if user.IsAnonymous() {
		return errors.Annotatef(layererrors.Unauthorized, "%s of table %d", r.Kind, r.TableID)
	}
	if user.Superuser {
		return nil
	}
	ok, err := catalog.IsOwner(e.db.WithContext(ctx), r.TableID, user.ID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Annotatef(layererrors.NotFound, "table %d", r.TableID)
	}
	return nil
}

// CanView reports whether user may read r.
func (e *Evaluator) CanView(ctx context.Context, user models.User, r Resource) bool {
	return e.Check(ctx, user, r) == nil
}

// CanModify reports whether user may change r. Viewing and changing share
// one rule: ownership or superuser.
func (e *Evaluator) CanModify(ctx context.Context, user models.User, r Resource) bool {
	return e.Check(ctx, user, r) == nil
}

// FilterVisible keeps the tables user may view, in their original order.
func (e *Evaluator) FilterVisible(ctx context.Context, user models.User, tables []models.TableDefinition) []models.TableDefinition {
	visible := make([]models.TableDefinition, 0, len(tables))
	if user.IsAnonymous() {
		return visible
	}
	if user.Superuser {
		return append(visible, tables...)
	}

	ids, err := catalog.OwnedTableIDs(e.db.WithContext(ctx), user.ID)
	if err != nil {
		return visible
	}
	owned := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		owned[id] = true
	}
	for _, t := range tables {
		if owned[t.ID] {
			visible = append(visible, t)
		}
	}
	return visible
}
