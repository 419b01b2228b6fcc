package materializer

import (
	"github.com/juju/errors"
	"gorm.io/gorm"

	"github.com/localnerve/layersdb/internal/catalog"
	"github.com/localnerve/layersdb/internal/fieldtypes"
	"github.com/localnerve/layersdb/internal/models"
	"github.com/localnerve/layersdb/internal/naming"
)

// ColumnDescriptor is one column of a physical table as the database
// reports it. Kind is empty when the type maps to no single field kind.
type ColumnDescriptor struct {
	Name         string          `json:"name"`
	DatabaseType string          `json:"database_type"`
	Kind         fieldtypes.Kind `json:"kind,omitempty"`
	Nullable     bool            `json:"nullable"`
	PrimaryKey   bool            `json:"primary_key"`
}

// Column is one field of a TableShape.
type Column struct {
	Name   string
	Field  models.FieldDefinition
	Type   fieldtypes.FieldType
	Params fieldtypes.Params
	// JoinTable names the link table of many-to-many fields.
	JoinTable string
}

// TableShape describes the writable columns of one user table.
type TableShape struct {
	TableID uint64
	DBTable string
	Dialect string
	Columns []Column
}

// Column returns the column named name.
func (s *TableShape) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Names returns the column names in order.
func (s *TableShape) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// GetLiveShape introspects the physical table.
func (m *Materializer) GetLiveShape(db *gorm.DB, dbTable string) ([]ColumnDescriptor, error) {
	dialect := db.Dialector.Name()
	types, err := silent(db).Migrator().ColumnTypes(dbTable)
	if err != nil {
		return nil, errors.Annotatef(err, "reading columns of %s", dbTable)
	}

	columns := make([]ColumnDescriptor, 0, len(types))
	for _, ct := range types {
		d := ColumnDescriptor{
			Name:         ct.Name(),
			DatabaseType: ct.DatabaseTypeName(),
		}
		if n, ok := ct.Nullable(); ok {
			d.Nullable = n
		}
		if pk, ok := ct.PrimaryKey(); ok {
			d.PrimaryKey = pk
		}
		if kind, err := m.registry.ResolveColumn(dialect, d.DatabaseType); err == nil {
			d.Kind = kind
		}
		columns = append(columns, d)
	}
	return columns, nil
}

// BuildShape reads the shape of def from its fields and the live schema. The
// live schema wins: fields without a physical column are left out.
func (m *Materializer) BuildShape(db *gorm.DB, def *models.TableDefinition) (*TableShape, error) {
	live, err := m.GetLiveShape(db, def.DBTable)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(live))
	for _, c := range live {
		present[c.Name] = true
	}

	dialect := db.Dialector.Name()
	shape := &TableShape{
		TableID: def.ID,
		DBTable: def.DBTable,
		Dialect: dialect,
		Columns: make([]Column, 0, len(def.Fields)),
	}
	for _, f := range def.Fields {
		ft, p, spec, err := m.column(dialect, f)
		if err != nil {
			return nil, err
		}
		c := Column{Name: f.Name, Field: f, Type: ft, Params: p}
		if spec.JoinTable {
			c.JoinTable = naming.JoinTableName(def.DBTable, f.ID)
		} else if !present[f.Name] {
			m.log.Warn().Str("table", def.DBTable).Str("column", f.Name).Msg("field has no physical column")
			continue
		}
		delete(present, f.Name)
		shape.Columns = append(shape.Columns, c)
	}
	delete(present, naming.RowIdentifier)
	for name := range present {
		m.log.Warn().Str("table", def.DBTable).Str("column", name).Msg("physical column has no field")
	}
	return shape, nil
}

// Shape returns the cached shape of a table, building it on a miss. The
// definition is read from the catalog inside the build, after the cache
// generation is taken, so a build racing a mutation is never stored.
// Callers inside a transaction that changed the table must use BuildShape.
func (m *Materializer) Shape(db *gorm.DB, tableID uint64) (*TableShape, error) {
	return m.cache.Load(tableID, func() (*TableShape, error) {
		def, err := catalog.GetTable(db, tableID)
		if err != nil {
			return nil, err
		}
		return m.BuildShape(db, def)
	})
}
