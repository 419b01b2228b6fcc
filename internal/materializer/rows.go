package materializer

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	layererrors "github.com/localnerve/layersdb/internal/errors"
	"github.com/localnerve/layersdb/internal/fieldtypes"
	"github.com/localnerve/layersdb/internal/geometry"
	"github.com/localnerve/layersdb/internal/naming"
)

// Row is one row of a user table keyed by column name. Geometry values are
// GeoJSON documents.
type Row map[string]interface{}

// ID returns the row identifier.
func (r Row) ID() int64 {
	id, _ := r[naming.RowIdentifier].(int64)
	return id
}

// Page bounds a row listing. A zero Limit lists every row.
type Page struct {
	Limit  int
	Offset int
}

type assignment struct {
	column string
	value  interface{}
}

type prepared struct {
	assignments []assignment
	links       map[string][]int64
}

// prepare validates values against the shape and converts them to the
// expressions written to the database.
func (m *Materializer) prepare(shape *TableShape, values map[string]interface{}) (prepared, error) {
	out := prepared{links: map[string][]int64{}}

	keys := make([]string, 0, len(values))
	for k := range values {
		if k != naming.RowIdentifier {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		v := values[key]
		c, ok := shape.Column(key)
		if !ok {
			return out, layererrors.Validationf(key, layererrors.InvalidValue, "unknown field %q", key)
		}
		if v == nil && !c.Field.Null {
			return out, layererrors.Validationf(key, layererrors.InvalidValue, "%s may not be null", key)
		}

		switch {
		case c.Type.IsGeometry():
			expr, err := geometryValue(shape.Dialect, c, v)
			if err != nil {
				return out, layererrors.Validation(key, err)
			}
			out.assignments = append(out.assignments, assignment{column: key, value: expr})
		case c.JoinTable != "":
			ids, err := c.Type.Coerce(c.Params, v)
			if err != nil {
				return out, layererrors.Validation(key, err)
			}
			list, _ := ids.([]int64)
			out.links[key] = list
		default:
			cv, err := c.Type.Coerce(c.Params, v)
			if err != nil {
				return out, layererrors.Validation(key, err)
			}
			out.assignments = append(out.assignments, assignment{column: key, value: cv})
		}
	}
	return out, nil
}

func geometryValue(dialect string, c Column, v interface{}) (interface{}, error) {
	g, err := geometry.FromValue(v)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, nil
	}
	if err := geometry.Check(c.Field.Kind, c.Params, g); err != nil {
		return nil, err
	}
	text, err := geometry.WKT(g)
	if err != nil {
		return nil, err
	}
	return geometry.ValueExpr(dialect, c.Params.SRID, text), nil
}

// InsertRow writes one row and returns its identifier.
func (m *Materializer) InsertRow(tx *gorm.DB, shape *TableShape, values map[string]interface{}) (int64, error) {
	p, err := m.prepare(shape, values)
	if err != nil {
		return 0, err
	}

	id := clause.Column{Name: naming.RowIdentifier}
	vars := []interface{}{clause.Table{Name: shape.DBTable}}
	var b strings.Builder
	b.WriteString("INSERT INTO ?")

	var output string
	if shape.Dialect == fieldtypes.SQLServer {
		output = " OUTPUT INSERTED.?"
	}

	if len(p.assignments) == 0 {
		switch shape.Dialect {
		case fieldtypes.MySQL:
			b.WriteString(" () VALUES ()")
		case fieldtypes.SQLServer:
			b.WriteString(output + " DEFAULT VALUES")
			vars = append(vars, id)
		default:
			b.WriteString(" DEFAULT VALUES")
		}
	} else {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(p.assignments)), ",")
		b.WriteString(" (" + placeholders + ")")
		for _, a := range p.assignments {
			vars = append(vars, clause.Column{Name: a.column})
		}
		if output != "" {
			b.WriteString(output)
			vars = append(vars, id)
		}
		b.WriteString(" VALUES (" + placeholders + ")")
		for _, a := range p.assignments {
			vars = append(vars, a.value)
		}
	}

	var rowID int64
	switch shape.Dialect {
	case fieldtypes.MySQL:
		if err := tx.Exec(b.String(), vars...).Error; err != nil {
			return 0, errors.Annotatef(err, "inserting into %s", shape.DBTable)
		}
		err = tx.Raw("SELECT LAST_INSERT_ID()").Scan(&rowID).Error
	case fieldtypes.SQLServer:
		err = tx.Raw(b.String(), vars...).Scan(&rowID).Error
	default:
		b.WriteString(" RETURNING ?")
		vars = append(vars, id)
		err = tx.Raw(b.String(), vars...).Scan(&rowID).Error
	}
	if err != nil {
		return 0, errors.Annotatef(err, "inserting into %s", shape.DBTable)
	}

	for name, ids := range p.links {
		c, _ := shape.Column(name)
		if err := writeLinks(tx, c.JoinTable, rowID, ids); err != nil {
			return 0, err
		}
	}
	return rowID, nil
}

func writeLinks(tx *gorm.DB, joinTable string, source int64, targets []int64) error {
	err := tx.Exec("DELETE FROM ? WHERE ? = ?", clause.Table{Name: joinTable}, clause.Column{Name: SourceColumn}, source).Error
	if err != nil {
		return errors.Annotatef(err, "clearing links in %s", joinTable)
	}
	for _, target := range targets {
		err := tx.Exec("INSERT INTO ? (?, ?) VALUES (?, ?)",
			clause.Table{Name: joinTable}, clause.Column{Name: SourceColumn}, clause.Column{Name: TargetColumn},
			source, target,
		).Error
		if err != nil {
			return errors.Annotatef(err, "linking %d in %s", target, joinTable)
		}
	}
	return nil
}

func (m *Materializer) selectList(db *gorm.DB, shape *TableShape) string {
	parts := []string{quote(db, naming.RowIdentifier)}
	for _, c := range shape.Columns {
		if c.JoinTable != "" {
			continue
		}
		q := quote(db, c.Name)
		if c.Type.IsGeometry() {
			parts = append(parts, geometry.SelectExpr(shape.Dialect, q)+" AS "+q)
			continue
		}
		parts = append(parts, q)
	}
	return strings.Join(parts, ", ")
}

func (m *Materializer) query(db *gorm.DB, shape *TableShape) *gorm.DB {
	return silent(db).Table(shape.DBTable).Select(m.selectList(db, shape)).Order(naming.RowIdentifier)
}

// ListRows reads rows in identifier order.
func (m *Materializer) ListRows(db *gorm.DB, shape *TableShape, page Page) ([]Row, error) {
	q := m.query(db, shape)
	if page.Limit > 0 {
		q = q.Limit(page.Limit).Offset(page.Offset)
	}
	var raw []map[string]interface{}
	if err := q.Find(&raw).Error; err != nil {
		return nil, errors.Annotatef(err, "reading %s", shape.DBTable)
	}
	return m.decodeRows(db, shape, raw)
}

// GetRow reads one row.
func (m *Materializer) GetRow(db *gorm.DB, shape *TableShape, id int64) (Row, error) {
	var raw []map[string]interface{}
	if err := m.query(db, shape).Where(naming.RowIdentifier+" = ?", id).Find(&raw).Error; err != nil {
		return nil, errors.Annotatef(err, "reading %s", shape.DBTable)
	}
	if len(raw) == 0 {
		return nil, errors.Annotatef(layererrors.NotFound, "row %d", id)
	}
	rows, err := m.decodeRows(db, shape, raw)
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

// CountRows returns the number of rows in the table.
func (m *Materializer) CountRows(db *gorm.DB, shape *TableShape) (int64, error) {
	var n int64
	err := silent(db).Table(shape.DBTable).Count(&n).Error
	return n, errors.Annotatef(err, "counting %s", shape.DBTable)
}

func (m *Materializer) rowExists(db *gorm.DB, shape *TableShape, id int64) (bool, error) {
	var n int64
	err := silent(db).Table(shape.DBTable).Where(naming.RowIdentifier+" = ?", id).Count(&n).Error
	if err != nil {
		return false, errors.Annotatef(err, "reading %s", shape.DBTable)
	}
	return n > 0, nil
}

// UpdateRow writes the given values to one row.
func (m *Materializer) UpdateRow(tx *gorm.DB, shape *TableShape, id int64, values map[string]interface{}) error {
	p, err := m.prepare(shape, values)
	if err != nil {
		return err
	}
	ok, err := m.rowExists(tx, shape, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Annotatef(layererrors.NotFound, "row %d", id)
	}

	if len(p.assignments) > 0 {
		set := make(map[string]interface{}, len(p.assignments))
		for _, a := range p.assignments {
			set[a.column] = a.value
		}
		if err := tx.Table(shape.DBTable).Where(naming.RowIdentifier+" = ?", id).Updates(set).Error; err != nil {
			return errors.Annotatef(err, "updating %s", shape.DBTable)
		}
	}
	for name, ids := range p.links {
		c, _ := shape.Column(name)
		if err := writeLinks(tx, c.JoinTable, id, ids); err != nil {
			return err
		}
	}
	return nil
}

// DeleteRow removes one row and its links.
func (m *Materializer) DeleteRow(tx *gorm.DB, shape *TableShape, id int64) error {
	for _, c := range shape.Columns {
		if c.JoinTable == "" {
			continue
		}
		if err := writeLinks(tx, c.JoinTable, id, nil); err != nil {
			return err
		}
	}
	result := tx.Exec("DELETE FROM ? WHERE ? = ?", clause.Table{Name: shape.DBTable}, clause.Column{Name: naming.RowIdentifier}, id)
	if result.Error != nil {
		return errors.Annotatef(result.Error, "deleting from %s", shape.DBTable)
	}
	if result.RowsAffected == 0 {
		return errors.Annotatef(layererrors.NotFound, "row %d", id)
	}
	return nil
}

type link struct {
	SourceID int64
	TargetID int64
}

func (m *Materializer) decodeRows(db *gorm.DB, shape *TableShape, raw []map[string]interface{}) ([]Row, error) {
	rows := make([]Row, len(raw))
	ids := make([]int64, len(raw))
	for i, r := range raw {
		row := Row{}
		id, err := toInt64(r[naming.RowIdentifier])
		if err != nil {
			return nil, errors.Annotatef(err, "row identifier in %s", shape.DBTable)
		}
		row[naming.RowIdentifier] = id
		ids[i] = id
		for _, c := range shape.Columns {
			if c.JoinTable != "" {
				row[c.Name] = []int64{}
				continue
			}
			v, err := decodeValue(c, r[c.Name])
			if err != nil {
				return nil, errors.Annotatef(err, "row %d column %s", id, c.Name)
			}
			row[c.Name] = v
		}
		rows[i] = row
	}

	if len(rows) == 0 {
		return rows, nil
	}
	byID := make(map[int64]Row, len(rows))
	for _, r := range rows {
		byID[r.ID()] = r
	}
	for _, c := range shape.Columns {
		if c.JoinTable == "" {
			continue
		}
		var links []link
		err := silent(db).Table(c.JoinTable).
			Select(SourceColumn, TargetColumn).
			Where(SourceColumn+" IN ?", ids).
			Order(naming.RowIdentifier).
			Find(&links).Error
		if err != nil {
			return nil, errors.Annotatef(err, "reading links of %s", c.Name)
		}
		for _, l := range links {
			if r, ok := byID[l.SourceID]; ok {
				r[c.Name] = append(r[c.Name].([]int64), l.TargetID)
			}
		}
	}
	return rows, nil
}

func decodeValue(c Column, v interface{}) (interface{}, error) {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return nil, nil
	}

	switch c.Type.Family {
	case fieldtypes.FamilyGeometry:
		s, ok := v.(string)
		if !ok {
			return nil, errors.Errorf("geometry stored as %T", v)
		}
		raw, err := geometry.GeoJSONFromWKT(s)
		if err != nil || raw == nil {
			return nil, err
		}
		return raw, nil
	case fieldtypes.FamilyBoolean:
		switch t := v.(type) {
		case bool:
			return t, nil
		case string:
			return strconv.ParseBool(t)
		}
		n, err := toInt64(v)
		return n != 0, err
	case fieldtypes.FamilyInteger, fieldtypes.FamilyRelation:
		return toInt64(v)
	case fieldtypes.FamilyFloat:
		switch t := v.(type) {
		case float64:
			return t, nil
		case float32:
			return float64(t), nil
		case string:
			return strconv.ParseFloat(t, 64)
		}
		n, err := toInt64(v)
		return float64(n), err
	case fieldtypes.FamilyTemporal:
		t, ok := v.(time.Time)
		if !ok {
			return v, nil
		}
		switch c.Field.Kind {
		case fieldtypes.Date:
			return t.Format(time.DateOnly), nil
		case fieldtypes.Time:
			return t.Format(time.TimeOnly), nil
		}
		return t.UTC().Format(time.RFC3339Nano), nil
	}

	switch t := v.(type) {
	case string:
		return t, nil
	case time.Time:
		return t.Format(time.RFC3339Nano), nil
	}
	return v, nil
}

func toInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	case int:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case uint64:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(t), 10, 64)
	case string:
		return strconv.ParseInt(t, 10, 64)
	}
	return 0, errors.Errorf("unexpected %T", v)
}
