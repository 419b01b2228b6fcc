// registry.go
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

// Package fieldtypes enumerates the column kinds a user table may carry and
// maps each one to a physical column definition per SQL dialect.
package fieldtypes

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/juju/errors"

	layererrors "github.com/localnerve/layersdb/internal/errors"
)

// Kind is the logical type key of a field definition.
type Kind string

const (
	Text               Kind = "text"
	Varchar            Kind = "varchar"
	Integer            Kind = "integer"
	SmallInteger       Kind = "small_integer"
	Float              Kind = "float"
	Boolean            Kind = "boolean"
	NullBoolean        Kind = "null_boolean"
	File               Kind = "file"
	ForeignKey         Kind = "foreign_key"
	OneToOne           Kind = "one_to_one"
	ManyToMany         Kind = "many_to_many"
	IP                 Kind = "ip"
	IPGeneric          Kind = "ip_generic"
	Email              Kind = "email"
	URL                Kind = "url"
	Geometry           Kind = "geometry"
	Point              Kind = "point"
	MultiPoint         Kind = "multi_point"
	LineString         Kind = "line_string"
	MultiLineString    Kind = "multi_line_string"
	Polygon            Kind = "polygon"
	MultiPolygon       Kind = "multi_polygon"
	GeometryCollection Kind = "geometry_collection"
	Date               Kind = "date"
	Time               Kind = "time"
	DateTime           Kind = "datetime"
)

// Dialect names as reported by gorm.Dialector.Name().
const (
	Postgres  = "postgres"
	MySQL     = "mysql"
	SQLite    = "sqlite"
	SQLServer = "sqlserver"
)

// Family groups kinds that share storage and value handling.
type Family int

const (
	FamilyText Family = iota
	FamilyInteger
	FamilyFloat
	FamilyBoolean
	FamilyTemporal
	FamilyRelation
	FamilyGeometry
)

// Params holds the kind-specific parameters of a field definition. It is
// persisted as JSON next to the kind.
type Params struct {
	MaxLength int    `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	SRID      int    `json:"srid,omitempty" yaml:"srid,omitempty"`
	Dim       int    `json:"dim,omitempty" yaml:"dim,omitempty"`
	Geography bool   `json:"geography,omitempty" yaml:"geography,omitempty"`
	Target    uint64 `json:"target,omitempty" yaml:"target,omitempty"`
}

// Is3D reports whether a geometry field accepts XYZ coordinates.
func (p Params) Is3D() bool {
	return p.Dim == 3
}

// ColumnSpec is the physical column a field materializes to.
type ColumnSpec struct {
	Type     string
	Nullable bool
	Default  string
	Unique   bool
	// JoinTable is set for kinds stored outside the table itself.
	JoinTable bool
}

// SQL renders the type and constraints that follow the column name in DDL.
func (c ColumnSpec) SQL() string {
	var b strings.Builder
	b.WriteString(c.Type)
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	return b.String()
}

// FieldType is the strategy registered for one Kind.
type FieldType struct {
	Kind   Kind
	Impl   string
	Family Family
	// GeometryType is the OGC type name for geometry kinds.
	GeometryType string

	defaults Params
	nullable bool
	unique   bool
	join     bool
	types    map[string]string
	defaultV map[string]string
}

// IsGeometry reports whether the kind stores a geometry.
func (ft FieldType) IsGeometry() bool {
	return ft.Family == FamilyGeometry
}

// WithDefaults fills zero params with the kind defaults.
func (ft FieldType) WithDefaults(p Params) Params {
	if p.MaxLength == 0 {
		p.MaxLength = ft.defaults.MaxLength
	}
	if ft.IsGeometry() {
		if p.SRID == 0 {
			p.SRID = ft.defaults.SRID
		}
		if p.Dim == 0 {
			p.Dim = ft.defaults.Dim
		}
	}
	return p
}

// ColumnSpec returns the physical column for dialect.
func (ft FieldType) ColumnSpec(dialect string, p Params) ColumnSpec {
	p = ft.WithDefaults(p)
	if ft.join {
		return ColumnSpec{JoinTable: true, Nullable: true}
	}
	spec := ColumnSpec{
		Nullable: ft.nullable,
		Unique:   ft.unique,
		Default:  ft.defaultV[dialect],
	}
	if ft.IsGeometry() {
		spec.Type = geometryColumnType(dialect, ft.GeometryType, p)
		return spec
	}
	tmpl, ok := ft.types[dialect]
	if !ok {
		tmpl = ft.types[""]
	}
	if strings.Contains(tmpl, "%d") {
		tmpl = fmt.Sprintf(tmpl, p.MaxLength)
	}
	spec.Type = tmpl
	return spec
}

func geometryColumnType(dialect, geometryType string, p Params) string {
	switch dialect {
	case Postgres:
		base := "geometry"
		if p.Geography {
			base = "geography"
		}
		suffix := ""
		if p.Is3D() {
			suffix = "Z"
		}
		return fmt.Sprintf("%s(%s%s,%d)", base, pascalGeometry(geometryType), suffix, p.SRID)
	case MySQL:
		return fmt.Sprintf("%s SRID %d", geometryType, p.SRID)
	case SQLServer:
		if p.Geography {
			return "geography"
		}
		return "geometry"
	default:
		return "TEXT"
	}
}

func pascalGeometry(t string) string {
	switch t {
	case "MULTIPOINT":
		return "MultiPoint"
	case "LINESTRING":
		return "LineString"
	case "MULTILINESTRING":
		return "MultiLineString"
	case "MULTIPOLYGON":
		return "MultiPolygon"
	case "GEOMETRYCOLLECTION":
		return "GeometryCollection"
	case "POINT":
		return "Point"
	case "POLYGON":
		return "Polygon"
	}
	return "Geometry"
}

// Registry resolves kinds to field types and back.
type Registry struct {
	byKind map[Kind]FieldType
	byImpl map[string]Kind
}

// Default is the registry holding every supported kind.
var Default = NewRegistry(builtin()...)

// NewRegistry builds a registry from field types. Later entries replace
// earlier ones with the same kind.
func NewRegistry(types ...FieldType) *Registry {
	r := &Registry{
		byKind: make(map[Kind]FieldType, len(types)),
		byImpl: make(map[string]Kind, len(types)),
	}
	for _, ft := range types {
		r.byKind[ft.Kind] = ft
		r.byImpl[ft.Impl] = ft.Kind
	}
	return r
}

// Lookup returns the field type registered for kind.
func (r *Registry) Lookup(kind Kind) (FieldType, error) {
	ft, ok := r.byKind[kind]
	if !ok {
		return FieldType{}, errors.Annotatef(layererrors.UnknownFieldType, "%q", kind)
	}
	return ft, nil
}

// Kinds returns every registered kind in lexical order.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.byKind))
	for k := range r.byKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// KindForImpl maps an implementation name back to its kind.
func (r *Registry) KindForImpl(impl string) (Kind, error) {
	k, ok := r.byImpl[impl]
	if !ok {
		return "", errors.Annotatef(layererrors.AmbiguousOrUnknownType, "implementation %q", impl)
	}
	return k, nil
}

// ResolveColumn maps an introspected database type name back to the single
// kind that materializes to it on dialect.
func (r *Registry) ResolveColumn(dialect, databaseTypeName string) (Kind, error) {
	want := normalizeTypeName(databaseTypeName)
	var found []Kind
	for _, k := range r.Kinds() {
		ft := r.byKind[k]
		if ft.join {
			continue
		}
		if normalizeTypeName(ft.ColumnSpec(dialect, Params{}).Type) == want {
			found = append(found, k)
		}
	}
	if len(found) != 1 {
		return "", errors.Annotatef(layererrors.AmbiguousOrUnknownType, "%s column type %q matches %d kinds", dialect, databaseTypeName, len(found))
	}
	return found[0], nil
}

// typeAliases folds driver reported names and DDL names into one token.
var typeAliases = map[string]string{
	"bigint":            "int8",
	"smallint":          "int2",
	"double":            "float8",
	"boolean":           "bool",
	"tinyint":           "bool",
	"bit":               "bool",
	"character varying": "varchar",
}

func normalizeTypeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(s, "double precision") {
		return "float8"
	}
	if strings.HasPrefix(s, "character varying") {
		return "varchar"
	}
	if i := strings.IndexAny(s, "( "); i > 0 {
		s = s[:i]
	}
	if alias, ok := typeAliases[s]; ok {
		s = alias
	}
	return s
}

// DecodeParams reads persisted params, tolerating an empty document.
func DecodeParams(raw []byte) (Params, error) {
	var p Params
	if len(raw) == 0 || string(raw) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, errors.Annotate(err, "decoding field params")
	}
	return p, nil
}
