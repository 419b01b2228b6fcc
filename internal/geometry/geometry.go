// Package geometry converts GeoJSON geometry payloads to the WKT text the
// materializer writes, and back.
package geometry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkt"
	"gorm.io/gorm/clause"

	layererrors "github.com/localnerve/layersdb/internal/errors"
	"github.com/localnerve/layersdb/internal/fieldtypes"
)

var null = []byte("null")

// IsNull reports whether raw is an absent or null geometry.
func IsNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, null)
}

// TypeTag returns the GeoJSON "type" member of raw.
func TypeTag(raw json.RawMessage) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil || head.Type == "" {
		return "", errors.Annotatef(layererrors.InvalidGeometry, "missing geometry type")
	}
	return head.Type, nil
}

// Parse decodes a GeoJSON geometry. A null payload yields a nil geometry.
func Parse(raw json.RawMessage) (geom.T, error) {
	if IsNull(raw) {
		return nil, nil
	}
	tag, err := TypeTag(raw)
	if err != nil {
		return nil, err
	}
	if _, ok := fieldtypes.GeometryKindForType(tag); !ok || strings.EqualFold(tag, "geometry") {
		return nil, errors.Annotatef(layererrors.InvalidGeometry, "unsupported geometry type %q", tag)
	}
	var g geom.T
	if err := geojson.Unmarshal(raw, &g); err != nil {
		return nil, errors.Annotatef(layererrors.InvalidGeometry, "%v", err)
	}
	if g == nil {
		return nil, errors.Annotatef(layererrors.InvalidGeometry, "empty %s", tag)
	}
	return g, nil
}

// FromValue accepts a decoded JSON value (object), raw GeoJSON bytes or a
// WKT string.
func FromValue(v any) (geom.T, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case geom.T:
		return t, nil
	case json.RawMessage:
		return Parse(t)
	case []byte:
		return Parse(t)
	case string:
		s := strings.TrimSpace(t)
		if strings.HasPrefix(s, "{") {
			return Parse(json.RawMessage(s))
		}
		g, err := wkt.Unmarshal(s)
		if err != nil {
			return nil, errors.Annotatef(layererrors.InvalidGeometry, "%v", err)
		}
		return g, nil
	case map[string]any:
		raw, err := json.Marshal(t)
		if err != nil {
			return nil, errors.Annotatef(layererrors.InvalidGeometry, "%v", err)
		}
		return Parse(raw)
	}
	return nil, errors.Annotatef(layererrors.InvalidGeometry, "unexpected %T", v)
}

// HasZ reports whether g carries a third coordinate.
func HasZ(g geom.T) bool {
	return g != nil && g.Layout().ZIndex() != -1
}

// KindOf returns the concrete field kind matching g.
func KindOf(g geom.T) fieldtypes.Kind {
	switch g.(type) {
	case *geom.Point:
		return fieldtypes.Point
	case *geom.MultiPoint:
		return fieldtypes.MultiPoint
	case *geom.LineString:
		return fieldtypes.LineString
	case *geom.MultiLineString:
		return fieldtypes.MultiLineString
	case *geom.Polygon:
		return fieldtypes.Polygon
	case *geom.MultiPolygon:
		return fieldtypes.MultiPolygon
	case *geom.GeometryCollection:
		return fieldtypes.GeometryCollection
	}
	return fieldtypes.Geometry
}

// Check validates that g fits a field of kind with params: concrete kinds
// accept only their own geometry type and the dimension must match.
func Check(kind fieldtypes.Kind, p fieldtypes.Params, g geom.T) error {
	if g == nil {
		return nil
	}
	if kind != fieldtypes.Geometry {
		if got := KindOf(g); got != kind {
			return errors.Annotatef(layererrors.InvalidGeometry, "%s field does not accept %s", kind, got)
		}
	}
	if HasZ(g) != p.Is3D() {
		want := "2D"
		if p.Is3D() {
			want = "3D"
		}
		return errors.Annotatef(layererrors.InvalidGeometry, "field expects %s coordinates", want)
	}
	return nil
}

// WKT encodes g as well known text.
func WKT(g geom.T) (string, error) {
	s, err := wkt.Marshal(g)
	if err != nil {
		return "", errors.Annotatef(layererrors.InvalidGeometry, "%v", err)
	}
	return s, nil
}

// GeoJSONFromWKT decodes stored WKT into a GeoJSON geometry.
func GeoJSONFromWKT(s string) (json.RawMessage, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if i := strings.Index(s, ";"); i > 0 && strings.HasPrefix(strings.ToUpper(s), "SRID=") {
		s = s[i+1:]
	}
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, errors.Annotatef(layererrors.InvalidGeometry, "stored value: %v", err)
	}
	raw, err := geojson.Marshal(g)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return raw, nil
}

// ValueExpr returns the expression inserting wkt into a geometry column.
func ValueExpr(dialect string, srid int, text string) any {
	switch dialect {
	case fieldtypes.Postgres:
		return clause.Expr{SQL: "ST_GeomFromEWKT(?)", Vars: []any{fmt.Sprintf("SRID=%d;%s", srid, text)}}
	case fieldtypes.MySQL:
		return clause.Expr{SQL: "ST_GeomFromText(?, ?)", Vars: []any{text, srid}}
	case fieldtypes.SQLServer:
		return clause.Expr{SQL: "geometry::STGeomFromText(?, ?)", Vars: []any{text, srid}}
	}
	return text
}

// SelectExpr returns the select-list expression reading column as WKT.
func SelectExpr(dialect, quotedColumn string) string {
	switch dialect {
	case fieldtypes.Postgres, fieldtypes.MySQL:
		return "ST_AsText(" + quotedColumn + ")"
	case fieldtypes.SQLServer:
		return quotedColumn + ".STAsText()"
	}
	return quotedColumn
}
