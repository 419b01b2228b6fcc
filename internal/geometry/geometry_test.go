package geometry_test

import (
	"encoding/json"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/clause"

	layererrors "github.com/localnerve/layersdb/internal/errors"
	"github.com/localnerve/layersdb/internal/fieldtypes"
	"github.com/localnerve/layersdb/internal/geometry"
)

func TestParse(t *testing.T) {
	g, err := geometry.Parse(json.RawMessage(`{"type":"Point","coordinates":[2.35,48.85]}`))
	require.NoError(t, err)
	assert.Equal(t, fieldtypes.Point, geometry.KindOf(g))
	assert.False(t, geometry.HasZ(g))

	g, err = geometry.Parse(json.RawMessage(`{"type":"LineString","coordinates":[[0,0,1],[1,1,2]]}`))
	require.NoError(t, err)
	assert.Equal(t, fieldtypes.LineString, geometry.KindOf(g))
	assert.True(t, geometry.HasZ(g))

	g, err = geometry.Parse(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Nil(t, g)

	for _, bad := range []string{`{"type":"Circle","coordinates":[0,0]}`, `{"coordinates":[0,0]}`, `{"type":"Point","coordinates":"x"}`} {
		_, err := geometry.Parse(json.RawMessage(bad))
		assert.True(t, errors.Is(err, layererrors.InvalidGeometry), bad)
	}
}

func TestFromValue(t *testing.T) {
	g, err := geometry.FromValue(map[string]any{"type": "Point", "coordinates": []any{1.0, 2.0}})
	require.NoError(t, err)
	assert.Equal(t, fieldtypes.Point, geometry.KindOf(g))

	g, err = geometry.FromValue("POLYGON ((0 0, 1 0, 1 1, 0 0))")
	require.NoError(t, err)
	assert.Equal(t, fieldtypes.Polygon, geometry.KindOf(g))

	_, err = geometry.FromValue(42)
	assert.True(t, errors.Is(err, layererrors.InvalidGeometry))
}

func TestCheck(t *testing.T) {
	point, err := geometry.Parse(json.RawMessage(`{"type":"Point","coordinates":[1,2]}`))
	require.NoError(t, err)
	point3D, err := geometry.Parse(json.RawMessage(`{"type":"Point","coordinates":[1,2,3]}`))
	require.NoError(t, err)

	assert.NoError(t, geometry.Check(fieldtypes.Point, fieldtypes.Params{Dim: 2}, point))
	assert.NoError(t, geometry.Check(fieldtypes.Geometry, fieldtypes.Params{Dim: 2}, point))
	assert.NoError(t, geometry.Check(fieldtypes.Point, fieldtypes.Params{Dim: 3}, point3D))

	err = geometry.Check(fieldtypes.Polygon, fieldtypes.Params{Dim: 2}, point)
	assert.True(t, errors.Is(err, layererrors.InvalidGeometry))

	err = geometry.Check(fieldtypes.Point, fieldtypes.Params{Dim: 2}, point3D)
	assert.True(t, errors.Is(err, layererrors.InvalidGeometry))
}

func TestWKTRoundTrip(t *testing.T) {
	g, err := geometry.Parse(json.RawMessage(`{"type":"Point","coordinates":[2.5,48]}`))
	require.NoError(t, err)

	text, err := geometry.WKT(g)
	require.NoError(t, err)
	assert.Equal(t, "POINT (2.5 48)", text)

	raw, err := geometry.GeoJSONFromWKT("SRID=4326;" + text)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Point","coordinates":[2.5,48]}`, string(raw))

	raw, err = geometry.GeoJSONFromWKT("")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestDialectExpressions(t *testing.T) {
	expr, ok := geometry.ValueExpr(fieldtypes.Postgres, 4326, "POINT (1 2)").(clause.Expr)
	require.True(t, ok)
	assert.Equal(t, "ST_GeomFromEWKT(?)", expr.SQL)
	assert.Equal(t, []any{"SRID=4326;POINT (1 2)"}, expr.Vars)

	assert.Equal(t, "POINT (1 2)", geometry.ValueExpr(fieldtypes.SQLite, 4326, "POINT (1 2)"))

	assert.Equal(t, `ST_AsText("geom")`, geometry.SelectExpr(fieldtypes.Postgres, `"geom"`))
	assert.Equal(t, `[geom].STAsText()`, geometry.SelectExpr(fieldtypes.SQLServer, `[geom]`))
	assert.Equal(t, "`geom`", geometry.SelectExpr(fieldtypes.SQLite, "`geom`"))
}
