// importer.go
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

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/juju/errors"
	"github.com/twpayne/go-geom"
	"gorm.io/gorm"

	layererrors "github.com/localnerve/layersdb/internal/errors"
	"github.com/localnerve/layersdb/internal/event"
	"github.com/localnerve/layersdb/internal/fieldtypes"
	"github.com/localnerve/layersdb/internal/geometry"
	"github.com/localnerve/layersdb/internal/models"
	"github.com/localnerve/layersdb/internal/naming"
	"github.com/localnerve/layersdb/internal/policy"
)

// ImportResult reports a completed import.
type ImportResult struct {
	Table *models.TableDefinition `json:"table"`
	Rows  int                     `json:"rows"`
}

// importProperty maps one feature property key to its column.
type importProperty struct {
	key    string
	column string
	sample interface{}
}

// ImportFeatures creates a table from a feature collection and loads every
// feature as a row. Nothing is kept when any feature fails.
func (s *Service) ImportFeatures(ctx context.Context, owner models.User, displayName string, features []Feature) (*ImportResult, error) {
	if !policy.CanCreate(owner) {
		return nil, errors.Annotatef(layererrors.Unauthorized, "importing table")
	}
	if err := inputError(UpdateTableInput{Name: displayName}.validate()); err != nil {
		return nil, err
	}
	if len(features) == 0 {
		return nil, layererrors.Validationf("features", layererrors.EmptyImport, "no features")
	}

	geoms, geometryField, err := s.importGeometry(features)
	if err != nil {
		return nil, err
	}
	props, err := importProperties(features)
	if err != nil {
		return nil, err
	}

	fields := make([]models.FieldDefinition, 0, len(props)+1)
	for _, p := range props {
		kind := inferKind(p.sample)
		params, _ := models.NewJSON(fieldtypes.Params{})
		fields = append(fields, models.FieldDefinition{
			Name:        p.column,
			DisplayName: p.key,
			Kind:        kind,
			Params:      params,
			Null:        true,
			Blank:       true,
		})
	}
	fields = append(fields, geometryField)

	var def *models.TableDefinition
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if def, err = s.createTable(tx, owner, displayName, fields); err != nil {
			return err
		}
		shape, err := s.materializer.BuildShape(tx, def)
		if err != nil {
			return err
		}
		for i, f := range features {
			values := make(map[string]interface{}, len(props)+1)
			for _, p := range props {
				if v, ok := f.Properties[p.key]; ok {
					values[p.column] = propertyValue(v)
				}
			}
			if geoms[i] != nil {
				values[GeometryField] = geoms[i]
			}
			if _, err := s.materializer.InsertRow(tx, shape, values); err != nil {
				var verr *layererrors.ValidationError
				if errors.As(err, &verr) {
					return layererrors.Validation(fmt.Sprintf("features.%d.%s", i, verr.Field), verr.Err)
				}
				return errors.Annotatef(err, "feature %d", i)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint64("table", def.ID).Str("owner", owner.ID).Int("rows", len(features)).Msg("features imported")
	s.events.TriggerTableCreated(ctx, event.NewTable(def))
	return &ImportResult{Table: def, Rows: len(features)}, nil
}

// ImportCollection imports a decoded feature collection, falling back to the
// collection name when displayName is empty.
func (s *Service) ImportCollection(ctx context.Context, owner models.User, displayName string, fc FeatureCollection) (*ImportResult, error) {
	if displayName == "" {
		displayName = fc.Name
	}
	return s.ImportFeatures(ctx, owner, displayName, fc.Features)
}

// importGeometry parses every feature geometry and derives the geometry field:
// a single geometry type gives the concrete kind, mixed types the generic one.
// The field is 3D when any geometry carries Z.
func (s *Service) importGeometry(features []Feature) ([]geom.T, models.FieldDefinition, error) {
	geoms := make([]geom.T, len(features))
	kinds := map[fieldtypes.Kind]bool{}
	is3D := false

	for i, f := range features {
		g, err := geometry.Parse(f.Geometry)
		if err != nil {
			return nil, models.FieldDefinition{}, layererrors.Validation(fmt.Sprintf("features.%d.geometry", i), err)
		}
		if g == nil {
			continue
		}
		geoms[i] = g
		kinds[geometry.KindOf(g)] = true
		is3D = is3D || geometry.HasZ(g)
	}

	var hint fieldtypes.Kind
	if len(kinds) == 1 {
		for k := range kinds {
			hint = k
		}
	}
	return geoms, s.systemGeometry(hint, is3D), nil
}

// importProperties orders property keys by first appearance, sorted within
// each feature, and assigns each a distinct column name.
func importProperties(features []Feature) ([]importProperty, error) {
	var props []importProperty
	index := map[string]int{}
	used := map[string]bool{GeometryField: true, naming.RowIdentifier: true}

	for i, f := range features {
		keys := make([]string, 0, len(f.Properties))
		for k := range f.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			v := f.Properties[k]
			if j, ok := index[k]; ok {
				if props[j].sample == nil {
					props[j].sample = v
				}
				continue
			}
			column, err := naming.NormalizeFieldName(k)
			if err != nil {
				return nil, layererrors.Validation(fmt.Sprintf("features.%d.properties.%s", i, k), err)
			}
			if column == GeometryField || column == naming.RowIdentifier {
				column += "_"
			}
			column = distinct(column, used)
			used[column] = true
			index[k] = len(props)
			props = append(props, importProperty{key: k, column: column, sample: v})
		}
	}
	return props, nil
}

func distinct(name string, used map[string]bool) string {
	if !used[name] {
		return name
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d", name, n)
		if !used[candidate] {
			return candidate
		}
	}
}

// propertyValue flattens nested property values to their JSON text.
func propertyValue(v interface{}) interface{} {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return v
		}
		return string(b)
	}
	return v
}

// inferKind picks a column kind from the first non-null value of a property.
func inferKind(v interface{}) fieldtypes.Kind {
	switch t := v.(type) {
	case float64:
		if t == math.Trunc(t) && t >= math.MinInt64 && t < math.MaxInt64 {
			return fieldtypes.Integer
		}
		return fieldtypes.Float
	case json.Number:
		if _, err := t.Int64(); err == nil {
			return fieldtypes.Integer
		}
		return fieldtypes.Float
	case int, int32, int64:
		return fieldtypes.Integer
	case float32:
		return fieldtypes.Float
	}
	return fieldtypes.Text
}
