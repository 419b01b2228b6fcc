package services

import (
	"encoding/json"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/juju/errors"

	layererrors "github.com/localnerve/layersdb/internal/errors"
	"github.com/localnerve/layersdb/internal/fieldtypes"
	"github.com/localnerve/layersdb/internal/naming"
)

// FieldInput describes one requested field. Null defaults to true.
type FieldInput struct {
	Name   string            `json:"name" yaml:"name"`
	Type   fieldtypes.Kind   `json:"type" yaml:"type"`
	Params fieldtypes.Params `json:"params,omitempty" yaml:"params,omitempty"`
	Null   *bool             `json:"null,omitempty" yaml:"nullable,omitempty"`
	Blank  bool              `json:"blank,omitempty" yaml:"blank,omitempty"`
}

// CreateTableInput describes a new table. GeometryType and Geometry3D shape
// the system geometry field added when no geometry field is requested.
type CreateTableInput struct {
	Name         string          `json:"name" yaml:"name"`
	Fields       []FieldInput    `json:"fields" yaml:"fields"`
	GeometryType fieldtypes.Kind `json:"geometry_type,omitempty" yaml:"geometry_type,omitempty"`
	Geometry3D   bool            `json:"geometry_3d,omitempty" yaml:"geometry_3d,omitempty"`
}

// UpdateTableInput renames a table.
type UpdateTableInput struct {
	Name string `json:"name" yaml:"name"`
}

// RenameFieldInput renames a field.
type RenameFieldInput struct {
	Name string `json:"name" yaml:"name"`
}

// Feature is one record of an imported feature collection.
type Feature struct {
	Properties map[string]interface{} `json:"properties"`
	Geometry   json.RawMessage        `json:"geometry"`
}

// FeatureCollection is the GeoJSON document accepted by imports.
type FeatureCollection struct {
	Name     string    `json:"name"`
	Features []Feature `json:"features"`
}

func tableName(value interface{}) error {
	s, _ := value.(string)
	_, err := naming.TableSlug(s)
	return err
}

func fieldName(value interface{}) error {
	s, _ := value.(string)
	_, err := naming.NormalizeFieldName(s)
	return err
}

func kindRule(r *fieldtypes.Registry) validation.Rule {
	return validation.By(func(value interface{}) error {
		k, _ := value.(fieldtypes.Kind)
		_, err := r.Lookup(k)
		return err
	})
}

func geometryHint(value interface{}) error {
	k, _ := value.(fieldtypes.Kind)
	if k == "" {
		return nil
	}
	if _, ok := fieldtypes.GeometryKindForType(string(k)); !ok {
		return errors.Annotatef(layererrors.UnknownFieldType, "%q is not a geometry type", k)
	}
	return nil
}

func (f FieldInput) validate(r *fieldtypes.Registry) error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.By(fieldName), validation.Length(0, 255)),
		validation.Field(&f.Type, kindRule(r)),
		validation.Field(&f.Params, validation.By(paramsRule)),
	)
}

func paramsRule(value interface{}) error {
	p, _ := value.(fieldtypes.Params)
	return validation.ValidateStruct(&p,
		validation.Field(&p.Dim, validation.In(0, 2, 3)),
		validation.Field(&p.MaxLength, validation.Min(0)),
		validation.Field(&p.SRID, validation.Min(0)),
	)
}

func (in CreateTableInput) validate(r *fieldtypes.Registry) error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.By(tableName), validation.Length(0, 255)),
		validation.Field(&in.Fields, validation.Each(validation.By(func(value interface{}) error {
			f, _ := value.(FieldInput)
			return f.validate(r)
		}))),
		validation.Field(&in.GeometryType, validation.By(geometryHint)),
	)
}

func (in UpdateTableInput) validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.By(tableName), validation.Length(0, 255)),
	)
}

func (in RenameFieldInput) validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.By(fieldName), validation.Length(0, 255)),
	)
}

// inputError turns ozzo validation errors into a ValidationError naming the
// first failing input path.
func inputError(err error) error {
	if err == nil {
		return nil
	}
	path, inner := firstError("", err)
	if path == "" {
		return err
	}
	for _, kind := range []error{
		layererrors.InvalidName, layererrors.DuplicateName, layererrors.ReservedName,
		layererrors.UnknownFieldType, layererrors.InvalidGeometry, layererrors.InvalidValue,
		layererrors.EmptyImport,
	} {
		if errors.Is(inner, kind) {
			return layererrors.Validation(path, inner)
		}
	}
	kind := layererrors.InvalidValue
	if strings.HasSuffix(path, "name") {
		kind = layererrors.InvalidName
	}
	return layererrors.Validationf(path, kind, "%v", inner)
}

func firstError(prefix string, err error) (string, error) {
	errs, ok := err.(validation.Errors)
	if !ok {
		return prefix, err
	}
	keys := make([]string, 0, len(errs))
	for k, e := range errs {
		if e != nil {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return prefix, err
	}
	sort.Strings(keys)
	path := keys[0]
	if prefix != "" {
		path = prefix + "." + path
	}
	return firstError(path, errs[keys[0]])
}
