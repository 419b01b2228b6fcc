package fieldtypes

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/juju/errors"

	layererrors "github.com/localnerve/layersdb/internal/errors"
)

// Coerce converts a decoded JSON value into the Go value stored for ft.
// Geometry kinds are passed through untouched; the materializer encodes them.
func (ft FieldType) Coerce(p Params, v any) (any, error) {
	if v == nil {
		if !ft.nullable && !ft.join {
			return nil, errors.Annotatef(layererrors.InvalidValue, "%s does not accept null", ft.Kind)
		}
		return nil, nil
	}
	p = ft.WithDefaults(p)

	switch ft.Family {
	case FamilyGeometry:
		return v, nil
	case FamilyText:
		return ft.coerceText(p, v)
	case FamilyInteger:
		n, err := toInt64(v)
		if err != nil {
			return nil, errors.Annotatef(layererrors.InvalidValue, "%s: %v", ft.Kind, err)
		}
		if ft.Kind == SmallInteger && (n < math.MinInt16 || n > math.MaxInt16) {
			return nil, errors.Annotatef(layererrors.InvalidValue, "%d out of small_integer range", n)
		}
		return n, nil
	case FamilyFloat:
		f, err := toFloat64(v)
		if err != nil {
			return nil, errors.Annotatef(layererrors.InvalidValue, "%s: %v", ft.Kind, err)
		}
		return f, nil
	case FamilyBoolean:
		return toBool(v)
	case FamilyTemporal:
		return ft.coerceTemporal(v)
	case FamilyRelation:
		if ft.join {
			return toIDList(v)
		}
		n, err := toInt64(v)
		if err != nil || n <= 0 {
			return nil, errors.Annotatef(layererrors.InvalidValue, "%s expects a row id, got %v", ft.Kind, v)
		}
		return n, nil
	}
	return v, nil
}

func (ft FieldType) coerceText(p Params, v any) (any, error) {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool, int, int64, int32:
		s = fmt.Sprint(t)
	default:
		return nil, errors.Annotatef(layererrors.InvalidValue, "%s expects a string, got %T", ft.Kind, v)
	}

	var rule validation.Rule
	switch ft.Kind {
	case Email:
		rule = is.EmailFormat
	case URL:
		rule = is.URL
	case IP:
		rule = is.IPv4
	case IPGeneric:
		rule = is.IP
	}
	if rule != nil {
		if err := validation.Validate(s, rule); err != nil {
			return nil, errors.Annotatef(layererrors.InvalidValue, "%s: %v", ft.Kind, err)
		}
	}
	if ft.Kind != Text && p.MaxLength > 0 && utf8.RuneCountInString(s) > p.MaxLength {
		return nil, errors.Annotatef(layererrors.InvalidValue, "%s longer than %d characters", ft.Kind, p.MaxLength)
	}
	return s, nil
}

func (ft FieldType) coerceTemporal(v any) (any, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, errors.Annotatef(layererrors.InvalidValue, "%s expects a string, got %T", ft.Kind, v)
	}
	s = strings.TrimSpace(s)
	switch ft.Kind {
	case Date:
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, errors.Annotatef(layererrors.InvalidValue, "date %q", s)
		}
		return t, nil
	case Time:
		for _, layout := range []string{time.TimeOnly, "15:04"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(time.TimeOnly), nil
			}
		}
		return nil, errors.Annotatef(layererrors.InvalidValue, "time %q", s)
	default:
		for _, layout := range []string{time.RFC3339Nano, time.DateTime} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, errors.Annotatef(layererrors.InvalidValue, "datetime %q", s)
	}
}

func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint64:
		return int64(t), nil
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("%v is not integral", t)
		}
		return int64(t), nil
	case json.Number:
		return t.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(t), 10, 64)
	}
	return 0, fmt.Errorf("unexpected %T", v)
}

func toFloat64(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	}
	return 0, fmt.Errorf("unexpected %T", v)
}

func toBool(v any) (any, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return nil, errors.Annotatef(layererrors.InvalidValue, "boolean %q", t)
		}
		return b, nil
	case float64:
		return t != 0, nil
	case int64:
		return t != 0, nil
	case int:
		return t != 0, nil
	}
	return nil, errors.Annotatef(layererrors.InvalidValue, "boolean from %T", v)
}

func toIDList(v any) (any, error) {
	items, ok := v.([]any)
	if !ok {
		if ids, ok := v.([]int64); ok {
			return ids, nil
		}
		return nil, errors.Annotatef(layererrors.InvalidValue, "many_to_many expects a list of row ids")
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		n, err := toInt64(item)
		if err != nil || n <= 0 {
			return nil, errors.Annotatef(layererrors.InvalidValue, "many_to_many expects row ids, got %v", item)
		}
		ids = append(ids, n)
	}
	return ids, nil
}
