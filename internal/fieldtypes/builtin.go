package fieldtypes

// DefaultSRID is the spatial reference used when a geometry field names none.
const DefaultSRID = 4326

func all(t string) map[string]string {
	return map[string]string{"": t}
}

var boolFalse = map[string]string{
	Postgres:  "FALSE",
	MySQL:     "0",
	SQLite:    "0",
	SQLServer: "0",
}

func builtin() []FieldType {
	geo := func(kind Kind, impl, ogc string) FieldType {
		return FieldType{
			Kind:         kind,
			Impl:         impl,
			Family:       FamilyGeometry,
			GeometryType: ogc,
			defaults:     Params{SRID: DefaultSRID, Dim: 2},
			nullable:     true,
		}
	}
	varchar := func(kind Kind, impl string, family Family, n int) FieldType {
		return FieldType{
			Kind:     kind,
			Impl:     impl,
			Family:   family,
			defaults: Params{MaxLength: n},
			nullable: true,
			types: map[string]string{
				"":        "VARCHAR(%d)",
				SQLServer: "NVARCHAR(%d)",
			},
		}
	}

	return []FieldType{
		{
			Kind: Text, Impl: "TextField", Family: FamilyText, nullable: true,
			types: map[string]string{
				"":        "TEXT",
				MySQL:     "LONGTEXT",
				SQLServer: "NVARCHAR(MAX)",
			},
		},
		varchar(Varchar, "CharField", FamilyText, 255),
		{Kind: Integer, Impl: "BigIntegerField", Family: FamilyInteger, nullable: true, types: all("BIGINT")},
		{Kind: SmallInteger, Impl: "SmallIntegerField", Family: FamilyInteger, nullable: true, types: all("SMALLINT")},
		{
			Kind: Float, Impl: "FloatField", Family: FamilyFloat, nullable: true,
			types: map[string]string{
				Postgres:  "DOUBLE PRECISION",
				MySQL:     "DOUBLE",
				SQLite:    "REAL",
				SQLServer: "FLOAT",
			},
		},
		{
			Kind: Boolean, Impl: "BooleanField", Family: FamilyBoolean,
			types:    map[string]string{"": "BOOLEAN", SQLServer: "BIT"},
			defaultV: boolFalse,
		},
		{
			Kind: NullBoolean, Impl: "NullBooleanField", Family: FamilyBoolean, nullable: true,
			types: map[string]string{"": "BOOLEAN", SQLServer: "BIT"},
		},
		varchar(File, "FilePathField", FamilyText, 100),
		{Kind: ForeignKey, Impl: "ForeignKey", Family: FamilyRelation, nullable: true, types: all("BIGINT")},
		{Kind: OneToOne, Impl: "OneToOneField", Family: FamilyRelation, nullable: true, unique: true, types: all("BIGINT")},
		{Kind: ManyToMany, Impl: "ManyToManyField", Family: FamilyRelation, join: true},
		ipField(IP, "IPAddressField", 15),
		ipField(IPGeneric, "GenericIPAddressField", 39),
		varchar(Email, "EmailField", FamilyText, 254),
		varchar(URL, "URLField", FamilyText, 200),
		geo(Geometry, "GeometryField", "GEOMETRY"),
		geo(Point, "PointField", "POINT"),
		geo(MultiPoint, "MultiPointField", "MULTIPOINT"),
		geo(LineString, "LineStringField", "LINESTRING"),
		geo(MultiLineString, "MultiLineStringField", "MULTILINESTRING"),
		geo(Polygon, "PolygonField", "POLYGON"),
		geo(MultiPolygon, "MultiPolygonField", "MULTIPOLYGON"),
		geo(GeometryCollection, "GeometryCollectionField", "GEOMETRYCOLLECTION"),
		{Kind: Date, Impl: "DateField", Family: FamilyTemporal, nullable: true, types: all("DATE")},
		{Kind: Time, Impl: "TimeField", Family: FamilyTemporal, nullable: true, types: all("TIME")},
		{
			Kind: DateTime, Impl: "DateTimeField", Family: FamilyTemporal, nullable: true,
			types: map[string]string{
				Postgres:  "TIMESTAMPTZ",
				MySQL:     "DATETIME(3)",
				SQLite:    "DATETIME",
				SQLServer: "DATETIMEOFFSET",
			},
		},
	}
}

// ipField stores addresses as text everywhere but PostgreSQL, which has a
// native inet type.
func ipField(kind Kind, impl string, n int) FieldType {
	return FieldType{
		Kind:     kind,
		Impl:     impl,
		Family:   FamilyText,
		defaults: Params{MaxLength: n},
		nullable: true,
		types: map[string]string{
			"":        "VARCHAR(%d)",
			Postgres:  "INET",
			SQLServer: "NVARCHAR(%d)",
		},
	}
}

// GeometryKindForType returns the concrete kind for an OGC/GeoJSON geometry
// type name such as "Point" or "MULTIPOLYGON".
func GeometryKindForType(name string) (Kind, bool) {
	switch normalizeGeometryName(name) {
	case "point":
		return Point, true
	case "multipoint":
		return MultiPoint, true
	case "linestring":
		return LineString, true
	case "multilinestring":
		return MultiLineString, true
	case "polygon":
		return Polygon, true
	case "multipolygon":
		return MultiPolygon, true
	case "geometrycollection":
		return GeometryCollection, true
	case "geometry":
		return Geometry, true
	}
	return "", false
}

func normalizeGeometryName(name string) string {
	b := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_' || c == ' ':
			continue
		case c >= 'A' && c <= 'Z':
			b = append(b, c+('a'-'A'))
		default:
			b = append(b, c)
		}
	}
	return string(b)
}
