// Package naming derives physical table and column identifiers from the
// display names users type.
package naming

import (
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"github.com/juju/errors"
	"github.com/lithammer/shortuuid/v4"

	layererrors "github.com/localnerve/layersdb/internal/errors"
)

const (
	// MaxIdentifierLength is the identifier limit shared by the supported
	// engines (PostgreSQL truncates at 63 bytes).
	MaxIdentifierLength = 63

	// MaxSlugLength bounds logical table names.
	MaxSlugLength = 100

	// TablePrefix starts every physical user table name.
	TablePrefix = "ul_"

	// RowIdentifier is the primary key column of every user table.
	RowIdentifier = "id"

	suffixLength = 12
)

// Namer derives identifiers. The zero value is not usable; use New.
type Namer struct {
	suffix func() string
}

// Option configures a Namer.
type Option func(*Namer)

// WithSuffixSource replaces the random suffix generator.
func WithSuffixSource(fn func() string) Option {
	return func(n *Namer) {
		n.suffix = fn
	}
}

// New returns a Namer using lowercase shortuuid suffixes.
func New(opts ...Option) *Namer {
	n := &Namer{
		suffix: func() string {
			return strings.ToLower(shortuuid.New())[:suffixLength]
		},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// identifier slugifies s into lowercase ascii words joined by underscores.
func identifier(s string) string {
	return strings.ReplaceAll(slug.Make(s), "-", "_")
}

// TableSlug returns the logical name of a table.
func TableSlug(displayName string) (string, error) {
	s := identifier(displayName)
	if s == "" {
		return "", errors.Annotatef(layererrors.InvalidName, "table name %q", displayName)
	}
	return truncate(s, MaxSlugLength), nil
}

// DeriveTableIdentifier returns a physical table name for displayName. The
// random suffix makes the name unique with overwhelming probability; the
// catalog's unique index is the authority.
func (n *Namer) DeriveTableIdentifier(displayName, owner string) (string, error) {
	s := identifier(displayName)
	if s == "" {
		return "", errors.Annotatef(layererrors.InvalidName, "table name %q", displayName)
	}
	if strings.TrimSpace(owner) == "" {
		return "", errors.Annotatef(layererrors.InvalidName, "table %q has no owner", displayName)
	}

	postfix := n.suffix()
	allowed := MaxIdentifierLength - len(TablePrefix) - len(postfix) - 1
	if allowed < 1 {
		return "", errors.Errorf("table suffix %q too long", postfix)
	}
	s = strings.TrimRight(truncate(s, allowed), "_")
	return TablePrefix + s + "_" + postfix, nil
}

// NormalizeFieldName returns a column identifier for displayName. The row
// identifier name is always rewritten with a trailing underscore.
func NormalizeFieldName(displayName string) (string, error) {
	s := identifier(displayName)
	if s == "" {
		return "", errors.Annotatef(layererrors.InvalidName, "field name %q", displayName)
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "f_" + s
	}
	s = strings.TrimRight(truncate(s, MaxIdentifierLength-1), "_")
	if s == RowIdentifier {
		s += "_"
	}
	return s, nil
}

// JoinTableName returns the join table backing a many-to-many field.
func JoinTableName(table string, fieldID uint64) string {
	suffix := "__m2m_" + strconv.FormatUint(fieldID, 10)
	return truncate(table, MaxIdentifierLength-len(suffix)) + suffix
}

// UniqueIndexName returns the unique index created for a field.
func UniqueIndexName(fieldID uint64) string {
	return "uq_layer_field_" + strconv.FormatUint(fieldID, 10)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
