package services

import (
	"bytes"
	"context"
	"io"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	"github.com/localnerve/layersdb/internal/catalog"
	layererrors "github.com/localnerve/layersdb/internal/errors"
	"github.com/localnerve/layersdb/internal/models"
	"github.com/localnerve/layersdb/internal/naming"
)

// SeedTable is one table of a seed document.
type SeedTable struct {
	Owner            string `yaml:"owner" json:"owner"`
	CreateTableInput `yaml:",inline"`
}

// SeedConfig is a document of tables to create or complete.
type SeedConfig struct {
	Tables []SeedTable `yaml:"tables" json:"tables"`
}

// SeedResult counts what a seed run changed.
type SeedResult struct {
	TablesCreated int `json:"tables_created"`
	TablesKept    int `json:"tables_kept"`
	FieldsAdded   int `json:"fields_added"`
}

// nullKey finds a mapping key that YAML reads as null, such as a bare
// "null:" or "~:". Those keys are dropped silently by the decoder.
func nullKey(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Tag == "!!null" {
				return n.Content[i]
			}
		}
	}
	for _, c := range n.Content {
		if k := nullKey(c); k != nil {
			return k
		}
	}
	return nil
}

// LoadSeedConfig decodes a YAML (or JSON) seed document.
func LoadSeedConfig(r io.Reader) (*SeedConfig, error) {
	doc, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Annotate(err, "reading seed config")
	}
	var root yaml.Node
	if err := yaml.Unmarshal(doc, &root); err != nil {
		return nil, errors.Annotate(err, "decoding seed config")
	}
	if k := nullKey(&root); k != nil {
		return nil, errors.Errorf("seed config line %d: null mapping key, quote it or use nullable", k.Line)
	}

	var cfg SeedConfig
	dec := yaml.NewDecoder(bytes.NewReader(doc))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Annotate(err, "decoding seed config")
	}
	err = validation.ValidateStruct(&cfg,
		validation.Field(&cfg.Tables, validation.Required, validation.Each(validation.By(func(value interface{}) error {
			t, _ := value.(SeedTable)
			return validation.Validate(t.Owner, validation.Required)
		}))),
	)
	if err != nil {
		return nil, errors.Annotate(err, "seed config")
	}
	return &cfg, nil
}

// SeedTables creates the tables of cfg that do not exist yet and adds the
// fields missing from those that do. Existing fields are left untouched.
func (s *Service) SeedTables(ctx context.Context, cfg *SeedConfig) (*SeedResult, error) {
	res := &SeedResult{}
	for i, st := range cfg.Tables {
		owner := models.User{ID: st.Owner}
		log := s.log.With().Int("seed", i+1).Str("name", st.Name).Str("owner", st.Owner).Logger()

		slug, err := naming.TableSlug(st.Name)
		if err != nil {
			return res, layererrors.Validation("name", err)
		}
		def, err := catalog.GetTableByLogicalName(s.db.WithContext(ctx), s.scope(owner), slug)
		if errors.Is(err, layererrors.NotFound) {
			def, err = s.CreateTableForUser(ctx, owner, st.CreateTableInput)
			if err != nil {
				return res, errors.Annotatef(err, "seeding %q", st.Name)
			}
			res.TablesCreated++
			log.Info().Str("db_table", def.DBTable).Msg("seed table created")
			continue
		}
		if err != nil {
			return res, err
		}

		res.TablesKept++
		// Fields are added on behalf of the table owner with full rights.
		actor := models.User{ID: def.OwnerID, Superuser: true}
		for _, fi := range st.Fields {
			name, err := naming.NormalizeFieldName(fi.Name)
			if err != nil {
				return res, layererrors.Validation("fields.name", err)
			}
			if _, ok := def.Field(name); ok {
				continue
			}
			if _, err := s.AddField(ctx, actor, def.ID, fi); err != nil {
				return res, errors.Annotatef(err, "seeding %q.%s", st.Name, name)
			}
			res.FieldsAdded++
			log.Info().Str("field", name).Msg("seed field added")
		}
	}
	return res, nil
}
