// service.go
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

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/localnerve/layersdb/internal/event"
	"github.com/localnerve/layersdb/internal/fieldtypes"
	"github.com/localnerve/layersdb/internal/materializer"
	"github.com/localnerve/layersdb/internal/models"
	"github.com/localnerve/layersdb/internal/naming"
	"github.com/localnerve/layersdb/internal/policy"
)

// Naming scopes of logical table names.
const (
	ScopeOwner  = "owner"
	ScopeGlobal = "global"
)

// Service coordinates the catalog, the materializer and the policy for
// every operation on user tables.
type Service struct {
	db           *gorm.DB
	registry     *fieldtypes.Registry
	namer        *naming.Namer
	materializer *materializer.Materializer
	policy       *policy.Evaluator
	events       *event.Manager
	log          zerolog.Logger

	nameScope   string
	defaultSRID int
	filesDir    string
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithNamer(n *naming.Namer) Option {
	return func(s *Service) { s.namer = n }
}

func WithEvents(m *event.Manager) Option {
	return func(s *Service) { s.events = m }
}

func WithMaterializer(m *materializer.Materializer) Option {
	return func(s *Service) { s.materializer = m }
}

// WithNameScope selects whether logical table names are unique per owner
// (ScopeOwner) or across all users (ScopeGlobal).
func WithNameScope(scope string) Option {
	return func(s *Service) { s.nameScope = scope }
}

func WithDefaultSRID(srid int) Option {
	return func(s *Service) { s.defaultSRID = srid }
}

// WithFilesDir sets the directory attached files are stored under.
func WithFilesDir(dir string) Option {
	return func(s *Service) { s.filesDir = dir }
}

// New returns a Service over db.
func New(db *gorm.DB, opts ...Option) *Service {
	s := &Service{
		db:          db,
		registry:    fieldtypes.Default,
		log:         zerolog.Nop(),
		nameScope:   ScopeOwner,
		defaultSRID: fieldtypes.DefaultSRID,
		filesDir:    "files",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.namer == nil {
		s.namer = naming.New()
	}
	if s.events == nil {
		s.events = &event.Manager{}
	}
	if s.materializer == nil {
		s.materializer = materializer.New(s.registry, s.log)
	}
	s.policy = policy.New(db)
	s.log = s.log.With().Str("component", "services").Logger()
	return s
}

// Events returns the manager table events are triggered on.
func (s *Service) Events() *event.Manager {
	return s.events
}

// Materializer returns the materializer backing the service.
func (s *Service) Materializer() *materializer.Materializer {
	return s.materializer
}

// Policy returns the access policy evaluator.
func (s *Service) Policy() *policy.Evaluator {
	return s.policy
}

func (s *Service) scope(owner models.User) string {
	if s.nameScope == ScopeGlobal {
		return ""
	}
	return owner.ID
}

func (s *Service) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}
