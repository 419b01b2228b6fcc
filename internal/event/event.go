// Package event fans table lifecycle notifications out to listeners. Events
// are triggered only after the change they describe has committed.
package event

import (
	"context"
	"sync"

	"github.com/localnerve/layersdb/internal/models"
)

// Table is the payload of every table event.
type Table struct {
	TableID  uint64
	Name     string
	OwnerID  string
	Locators models.Locators
}

// NewTable describes def.
func NewTable(def *models.TableDefinition) Table {
	return Table{
		TableID:  def.ID,
		Name:     def.Name,
		OwnerID:  def.OwnerID,
		Locators: def.Locators(),
	}
}

type (
	TableListenerCreated func(ctx context.Context, t Table)
	TableListenerUpdated func(ctx context.Context, t Table)
	TableListenerDeleted func(ctx context.Context, t Table)
)

type Manager struct {
	lock                  sync.RWMutex
	tableCreatedListeners []TableListenerCreated
	tableUpdatedListeners []TableListenerUpdated
	tableDeletedListeners []TableListenerDeleted
}

func (m *Manager) ListenForTableCreated(fn TableListenerCreated) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.tableCreatedListeners = append(m.tableCreatedListeners, fn)
}

func (m *Manager) TriggerTableCreated(ctx context.Context, t Table) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	for _, fn := range m.tableCreatedListeners {
		fn(ctx, t)
	}
}

func (m *Manager) ListenForTableUpdated(fn TableListenerUpdated) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.tableUpdatedListeners = append(m.tableUpdatedListeners, fn)
}

func (m *Manager) TriggerTableUpdated(ctx context.Context, t Table) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	for _, fn := range m.tableUpdatedListeners {
		fn(ctx, t)
	}
}

func (m *Manager) ListenForTableDeleted(fn TableListenerDeleted) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.tableDeletedListeners = append(m.tableDeletedListeners, fn)
}

func (m *Manager) TriggerTableDeleted(ctx context.Context, t Table) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	for _, fn := range m.tableDeletedListeners {
		fn(ctx, t)
	}
}
