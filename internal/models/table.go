package models

import (
	"fmt"
	"time"

	"github.com/localnerve/layersdb/internal/fieldtypes"
)

// TableDefinition is the catalog record of one user table.
type TableDefinition struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	NameScope   string `gorm:"size:255;not null;index:idx_layer_table_name,unique,priority:1" json:"-"`
	Name        string `gorm:"size:100;not null;index:idx_layer_table_name,unique,priority:2" json:"name"`
	DisplayName string `gorm:"size:255;not null" json:"display_name"`
	OwnerID     string `gorm:"size:255;not null;index" json:"owner"`
	DBTable     string `gorm:"column:db_table;size:63;not null;uniqueIndex" json:"db_table"`
	CreatedAt   time.Time         `json:"created_date"`
	UpdatedAt   time.Time         `json:"updated_date"`
	Fields      []FieldDefinition `gorm:"foreignKey:TableID;constraint:OnDelete:CASCADE" json:"fields"`
	Owners      []UserToTable     `gorm:"foreignKey:TableID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name for TableDefinition
func (TableDefinition) TableName() string {
	return "layer_tables"
}

// Locators are the resource paths of a table exposed to clients.
type Locators struct {
	ResourceURI string `json:"resource_uri"`
	DataURI     string `json:"data_uri"`
}

// Locators returns the table's resource paths.
func (t TableDefinition) Locators() Locators {
	return Locators{
		ResourceURI: fmt.Sprintf("/api/tables/%d", t.ID),
		DataURI:     fmt.Sprintf("/api/tablesdata/%d/data", t.ID),
	}
}

// Field returns the field named name, if any.
func (t TableDefinition) Field(name string) (FieldDefinition, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// FieldDefinition is the catalog record of one column of a user table. Kind
// selects the field type strategy; Params carries its parameters.
type FieldDefinition struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TableID     uint64          `gorm:"not null;index:idx_layer_field_name,unique,priority:1" json:"table"`
	Name        string          `gorm:"size:63;not null;index:idx_layer_field_name,unique,priority:2" json:"name"`
	DisplayName string          `gorm:"size:255;not null" json:"display_name"`
	Kind        fieldtypes.Kind `gorm:"size:32;not null" json:"type"`
	Params      JSON            `json:"params,omitempty"`
	Null        bool            `gorm:"not null" json:"null"`
	Blank       bool            `gorm:"not null" json:"blank"`
	System      bool            `gorm:"not null" json:"system"`
	CreatedAt   time.Time       `json:"-"`
	UpdatedAt   time.Time       `json:"-"`
}

// TableName overrides the table name for FieldDefinition
func (FieldDefinition) TableName() string {
	return "layer_fields"
}

// FieldParams decodes the persisted parameters.
func (f FieldDefinition) FieldParams() (fieldtypes.Params, error) {
	return fieldtypes.DecodeParams([]byte(f.Params.JSON))
}
