package models

import "time"

// User is the acting caller of a core operation. The zero value is the
// anonymous user.
type User struct {
	ID        string
	Superuser bool
}

// Anonymous is the caller without a session.
var Anonymous = User{}

// IsAnonymous reports whether u carries no identity.
func (u User) IsAnonymous() bool {
	return u.ID == ""
}

// UserToTable records that a user may access a table.
type UserToTable struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	TableID   uint64 `gorm:"not null;index:idx_layer_owner,unique,priority:1"`
	UserID    string `gorm:"size:255;not null;index:idx_layer_owner,unique,priority:2;index"`
	CreatedAt time.Time
}

// TableName overrides the table name for UserToTable
func (UserToTable) TableName() string {
	return "layer_owners"
}

// AttachedFile is a file uploaded against one row of one user table.
type AttachedFile struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	TableID      uint64    `gorm:"not null;index:idx_layer_file_row,priority:1" json:"table"`
	RowID        int64     `gorm:"not null;index:idx_layer_file_row,priority:2" json:"row"`
	Path         string    `gorm:"size:255;not null" json:"path"`
	OriginalName string    `gorm:"size:255" json:"name"`
	ContentType  string    `gorm:"size:127" json:"content_type"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_date"`
}

// TableName overrides the table name for AttachedFile
func (AttachedFile) TableName() string {
	return "layer_files"
}
