package models

import (
	"strconv"
	"time"
)

// BaseModel holds the columns every table has. Rows are deleted for good;
// there is no soft delete.
type BaseModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IDString returns the ID in decimal, for logs and message keys.
func (b *BaseModel) IDString() string {
	return strconv.FormatUint(uint64(b.ID), 10)
}
