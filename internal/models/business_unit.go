package models

import "time"

// BusinessUnit is an organizational division; its Code prefixes transaction codes
type BusinessUnit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"size:16;uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for BusinessUnit
func (BusinessUnit) TableName() string {
	return "business_units"
}
