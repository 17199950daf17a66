package models

import "time"

// SequenceCounter is a named counter backing transaction code numbering.
// Keys look like "{businessUnitID}_{prefix}_{MMYY}".
type SequenceCounter struct {
	Key       string    `gorm:"column:key;primaryKey;size:64" json:"key"`
	Value     int64     `gorm:"not null;default:0" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for SequenceCounter
func (SequenceCounter) TableName() string {
	return "sequence_counters"
}
