package model

import "time"

// Reminder is a recurring reminder that may fire inside a daily time window.
type Reminder struct {
	ID              int64     `json:"id"`
	Text            string    `json:"text"`
	TimeWindowStart string    `json:"timeWindowStart"`
	TimeWindowEnd   string    `json:"timeWindowEnd"`
	Cadence         int       `json:"cadence"`
	Created         time.Time `json:"created"`
}

// LastNotified maps a reminder ID to the Unix millisecond timestamp of its last firing.
type LastNotified map[int64]int64

// Entry is a single row of the key-value table.
type Entry struct {
	Key       string    `gorm:"primaryKey;size:191"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName keeps the table name stable regardless of the struct name.
func (Entry) TableName() string {
	return "kv_entries"
}
