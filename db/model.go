package db

import (
	"time"
)

type SettingKey string

const (
	SessionKey SettingKey = "session_key"
)

// User represents the users table. Token is the bearer credential producers
// submit reports with, and which the account pages log in with.
type User struct {
	ID                int `gorm:"primary_key"`
	CreatedAt         time.Time
	Name              string `gorm:"not null;unique_index" sql:"default: null"`
	Token             string `gorm:"not null;unique_index" sql:"default: null"`
	Style             string
	HistoryEnabled    bool
	ListenBrainzURL   string
	ListenBrainzToken string
}

// Listen represents the listens table, one row per detected track change for
// users that have history enabled.
type Listen struct {
	ID     int `gorm:"primary_key"`
	User   *User
	UserID int    `gorm:"not null;index" sql:"default: null; type:int REFERENCES users(id) ON DELETE CASCADE"`
	Song   string `gorm:"not null"`
	Artist string
	Time   time.Time `gorm:"index"`
}

type Setting struct {
	Key   SettingKey `gorm:"not null;primary_key;auto_increment:false"`
	Value string
}
