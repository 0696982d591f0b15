// Package db wraps a gorm connection to the sqlite database holding user
// accounts, settings, and durable listening history. Live playback state
// never lives here, it is in-memory only.
package db

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/jinzhu/gorm"
)

var (
	dbMaxOpenConns = 1
	dbOptions      = url.Values{
		// with this, multiple connections share a single data and schema cache.
		// see https://www.sqlite.org/sharedcache.html
		"cache": []string{"shared"},
		// with this, the db sleeps for a little while when locked. can prevent
		// a SQLITE_BUSY. see https://www.sqlite.org/c3ref/busy_timeout.html
		"_busy_timeout": []string{"30000"},
	}
)

type DB struct {
	*gorm.DB
}

func New(path string) (*DB, error) {
	pathAndArgs := fmt.Sprintf("%s?%s", path, dbOptions.Encode())
	dbConn, err := gorm.Open("sqlite3", pathAndArgs)
	if err != nil {
		return nil, fmt.Errorf("with gorm: %w", err)
	}
	dbConn.SetLogger(log.New(os.Stdout, "gorm ", 0))
	dbConn.DB().SetMaxOpenConns(dbMaxOpenConns)
	return &DB{DB: dbConn}, nil
}

func NewMock() (*DB, error) {
	return New(":memory:")
}

func (db *DB) GetUserFromName(name string) *User {
	user := &User{}
	err := db.
		Where("name=?", name).
		First(user).
		Error
	if err != nil {
		return nil
	}
	return user
}

func (db *DB) GetUserFromToken(token string) *User {
	if token == "" {
		return nil
	}
	user := &User{}
	err := db.
		Where("token=?", token).
		First(user).
		Error
	if err != nil {
		return nil
	}
	return user
}

func (db *DB) CountUsers() (int, error) {
	var count int
	err := db.
		Model(User{}).
		Count(&count).
		Error
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (db *DB) RecentListens(userID, limit int) ([]*Listen, error) {
	var listens []*Listen
	err := db.
		Where("user_id=?", userID).
		Order("time DESC").
		Limit(limit).
		Find(&listens).
		Error
	if err != nil {
		return nil, fmt.Errorf("find listens: %w", err)
	}
	return listens, nil
}

func (db *DB) GetSetting(key SettingKey) (string, error) {
	setting := &Setting{}
	err := db.
		Where("key=?", key).
		First(setting).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return setting.Value, nil
}

func (db *DB) SetSetting(key SettingKey, value string) error {
	err := db.
		Where(Setting{Key: key}).
		Assign(Setting{Key: key, Value: value}).
		FirstOrCreate(&Setting{}).
		Error
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}
