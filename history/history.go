// Package history records track changes to durable stores. Recorders are
// invoked fire-and-forget from the reconciliation path, a failure here is
// logged by the caller and never reaches the producer.
package history

import (
	"errors"
	"fmt"
	"time"

	"github.com/Tricked-dev/musicembed-spotify/db"
)

type Recorder interface {
	Record(userID, song, artist string, stamp time.Time) error
}

// Recorders fans a listen out to each recorder, collecting errors.
type Recorders []Recorder

func (rs Recorders) Record(userID, song, artist string, stamp time.Time) error {
	var errs []error
	for _, r := range rs {
		errs = append(errs, r.Record(userID, song, artist, stamp))
	}
	return errors.Join(errs...)
}

// DBRecorder appends listens to the local database.
type DBRecorder struct {
	db *db.DB
}

func NewDBRecorder(dbc *db.DB) *DBRecorder {
	return &DBRecorder{db: dbc}
}

func (r *DBRecorder) Record(userID, song, artist string, stamp time.Time) error {
	user := r.db.GetUserFromName(userID)
	if user == nil {
		return fmt.Errorf("unknown user %q", userID)
	}
	listen := db.Listen{
		UserID: user.ID,
		Song:   song,
		Artist: artist,
		Time:   stamp,
	}
	if err := r.db.Create(&listen).Error; err != nil {
		return fmt.Errorf("create listen: %w", err)
	}
	return nil
}
