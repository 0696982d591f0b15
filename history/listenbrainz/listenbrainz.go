// Package listenbrainz forwards listens to a user's linked ListenBrainz
// account. Users without a linked account are skipped.
package listenbrainz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/Tricked-dev/musicembed-spotify/db"
)

const (
	BaseURL = "https://api.listenbrainz.org"

	submitPath       = "/1/submit-listens"
	listenTypeSingle = "single"
)

var ErrListenBrainz = errors.New("listenbrainz error")

type Recorder struct {
	db         *db.DB
	httpClient *http.Client
}

func NewRecorder(dbc *db.DB) *Recorder {
	return NewRecorderCustom(dbc, http.DefaultClient)
}

func NewRecorderCustom(dbc *db.DB, httpClient *http.Client) *Recorder {
	return &Recorder{db: dbc, httpClient: httpClient}
}

type Submission struct {
	ListenType string     `json:"listen_type"`
	Payload    []*Payload `json:"payload"`
}

type Payload struct {
	ListenedAt    int            `json:"listened_at"`
	TrackMetadata *TrackMetadata `json:"track_metadata"`
}

type TrackMetadata struct {
	ArtistName string `json:"artist_name"`
	TrackName  string `json:"track_name"`
}

func (r *Recorder) Record(userID, song, artist string, stamp time.Time) error {
	user := r.db.GetUserFromName(userID)
	if user == nil || user.ListenBrainzURL == "" || user.ListenBrainzToken == "" {
		return nil
	}

	submission := Submission{
		ListenType: listenTypeSingle,
		Payload: []*Payload{{
			ListenedAt: int(stamp.Unix()),
			TrackMetadata: &TrackMetadata{
				ArtistName: artist,
				TrackName:  song,
			},
		}},
	}

	var payloadBuf bytes.Buffer
	if err := json.NewEncoder(&payloadBuf).Encode(submission); err != nil {
		return err
	}

	submitURL := fmt.Sprintf("%s%s", user.ListenBrainzURL, submitPath)
	authHeader := fmt.Sprintf("Token %s", user.ListenBrainzToken)

	req, _ := http.NewRequest(http.MethodPost, submitURL, &payloadBuf)
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Authorization", authHeader)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("unauthorized: %w", ErrListenBrainz)
	case resp.StatusCode >= 400:
		respBytes, _ := httputil.DumpResponse(resp, true)
		log.Printf("received bad listenbrainz response:\n%s", string(respBytes))
		return fmt.Errorf(">= 400: %d: %w", resp.StatusCode, ErrListenBrainz)
	}
	return nil
}
