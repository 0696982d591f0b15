package ctrlembed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Tricked-dev/musicembed-spotify/playback"
)

var ErrMalformedReport = errors.New("malformed report")

// decodeReport accepts the two report encodings producers send: a JSON object
// and the percent-delimited flat form `artist%title%art%length%position`.
// Both decode to the same report, positions in seconds.
func decodeReport(body []byte) (playback.Report, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return playback.Report{}, fmt.Errorf("empty body: %w", ErrMalformedReport)
	}
	if trimmed[0] == '{' {
		return decodeReportJSON(trimmed)
	}
	return decodeReportDelimited(string(trimmed))
}

func decodeReportJSON(body []byte) (playback.Report, error) {
	var raw struct {
		Title     string `json:"title"`
		Artist    string `json:"artist"`
		Thumbnail string `json:"thumbnail"`
		Duration  struct {
			At  *int `json:"at"`
			End *int `json:"end"`
		} `json:"duration"`
		VideoID string `json:"videoId"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return playback.Report{}, fmt.Errorf("unmarshal report: %v: %w", err, ErrMalformedReport)
	}
	if raw.Duration.At == nil || raw.Duration.End == nil {
		return playback.Report{}, fmt.Errorf("missing duration fields: %w", ErrMalformedReport)
	}
	return playback.Report{
		Title:     raw.Title,
		Artist:    raw.Artist,
		Thumbnail: raw.Thumbnail,
		Duration:  playback.Interval{At: *raw.Duration.At, End: *raw.Duration.End},
		VideoID:   raw.VideoID,
	}, nil
}

func decodeReportDelimited(body string) (playback.Report, error) {
	parts := strings.Split(body, "%")
	if len(parts) != 5 {
		return playback.Report{}, fmt.Errorf("want 5 fields, got %d: %w", len(parts), ErrMalformedReport)
	}
	end, err := strconv.Atoi(parts[3])
	if err != nil {
		return playback.Report{}, fmt.Errorf("parse length %q: %w", parts[3], ErrMalformedReport)
	}
	at, err := strconv.Atoi(parts[4])
	if err != nil {
		return playback.Report{}, fmt.Errorf("parse position %q: %w", parts[4], ErrMalformedReport)
	}
	return playback.Report{
		Artist:    parts[0],
		Title:     parts[1],
		Thumbnail: parts[2],
		Duration:  playback.Interval{At: at, End: end},
	}, nil
}
