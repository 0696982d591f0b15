// Package badge turns a playback view into a rendered SVG. The model half is
// a pure transform, the renderer half is templated markup.
package badge

import (
	"github.com/Tricked-dev/musicembed-spotify/playback"
)

const (
	defaultTitle     = "Currently not playing anything"
	defaultThumbnail = "https://lh3.googleusercontent.com/U9DTgHAZAXCDbXbaAm5AycnEqTOdaNngi6RoN796rvmXlHCZQjC4NV5FWA9QPmfMzmHTvDrYyAMvNZ00=w1500-h844-l90-rj"
)

// Model is what the SVG templates consume.
type Model struct {
	Title           string
	Artist          string
	Thumbnail       string
	ProgressPercent int
}

// ModelFrom builds a badge model from a playback view, filling defaults for
// empty fields. ProgressPercent has a 1% floor so the bar always shows a
// sliver.
func ModelFrom(view playback.View) Model {
	model := Model{
		Title:           view.Title,
		Artist:          view.Artist,
		Thumbnail:       view.Thumbnail,
		ProgressPercent: int(view.Progress * 100),
	}
	if model.Title == "" {
		model.Title = defaultTitle
	}
	if model.Thumbnail == "" {
		model.Thumbnail = defaultThumbnail
	}
	if model.ProgressPercent < 1 {
		model.ProgressPercent = 1
	}
	if model.ProgressPercent > 100 {
		model.ProgressPercent = 100
	}
	return model
}
