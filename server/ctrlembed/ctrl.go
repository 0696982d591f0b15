// Package ctrlembed serves the producer-facing report endpoint and the public
// badge endpoint.
package ctrlembed

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/Tricked-dev/musicembed-spotify/badge"
	"github.com/Tricked-dev/musicembed-spotify/playback"
	"github.com/Tricked-dev/musicembed-spotify/server/ctrlbase"
)

type CtxKey int

const (
	CtxUser CtxKey = iota
)

type Controller struct {
	*ctrlbase.Controller
	Sessions *playback.Sessions
	Renderer *badge.Renderer
}

type statusResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(statusResponse{Status: code, Message: message}); err != nil {
		log.Printf("error writing response: %v", err)
	}
}
