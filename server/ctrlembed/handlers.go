package ctrlembed

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/Tricked-dev/musicembed-spotify/badge"
	"github.com/Tricked-dev/musicembed-spotify/db"
)

// producers post small bodies, anything bigger is not a report
const maxReportSize = 64 << 10

func (c *Controller) ServeSubmitReport(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(CtxUser).(*db.User)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxReportSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, "read body")
		return
	}
	report, err := decodeReport(body)
	if errors.Is(err, ErrMalformedReport) {
		writeJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, err.Error())
		return
	}

	c.Sessions.Reconcile(user.Name, report, user.HistoryEnabled)
	writeJSON(w, http.StatusOK, "")
}

func (c *Controller) ServeBadge(w http.ResponseWriter, r *http.Request) {
	resource := mux.Vars(r)["resource"]
	name, ext, ok := strings.Cut(resource, ".")
	if !ok || ext != "svg" || name == "" {
		http.NotFound(w, r)
		return
	}

	view := c.Sessions.CurrentView(name)
	model := badge.ModelFrom(view)

	style := badge.StyleDefault
	if user := c.DB.GetUserFromName(name); user != nil && user.Style != "" {
		style = user.Style
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	// the view changes continuously, keep caches short
	w.Header().Set("Cache-Control", "max-age=2")
	if err := c.Renderer.Render(w, style, model); err != nil {
		log.Printf("error rendering badge for %q: %v", name, err)
	}
}
