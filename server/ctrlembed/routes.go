package ctrlembed

import (
	"net/http"

	"github.com/gorilla/mux"
)

func AddRoutes(c *Controller, r *mux.Router) {
	r.Handle("/", c.WithUser(http.HandlerFunc(c.ServeSubmitReport))).Methods(http.MethodPost)
	r.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).Methods(http.MethodGet)
	r.Handle("/{resource}", http.HandlerFunc(c.ServeBadge)).Methods(http.MethodGet)
}
