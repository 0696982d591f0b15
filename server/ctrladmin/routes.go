package ctrladmin

import (
	"github.com/gorilla/mux"
)

func AddRoutes(c *Controller, r *mux.Router) {
	// public routes (creates session)
	r.Use(c.WithSession)
	r.Handle("/login", c.H(c.ServeLogin))
	r.Handle("/login_do", c.H(c.ServeLoginDo))
	r.Handle("/create_user", c.H(c.ServeCreateUser))
	r.Handle("/create_user_do", c.H(c.ServeCreateUserDo))

	// user routes (if session is valid)
	routUser := r.NewRoute().Subrouter()
	routUser.Use(c.WithUserSession)
	routUser.Handle("/logout", c.H(c.ServeLogout))
	routUser.Handle("/home", c.H(c.ServeHome))
	routUser.Handle("/update_user_do", c.H(c.ServeUpdateUserDo))
	routUser.Handle("/rotate_token_do", c.H(c.ServeRotateTokenDo))
	routUser.Handle("/link_listenbrainz_do", c.H(c.ServeLinkListenBrainzDo))
	routUser.Handle("/unlink_listenbrainz_do", c.H(c.ServeUnlinkListenBrainzDo))

	// middlewares should be run for not found handler
	// https://github.com/gorilla/mux/issues/416
	notFoundHandler := c.H(c.ServeNotFound)
	notFoundRoute := r.NewRoute().Handler(notFoundHandler)
	r.NotFoundHandler = notFoundRoute.GetHandler()
}
