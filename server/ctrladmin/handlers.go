package ctrladmin

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/Tricked-dev/musicembed-spotify/badge"
	"github.com/Tricked-dev/musicembed-spotify/db"
	"github.com/Tricked-dev/musicembed-spotify/history/listenbrainz"
)

func firstExisting(or string, strings ...string) string {
	for _, s := range strings {
		if s != "" {
			return s
		}
	}
	return or
}

func (c *Controller) ServeNotFound(r *http.Request) *Response {
	return &Response{template: "not_found.tmpl", code: 404}
}

func (c *Controller) ServeLogin(r *http.Request) *Response {
	return &Response{template: "login.tmpl"}
}

func (c *Controller) ServeLoginDo(r *http.Request) *Response {
	session := r.Context().Value(CtxSession).(*sessions.Session)
	token := r.FormValue("token")
	if token == "" {
		return &Response{redirect: r.Referer(), flashW: []string{"please provide a token"}}
	}
	user := c.DB.GetUserFromToken(token)
	if user == nil {
		return &Response{redirect: r.Referer(), flashW: []string{"invalid token"}}
	}
	// put the user name into the session. future endpoints are wrapped
	// with WithUserSession() which will get the name from the session and
	// put the row into the request context
	session.Values["user"] = user.Name
	return &Response{redirect: "/admin/home"}
}

func (c *Controller) ServeLogout(r *http.Request) *Response {
	session := r.Context().Value(CtxSession).(*sessions.Session)
	session.Options.MaxAge = -1
	return &Response{redirect: "/admin/login"}
}

func (c *Controller) ServeHome(r *http.Request) *Response {
	user := r.Context().Value(CtxUser).(*db.User)
	data := &templateData{}
	scheme := firstExisting(
		"http", // fallback
		r.Header.Get("X-Forwarded-Proto"),
		r.Header.Get("X-Forwarded-Scheme"),
		r.URL.Scheme,
	)
	host := firstExisting(
		"localhost:4124", // fallback
		r.Header.Get("X-Forwarded-Host"),
		r.Host,
	)
	data.RequestRoot = fmt.Sprintf("%s://%s", scheme, host)
	data.Styles = c.styles
	listens, err := c.DB.RecentListens(user.ID, 10)
	if err != nil {
		return &Response{code: 500, err: fmt.Sprintf("error loading recent listens: %v", err)}
	}
	data.RecentListens = listens
	return &Response{
		template: "home.tmpl",
		data:     data,
	}
}

func (c *Controller) ServeCreateUser(r *http.Request) *Response {
	count, err := c.DB.CountUsers()
	if err != nil {
		return &Response{code: 500, err: fmt.Sprintf("error counting users: %v", err)}
	}
	session := r.Context().Value(CtxSession).(*sessions.Session)
	if _, authed := session.Values["user"].(string); count > 0 && !authed {
		return &Response{
			redirect: "/admin/login",
			flashW:   []string{"you are not authenticated"},
		}
	}
	return &Response{
		template: "create_user.tmpl",
		data:     &templateData{FirstUser: count == 0},
	}
}

func (c *Controller) ServeCreateUserDo(r *http.Request) *Response {
	count, err := c.DB.CountUsers()
	if err != nil {
		return &Response{code: 500, err: fmt.Sprintf("error counting users: %v", err)}
	}
	session := r.Context().Value(CtxSession).(*sessions.Session)
	if _, authed := session.Values["user"].(string); count > 0 && !authed {
		return &Response{
			redirect: "/admin/login",
			flashW:   []string{"you are not authenticated"},
		}
	}
	username := r.FormValue("username")
	if err := validateUsername(username); err != nil {
		return &Response{redirect: r.Referer(), flashW: []string{err.Error()}}
	}
	if existing := c.DB.GetUserFromName(username); existing != nil {
		return &Response{redirect: r.Referer(), flashW: []string{"that username is taken"}}
	}
	user := db.User{
		Name:           username,
		Token:          uuid.NewString(),
		Style:          badge.StyleDefault,
		HistoryEnabled: true,
	}
	if err := c.DB.Create(&user).Error; err != nil {
		return &Response{
			code: 500,
			err:  fmt.Sprintf("could not create user %q: %v", username, err),
		}
	}
	session.Values["user"] = user.Name
	return &Response{
		redirect: "/admin/home",
		flashN: []string{
			fmt.Sprintf("user %q created", user.Name),
			fmt.Sprintf("your token is %q, clients submit with it", user.Token),
		},
	}
}

func (c *Controller) ServeUpdateUserDo(r *http.Request) *Response {
	user := r.Context().Value(CtxUser).(*db.User)
	style := r.FormValue("style")
	if !styleKnown(c.styles, style) {
		return &Response{redirect: r.Referer(), flashW: []string{"unknown badge style"}}
	}
	user.Style = style
	user.HistoryEnabled = r.FormValue("history_enabled") == "on"
	if err := c.DB.Save(user).Error; err != nil {
		return &Response{code: 500, err: fmt.Sprintf("error saving user: %v", err)}
	}
	return &Response{redirect: "/admin/home", flashN: []string{"settings saved"}}
}

func (c *Controller) ServeRotateTokenDo(r *http.Request) *Response {
	user := r.Context().Value(CtxUser).(*db.User)
	user.Token = uuid.NewString()
	if err := c.DB.Save(user).Error; err != nil {
		return &Response{code: 500, err: fmt.Sprintf("error saving user: %v", err)}
	}
	return &Response{
		redirect: "/admin/home",
		flashN:   []string{fmt.Sprintf("your new token is %q, update your clients", user.Token)},
	}
}

func (c *Controller) ServeLinkListenBrainzDo(r *http.Request) *Response {
	user := r.Context().Value(CtxUser).(*db.User)
	token := r.FormValue("token")
	if token == "" {
		return &Response{redirect: r.Referer(), flashW: []string{"please provide a listenbrainz token"}}
	}
	user.ListenBrainzURL = firstExisting(listenbrainz.BaseURL, r.FormValue("url"))
	user.ListenBrainzToken = token
	if err := c.DB.Save(user).Error; err != nil {
		return &Response{code: 500, err: fmt.Sprintf("error saving user: %v", err)}
	}
	return &Response{redirect: "/admin/home", flashN: []string{"listenbrainz linked"}}
}

func (c *Controller) ServeUnlinkListenBrainzDo(r *http.Request) *Response {
	user := r.Context().Value(CtxUser).(*db.User)
	user.ListenBrainzURL = ""
	user.ListenBrainzToken = ""
	if err := c.DB.Save(user).Error; err != nil {
		return &Response{code: 500, err: fmt.Sprintf("error saving user: %v", err)}
	}
	return &Response{redirect: "/admin/home", flashN: []string{"listenbrainz unlinked"}}
}

func validateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("please provide a username")
	}
	if len(username) > 64 {
		return fmt.Errorf("that username is too long")
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return fmt.Errorf("usernames may only contain letters, numbers, '-', '_', and '.'")
		}
	}
	return nil
}

func styleKnown(styles []string, style string) bool {
	for _, s := range styles {
		if s == style {
			return true
		}
	}
	return false
}
