package ctrladmin_test

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/sentriz/gormstore"
	"github.com/stretchr/testify/require"

	"github.com/Tricked-dev/musicembed-spotify/db"
	"github.com/Tricked-dev/musicembed-spotify/server/ctrladmin"
	"github.com/Tricked-dev/musicembed-spotify/server/ctrlbase"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	m.Run()
}

func newTestServer(t *testing.T) (*db.DB, *httptest.Server) {
	t.Helper()
	dbc, err := db.NewMock()
	require.NoError(t, err)
	require.NoError(t, dbc.Migrate())
	t.Cleanup(func() { dbc.Close() })

	sessDB := gormstore.New(dbc.DB, securecookie.GenerateRandomKey(32))
	base := &ctrlbase.Controller{DB: dbc}
	ctrl, err := ctrladmin.New(base, sessDB, []string{"default", "square"})
	require.NoError(t, err)

	r := mux.NewRouter()
	ctrlbase.AddRoutes(base, r, false)
	ctrladmin.AddRoutes(ctrl, r.PathPrefix("/admin").Subrouter())

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return dbc, server
}

func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func TestLoginPage(t *testing.T) {
	t.Parallel()
	_, server := newTestServer(t)

	resp, err := http.Get(server.URL + "/admin/login")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "token")
}

func TestCreateFirstUser(t *testing.T) {
	t.Parallel()
	dbc, server := newTestServer(t)
	client := noRedirectClient()

	// with no users yet, the page is reachable without a session
	resp, err := client.Get(server.URL + "/admin/create_user")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	form := url.Values{"username": {"alice"}}
	resp, err = client.PostForm(server.URL+"/admin/create_user_do", form)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/home", resp.Header.Get("Location"))

	user := dbc.GetUserFromName("alice")
	require.NotNil(t, user)
	require.NotEmpty(t, user.Token)
	require.True(t, user.HistoryEnabled)
	require.Equal(t, "default", user.Style)
}

func TestCreateUserNeedsSessionAfterFirst(t *testing.T) {
	t.Parallel()
	dbc, server := newTestServer(t)
	client := noRedirectClient()

	user := db.User{Name: "alice", Token: "tok", Style: "default"}
	require.NoError(t, dbc.Create(&user).Error)

	resp, err := client.Get(server.URL + "/admin/create_user")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/login", resp.Header.Get("Location"))
}

func TestLoginAndHome(t *testing.T) {
	t.Parallel()
	dbc, server := newTestServer(t)
	client := noRedirectClient()

	user := db.User{Name: "alice", Token: "sometoken", Style: "default", HistoryEnabled: true}
	require.NoError(t, dbc.Create(&user).Error)

	resp, err := client.PostForm(server.URL+"/admin/login_do", url.Values{"token": {"sometoken"}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/home", resp.Header.Get("Location"))
	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/admin/home", nil)
	require.NoError(t, err)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	resp, err = client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "alice.svg")
	require.Contains(t, string(body), "sometoken")
}

func TestLoginBadToken(t *testing.T) {
	t.Parallel()
	_, server := newTestServer(t)
	client := noRedirectClient()

	resp, err := client.PostForm(server.URL+"/admin/login_do", url.Values{"token": {"nope"}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.NotEqual(t, "/admin/home", resp.Header.Get("Location"))
}

func TestHomeNeedsSession(t *testing.T) {
	t.Parallel()
	_, server := newTestServer(t)
	client := noRedirectClient()

	resp, err := client.Get(server.URL + "/admin/home")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/login", resp.Header.Get("Location"))
}

func TestUpdateUserSettings(t *testing.T) {
	t.Parallel()
	dbc, server := newTestServer(t)
	client := noRedirectClient()

	user := db.User{Name: "alice", Token: "sometoken", Style: "default", HistoryEnabled: true}
	require.NoError(t, dbc.Create(&user).Error)

	resp, err := client.PostForm(server.URL+"/admin/login_do", url.Values{"token": {"sometoken"}})
	require.NoError(t, err)
	resp.Body.Close()
	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)

	form := url.Values{"style": {"square"}}
	req, err := http.NewRequest(http.MethodPost, server.URL+"/admin/update_user_do",
		strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	updated := dbc.GetUserFromName("alice")
	require.NotNil(t, updated)
	require.Equal(t, "square", updated.Style)
	require.False(t, updated.HistoryEnabled, "checkbox absent from form means disabled")
}
