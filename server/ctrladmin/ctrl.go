// Package ctrladmin provides HTTP handlers for the account pages
package ctrladmin

import (
	"encoding/gob"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/dustin/go-humanize"
	"github.com/gorilla/sessions"
	"github.com/oxtoacart/bpool"
	"github.com/sentriz/gormstore"

	musicembed "github.com/Tricked-dev/musicembed-spotify"
	"github.com/Tricked-dev/musicembed-spotify/db"
	"github.com/Tricked-dev/musicembed-spotify/server/ctrladmin/adminui"
	"github.com/Tricked-dev/musicembed-spotify/server/ctrlbase"
)

type CtxKey int

const (
	CtxUser CtxKey = iota
	CtxSession
)

func funcMap() template.FuncMap {
	return template.FuncMap{
		"date": func(in time.Time) string {
			return strings.ToLower(in.Format("Jan 02, 2006 15:04"))
		},
		"dateHuman": humanize.Time,
	}
}

type Controller struct {
	*ctrlbase.Controller
	buffPool  *bpool.BufferPool
	templates map[string]*template.Template
	sessDB    *gormstore.Store
	styles    []string
}

func New(b *ctrlbase.Controller, sessDB *gormstore.Store, styles []string) (*Controller, error) {
	layoutBytes, err := fs.ReadFile(adminui.TemplatesFS, "layout.tmpl")
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	tmplBase := template.
		New("layout").
		Funcs(sprig.FuncMap()).
		Funcs(funcMap()).
		Funcs(template.FuncMap{
			"path": b.Path,
		})
	tmplBase, err = tmplBase.Parse(string(layoutBytes))
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pages, err := fs.ReadDir(adminui.TemplatesFS, "pages")
	if err != nil {
		return nil, fmt.Errorf("read pages dir: %w", err)
	}
	templates := map[string]*template.Template{}
	for _, page := range pages {
		pageBytes, err := fs.ReadFile(adminui.TemplatesFS, "pages/"+page.Name())
		if err != nil {
			return nil, fmt.Errorf("read page %q: %w", page.Name(), err)
		}
		clone := template.Must(tmplBase.Clone())
		templates[page.Name()], err = clone.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parse page %q: %w", page.Name(), err)
		}
	}

	return &Controller{
		Controller: b,
		buffPool:   bpool.NewBufferPool(64),
		templates:  templates,
		sessDB:     sessDB,
		styles:     styles,
	}, nil
}

type templateData struct {
	// common
	Flashes []interface{}
	User    *db.User
	Version string
	// home
	RequestRoot   string
	RecentListens []*db.Listen
	Styles        []string
	// create user
	FirstUser bool
}

type Response struct {
	// code is 200
	template string
	data     *templateData
	// code is 303
	redirect string
	flashN   []string // normal
	flashW   []string // warning
	// code is >= 400
	code int
	err  string
}

type handlerAdmin func(r *http.Request) *Response

func (c *Controller) H(h handlerAdmin) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := h(r)
		session, ok := r.Context().Value(CtxSession).(*sessions.Session)
		if ok {
			sessAddFlashN(session, resp.flashN)
			sessAddFlashW(session, resp.flashW)
			if err := session.Save(r, w); err != nil {
				http.Error(w, fmt.Sprintf("error saving session: %v", err), 500)
				return
			}
		}
		if resp.redirect != "" {
			to := resp.redirect
			if strings.HasPrefix(to, "/") {
				to = c.Path(to)
			}
			http.Redirect(w, r, to, http.StatusSeeOther)
			return
		}
		if resp.err != "" {
			http.Error(w, resp.err, resp.code)
			return
		}
		if resp.template == "" {
			http.Error(w, "useless handler return", 500)
			return
		}
		if resp.data == nil {
			resp.data = &templateData{}
		}
		resp.data.Version = musicembed.Version
		if session != nil {
			resp.data.Flashes = session.Flashes()
			if err := session.Save(r, w); err != nil {
				http.Error(w, fmt.Sprintf("error saving session: %v", err), 500)
				return
			}
		}
		if user, ok := r.Context().Value(CtxUser).(*db.User); ok {
			resp.data.User = user
		}
		buff := c.buffPool.Get()
		defer c.buffPool.Put(buff)
		tmpl, ok := c.templates[resp.template]
		if !ok {
			http.Error(w, fmt.Sprintf("finding template %q", resp.template), 500)
			return
		}
		if err := tmpl.Execute(buff, resp.data); err != nil {
			http.Error(w, fmt.Sprintf("executing template: %v", err), 500)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if resp.code != 0 {
			w.WriteHeader(resp.code)
		}
		if _, err := buff.WriteTo(w); err != nil {
			log.Printf("error writing to response buffer: %v\n", err)
		}
	})
}

type FlashType string

const (
	FlashNormal  = FlashType("normal")
	FlashWarning = FlashType("warning")
)

type Flash struct {
	Message string
	Type    FlashType
}

func init() {
	gob.Register(&Flash{})
}

func sessAddFlashN(s *sessions.Session, messages []string) {
	sessAddFlash(s, messages, FlashNormal)
}

func sessAddFlashW(s *sessions.Session, messages []string) {
	sessAddFlash(s, messages, FlashWarning)
}

func sessAddFlash(s *sessions.Session, messages []string, flashT FlashType) {
	if len(messages) == 0 {
		return
	}
	for i, message := range messages {
		if i > 6 {
			break
		}
		s.AddFlash(Flash{
			Message: message,
			Type:    flashT,
		})
	}
}

func sessLogSave(s *sessions.Session, w http.ResponseWriter, r *http.Request) {
	if err := s.Save(r, w); err != nil {
		log.Printf("error saving session: %v\n", err)
	}
}
