package main

import (
	"expvar"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/jonboulle/clockwork"
	"github.com/oklog/run"
	"github.com/peterbourgon/ff"
	"github.com/sentriz/gormstore"

	musicembed "github.com/Tricked-dev/musicembed-spotify"
	"github.com/Tricked-dev/musicembed-spotify/badge"
	"github.com/Tricked-dev/musicembed-spotify/db"
	"github.com/Tricked-dev/musicembed-spotify/history"
	"github.com/Tricked-dev/musicembed-spotify/history/listenbrainz"
	"github.com/Tricked-dev/musicembed-spotify/playback"
	"github.com/Tricked-dev/musicembed-spotify/server/ctrladmin"
	"github.com/Tricked-dev/musicembed-spotify/server/ctrlbase"
	"github.com/Tricked-dev/musicembed-spotify/server/ctrlembed"
)

func main() {
	set := flag.NewFlagSet(musicembed.Name, flag.ExitOnError)
	confListenAddr := set.String("listen-addr", "0.0.0.0:4124", "listen address (optional)")

	confTLSCert := set.String("tls-cert", "", "path to TLS certificate (optional)")
	confTLSKey := set.String("tls-key", "", "path to TLS private key (optional)")

	confDBPath := set.String("db-path", "musicembed.db", "path to database (optional)")

	confIdleExpiryMins := set.Int("idle-expiry", 10, "minutes without a report before a playback session is dropped (optional)")
	confFallbackArtist := set.String("fallback-artist", "", "artist shown on badges for unknown users (optional)")

	confProxyPrefix := set.String("proxy-prefix", "", "url path prefix to use if behind proxy. eg '/embed' (optional)")
	confHTTPLog := set.Bool("http-log", true, "http request logging (optional)")

	confExpvar := set.Bool("expvar", false, "enable the /debug/vars endpoint (optional)")

	confShowVersion := set.Bool("version", false, "show musicembed version")
	_ = set.String("config-path", "", "path to config (optional)")

	if err := ff.Parse(set, os.Args[1:],
		ff.WithConfigFileFlag("config-path"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix(musicembed.NameUpper),
	); err != nil {
		log.Fatalf("error parsing args: %v\n", err)
	}

	if *confShowVersion {
		fmt.Printf("v%s\n", musicembed.Version)
		os.Exit(0)
	}

	proxyPrefixExpr := regexp.MustCompile(`^\/*(.*?)\/*$`)
	*confProxyPrefix = proxyPrefixExpr.ReplaceAllString(*confProxyPrefix, `/$1`)

	log.Printf("starting musicembed v%s\n", musicembed.Version)
	log.Printf("provided config\n")
	set.VisitAll(func(f *flag.Flag) {
		value := strings.ReplaceAll(f.Value.String(), "\n", "")
		log.Printf("    %-25s %s\n", f.Name, value)
	})

	dbc, err := db.New(*confDBPath)
	if err != nil {
		log.Fatalf("error opening database: %v\n", err)
	}
	defer dbc.Close()

	if err := dbc.Migrate(); err != nil {
		log.Panicf("error migrating database: %v\n", err)
	}

	sessKey, err := dbc.GetSetting(db.SessionKey)
	if err != nil {
		log.Panicf("error getting session key: %v\n", err)
	}
	if sessKey == "" {
		sessKey = string(securecookie.GenerateRandomKey(32))
		if err := dbc.SetSetting(db.SessionKey, sessKey); err != nil {
			log.Panicf("error setting session key: %v\n", err)
		}
	}
	sessDB := gormstore.New(dbc.DB, []byte(sessKey))
	sessDB.SessionOpts.HttpOnly = true
	sessDB.SessionOpts.SameSite = http.SameSiteLaxMode

	recorders := history.Recorders{
		history.NewDBRecorder(dbc),
		listenbrainz.NewRecorder(dbc),
	}
	fallbackName := func(userID string) string {
		if user := dbc.GetUserFromName(userID); user != nil {
			return user.Name
		}
		return *confFallbackArtist
	}
	sessions := playback.NewSessions(
		clockwork.NewRealClock(),
		time.Duration(*confIdleExpiryMins)*time.Minute,
		recorders,
		fallbackName,
	)

	renderer, err := badge.NewRenderer()
	if err != nil {
		log.Panicf("error loading badge styles: %v\n", err)
	}

	ctrlBase := &ctrlbase.Controller{
		DB:          dbc,
		ProxyPrefix: *confProxyPrefix,
	}
	ctrlAdmin, err := ctrladmin.New(ctrlBase, sessDB, renderer.Styles())
	if err != nil {
		log.Panicf("error creating admin controller: %v\n", err)
	}
	ctrlEmbed := &ctrlembed.Controller{
		Controller: ctrlBase,
		Sessions:   sessions,
		Renderer:   renderer,
	}

	mux := mux.NewRouter()
	ctrlbase.AddRoutes(ctrlBase, mux, *confHTTPLog)
	ctrladmin.AddRoutes(ctrlAdmin, mux.PathPrefix("/admin").Subrouter())
	ctrlembed.AddRoutes(ctrlEmbed, mux)

	if *confExpvar {
		mux.Handle("/debug/vars", expvar.Handler())
		expvar.Publish("stats", expvar.Func(func() any {
			var stats struct{ Users, Listens int }
			dbc.Model(db.User{}).Count(&stats.Users)
			dbc.Model(db.Listen{}).Count(&stats.Listens)
			return stats
		}))
	}

	noCleanup := func(_ error) {}

	var g run.Group
	g.Add(func() error {
		log.Print("starting job 'http'\n")
		server := &http.Server{
			Addr:              *confListenAddr,
			Handler:           mux,
			ReadTimeout:       5 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      80 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		if *confTLSCert != "" && *confTLSKey != "" {
			return server.ListenAndServeTLS(*confTLSCert, *confTLSKey)
		}
		return server.ListenAndServe()
	}, noCleanup)

	g.Add(func() error {
		log.Printf("starting job 'session clean'\n")
		ticker := time.NewTicker(10 * time.Minute)
		for range ticker.C {
			sessDB.Cleanup()
		}
		return nil
	}, noCleanup)

	if err := g.Run(); err != nil {
		log.Panicf("error in job: %v", err)
	}
}
