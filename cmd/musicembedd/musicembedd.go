// Command musicembedd polls a local MPD instance and reports the current
// track to a musicembed server. It posts on a fixed interval and leaves
// pause detection to the server, which infers it from repeated positions.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/peterbourgon/ff"

	musicembed "github.com/Tricked-dev/musicembed-spotify"
	"github.com/Tricked-dev/musicembed-spotify/playback"
)

func main() {
	set := flag.NewFlagSet(musicembed.Name+"d", flag.ExitOnError)
	confServerURL := set.String("server-url", "", "base url of the musicembed server, eg https://embed.example.com")
	confToken := set.String("token", "", "account token to submit with")
	confMPDNetwork := set.String("mpd-network", "tcp", "network to reach mpd over, tcp or unix (optional)")
	confMPDAddr := set.String("mpd-addr", "localhost:6600", "address of the mpd server (optional)")
	confIntervalSecs := set.Int("interval", 5, "seconds between reports (optional)")
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

	if *confServerURL == "" {
		log.Fatalf("please provide a server url")
	}
	if *confToken == "" {
		log.Fatalf("please provide a token")
	}

	reporter := &reporter{
		serverURL:  *confServerURL,
		token:      *confToken,
		mpdNetwork: *confMPDNetwork,
		mpdAddr:    *confMPDAddr,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	log.Printf("starting musicembedd v%s\n", musicembed.Version)

	ticker := time.NewTicker(time.Duration(*confIntervalSecs) * time.Second)
	for ; true; <-ticker.C {
		if err := reporter.tick(); err != nil {
			if !reporter.errored {
				log.Printf("error reporting: %v", err)
			}
			reporter.errored = true
			continue
		}
		if reporter.errored {
			log.Printf("recovered")
		}
		reporter.errored = false
	}
}

type reporter struct {
	serverURL  string
	token      string
	mpdNetwork string
	mpdAddr    string
	httpClient *http.Client
	client     *mpd.Client

	// errored squashes repeated log lines while the server or mpd is down
	errored bool
}

func (r *reporter) tick() error {
	if r.client == nil {
		client, err := mpd.Dial(r.mpdNetwork, r.mpdAddr)
		if err != nil {
			return fmt.Errorf("dial mpd: %w", err)
		}
		r.client = client
	}
	status, err := r.client.Status()
	if err != nil {
		r.client.Close()
		r.client = nil
		return fmt.Errorf("mpd status: %w", err)
	}
	if status["state"] == "stop" {
		return nil
	}
	song, err := r.client.CurrentSong()
	if err != nil {
		r.client.Close()
		r.client = nil
		return fmt.Errorf("mpd current song: %w", err)
	}

	report := playback.Report{
		Title:  song["Title"],
		Artist: song["Artist"],
		Duration: playback.Interval{
			At:  int(parseSeconds(status["elapsed"])),
			End: int(parseSeconds(status["duration"])),
		},
	}
	if report.Title == "" {
		report.Title = song["file"]
	}
	return r.submit(report)
}

func (r *reporter) submit(report playback.Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, r.serverURL+"/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("token", r.token)
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit report: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("submit report: status %d", resp.StatusCode)
	}
	return nil
}

func parseSeconds(in string) float64 {
	secs, err := strconv.ParseFloat(in, 64)
	if err != nil {
		return 0
	}
	return secs
}
