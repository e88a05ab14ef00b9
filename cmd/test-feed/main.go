// Command test-feed plays the authoritative backend for local development.
//
// It holds an in-memory live match and standings table, answers snapshot
// requests, acknowledges editor writes by echoing them back as pushes, and
// can optionally simulate a running match so the board has something to show.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/okian/rallyboard/internal/adapters/remote"
	"github.com/okian/rallyboard/internal/domain/model"
	"github.com/okian/rallyboard/pkg/logger"
)

// Default configuration constants.
const (
	defaultNATSURL  = "nats://127.0.0.1:4222"
	defaultPrefix   = "scoreboard"
	defaultInterval = 3 * time.Second
)

// feed is the simulated backend state.
type feed struct {
	mu        sync.Mutex
	nc        *nats.Conn
	prefix    string
	live      *model.LiveMatch
	standings *model.GroupStandings
	log       logger.Logger
}

func main() {
	var (
		natsURL  = flag.String("nats", defaultNATSURL, "NATS server URL")
		prefix   = flag.String("prefix", defaultPrefix, "Subject prefix for all subjects")
		simulate = flag.Bool("simulate", false, "Simulate a running match")
		interval = flag.Duration("interval", defaultInterval, "Delay between simulated score changes")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get().Named("test-feed")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nc, err := nats.Connect(*natsURL, nats.MaxReconnects(-1))
	if err != nil {
		log.Error(ctx, "failed to connect", logger.Error(err))
		return
	}
	defer nc.Close()

	f := &feed{
		nc:     nc,
		prefix: *prefix,
		standings: &model.GroupStandings{
			GroupA: []model.TeamStanding{},
			GroupB: []model.TeamStanding{},
		},
		log: log,
	}

	var subs []*nats.Subscription
	for _, route := range []struct {
		subject string
		handler nats.MsgHandler
	}{
		{f.subject("snapshot"), f.handleSnapshot},
		{f.subject("write.live_match"), f.handleWriteLive},
		{f.subject("write.standings"), f.handleWriteStandings},
	} {
		sub, err := nc.Subscribe(route.subject, route.handler)
		if err != nil {
			log.Error(ctx, "subscribe failed", logger.String("subject", route.subject), logger.Error(err))
			return
		}
		subs = append(subs, sub)
	}
	defer func() {
		for _, sub := range subs {
			_ = sub.Unsubscribe()
		}
	}()

	log.Info(ctx, "test feed running",
		logger.String("nats", *natsURL),
		logger.String("prefix", *prefix),
	)

	if *simulate {
		go f.simulateMatch(ctx, *interval)
	}

	<-ctx.Done()
	log.Info(ctx, "test feed stopped")
}

func (f *feed) subject(suffix string) string {
	return f.prefix + "." + suffix
}

// handleSnapshot replies with the full current state.
func (f *feed) handleSnapshot(msg *nats.Msg) {
	f.mu.Lock()
	payload := remote.SnapshotPayload{}
	live := remote.EncodeLiveMatch(f.live)
	payload.LiveMatch = &live
	if f.standings != nil {
		payload.Standings = remote.EncodeStandings(f.standings.GroupA, f.standings.GroupB)
	}
	f.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = msg.Respond(data)
}

// handleWriteLive accepts a live-match write and echoes it as a push.
func (f *feed) handleWriteLive(msg *nats.Msg) {
	var row *remote.LiveMatchRow
	if err := json.Unmarshal(msg.Data, &row); err != nil {
		_ = msg.Respond([]byte(`{"error":"bad payload"}`))
		return
	}
	f.mu.Lock()
	f.live = remote.DecodeLiveMatch(row)
	f.mu.Unlock()

	_ = msg.Respond([]byte(`{"status":"ok"}`))
	f.pushLive()
}

// handleWriteStandings accepts a replace-all standings write.
func (f *feed) handleWriteStandings(msg *nats.Msg) {
	var rows []remote.StandingRow
	if err := json.Unmarshal(msg.Data, &rows); err != nil {
		_ = msg.Respond([]byte(`{"error":"bad payload"}`))
		return
	}
	standings, err := remote.DecodeStandings(rows)
	if err != nil {
		_ = msg.Respond([]byte(`{"error":"bad rows"}`))
		return
	}
	f.mu.Lock()
	f.standings = standings
	f.mu.Unlock()

	_ = msg.Respond([]byte(`{"status":"ok"}`))
	f.pushStandings()
}

func (f *feed) pushLive() {
	f.mu.Lock()
	row := remote.EncodeLiveMatch(f.live)
	f.mu.Unlock()
	data, err := json.Marshal(row)
	if err != nil {
		return
	}
	_ = f.nc.Publish(f.subject("live_match"), data)
}

func (f *feed) pushStandings() {
	f.mu.Lock()
	var rows []remote.StandingRow
	if f.standings != nil {
		rows = remote.EncodeStandings(f.standings.GroupA, f.standings.GroupB)
	}
	f.mu.Unlock()
	data, err := json.Marshal(rows)
	if err != nil {
		return
	}
	_ = f.nc.Publish(f.subject("standings"), data)
}

// simulateMatch starts a match and keeps rallying until the context ends.
func (f *feed) simulateMatch(ctx context.Context, interval time.Duration) {
	f.mu.Lock()
	f.live = &model.LiveMatch{
		MatchNo:   1,
		Team1:     "Kanthapuram",
		Team2:     "Kizhisseri",
		Status:    "live",
		MatchType: model.MatchTypeGroupStage,
	}
	f.mu.Unlock()
	f.pushLive()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.mu.Lock()
			if f.live == nil {
				f.mu.Unlock()
				return
			}
			if rand.Intn(2) == 0 {
				f.live.Team1CurrentPoints++
			} else {
				f.live.Team2CurrentPoints++
			}
			f.mu.Unlock()
			f.pushLive()
		}
	}
}
