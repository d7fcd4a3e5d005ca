// Package gateway is the websocket front of the engine: it authenticates
// clients, routes their commands into the session registry, fans engine
// events out to everyone watching a channel, and journals finished matches.
package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jmrtn/partybot/internal/history"
	"github.com/jmrtn/partybot/internal/session"
)

// Gateway owns the live websocket clients and their channel subscriptions.
type Gateway struct {
	Registry *session.Registry
	Logger   *logrus.Logger

	// JournalFn pushes a finished match to the historian queue. Nil
	// disables journaling (tests, journal-less deployments).
	JournalFn func(ctx context.Context, rec history.MatchRecord) error

	mu        sync.Mutex
	byChannel map[string]map[*client]struct{}
	byUser    map[string]map[*client]struct{}
	startedAt map[string]time.Time // channel -> game start, for match records
}

func New(reg *session.Registry, logger *logrus.Logger) *Gateway {
	return &Gateway{
		Registry:  reg,
		Logger:    logger,
		JournalFn: history.PublishMatch,
		byChannel: make(map[string]map[*client]struct{}),
		byUser:    make(map[string]map[*client]struct{}),
		startedAt: make(map[string]time.Time),
	}
}

// Emit implements the engine's broadcast hook: every client subscribed to
// the event's channel receives it. Called with the session lock held, so it
// must never call back into the session; it only enqueues.
func (g *Gateway) Emit(ev session.Event) {
	g.mu.Lock()
	subs := make([]*client, 0, len(g.byChannel[ev.ChannelID]))
	for c := range g.byChannel[ev.ChannelID] {
		subs = append(subs, c)
	}
	switch ev.Type {
	case session.EventGameStarted:
		g.startedAt[ev.ChannelID] = time.Now()
	case session.EventCleanup:
		delete(g.startedAt, ev.ChannelID)
	}
	g.mu.Unlock()

	for _, c := range subs {
		c.send(outbound{Op: "event", Event: &ev})
	}

	g.journalIfFinal(ev)
}

// EmitToPlayer delivers an event privately to every connection the user
// holds.
func (g *Gateway) EmitToPlayer(userID string, ev session.Event) {
	g.mu.Lock()
	conns := make([]*client, 0, len(g.byUser[userID]))
	for c := range g.byUser[userID] {
		conns = append(conns, c)
	}
	g.mu.Unlock()

	for _, c := range conns {
		c.send(outbound{Op: "event", Event: &ev})
	}
}

// journalIfFinal turns a terminal event into a match record on the
// historian queue. Lobby-phase closures carry no standings and are not
// journaled.
func (g *Gateway) journalIfFinal(ev session.Event) {
	if g.JournalFn == nil {
		return
	}
	if ev.Type != session.EventGameEnded && ev.Type != session.EventForceClosed {
		return
	}

	g.mu.Lock()
	started, wasStarted := g.startedAt[ev.ChannelID]
	g.mu.Unlock()
	if !wasStarted {
		return
	}

	outcome := "completed"
	if ev.Type == session.EventForceClosed {
		outcome = ev.Reason
	}

	rec := history.MatchRecord{
		MatchID:   uuid.New(),
		ChannelID: ev.ChannelID,
		GuildID:   ev.GuildID,
		Game:      ev.Game,
		Outcome:   outcome,
		Rounds:    ev.Round,
		StartedAt: started.UnixMilli(),
		EndedAt:   time.Now().UnixMilli(),
	}
	if standings, ok := ev.Payload["standings"].([]session.Standing); ok {
		for _, row := range standings {
			rec.Results = append(rec.Results, history.PlayerResult{
				UserID:      row.UserID,
				DisplayName: row.DisplayName,
				Score:       row.Score,
				Won:         row.UserID == ev.UserID && ev.Type == session.EventGameEnded,
			})
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.JournalFn(ctx, rec); err != nil {
		g.Logger.Warnf("failed to journal match for channel %s: %v", ev.ChannelID, err)
	}
}

func (g *Gateway) subscribe(c *client, channelID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.byChannel[channelID] == nil {
		g.byChannel[channelID] = make(map[*client]struct{})
	}
	g.byChannel[channelID][c] = struct{}{}
	c.channels[channelID] = struct{}{}
}

func (g *Gateway) register(c *client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.byUser[c.identity.UserID] == nil {
		g.byUser[c.identity.UserID] = make(map[*client]struct{})
	}
	g.byUser[c.identity.UserID][c] = struct{}{}
}

func (g *Gateway) unregister(c *client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for ch := range c.channels {
		delete(g.byChannel[ch], c)
		if len(g.byChannel[ch]) == 0 {
			delete(g.byChannel, ch)
		}
	}
	delete(g.byUser[c.identity.UserID], c)
	if len(g.byUser[c.identity.UserID]) == 0 {
		delete(g.byUser, c.identity.UserID)
	}
}
