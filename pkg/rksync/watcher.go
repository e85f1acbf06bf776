package rksync

import (
	"context"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wurt83ow/rosterkeeper/pkg/logger"
)

// Envelope is the wire format of the remote connectivity stream.
type Envelope struct {
	Type      string `json:"type"`
	Connected bool   `json:"connected"`
	Timestamp int64  `json:"timestamp"`
}

// EventConnectivity is the only envelope type the watcher acts on.
const EventConnectivity = "connectivity"

// Watcher keeps a websocket open to the remote store's /ws endpoint and
// pushes connectivity updates into sink. The stream is independent of any
// individual request outcome: the remote may report connected while a
// particular write still fails.
type Watcher struct {
	wsURL     string
	log       logger.LoggerInterface
	reconnect time.Duration
}

func NewWatcher(serverURL string, log logger.LoggerInterface) *Watcher {
	wsURL := serverURL + "/ws"
	if strings.HasPrefix(wsURL, "https://") {
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	} else if strings.HasPrefix(wsURL, "http://") {
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}
	return &Watcher{
		wsURL:     wsURL,
		log:       log,
		reconnect: 5 * time.Second,
	}
}

// Run blocks until ctx is done, dialing and redialing the stream. A broken
// or unreachable stream reports offline until the next successful dial.
func (w *Watcher) Run(ctx context.Context, sink func(online bool)) {
	for {
		if ctx.Err() != nil {
			return
		}
		w.follow(ctx, sink)
		sink(false)
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.reconnect):
		}
	}
}

func (w *Watcher) follow(ctx context.Context, sink func(online bool)) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		w.log.Printf("rksync: connectivity dial %s: %v", w.wsURL, err)
		return
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	sink(true)
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() == nil {
				w.log.Printf("rksync: connectivity stream closed: %v", err)
			}
			return
		}
		if env.Type == EventConnectivity {
			sink(env.Connected)
		}
	}
}
