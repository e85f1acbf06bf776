package rksync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Printf(format string, v ...interface{}) {}

func TestWatcherFollowsConnectivityStream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	send := make(chan Envelope, 4)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for env := range send {
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan bool, 16)
	w := NewWatcher(srv.URL, nopLogger{})
	w.reconnect = 10 * time.Millisecond
	go w.Run(ctx, func(online bool) { updates <- online })

	// A successful dial reports online.
	require.Equal(t, true, waitFor(t, updates))

	send <- Envelope{Type: EventConnectivity, Connected: false, Timestamp: time.Now().UnixMilli()}
	require.Equal(t, false, waitFor(t, updates))

	send <- Envelope{Type: "noise", Connected: true}
	send <- Envelope{Type: EventConnectivity, Connected: true}
	require.Equal(t, true, waitFor(t, updates))

	// Server side closing the stream reports offline.
	close(send)
	require.Equal(t, false, waitFor(t, updates))
}

func waitFor(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connectivity update")
		return false
	}
}
