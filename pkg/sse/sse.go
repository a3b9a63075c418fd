// Package sse streams server-sent events. A Broker fans each broadcast out
// to every connected client; slow clients miss messages instead of blocking
// the sender.
//
//	b := sse.NewBroker("catalog.changed")
//	r.Handle("/api/catalog/events", "catalog.events", b)
//	b.Broadcast([]byte(`{"entity":"category","action":"created"}`))
package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/anfisaforfriends/anfisa/pkg/logger"
)

const (
	clientBuffer = 16
	heartbeat    = 25 * time.Second
)

// Stream writes events to one client.
type Stream struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// NewStream sets the event-stream headers. It returns nil and answers 500
// when w cannot flush. Middleware writers are unwrapped through
// http.ResponseController.
func NewStream(w http.ResponseWriter) *Stream {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		h.Del("Content-Type")
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return nil
	}
	return &Stream{w: w, rc: rc}
}

// Send writes one event. data must not contain newlines; JSON from
// encoding/json never does.
func (s *Stream) Send(event string, data []byte) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return s.rc.Flush()
}

// Comment writes a comment line; clients ignore it.
func (s *Stream) Comment(msg string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", msg); err != nil {
		return err
	}
	return s.rc.Flush()
}

type Broker struct {
	event string

	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

// NewBroker returns a broker that labels every message with event.
func NewBroker(event string) *Broker {
	return &Broker{event: event, clients: map[chan []byte]struct{}{}}
}

// Broadcast queues msg for every client and reports whether anyone was
// listening.
func (b *Broker) Broadcast(msg []byte) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.clients {
		select {
		case ch <- msg:
		default:
			logger.Debug("sse: client lagging, message dropped")
		}
	}
	return len(b.clients) > 0
}

func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broker) subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.clients, ch)
	b.mu.Unlock()
}

// ServeHTTP holds the connection open until the client goes away.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stream := NewStream(w)
	if stream == nil {
		return
	}
	ch := b.subscribe()
	defer b.unsubscribe(ch)

	tick := time.NewTicker(heartbeat)
	defer tick.Stop()

	for {
		var err error
		select {
		case <-r.Context().Done():
			return
		case msg := <-ch:
			err = stream.Send(b.event, msg)
		case <-tick.C:
			err = stream.Comment("ping")
		}
		if err != nil {
			logger.WithCtx(r.Context()).Debug("sse: client gone", "error", err)
			return
		}
	}
}
