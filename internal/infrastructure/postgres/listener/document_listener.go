// Package listener follows inserts into the documents table through
// PostgreSQL LISTEN/NOTIFY.
package listener

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/lib/pq"
)

const (
	channelName       = "document_created"
	reconnectInterval = 5 * time.Second
	pingInterval      = 90 * time.Second
)

// Notification is the payload sent by the documents insert trigger.
type Notification struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

// Handler is called once per created document in the watched collection.
type Handler func(ctx context.Context, n Notification)

// DocumentListener dispatches insert notifications for one collection.
type DocumentListener struct {
	connStr    string
	collection string
	handle     Handler
	shutdownCh chan struct{}
	done       chan struct{}
}

func NewDocumentListener(connStr, collection string, handle Handler) *DocumentListener {
	return &DocumentListener{
		connStr:    connStr,
		collection: collection,
		handle:     handle,
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (l *DocumentListener) Start(ctx context.Context) {
	go l.listen(ctx)
	log.Printf("Document listener started for collection %s", l.collection)
}

func (l *DocumentListener) Stop() {
	close(l.shutdownCh)
	<-l.done
	log.Println("Document listener stopped")
}

func (l *DocumentListener) listen(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		default:
			l.connectAndListen(ctx)
		}

		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(reconnectInterval):
			log.Println("Reconnecting to PostgreSQL for document notifications...")
		}
	}
}

func (l *DocumentListener) connectAndListen(ctx context.Context) {
	pl := pq.NewListener(l.connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			log.Println("Connected to PostgreSQL notification channel")
		case pq.ListenerEventDisconnected:
			log.Printf("Disconnected from PostgreSQL notification channel: %v", err)
		case pq.ListenerEventReconnected:
			log.Println("Reconnected to PostgreSQL notification channel")
		case pq.ListenerEventConnectionAttemptFailed:
			log.Printf("Connection attempt failed: %v", err)
		}
	})
	defer pl.Close()

	if err := pl.Listen(channelName); err != nil {
		log.Printf("Failed to listen on channel %s: %v", channelName, err)
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case n := <-pl.Notify:
			if n == nil {
				// connection lost; reconnect
				return
			}
			l.dispatch(ctx, n.Extra)
		case <-ticker.C:
			if err := pl.Ping(); err != nil {
				log.Printf("Listener ping failed: %v", err)
			}
		}
	}
}

func (l *DocumentListener) dispatch(ctx context.Context, extra string) {
	n, ok := parseNotification(extra)
	if !ok || n.Collection != l.collection {
		return
	}
	l.handle(ctx, n)
}

func parseNotification(extra string) (Notification, bool) {
	var n Notification
	if err := json.Unmarshal([]byte(extra), &n); err != nil {
		log.Printf("Failed to parse notification payload: %v", err)
		return n, false
	}
	return n, n.ID != ""
}
