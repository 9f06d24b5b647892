package stats

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

type Counter interface {
	Count(ctx context.Context) (int64, error)
}

type Snapshot struct {
	TotalBooks   int64 `json:"total_books"`
	TotalReviews int64 `json:"total_reviews"`
}

// Conn is the part of *websocket.Conn the broadcast loop writes to.
type Conn interface {
	SetWriteDeadline(t time.Time) error
	WriteJSON(v interface{}) error
}

type Broadcaster struct {
	books    Counter
	reviews  Counter
	interval time.Duration
}

func NewBroadcaster(books, reviews Counter, interval time.Duration) *Broadcaster {
	return &Broadcaster{books: books, reviews: reviews, interval: interval}
}

// Snapshot reads both totals fresh from the store.
func (b *Broadcaster) Snapshot(ctx context.Context) (Snapshot, error) {
	books, err := b.books.Count(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	reviews, err := b.reviews.Count(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{TotalBooks: books, TotalReviews: reviews}, nil
}

// Run pushes a snapshot to conn once per interval until ctx is done, which is
// reported as a nil error. Any read or write failure ends the loop.
func (b *Broadcaster) Run(ctx context.Context, conn Conn) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for ctx.Err() == nil {
		snap, err := b.Snapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read stats: %w", err)
		}

		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		if err := conn.WriteJSON(snap); err != nil {
			return fmt.Errorf("write stats: %w", err)
		}

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
	return nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler upgrades the request to a websocket and streams snapshots until the
// client goes away. allowOrigin decides the handshake's Origin check; nil
// accepts every origin.
func Handler(b *Broadcaster, allowOrigin func(origin string) bool) gin.HandlerFunc {
	up := upgrader
	up.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return allowOrigin == nil || origin == "" || allowOrigin(origin)
	}

	return func(c *gin.Context) {
		ws, err := up.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[ws] upgrade failed: %v", err)
			return
		}
		defer ws.Close()

		id := uuid.NewString()
		log.Printf("[ws %s] client connected from %s", id, c.ClientIP())

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		// the client never sends anything useful, reading only detects close
		go func() {
			defer cancel()
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		if err := b.Run(ctx, ws); err != nil {
			log.Printf("[ws %s] stats loop stopped: %v", id, err)
			return
		}
		log.Printf("[ws %s] client disconnected", id)
	}
}
