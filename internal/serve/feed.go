package serve

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"heartguard/internal/predict"
)

// feed broadcasts every scored prediction to WebSocket subscribers. Slow or
// dead clients are dropped rather than allowed to stall the broadcaster.
type feed struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex
	events    chan predict.Result
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func newFeed() *feed {
	return &feed{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  make(map[*websocket.Conn]bool),
		events:   make(chan predict.Result, 100),
		done:     make(chan struct{}),
	}
}

func (f *feed) start() {
	f.startOnce.Do(func() {
		go f.broadcaster()
	})
}

func (f *feed) stop() {
	f.stopOnce.Do(func() {
		close(f.done)
		f.clientsMu.Lock()
		for c := range f.clients {
			c.Close()
		}
		f.clients = make(map[*websocket.Conn]bool)
		f.clientsMu.Unlock()
	})
}

// publish queues an event for broadcast; it never blocks the prediction
// path. If the queue is full the event is dropped.
func (f *feed) publish(res predict.Result) {
	select {
	case f.events <- res:
	default:
	}
}

func (f *feed) broadcaster() {
	for {
		select {
		case res := <-f.events:
			f.broadcast(res)
		case <-f.done:
			return
		}
	}
}

func (f *feed) broadcast(res predict.Result) {
	data, err := json.Marshal(res)
	if err != nil {
		log.Error().Err(err).Msg("feed: marshal event")
		return
	}

	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()
	for c := range f.clients {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug().Err(err).Msg("feed: dropping client")
			c.Close()
			delete(f.clients, c)
		}
	}
}

func (f *feed) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("feed: upgrade failed")
		return
	}

	f.clientsMu.Lock()
	f.clients[conn] = true
	f.clientsMu.Unlock()
	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("feed: client subscribed")

	// Reader loop exists only to detect disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				f.clientsMu.Lock()
				delete(f.clients, conn)
				f.clientsMu.Unlock()
				conn.Close()
				return
			}
		}
	}()
}
