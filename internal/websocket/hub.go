package websocket

import (
	"encoding/json"
	"sync"

	"taskman/internal/models"

	"github.com/gofiber/websocket/v2"
)

// Client merepresentasikan satu koneksi WebSocket milik seorang user.
type Client struct {
	UserID int
	Conn   *websocket.Conn
	Mu     sync.Mutex
}

// Event adalah notifikasi perubahan task yang dikirim ke pemiliknya.
type Event struct {
	Action string      `json:"action"` // created, updated, deleted
	Task   models.Task `json:"task"`
}

// Hub mengelola koneksi WebSocket dan meneruskan event task
// hanya ke koneksi milik user yang bersangkutan.
type Hub struct {
	Clients    map[*Client]bool
	Events     chan Event
	Register   chan *Client
	Unregister chan *Client
}

// DefaultHub dipakai oleh handler task untuk mempublikasikan event.
var DefaultHub = NewHub()

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Events:     make(chan Event, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Publish mengirim event tanpa memblokir handler; event dibuang jika
// buffer penuh atau hub tidak berjalan (misalnya saat testing).
func Publish(action string, task models.Task) {
	select {
	case DefaultHub.Events <- Event{Action: action, Task: task}:
	default:
	}
}

// Run menjalankan loop Hub untuk mengelola register, unregister, dan event.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.Clients[client] = true
		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				client.Conn.Close()
			}
		case event := <-h.Events:
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			for client := range h.Clients {
				// Event task hanya dikirim ke pemilik task
				if client.UserID != event.Task.CreatedBy {
					continue
				}
				client.Mu.Lock()
				err := client.Conn.WriteMessage(websocket.TextMessage, payload)
				client.Mu.Unlock()
				if err != nil {
					delete(h.Clients, client)
					client.Conn.Close()
				}
			}
		}
	}
}
