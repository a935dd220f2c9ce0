// Package hub реализует широковещательную рассылку данных
// по WebSocket-соединениям. Подключения группируются по сессиям;
// общие подключения получают все события
package hub

import (
	"encoding/json"
	"log"
	"sync"
)

// Типы событий в кадрах рассылки
const (
	EventEEGData       = "eeg_data"
	EventAlert         = "alert"
	EventSessionStatus = "session_status"
)

// Envelope кадр рассылки
type Envelope struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Payload   interface{} `json:"payload"`
}

type message struct {
	sessionID string  // пустое значение - рассылка всем
	target    *Client // не nil - кадр только этому клиенту
	data      []byte
}

// Hub диспетчер WebSocket-подключений.
// Вся мутация состояния проходит через один цикл Run -
// обработчики никогда не трогают карты подключений напрямую
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	stop       chan struct{}
	done       chan struct{}

	sessions map[string]map[*Client]struct{}
	general  map[*Client]struct{}

	mu      sync.RWMutex
	clients int
}

// NewHub создает диспетчер
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		sessions:   make(map[string]map[*Client]struct{}),
		general:    make(map[*Client]struct{}),
	}
}

// Run запускает цикл диспетчера. Блокирует до Stop
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case m := <-h.broadcast:
			h.dispatch(m)
		case <-h.stop:
			for c := range h.general {
				close(c.send)
			}
			for _, set := range h.sessions {
				for c := range set {
					close(c.send)
				}
			}
			return
		}
	}
}

// Stop останавливает цикл и закрывает каналы клиентов
func (h *Hub) Stop() {
	close(h.stop)
	<-h.done
}

// Register добавляет клиента в диспетчер
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.stop:
	}
}

// Unregister убирает клиента из диспетчера
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stop:
	}
}

// BroadcastToSession рассылает событие подписчикам сессии
// и общим подключениям. Неблокирующая отправка: при переполнении
// очереди диспетчера событие отбрасывается, прием данных не ждет
func (h *Hub) BroadcastToSession(sessionID, event string, payload interface{}) {
	data, err := json.Marshal(Envelope{Type: event, SessionID: sessionID, Payload: payload})
	if err != nil {
		log.Printf("hub: failed to marshal %s event: %v", event, err)
		return
	}

	select {
	case h.broadcast <- message{sessionID: sessionID, data: data}:
	default:
	}
}

// BroadcastAll рассылает событие всем подключениям
func (h *Hub) BroadcastAll(event string, payload interface{}) {
	data, err := json.Marshal(Envelope{Type: event, Payload: payload})
	if err != nil {
		log.Printf("hub: failed to marshal %s event: %v", event, err)
		return
	}

	select {
	case h.broadcast <- message{data: data}:
	default:
	}
}

// Replay отправляет событие одному клиенту через цикл диспетчера.
// Используется для досылки последнего состояния новому подписчику
func (h *Hub) Replay(c *Client, event, sessionID string, payload interface{}) {
	data, err := json.Marshal(Envelope{Type: event, SessionID: sessionID, Payload: payload})
	if err != nil {
		log.Printf("hub: failed to marshal %s event: %v", event, err)
		return
	}

	select {
	case h.broadcast <- message{target: c, data: data}:
	default:
	}
}

// ClientCount возвращает число активных подключений
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients
}

func (h *Hub) add(c *Client) {
	if c.sessionID != "" {
		set, ok := h.sessions[c.sessionID]
		if !ok {
			set = make(map[*Client]struct{})
			h.sessions[c.sessionID] = set
		}
		set[c] = struct{}{}
	} else {
		h.general[c] = struct{}{}
	}

	h.mu.Lock()
	h.clients++
	h.mu.Unlock()
}

func (h *Hub) remove(c *Client) {
	var found bool
	if c.sessionID != "" {
		if set, ok := h.sessions[c.sessionID]; ok {
			if _, found = set[c]; found {
				delete(set, c)
				close(c.send)
			}
			if len(set) == 0 {
				delete(h.sessions, c.sessionID)
			}
		}
	} else {
		if _, found = h.general[c]; found {
			delete(h.general, c)
			close(c.send)
		}
	}

	if found {
		h.mu.Lock()
		h.clients--
		h.mu.Unlock()
	}
}

func (h *Hub) dispatch(m message) {
	if m.target != nil {
		// Клиент мог отвалиться, пока кадр ждал в очереди
		if h.registered(m.target) {
			h.send(m.target, m.data)
		}
		return
	}
	if m.sessionID != "" {
		for c := range h.sessions[m.sessionID] {
			h.send(c, m.data)
		}
	} else {
		for _, set := range h.sessions {
			for c := range set {
				h.send(c, m.data)
			}
		}
	}
	for c := range h.general {
		h.send(c, m.data)
	}
}

func (h *Hub) registered(c *Client) bool {
	if c.sessionID != "" {
		_, ok := h.sessions[c.sessionID][c]
		return ok
	}
	_, ok := h.general[c]
	return ok
}

// send передает кадр клиенту без блокировки.
// Медленный клиент отключается - рассылка никогда не ждет
func (h *Hub) send(c *Client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.remove(c)
	}
}
