package hub

import (
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait таймаут записи кадра клиенту
	writeWait = 10 * time.Second
	// pongWait таймаут ожидания pong от клиента
	pongWait = 60 * time.Second
	// pingPeriod период ping, меньше pongWait
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize входящие кадры от клиентов не нужны, лимит маленький
	maxMessageSize = 512
	// sendBufferSize очередь исходящих кадров клиента
	sendBufferSize = 64
)

// Client одно WebSocket-подключение
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// NewClient создает клиента. Пустой sessionID - общее подключение,
// получающее события всех сессий
func NewClient(conn *websocket.Conn, sessionID string) *Client {
	return &Client{
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		sessionID: sessionID,
	}
}

// SessionID возвращает сессию подключения
func (c *Client) SessionID() string {
	return c.sessionID
}

// Send возвращает канал исходящих кадров (для тестов)
func (c *Client) Send() <-chan []byte {
	return c.send
}

// WritePump перекачивает кадры из очереди в соединение.
// Запускается горутиной на каждое подключение
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Диспетчер закрыл очередь
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump вычитывает входящие кадры до закрытия соединения.
// Входящие данные игнорируются, цикл нужен для обработки
// close-кадров и pong
func (c *Client) ReadPump(h *Hub) {
	defer func() {
		h.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("hub: read error: %v", err)
			}
			return
		}
	}
}
