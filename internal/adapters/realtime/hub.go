package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mind-reader-backend/internal/domain"
	"mind-reader-backend/internal/infra/metrics"
)

const writeTimeout = 10 * time.Second

// Hub — реестр websocket-подключений, сгруппированных по пользователю.
// Создаётся явно и завершается на остановке процесса: глобального
// состояния уровня пакета нет.
type Hub struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*websocket.Conn]struct{}
}

// NewHub создаёт пустой реестр.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		rooms: make(map[uuid.UUID]map[*websocket.Conn]struct{}),
	}
}

// Join апгрейдит запрос и держит соединение до закрытия клиентом.
func (h *Hub) Join(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	h.add(userID, conn)
	metrics.RealtimeConnections.Inc()
	h.log.Debug().Str("user_id", userID.String()).Msg("realtime: клиент подключился")

	go func() {
		defer func() {
			h.remove(userID, conn)
			metrics.RealtimeConnections.Dec()
			_ = conn.Close()
			h.log.Debug().Str("user_id", userID.String()).Msg("realtime: клиент отключился")
		}()
		// Входящие сообщения не используются, читаем только ради
		// обнаружения закрытия.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return nil
}

func (h *Hub) add(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[userID]
	if !ok {
		room = make(map[*websocket.Conn]struct{})
		h.rooms[userID] = room
	}
	room[conn] = struct{}{}
}

func (h *Hub) remove(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[userID]; ok {
		delete(room, conn)
		if len(room) == 0 {
			delete(h.rooms, userID)
		}
	}
}

type wireEvent struct {
	Name    string         `json:"name"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Publish реализует domain.RealtimePublisher для локальных подключений.
func (h *Hub) Publish(ctx context.Context, event domain.RealtimeEvent) error {
	data, err := json.Marshal(wireEvent{Name: event.Name, Payload: event.Payload})
	if err != nil {
		return err
	}
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[event.UserID]))
	for conn := range h.rooms[event.UserID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Warn().Err(err).Msg("realtime: не удалось отправить событие")
		}
	}
	return nil
}

// Shutdown закрывает все подключения.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, room := range h.rooms {
		for conn := range room {
			_ = conn.Close()
		}
		delete(h.rooms, userID)
	}
}
