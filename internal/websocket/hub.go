package websocket

import (
	"bytes"
	"sync"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"griffin/internal/metrics"
	"griffin/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Пул JSON-буферов: убирает аллокации при каждом Broadcast
var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

// Hub управляет всеми активными WebSocket соединениями
//
// Центральный менеджер рассылки: spread_update на каждый валидный тик,
// full_analysis после каждого прохода оркестратора. Медленные клиенты
// (переполненный канал отправки) отключаются, чтобы не тормозить
// остальных.
//
// Использование:
//  1. Создать hub: hub := NewHub(log)
//  2. Запустить в горутине: go hub.Run()
//  3. Рассылать: hub.BroadcastSpreadUpdate(...), hub.BroadcastFullAnalysis(...)
//  4. Остановить: hub.Stop()
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Broadcast канал для отправки сообщений всем клиентам
	broadcast chan []byte

	// Регистрация нового клиента
	register chan *Client

	// Отмена регистрации клиента
	unregister chan *Client

	// Закрывается в Stop - завершает Run и освобождает клиентов
	done chan struct{}

	stopOnce sync.Once

	// Сообщения, отброшенные из-за переполнения broadcast канала
	dropped atomic.Int64

	// Mutex для потокобезопасного доступа к clients
	mu sync.RWMutex

	log *zap.Logger
}

// NewHub создает новый Hub
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run запускает главный цикл Hub
//
// Должен запускаться в отдельной горутине: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			metrics.StreamClients.Set(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.StreamClients.Set(float64(total))
			h.log.Info("stream client connected", zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.StreamClients.Set(float64(total))
			h.log.Info("stream client disconnected", zap.Int("total", total))

		case message := <-h.broadcast:
			// Копируем список клиентов под коротким RLock и отправляем
			// без блокировки - register/unregister не ждут рассылку
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					// Клиент не успевает вычитывать - отключаем
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				total := len(h.clients)
				h.mu.Unlock()
				metrics.StreamClients.Set(float64(total))
				h.log.Warn("removed slow stream clients",
					zap.Int("removed", len(toRemove)),
					zap.Int("total", total),
				)
			}
		}
	}
}

// Stop останавливает цикл Hub и закрывает все соединения.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Broadcast сериализует сообщение и рассылает всем клиентам.
// Не блокируется: при переполненном канале сообщение отбрасывается.
func (h *Hub) Broadcast(message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	if err := json.NewEncoder(buf).Encode(message); err != nil {
		h.log.Error("broadcast message marshaling failed", zap.Error(err))
		jsonBufferPool.Put(buf)
		return
	}

	// Убираем trailing newline от Encode
	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}

	// Копируем данные - буфер вернётся в пул
	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)
	jsonBufferPool.Put(buf)

	h.BroadcastRaw(msgCopy)
}

// BroadcastRaw рассылает уже сериализованное сообщение.
func (h *Hub) BroadcastRaw(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	default:
		h.dropped.Add(1)
		metrics.StreamDropped.Inc()
	}
}

// BroadcastSpreadUpdate рассылает свежий спред пары (symbol, broker).
func (h *Hub) BroadcastSpreadUpdate(broker, symbol string, currentSpread float64) {
	h.Broadcast(NewSpreadUpdateMessage(broker, symbol, currentSpread))
}

// BroadcastFullAnalysis рассылает полный аналитический снапшот.
func (h *Hub) BroadcastFullAnalysis(snapshot models.AnalysisSnapshot) {
	h.Broadcast(NewFullAnalysisMessage(snapshot))
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// DroppedMessages возвращает количество отброшенных сообщений
func (h *Hub) DroppedMessages() int64 {
	return h.dropped.Load()
}
