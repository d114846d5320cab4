package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/voxelmesh/internal/logging"
	"github.com/nats-io/nats.go"
)

// NATSInvalidator рассылает ключи изменённых чанков между узлами через NATS.
// Каждое сообщение несёт номер узла-источника и порядковый номер, поэтому
// повторная доставка одного сообщения отбрасывается, а повторная правка
// того же чанка доходит всегда.
type NATSInvalidator struct {
	conn    *nats.Conn
	config  *InvalidatorConfig
	subject string
	nodeID  string
	log     *logging.Logger

	seq atomic.Uint64

	subMu        sync.Mutex
	subscription *nats.Subscription
	handler      InvalidationHandler

	stopCh chan struct{}
	wg     sync.WaitGroup

	// origin ("узел/seq") -> время получения
	seenMu sync.Mutex
	seen   map[string]time.Time

	publishedCount atomic.Int64
	receivedCount  atomic.Int64
	errorsCount    atomic.Int64
}

// InvalidatorConfig — настройки NATS invalidator
type InvalidatorConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`

	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`

	// Сколько помнить полученные сообщения
	DedupeWindow time.Duration `yaml:"dedupe_window"`
}

// InvalidationMessage — сообщение об изменении чанка
type InvalidationMessage struct {
	Key       string    `json:"key"` // ключ чанка x:y:z
	NodeID    string    `json:"node_id"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}

func (m InvalidationMessage) origin() string {
	return fmt.Sprintf("%s/%d", m.NodeID, m.Seq)
}

// NewNATSInvalidator подключается к NATS. nodeID должен быть уникален для процесса.
func NewNATSInvalidator(config *InvalidatorConfig, nodeID string) (*NATSInvalidator, error) {
	if config.Subject == "" {
		config.Subject = "voxelmesh.chunks.invalidate"
	}
	if config.MaxReconnects == 0 {
		config.MaxReconnects = 10
	}
	if config.ReconnectWait == 0 {
		config.ReconnectWait = 2 * time.Second
	}
	if config.DedupeWindow == 0 {
		config.DedupeWindow = 30 * time.Second
	}

	log := logging.GetCacheLogger()
	conn, err := nats.Connect(config.NATSURL,
		nats.Name("voxelmesh-invalidator-"+nodeID),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("NATS отключён: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS переподключён к %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("подключение к NATS %s: %w", config.NATSURL, err)
	}

	n := &NATSInvalidator{
		conn:    conn,
		config:  config,
		subject: config.Subject,
		nodeID:  nodeID,
		log:     log,
		stopCh:  make(chan struct{}),
		seen:    make(map[string]time.Time),
	}
	n.startSeenCleanup()

	log.Info("📣 Инвалидация чанков через %s (subject %s, узел %s)", config.NATSURL, config.Subject, nodeID)
	return n, nil
}

// PublishInvalidation сообщает другим узлам, что чанк key изменился
func (n *NATSInvalidator) PublishInvalidation(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(InvalidationMessage{
		Key:       key,
		NodeID:    n.nodeID,
		Seq:       n.seq.Add(1),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		n.errorsCount.Add(1)
		return fmt.Errorf("сериализация инвалидации: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		n.errorsCount.Add(1)
		return fmt.Errorf("публикация инвалидации %s: %w", key, err)
	}
	n.publishedCount.Add(1)
	n.log.Debug("→ инвалидация %s", key)
	return nil
}

// SubscribeInvalidations вызывает handler для каждого чужого изменения.
// Подписка снимается по ctx или Close.
func (n *NATSInvalidator) SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	if n.subscription != nil {
		return fmt.Errorf("подписка на инвалидации уже есть")
	}

	n.handler = handler
	sub, err := n.conn.Subscribe(n.subject, n.handleInvalidationMessage)
	if err != nil {
		return fmt.Errorf("подписка на %s: %w", n.subject, err)
	}
	n.subscription = sub

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		select {
		case <-ctx.Done():
		case <-n.stopCh:
		}
		n.unsubscribe()
	}()
	return nil
}

// Close снимает подписку и закрывает соединение
func (n *NATSInvalidator) Close() error {
	close(n.stopCh)
	n.wg.Wait()
	n.unsubscribe()
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}

// InvalidatorStats — счётчики invalidator-а
type InvalidatorStats struct {
	Published int64 `json:"published"`
	Received  int64 `json:"received"`
	Errors    int64 `json:"errors"`
	Connected bool  `json:"connected"`
}

// Stats возвращает счётчики
func (n *NATSInvalidator) Stats() InvalidatorStats {
	return InvalidatorStats{
		Published: n.publishedCount.Load(),
		Received:  n.receivedCount.Load(),
		Errors:    n.errorsCount.Load(),
		Connected: n.conn != nil && n.conn.IsConnected(),
	}
}

func (n *NATSInvalidator) handleInvalidationMessage(msg *nats.Msg) {
	n.receivedCount.Add(1)

	var m InvalidationMessage
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		n.errorsCount.Add(1)
		n.log.Warn("Повреждённое сообщение инвалидации: %v", err)
		return
	}
	if m.NodeID == n.nodeID {
		return
	}
	if !n.markSeen(m.origin()) {
		n.log.Debug("Повтор инвалидации %s от %s", m.Key, m.origin())
		return
	}

	if n.handler == nil {
		return
	}
	if err := n.handler(m.Key); err != nil {
		n.errorsCount.Add(1)
		n.log.Error("Обработка инвалидации %s: %v", m.Key, err)
	}
}

// markSeen запоминает origin; false если он уже встречался
func (n *NATSInvalidator) markSeen(origin string) bool {
	n.seenMu.Lock()
	defer n.seenMu.Unlock()
	if _, ok := n.seen[origin]; ok {
		return false
	}
	n.seen[origin] = time.Now()
	return true
}

func (n *NATSInvalidator) unsubscribe() {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	if n.subscription == nil {
		return
	}
	if err := n.subscription.Unsubscribe(); err != nil {
		n.log.Warn("Отписка от инвалидаций: %v", err)
	}
	n.subscription = nil
}

func (n *NATSInvalidator) startSeenCleanup() {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ticker := time.NewTicker(n.config.DedupeWindow)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n.forgetSeen(time.Now().Add(-n.config.DedupeWindow))
			case <-n.stopCh:
				return
			}
		}
	}()
}

// forgetSeen удаляет записи старше before
func (n *NATSInvalidator) forgetSeen(before time.Time) {
	n.seenMu.Lock()
	defer n.seenMu.Unlock()
	for origin, at := range n.seen {
		if at.Before(before) {
			delete(n.seen, origin)
		}
	}
}
