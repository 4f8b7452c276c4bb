// Package broker publishes sensor reports to an MQTT broker and receives
// switch commands for the node.
package broker

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const DefaultTimeout = 5 * time.Second

var ErrTimeout = errors.New("timed out")

// Report is the message published on the out topic.
type Report struct {
	Temp    float64 `json:"temp"`
	Hum     float64 `json:"hum"`
	Motion  bool    `json:"motion"`
	Error   string  `json:"error"`
	Version string  `json:"version"`
}

type Config struct {
	URL      string
	Name     string // client id and topic prefix
	Username string
	Password string
	Timeout  time.Duration
}

// Broker is safe for concurrent use.
type Broker struct {
	client  mqtt.Client
	name    string
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	onSwitch func(on bool)
}

// Dial connects to cfg.URL. The client reconnects on its own and subscribes
// again after every reconnect.
func Dial(cfg Config, logger *slog.Logger) (*Broker, error) {
	b := newBroker(cfg.Name, cfg.Timeout, logger)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(cfg.Name).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetConnectTimeout(b.timeout).
		SetAutoReconnect(true).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			b.logger.Warn("connection lost", slog.Any("err", err))
		})

	b.client = mqtt.NewClient(opts)
	if err := b.wait(b.client.Connect(), "connect"); err != nil {
		return nil, err
	}
	return b, nil
}

// New wraps an already configured client.
func New(client mqtt.Client, name string, timeout time.Duration, logger *slog.Logger) *Broker {
	b := newBroker(name, timeout, logger)
	b.client = client
	return b
}

func newBroker(name string, timeout time.Duration, logger *slog.Logger) *Broker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Broker{name: name, timeout: timeout, logger: logger}
}

func (b *Broker) OutTopic() string {
	return b.name + "_out"
}

func (b *Broker) InTopic() string {
	return b.name + "_in"
}

func (b *Broker) wait(tok mqtt.Token, op string) error {
	if !tok.WaitTimeout(b.timeout) {
		return fmt.Errorf("mqtt %s: %w", op, ErrTimeout)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt %s: %w", op, err)
	}
	return nil
}

// PublishReport queues r on the out topic and returns without waiting for
// delivery. Delivery failures are logged.
func (b *Broker) PublishReport(r Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	tok := b.client.Publish(b.OutTopic(), 0, false, payload)
	go func() {
		if err := b.wait(tok, "publish"); err != nil {
			b.logger.Warn("report dropped", slog.Any("err", err))
		}
	}()
	return nil
}

// ParseSwitch reports whether payload asks for the switch to be on: a
// leading '1'.
func ParseSwitch(payload []byte) bool {
	return len(payload) > 0 && payload[0] == '1'
}

// SubscribeSwitch calls fn for every command on the in topic. fn runs on the
// client's goroutine and must not block.
func (b *Broker) SubscribeSwitch(fn func(on bool)) error {
	b.mu.Lock()
	b.onSwitch = fn
	b.mu.Unlock()
	return b.subscribe(b.client)
}

func (b *Broker) subscribe(c mqtt.Client) error {
	return b.wait(c.Subscribe(b.InTopic(), 0, b.handle), "subscribe")
}

func (b *Broker) handle(_ mqtt.Client, m mqtt.Message) {
	on := ParseSwitch(m.Payload())
	b.logger.Info("message arrived",
		slog.String("topic", m.Topic()),
		slog.String("payload", string(m.Payload())),
		slog.Bool("on", on),
	)

	b.mu.Lock()
	fn := b.onSwitch
	b.mu.Unlock()
	if fn != nil {
		fn(on)
	}
}

func (b *Broker) onConnect(c mqtt.Client) {
	b.logger.Info("connected", slog.String("client", b.name))

	b.mu.Lock()
	subscribed := b.onSwitch != nil
	b.mu.Unlock()
	if !subscribed {
		return
	}
	// The handler must not block on the client, so resubscribe aside.
	go func() {
		if err := b.subscribe(c); err != nil {
			b.logger.Error("resubscribe", slog.Any("err", err))
		}
	}()
}

// Close unsubscribes and disconnects, waiting up to 250ms for in-flight work.
func (b *Broker) Close() error {
	var err error
	if b.client.IsConnectionOpen() {
		b.mu.Lock()
		subscribed := b.onSwitch != nil
		b.mu.Unlock()
		if subscribed {
			err = b.wait(b.client.Unsubscribe(b.InTopic()), "unsubscribe")
		}
	}
	b.client.Disconnect(250)
	return err
}
