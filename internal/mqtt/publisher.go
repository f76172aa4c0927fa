package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"climate-tracker/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	qosAtLeastOnce = byte(1)
	publishTimeout = 5 * time.Second
)

var ErrNotConnected = errors.New("mqtt client not connected")

// Telemetry is the JSON payload published for every reading.
type Telemetry struct {
	StationID   string    `json:"station_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature_c"`
	Sequence    uint64    `json:"sequence"`
}

// StationHealth is published retained on the health topic. The broker
// publishes the Healthy=false variant as our last will.
type StationHealth struct {
	StationID string    `json:"station_id"`
	LastSeen  time.Time `json:"last_seen"`
	Healthy   bool      `json:"healthy"`
}

func TelemetryTopic(stationID string) string {
	return fmt.Sprintf("stations/%s/telemetry", stationID)
}

func HealthTopic(stationID string) string {
	return fmt.Sprintf("stations/%s/health", stationID)
}

type Publisher struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	now       func() time.Time
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(cfg config.Config, logger *slog.Logger) (*Publisher, error) {
	if cfg.MQTTBroker == "" {
		return nil, errors.New("mqtt broker not configured")
	}
	p := &Publisher{cfg: cfg, logger: logger, now: time.Now, stopCh: make(chan struct{})}

	will, err := json.Marshal(StationHealth{StationID: cfg.StationID, Healthy: false})
	if err != nil {
		return nil, fmt.Errorf("marshal will: %w", err)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)
	opts.SetBinaryWill(HealthTopic(cfg.StationID), will, qosAtLeastOnce, true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		// Handlers must not block the paho router.
		go func() {
			if err := p.PublishHealth(true); err != nil {
				logger.Warn("publish station health failed", "error", err)
			}
		}()
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	return p, nil
}

// Connect waits for the initial connection to the broker. It respects ctx
// and Disconnect; with connect-retry enabled, paho keeps trying in the
// background after ctx gives up.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return errors.New("publisher stopped")
	default:
	}
	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return errors.New("publisher stopped")
		default:
		}
	}
}

// PublishReading sends one reading to the station's telemetry topic. It stops
// waiting for the broker ack when ctx is done.
func (p *Publisher) PublishReading(ctx context.Context, stationID string, seq uint64, at time.Time, temperatureC float64) error {
	return p.publish(ctx, TelemetryTopic(stationID), false, Telemetry{
		StationID:   stationID,
		Timestamp:   at,
		Temperature: temperatureC,
		Sequence:    seq,
	})
}

// PublishHealth updates the retained station health message.
func (p *Publisher) PublishHealth(healthy bool) error {
	return p.publish(context.Background(), HealthTopic(p.cfg.StationID), true, StationHealth{
		StationID: p.cfg.StationID,
		LastSeen:  p.now().UTC(),
		Healthy:   healthy,
	})
}

func (p *Publisher) publish(ctx context.Context, topic string, retained bool, v any) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	token := p.client.Publish(topic, qosAtLeastOnce, retained, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	p.logger.Debug("mqtt published", "topic", topic, "bytes", len(data))
	return nil
}

func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect marks the station offline and closes the connection.
// Idempotent; after it returns Connect fails.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() {
		close(p.stopCh)

		if p.IsConnected() {
			if err := p.PublishHealth(false); err != nil {
				p.logger.Warn("publish offline health failed", "error", err)
			}
		}
		if p.client != nil {
			p.client.Disconnect(250)
		}
		p.setConnected(false)
		p.logger.Info("mqtt disconnected")
	})
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
