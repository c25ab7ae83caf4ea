package broker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"geotrace/internal/config"
	"geotrace/internal/logger"
	"geotrace/internal/service"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
)

const (
	listenerID    = "geotrace-tcp"
	ingestHookID  = "geotrace-ingest"
	ingestTimeout = 5 * time.Second
)

// Broker is an embedded MQTT server whose telemetry topic feeds the same
// ingestion path as POST /api/v1/data.
type Broker struct {
	server *mqtt.Server
	log    *logger.Logger
}

// New builds a broker listening on cfg.Address. It does not start serving.
func New(cfg config.MQTTConfig, ingest service.Ingestion, log *logger.Logger) (*Broker, error) {
	if log == nil {
		log = logger.NewNop()
	}
	server := mqtt.New(nil)

	// devices are not authenticated, matching the HTTP endpoint
	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("add auth hook: %w", err)
	}
	if err := server.AddHook(newIngestHook(cfg.Topic, ingest, log), nil); err != nil {
		return nil, fmt.Errorf("add ingest hook: %w", err)
	}

	tcp := listeners.NewTCP(listeners.Config{ID: listenerID, Address: cfg.Address})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("add tcp listener on %s: %w", cfg.Address, err)
	}
	return &Broker{server: server, log: log}, nil
}

// Serve starts the listeners and returns once they are accepting.
func (b *Broker) Serve() error {
	return b.server.Serve()
}

func (b *Broker) Close() error {
	return b.server.Close()
}

// ingestHook decodes publishes on topic and hands them to the ingestion service.
type ingestHook struct {
	mqtt.HookBase
	topic  string
	ingest service.Ingestion
	log    *logger.Logger
}

func newIngestHook(topic string, ingest service.Ingestion, log *logger.Logger) *ingestHook {
	if log == nil {
		log = logger.NewNop()
	}
	return &ingestHook{topic: topic, ingest: ingest, log: log}
}

func (h *ingestHook) ID() string {
	return ingestHookID
}

func (h *ingestHook) Provides(b byte) bool {
	return bytes.Contains([]byte{
		mqtt.OnConnect,
		mqtt.OnPublish,
	}, []byte{b})
}

func (h *ingestHook) OnConnect(cl *mqtt.Client, pk packets.Packet) error {
	h.log.Infow("mqtt_client_connected", "client_id", clientID(cl))
	return nil
}

// OnPublish never rejects the packet: an unusable payload is logged and dropped.
func (h *ingestHook) OnPublish(cl *mqtt.Client, pk packets.Packet) (packets.Packet, error) {
	if pk.TopicName != h.topic {
		return pk, nil
	}

	rec, err := service.DecodeRecord(bytes.NewReader(pk.Payload))
	if err != nil {
		h.log.Warnw("mqtt_payload_rejected", "client_id", clientID(cl), "topic", pk.TopicName, "err", err)
		return pk, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	if _, err := h.ingest.Ingest(ctx, rec); err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			h.log.Warnw("mqtt_record_invalid", "client_id", clientID(cl), "missing", verr.Missing, "invalid", verr.Invalid)
		} else {
			h.log.Errorw("mqtt_record_save_failed", "client_id", clientID(cl), "err", err)
		}
	}
	return pk, nil
}

func clientID(cl *mqtt.Client) string {
	if cl == nil {
		return ""
	}
	return cl.ID
}
