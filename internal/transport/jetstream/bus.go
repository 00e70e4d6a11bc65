// Package jetstream carries pipeline events over NATS JetStream: one stream,
// one durable pull consumer per stage, explicit acknowledgement after
// successful handling and dead-letter subjects for poison messages.
package jetstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	njs "github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

// Config holds event bus settings.
type Config struct {
	URL        string
	Stream     string
	Prefix     string
	AckWait    time.Duration
	MaxDeliver int
	NakDelay   time.Duration
}

// Bus is a connected JetStream context bound to the pipeline stream.
type Bus struct {
	nc       *nats.Conn
	js       njs.JetStream
	cfg      Config
	subjects Subjects
	log      *zap.Logger
}

// Connect dials NATS and creates or updates the pipeline stream.
func Connect(ctx context.Context, cfg Config, log *zap.Logger) (*Bus, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("drastic"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := njs.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	b := &Bus{nc: nc, js: js, cfg: cfg, subjects: Subjects{Prefix: cfg.Prefix}, log: log}
	if err := b.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	return b, nil
}

func (b *Bus) ensureStream(ctx context.Context) error {
	_, err := b.js.CreateOrUpdateStream(ctx, njs.StreamConfig{
		Name:       b.cfg.Stream,
		Subjects:   []string{b.subjects.All()},
		Retention:  njs.LimitsPolicy,
		Storage:    njs.FileStorage,
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", b.cfg.Stream, err)
	}
	return nil
}

// Subjects returns the subject layout of the bus.
func (b *Bus) Subjects() Subjects { return b.subjects }

// Publish sends data to subject with a fresh message id for duplicate detection.
func (b *Bus) Publish(ctx context.Context, subject string, data []byte) error {
	return b.PublishMsg(ctx, &nats.Msg{Subject: subject, Data: data})
}

// PublishMsg sends a prepared message and waits for the stream acknowledgement.
func (b *Bus) PublishMsg(ctx context.Context, msg *nats.Msg) error {
	if _, err := b.js.PublishMsg(ctx, msg, njs.WithMsgID(uuid.NewString())); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return nil
}

// Consumer creates or updates the durable pull consumer of a stage.
func (b *Bus) Consumer(ctx context.Context, stage string) (njs.Consumer, error) {
	subject, err := b.subjects.ForStage(stage)
	if err != nil {
		return nil, err
	}
	name := "drastic-" + stage
	consumer, err := b.js.CreateOrUpdateConsumer(ctx, b.cfg.Stream, njs.ConsumerConfig{
		Name:          name,
		Durable:       name,
		FilterSubject: subject,
		AckPolicy:     njs.AckExplicitPolicy,
		AckWait:       b.cfg.AckWait,
		MaxDeliver:    b.cfg.MaxDeliver,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer %s: %w", name, err)
	}
	return consumer, nil
}

// Ping reports whether the connection is usable.
func (b *Bus) Ping(ctx context.Context) error {
	if b.nc.Status() != nats.CONNECTED {
		return fmt.Errorf("nats status %s", b.nc.Status())
	}
	if _, err := b.js.Stream(ctx, b.cfg.Stream); err != nil {
		if errors.Is(err, njs.ErrStreamNotFound) {
			return fmt.Errorf("stream %s missing: %w", b.cfg.Stream, err)
		}
		return fmt.Errorf("stream %s: %w", b.cfg.Stream, err)
	}
	return nil
}

// Close drains the connection.
func (b *Bus) Close() {
	if err := b.nc.Drain(); err != nil {
		b.log.Warn("nats drain failed", zap.Error(err))
		b.nc.Close()
	}
}
