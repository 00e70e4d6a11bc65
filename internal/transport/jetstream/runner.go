package jetstream

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	njs "github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/logger"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/metrics"
)

// Dead-letter headers.
const (
	HeaderError         = "Drastic-Error"
	HeaderStage         = "Drastic-Stage"
	HeaderSourceSubject = "Drastic-Source-Subject"
	HeaderDeliveries    = "Drastic-Deliveries"
)

const fetchWait = 5 * time.Second

// Delivery is the part of a JetStream message a handler run needs.
// njs.Msg satisfies it.
type Delivery interface {
	Data() []byte
	Subject() string
	Headers() nats.Header
	Ack() error
	NakWithDelay(delay time.Duration) error
	Term() error
	Metadata() (*njs.MsgMetadata, error)
}

// Handler processes one message payload. Returning nil or an error wrapping
// domain.ErrSkipped acknowledges the message.
type Handler func(ctx context.Context, data []byte) error

// MsgPublisher publishes prepared messages.
type MsgPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg) error
}

// RunnerConfig configures a stage runner.
type RunnerConfig struct {
	Stage      string
	Workers    int
	MaxDeliver int
	NakDelay   time.Duration
	DeadLetter string
}

// Runner pulls messages for one stage and drives the handler with
// ack-after-success semantics.
type Runner struct {
	cfg     RunnerConfig
	handler Handler
	pub     MsgPublisher
	log     *zap.Logger

	processed  atomic.Int64
	retried    atomic.Int64
	deadLetter atomic.Int64
}

// NewRunner creates a runner. Workers below one are raised to one.
func NewRunner(cfg RunnerConfig, handler Handler, pub MsgPublisher, log *zap.Logger) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxDeliver < 1 {
		cfg.MaxDeliver = 1
	}
	return &Runner{cfg: cfg, handler: handler, pub: pub, log: log.With(zap.String("stage", cfg.Stage))}
}

// Run fetches from consumer until ctx is cancelled.
func (r *Runner) Run(ctx context.Context, consumer njs.Consumer) error {
	r.log.Info("stage started", zap.Int("workers", r.cfg.Workers))
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.cfg.Workers; i++ {
		worker := i
		g.Go(func() error {
			r.consume(gctx, consumer, worker)
			return nil
		})
	}
	err := g.Wait()
	r.log.Info("stage stopped",
		zap.Int64("processed", r.processed.Load()),
		zap.Int64("retried", r.retried.Load()),
		zap.Int64("dead_lettered", r.deadLetter.Load()),
	)
	return err
}

func (r *Runner) consume(ctx context.Context, consumer njs.Consumer, worker int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := consumer.Fetch(1, njs.FetchMaxWait(fetchWait))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Warn("fetch failed", zap.Int("worker", worker), zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		for msg := range msgs.Messages() {
			r.Handle(ctx, msg)
		}
		if err := msgs.Error(); err != nil && !errors.Is(err, njs.ErrNoMessages) && ctx.Err() == nil {
			r.log.Debug("fetch batch error", zap.Int("worker", worker), zap.Error(err))
		}
	}
}

// Handle runs the handler for one delivery and settles it.
func (r *Runner) Handle(ctx context.Context, d Delivery) {
	started := time.Now()
	ctx, log := logger.With(logger.ContextWithLogger(ctx, r.log), zap.String("subject", d.Subject()))

	err := r.handler(ctx, d.Data())
	switch {
	case err == nil:
		r.ack(log, d)
		metrics.ObserveStage(r.cfg.Stage, metrics.OutcomeOK, started)
	case errors.Is(err, domain.ErrSkipped):
		log.Debug("message skipped", zap.Error(err))
		r.ack(log, d)
		metrics.ObserveStage(r.cfg.Stage, metrics.OutcomeSkipped, started)
	case domain.IsPermanent(err):
		log.Warn("permanent failure", zap.Error(err))
		r.bury(ctx, log, d, err, deliveries(d))
		metrics.ObserveStage(r.cfg.Stage, metrics.OutcomeDeadLetter, started)
	default:
		n := deliveries(d)
		if n >= r.cfg.MaxDeliver {
			log.Error("retries exhausted", zap.Int("deliveries", n), zap.Error(err))
			r.bury(ctx, log, d, err, n)
			metrics.ObserveStage(r.cfg.Stage, metrics.OutcomeDeadLetter, started)
			return
		}
		log.Warn("transient failure, redelivering", zap.Int("deliveries", n), zap.Error(err))
		if nerr := d.NakWithDelay(r.cfg.NakDelay * time.Duration(n)); nerr != nil {
			log.Warn("nak failed", zap.Error(nerr))
		}
		r.retried.Add(1)
		metrics.ObserveStage(r.cfg.Stage, metrics.OutcomeRetry, started)
	}
}

func (r *Runner) ack(log *zap.Logger, d Delivery) {
	if err := d.Ack(); err != nil {
		log.Warn("ack failed", zap.Error(err))
		return
	}
	r.processed.Add(1)
}

// bury copies the message to the dead-letter subject and terminates it.
// If the copy cannot be published the message is left for redelivery.
func (r *Runner) bury(ctx context.Context, log *zap.Logger, d Delivery, cause error, n int) {
	msg := nats.NewMsg(r.cfg.DeadLetter)
	msg.Data = d.Data()
	msg.Header.Set(HeaderError, cause.Error())
	msg.Header.Set(HeaderStage, r.cfg.Stage)
	msg.Header.Set(HeaderSourceSubject, d.Subject())
	msg.Header.Set(HeaderDeliveries, strconv.Itoa(n))

	if err := r.pub.PublishMsg(context.WithoutCancel(ctx), msg); err != nil {
		log.Error("dead-letter publish failed", zap.Error(err))
		if nerr := d.NakWithDelay(r.cfg.NakDelay); nerr != nil {
			log.Warn("nak failed", zap.Error(nerr))
		}
		return
	}
	if err := d.Term(); err != nil {
		log.Warn("term failed", zap.Error(err))
	}
	r.deadLetter.Add(1)
}

func deliveries(d Delivery) int {
	meta, err := d.Metadata()
	if err != nil || meta == nil {
		return 1
	}
	return int(meta.NumDelivered)
}

// Stats returns processed, retried and dead-lettered counts.
func (r *Runner) Stats() (processed, retried, deadLettered int64) {
	return r.processed.Load(), r.retried.Load(), r.deadLetter.Load()
}

// String describes the runner for logs.
func (r *Runner) String() string {
	return fmt.Sprintf("runner(%s, workers=%d)", r.cfg.Stage, r.cfg.Workers)
}
