package jetstream

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	njs "github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
)

type fakeDelivery struct {
	data      []byte
	subject   string
	delivered uint64

	acked  bool
	termed bool
	naks   []time.Duration
}

func (f *fakeDelivery) Data() []byte         { return f.data }
func (f *fakeDelivery) Subject() string      { return f.subject }
func (f *fakeDelivery) Headers() nats.Header { return nats.Header{} }
func (f *fakeDelivery) Ack() error           { f.acked = true; return nil }
func (f *fakeDelivery) Term() error          { f.termed = true; return nil }
func (f *fakeDelivery) NakWithDelay(d time.Duration) error {
	f.naks = append(f.naks, d)
	return nil
}
func (f *fakeDelivery) Metadata() (*njs.MsgMetadata, error) {
	return &njs.MsgMetadata{NumDelivered: f.delivered}, nil
}

type fakePublisher struct {
	msgs []*nats.Msg
	err  error
}

func (p *fakePublisher) PublishMsg(_ context.Context, msg *nats.Msg) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func newTestRunner(h Handler, pub MsgPublisher) *Runner {
	return NewRunner(RunnerConfig{
		Stage:      StageRouter,
		MaxDeliver: 3,
		NakDelay:   time.Second,
		DeadLetter: "drastic.dead-letter.router",
	}, h, pub, zap.NewNop())
}

func TestHandle_SuccessAcks(t *testing.T) {
	var got []byte
	r := newTestRunner(func(_ context.Context, data []byte) error {
		got = data
		return nil
	}, &fakePublisher{})
	d := &fakeDelivery{data: []byte("payload"), subject: "drastic.objects", delivered: 1}

	r.Handle(context.Background(), d)

	assert.Equal(t, []byte("payload"), got)
	assert.True(t, d.acked)
	assert.False(t, d.termed)
	assert.Empty(t, d.naks)
	processed, _, _ := r.Stats()
	assert.EqualValues(t, 1, processed)
}

func TestHandle_SkippedAcks(t *testing.T) {
	r := newTestRunner(func(context.Context, []byte) error {
		return fmt.Errorf("root path: %w", domain.ErrSkipped)
	}, &fakePublisher{})
	d := &fakeDelivery{subject: "drastic.graph.changed", delivered: 1}

	r.Handle(context.Background(), d)

	assert.True(t, d.acked)
}

func TestHandle_PermanentDeadLetters(t *testing.T) {
	pub := &fakePublisher{}
	r := newTestRunner(func(context.Context, []byte) error {
		return fmt.Errorf("decode: %w", domain.ErrMalformedPayload)
	}, pub)
	d := &fakeDelivery{data: []byte("{"), subject: "drastic.objects", delivered: 1}

	r.Handle(context.Background(), d)

	assert.False(t, d.acked)
	assert.True(t, d.termed)
	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	assert.Equal(t, "drastic.dead-letter.router", msg.Subject)
	assert.Equal(t, []byte("{"), msg.Data)
	assert.Equal(t, StageRouter, msg.Header.Get(HeaderStage))
	assert.Equal(t, "drastic.objects", msg.Header.Get(HeaderSourceSubject))
	assert.Contains(t, msg.Header.Get(HeaderError), "malformed")
	assert.Equal(t, "1", msg.Header.Get(HeaderDeliveries))
}

func TestHandle_TransientNaksWithBackoff(t *testing.T) {
	pub := &fakePublisher{}
	r := newTestRunner(func(context.Context, []byte) error {
		return fmt.Errorf("sparql: %w", domain.ErrTransport)
	}, pub)
	d := &fakeDelivery{subject: "drastic.objects", delivered: 2}

	r.Handle(context.Background(), d)

	assert.False(t, d.acked)
	assert.False(t, d.termed)
	assert.Equal(t, []time.Duration{2 * time.Second}, d.naks)
	assert.Empty(t, pub.msgs)
}

func TestHandle_TransientExhaustedDeadLetters(t *testing.T) {
	pub := &fakePublisher{}
	r := newTestRunner(func(context.Context, []byte) error {
		return &domain.StatusError{Op: "POST", URL: "http://sparql", Status: 503}
	}, pub)
	d := &fakeDelivery{subject: "drastic.objects", delivered: 3}

	r.Handle(context.Background(), d)

	assert.True(t, d.termed)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "3", pub.msgs[0].Header.Get(HeaderDeliveries))
	_, _, dead := r.Stats()
	assert.EqualValues(t, 1, dead)
}

func TestHandle_DeadLetterPublishFailureNaks(t *testing.T) {
	pub := &fakePublisher{err: errors.New("no responders")}
	r := newTestRunner(func(context.Context, []byte) error {
		return domain.ErrNamingConvention
	}, pub)
	d := &fakeDelivery{subject: "drastic.paged-documents", delivered: 1}

	r.Handle(context.Background(), d)

	assert.False(t, d.termed)
	assert.Equal(t, []time.Duration{time.Second}, d.naks)
}

func TestSubjects(t *testing.T) {
	s := Subjects{Prefix: "drastic"}
	assert.Equal(t, "drastic.>", s.All())
	assert.Equal(t, "drastic.objects", s.Objects())
	assert.Equal(t, "drastic.dead-letter.indexer", s.DeadLetter(StageIndexer))

	topic, err := s.Topic("new-binaries")
	require.NoError(t, err)
	assert.Equal(t, "drastic.new-binaries", topic)

	for _, bad := range []string{"", "a b", "objects.*", "objects.>", "a..b"} {
		_, err := s.Topic(bad)
		assert.Error(t, err, bad)
	}

	in, err := s.ForStage(StageAssembler)
	require.NoError(t, err)
	assert.Equal(t, "drastic.paged-documents", in)
	_, err = s.ForStage("nope")
	assert.Error(t, err)
}
