package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"stock_dashboard/internal/feature/quotes/domain/entity"
	"stock_dashboard/internal/feature/quotes/usecase"
)

// fakeReader はメッセージを順に返し、尽きたらctxが終わるまでブロックする。
// drained が設定されていれば、尽きた時点で一度だけcloseする。
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []kafka.Message
	commitErr error
	drained   chan struct{}
	once      sync.Once
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	if r.drained != nil {
		r.once.Do(func() { close(r.drained) })
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commitErr != nil {
		return r.commitErr
	}
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) committedOffsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, 0, len(r.committed))
	for _, m := range r.committed {
		out = append(out, m.Offset)
	}
	return out
}

// fakeSubmitter は受け取ったバッチを記録し、即座にackを呼ぶ
type fakeSubmitter struct {
	mu      sync.Mutex
	batches []usecase.Batch
	ackErr  func(n int) error
	cancel  context.CancelFunc
	stopAt  int
}

func (s *fakeSubmitter) Submit(_ context.Context, b usecase.Batch, ack usecase.Ack) error {
	s.mu.Lock()
	s.batches = append(s.batches, b)
	n := len(s.batches)
	s.mu.Unlock()

	var err error
	if s.ackErr != nil {
		err = s.ackErr(n)
	}
	ack(usecase.BatchReport{BatchID: b.ID, Received: len(b.Events)}, err)
	if s.stopAt > 0 && n == s.stopAt && s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *fakeSubmitter) sizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, len(b.Events))
	}
	return out
}

// failFirstHistory は最初のAppendだけ失敗する
type failFirstHistory struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (h *failFirstHistory) Append(_ context.Context, entries []entity.HistoryEntry) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.calls == 1 {
		return 0, h.err
	}
	return len(entries), nil
}

func (h *failFirstHistory) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

type countingStates struct {
	mu    sync.Mutex
	calls int
}

func (s *countingStates) Upsert(_ context.Context, states []entity.DashboardState) []usecase.UpsertResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	out := make([]usecase.UpsertResult, 0, len(states))
	for _, st := range states {
		out = append(out, usecase.UpsertResult{Symbol: st.Symbol, Applied: true})
	}
	return out
}

func (s *countingStates) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func record(offset int64, symbol, date string) kafka.Message {
	return kafka.Message{
		Key:    []byte(symbol),
		Offset: offset,
		Value:  []byte(`{"symbol":"` + symbol + `","date":"` + date + `","open":1,"close":2,"volume":3,"prevClose":1,"fetchedAt":"2024-01-03T20:00:00Z"}`),
	}
}

func TestConsumer_Run_BatchesBySizeAndCommitsAfterAck(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{msgs: []kafka.Message{
		record(0, "AAA", "2024-01-02"),
		record(1, "BBB", "2024-01-02"),
		record(2, "AAA", "2024-01-03"),
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := &fakeSubmitter{cancel: cancel, stopAt: 2}

	c := NewConsumer(reader, sub, 2, 20*time.Millisecond, zap.NewNop())
	err := c.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, sub.sizes())
	assert.Equal(t, []int64{0, 1, 2}, reader.committedOffsets())
}

func TestConsumer_Run_UndecodableRecordIsDroppedButCommitted(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{msgs: []kafka.Message{
		{Key: []byte("BAD"), Offset: 0, Value: []byte(`{not json`)},
		record(1, "AAA", "2024-01-02"),
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := &fakeSubmitter{cancel: cancel, stopAt: 1}

	c := NewConsumer(reader, sub, 10, 20*time.Millisecond, zap.NewNop())
	err := c.Run(ctx)

	require.NoError(t, err)
	require.Len(t, sub.batches, 1)
	require.Len(t, sub.batches[0].Events, 1)
	assert.Equal(t, "AAA", sub.batches[0].Events[0].Symbol)
	assert.Equal(t, []int64{0, 1}, reader.committedOffsets())
}

func TestConsumer_Run_FailedBatchStopsWithoutCommit(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{msgs: []kafka.Message{
		record(0, "AAA", "2024-01-02"),
		record(1, "BBB", "2024-01-02"),
	}}
	sub := &fakeSubmitter{ackErr: func(int) error { return usecase.ErrPersistence }}

	c := NewConsumer(reader, sub, 1, 20*time.Millisecond, zap.NewNop())
	err := c.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, usecase.ErrPersistence)
	assert.Empty(t, reader.committedOffsets())
	assert.Equal(t, []int{1}, sub.sizes())
}

func TestConsumer_Run_CommitFailureStops(t *testing.T) {
	t.Parallel()

	commitErr := errors.New("coordinator not available")
	reader := &fakeReader{
		msgs:      []kafka.Message{record(0, "AAA", "2024-01-02")},
		commitErr: commitErr,
	}
	sub := &fakeSubmitter{}

	c := NewConsumer(reader, sub, 1, 20*time.Millisecond, zap.NewNop())
	err := c.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, commitErr)
}

func TestConsumer_Run_WindowFlushesPartialBatch(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{msgs: []kafka.Message{record(0, "AAA", "2024-01-02")}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := &fakeSubmitter{cancel: cancel, stopAt: 1}

	c := NewConsumer(reader, sub, 100, 10*time.Millisecond, zap.NewNop())
	err := c.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, []int{1}, sub.sizes())
	assert.Equal(t, []int64{0}, reader.committedOffsets())
}

// 失敗したバッチの後ろにキューイングされたバッチが成功しても、オフセットをコミットしないこと
func TestConsumer_Run_BatchQueuedBehindFailureIsNotCommitted(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{
		msgs: []kafka.Message{
			record(1, "AAA", "2024-01-02"),
			record(2, "BBB", "2024-01-02"),
		},
		drained: make(chan struct{}),
	}
	history := &failFirstHistory{err: fmt.Errorf("insert stock_history: %w", usecase.ErrPersistence)}
	states := &countingStates{}
	proc := usecase.NewProcessor(usecase.NewAggregator(1, nil), history, states, zap.NewNop())
	pl := usecase.NewPipeline(proc, usecase.PipelineConfig{}, zap.NewNop())

	c := NewConsumer(reader, pl, 1, 20*time.Millisecond, zap.NewNop())
	consumerErr := make(chan error, 1)
	go func() { consumerErr <- c.Run(context.Background()) }()

	// 両バッチがキューに入るまで書き込み側を起動しない
	select {
	case <-reader.drained:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not queue both batches")
	}

	plCtx, stopPipeline := context.WithCancel(context.Background())
	defer stopPipeline()
	plDone := make(chan error, 1)
	go func() { plDone <- pl.Run(plCtx) }()

	select {
	case err := <-consumerErr:
		require.Error(t, err)
		assert.ErrorIs(t, err, usecase.ErrPersistence)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after the failed batch")
	}

	// 2番目のバッチは処理されるが、そのackでコミットしてはならない
	require.Eventually(t, func() bool { return states.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	stopPipeline()
	select {
	case <-plDone:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop")
	}

	assert.Equal(t, 2, history.count())
	assert.Empty(t, reader.committedOffsets())
}

func TestConsumer_Run_InvalidFetchedAtIsLoggedAndKept(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{msgs: []kafka.Message{{
		Key:    []byte("AAA"),
		Offset: 7,
		Value:  []byte(`{"symbol":"AAA","date":"2024-01-02","close":2,"volume":3,"fetchedAt":"02/01/2024"}`),
	}}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := &fakeSubmitter{cancel: cancel, stopAt: 1}
	core, logs := observer.New(zapcore.WarnLevel)

	c := NewConsumer(reader, sub, 1, 20*time.Millisecond, zap.New(core))
	err := c.Run(ctx)

	require.NoError(t, err)
	require.Len(t, sub.batches, 1)
	require.Len(t, sub.batches[0].Events, 1)
	assert.True(t, sub.batches[0].Events[0].FetchedAt.IsZero())
	entries := logs.FilterMessage("quote record has invalid fetchedAt").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 7, entries[0].ContextMap()["offset"])
	assert.Equal(t, []int64{7}, reader.committedOffsets())
}
