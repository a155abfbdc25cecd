package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnvelopeDecode(t *testing.T) {
	env, err := NewEnvelope(TypeWelcomeRequested, WelcomeRequested{Email: "a@b.io"})
	require.NoError(t, err)
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, TypeWelcomeRequested, env.Type)

	var got WelcomeRequested
	require.NoError(t, env.Decode(&got))
	assert.Equal(t, "a@b.io", got.Email)
}

func TestInlineDispatcherDelivers(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	h := HandlerFunc(func(_ context.Context, env Envelope) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, env.Type)
		if env.Type == TypeContactSubmitted {
			return errors.New("smtp down")
		}
		return nil
	})

	d := NewInlineDispatcher(h, time.Second, zap.NewNop())
	require.NoError(t, d.Publish(context.Background(), TypeUserRegistered, UserRegistered{Email: "x@y.z"}))
	require.NoError(t, d.Publish(context.Background(), TypeContactSubmitted, ContactSubmitted{Name: "n"}))
	require.NoError(t, d.Close())

	assert.ElementsMatch(t, []string{TypeUserRegistered, TypeContactSubmitted}, seen)
}

func TestKafkaPublisherFlushesEachEvent(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "notifications", zap.NewNop())
	defer p.Close()

	assert.Equal(t, 1, p.writer.BatchSize)
	assert.Equal(t, writerBatchTimeout, p.writer.BatchTimeout)
	assert.LessOrEqual(t, p.writer.BatchTimeout, 10*time.Millisecond)
	assert.Equal(t, 1, p.writer.MaxAttempts)
	assert.False(t, p.writer.Async)
}
