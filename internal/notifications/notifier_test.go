package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestTopics(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "live:chats:user:u1", ChatsTopic("u1"))
	assert.Equal(t, "live:messages:chat:u1_u2", MessagesTopic("u1_u2"))
}

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.Publish(context.Background(), ChatsTopic("u1")))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {
		t.Fatal("no messages without redis")
	}))

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.Publish(context.Background(), "live:x"))
}

func TestHub_StartWiringRelaysOtherInstances(t *testing.T) {
	rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Two instances sharing one Redis.
	hubA, notifierA := NewHub(), NewNotifier(rdb)
	hubB, notifierB := NewHub(), NewNotifier(rdb)
	require.NoError(t, hubA.StartWiring(ctx, notifierA))
	require.NoError(t, hubB.StartWiring(ctx, notifierB))

	watchA, err := hubA.Watch(MessagesTopic("c1"))
	require.NoError(t, err)
	watchB, err := hubB.Watch(MessagesTopic("c1"))
	require.NoError(t, err)

	NewFeed(hubA, notifierA).Publish(ctx, MessagesTopic("c1"))

	// Local watcher is signalled directly.
	select {
	case <-watchA.C:
	case <-time.After(testEventuallyTimeout):
		t.Fatal("local watcher not signalled")
	}

	// Remote watcher is signalled through Redis.
	select {
	case <-watchB.C:
	case <-time.After(testEventuallyTimeout):
		t.Fatal("remote watcher not signalled")
	}

	// A's own echo must not produce a second local signal.
	assert.Never(t, func() bool {
		select {
		case <-watchA.C:
			return true
		default:
			return false
		}
	}, 100*time.Millisecond, testPollInterval)
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())

	payloads := make(chan string, 4)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(_ string, payload string) {
		payloads <- payload
	}))

	require.NoError(t, rdb.Publish(context.Background(), ChatsTopic("u1"), "before-cancel").Err())
	select {
	case p := <-payloads:
		assert.Equal(t, "before-cancel", p)
	case <-time.After(testEventuallyTimeout):
		t.Fatal("subscriber did not receive message")
	}

	cancel()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, rdb.Publish(context.Background(), ChatsTopic("u1"), "after-cancel").Err())
	assert.Never(t, func() bool {
		select {
		case p := <-payloads:
			return p == "after-cancel"
		default:
			return false
		}
	}, 200*time.Millisecond, testPollInterval)
}
