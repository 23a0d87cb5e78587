package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestBumpPublishesFirmID(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	sub := client.Subscribe(ctx, Channel())
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	bumper := NewBumper(client)
	require.NoError(t, bumper.Bump(ctx, 42))

	select {
	case msg := <-sub.Channel():
		require.Equal(t, Channel(), msg.Channel)
		require.Equal(t, "42", msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no bump received")
	}
}

func TestBumpNilClientIsNoop(t *testing.T) {
	var bumper *Bumper
	require.NoError(t, bumper.Bump(context.Background(), 1))
	require.NoError(t, NewBumper(nil).Bump(context.Background(), 1))
}
