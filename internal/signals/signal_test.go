package signals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type postPayload struct {
	Sender string
	PostID string
}

func recorder(calls *[]string, uid string, err error) Receiver[postPayload] {
	return func(ctx context.Context, p postPayload) error {
		*calls = append(*calls, uid+":"+p.PostID)
		return err
	}
}

func TestSignal_SendCallsReceiversInOrder(t *testing.T) {
	sig := New[postPayload]("comment_created")
	defer sig.Close()

	var calls []string
	require.True(t, sig.Connect("notify", recorder(&calls, "notify", nil)))
	require.True(t, sig.Connect("profanity", recorder(&calls, "profanity", nil)))

	err := sig.Send(context.Background(), postPayload{PostID: "abc"})
	require.NoError(t, err)
	require.Equal(t, []string{"notify:abc", "profanity:abc"}, calls)
	require.Equal(t, "comment_created", sig.Name())
}

func TestSignal_ConnectDedupesByUID(t *testing.T) {
	sig := New[postPayload]("thread_created")
	defer sig.Close()

	var calls []string
	require.True(t, sig.Connect("profanity", recorder(&calls, "first", nil)))
	require.False(t, sig.Connect("profanity", recorder(&calls, "second", nil)))

	require.NoError(t, sig.Send(context.Background(), postPayload{PostID: "abc"}))
	require.Equal(t, []string{"first:abc"}, calls)
	require.Equal(t, []string{"profanity"}, sig.Receivers())
}

func TestSignal_Disconnect(t *testing.T) {
	sig := New[postPayload]("thread_edited")
	defer sig.Close()

	var calls []string
	sig.Connect("a", recorder(&calls, "a", nil))
	sig.Connect("b", recorder(&calls, "b", nil))
	sig.Connect("c", recorder(&calls, "c", nil))

	require.True(t, sig.Disconnect("b"))
	require.False(t, sig.Disconnect("b"))
	require.Equal(t, []string{"a", "c"}, sig.Receivers())

	require.NoError(t, sig.Send(context.Background(), postPayload{PostID: "p"}))
	require.Equal(t, []string{"a:p", "c:p"}, calls)
}

func TestSignal_SendStopsAtFirstError(t *testing.T) {
	sig := New[postPayload]("comment_edited")
	defer sig.Close()

	boom := errors.New("checker unavailable")
	var calls []string
	sig.Connect("first", recorder(&calls, "first", boom))
	sig.Connect("second", recorder(&calls, "second", nil))

	err := sig.Send(context.Background(), postPayload{PostID: "abc"})
	require.ErrorIs(t, err, boom)

	var sigErr *SignalError
	require.ErrorAs(t, err, &sigErr)
	require.Equal(t, "comment_edited", sigErr.Signal)
	require.Equal(t, "first", sigErr.Receiver)
	require.Equal(t, []string{"first:abc"}, calls)
}

func TestSignal_SendRobustRunsEveryReceiver(t *testing.T) {
	sig := New[postPayload]("comment_created")
	defer sig.Close()

	boom := errors.New("sender failed")
	var calls []string
	sig.Connect("failing", recorder(&calls, "failing", boom))
	sig.Connect("panicking", func(ctx context.Context, p postPayload) error {
		panic("nil post")
	})
	sig.Connect("ok", recorder(&calls, "ok", nil))

	responses := sig.SendRobust(context.Background(), postPayload{PostID: "abc"})
	require.Len(t, responses, 3)

	require.Equal(t, "failing", responses[0].ReceiverUID)
	require.ErrorIs(t, responses[0].Err, boom)
	require.Equal(t, "panicking", responses[1].ReceiverUID)
	require.ErrorIs(t, responses[1].Err, ErrReceiverPanic)
	require.Equal(t, "ok", responses[2].ReceiverUID)
	require.NoError(t, responses[2].Err)

	require.Equal(t, []string{"failing:abc", "ok:abc"}, calls)
}

func TestSignal_SendWithoutReceivers(t *testing.T) {
	sig := New[postPayload]("thread_deleted")
	defer sig.Close()

	require.NoError(t, sig.Send(context.Background(), postPayload{}))
	require.Empty(t, sig.SendRobust(context.Background(), postPayload{}))
}

func TestSignal_ReceiverSeesSenderContext(t *testing.T) {
	type key struct{}
	sig := New[postPayload]("comment_created")
	defer sig.Close()

	var got any
	sig.Connect("ctx", func(ctx context.Context, _ postPayload) error {
		got = ctx.Value(key{})
		return nil
	})

	ctx := context.WithValue(context.Background(), key{}, "example.com")
	require.NoError(t, sig.Send(ctx, postPayload{}))
	require.Equal(t, "example.com", got)
}

func TestSignal_ReceiverMayConnectDuringSend(t *testing.T) {
	sig := New[postPayload]("comment_created")
	defer sig.Close()

	var calls []string
	sig.Connect("late-binder", func(ctx context.Context, p postPayload) error {
		sig.Connect("late", recorder(&calls, "late", nil))
		return nil
	})

	require.NoError(t, sig.Send(context.Background(), postPayload{PostID: "1"}))
	require.Empty(t, calls, "receivers connected mid-dispatch run on the next send")

	require.NoError(t, sig.Send(context.Background(), postPayload{PostID: "2"}))
	require.Equal(t, []string{"late:2"}, calls)
}

func TestSignal_Observe(t *testing.T) {
	sig := New[postPayload]("comment_created")
	defer sig.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := sig.Observe(ctx)

	require.NoError(t, sig.Send(context.Background(), postPayload{Sender: "api", PostID: "abc"}))

	select {
	case event := <-events:
		require.Equal(t, "comment_created", string(event.Type))
		require.Equal(t, "abc", event.Payload.PostID)
	case <-time.After(100 * time.Millisecond):
		require.Fail(t, "timeout waiting for observed payload")
	}
}
