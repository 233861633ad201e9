// Package signals implements named, synchronous observer signals.
//
// Receivers are connected under a unique id and run in connect order on the
// sender's goroutine, so a sender observes every side effect once Send
// returns. Each dispatch is also mirrored onto a pubsub broker for
// asynchronous observers, and every receiver call is traced.
package signals

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/discussions/internal/log"
	"github.com/zjrosen/discussions/internal/pubsub"
	"github.com/zjrosen/discussions/internal/tracing"
)

const tracerName = "github.com/zjrosen/discussions/internal/signals"

// ErrReceiverPanic wraps a recovered receiver panic in SendRobust.
var ErrReceiverPanic = errors.New("signal receiver panicked")

// Receiver handles one signal payload.
type Receiver[T any] func(ctx context.Context, payload T) error

// SignalError reports which receiver failed a Send.
type SignalError struct {
	Signal   string
	Receiver string
	Err      error
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("signal %s: receiver %s: %v", e.Signal, e.Receiver, e.Err)
}

func (e *SignalError) Unwrap() error {
	return e.Err
}

// Response is the outcome of one receiver in SendRobust.
type Response struct {
	ReceiverUID string
	Err         error
}

type receiverEntry[T any] struct {
	uid string
	fn  Receiver[T]
}

// Signal is a named dispatch point for payloads of type T.
type Signal[T any] struct {
	name string

	mu        sync.RWMutex
	receivers []receiverEntry[T]

	broker *pubsub.Broker[T]
}

// New creates a signal. The name is used for logs, spans and broker events.
func New[T any](name string) *Signal[T] {
	return &Signal[T]{
		name:   name,
		broker: pubsub.NewBroker[T](),
	}
}

// Name returns the signal name.
func (s *Signal[T]) Name() string {
	return s.name
}

// Connect registers fn under uid. Returns false and leaves the existing
// receiver in place when uid is already connected.
func (s *Signal[T]) Connect(uid string, fn Receiver[T]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.receivers {
		if r.uid == uid {
			log.Debug(log.CatSignal, "receiver already connected", "signal", s.name, "uid", uid)
			return false
		}
	}
	s.receivers = append(s.receivers, receiverEntry[T]{uid: uid, fn: fn})
	return true
}

// Disconnect removes the receiver registered under uid.
func (s *Signal[T]) Disconnect(uid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.receivers {
		if r.uid == uid {
			s.receivers = append(s.receivers[:i:i], s.receivers[i+1:]...)
			return true
		}
	}
	return false
}

// Receivers returns the connected uids in dispatch order.
func (s *Signal[T]) Receivers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uids := make([]string, len(s.receivers))
	for i, r := range s.receivers {
		uids[i] = r.uid
	}
	return uids
}

func (s *Signal[T]) snapshot() []receiverEntry[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]receiverEntry[T](nil), s.receivers...)
}

// Send calls every receiver in order. The first error stops dispatch and
// is returned as a *SignalError.
func (s *Signal[T]) Send(ctx context.Context, payload T) error {
	receivers := s.snapshot()
	log.Debug(log.CatSignal, "sending signal", "signal", s.name, "receivers", len(receivers))

	for _, r := range receivers {
		if err := s.call(ctx, r, payload); err != nil {
			log.ErrorErr(log.CatSignal, "receiver failed", err, "signal", s.name, "uid", r.uid)
			s.broker.Publish(pubsub.EventType(s.name), payload)
			return &SignalError{Signal: s.name, Receiver: r.uid, Err: err}
		}
	}
	s.broker.Publish(pubsub.EventType(s.name), payload)
	return nil
}

// SendRobust calls every receiver regardless of failures, recovering
// panics, and reports one Response per receiver.
func (s *Signal[T]) SendRobust(ctx context.Context, payload T) []Response {
	receivers := s.snapshot()
	responses := make([]Response, 0, len(receivers))

	for _, r := range receivers {
		err := s.callRecovered(ctx, r, payload)
		if err != nil {
			log.ErrorErr(log.CatSignal, "receiver failed", err, "signal", s.name, "uid", r.uid)
		}
		responses = append(responses, Response{ReceiverUID: r.uid, Err: err})
	}
	s.broker.Publish(pubsub.EventType(s.name), payload)
	return responses
}

func (s *Signal[T]) callRecovered(ctx context.Context, r receiverEntry[T], payload T) (err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Error(log.CatSignal, "receiver panic", "signal", s.name, "uid", r.uid, "panic", p, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrReceiverPanic, p)
		}
	}()
	return s.call(ctx, r, payload)
}

func (s *Signal[T]) call(ctx context.Context, r receiverEntry[T], payload T) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, tracing.SpanPrefixSignal+s.name,
		trace.WithAttributes(
			attribute.String(tracing.AttrSignalName, s.name),
			attribute.String(tracing.AttrReceiverUID, r.uid),
		),
	)
	defer span.End()

	err := r.fn(ctx, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Observe subscribes to payloads sent on this signal until ctx is done.
// Slow observers miss payloads rather than block senders.
func (s *Signal[T]) Observe(ctx context.Context) <-chan pubsub.Event[T] {
	return s.broker.Subscribe(ctx)
}

// Close closes every observer channel.
func (s *Signal[T]) Close() {
	s.broker.Close()
}
