package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasagata/extra-api-sub001/model"
)

type fakeChannel struct {
	exchange string
	key      string
	msgs     []amqp091.Publishing
	err      error
	closed   bool
	notify   chan *amqp091.Error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.exchange, f.key = exchange, key
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeChannel) NotifyClose(c chan *amqp091.Error) chan *amqp091.Error {
	f.notify = c
	return c
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type fakeConn struct{ closed bool }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

// dialSequence hands out chs in order, one per dial.
func dialSequence(chs ...*fakeChannel) (dialer, *int) {
	dials := 0
	return func() (channel, io.Closer, error) {
		if dials == len(chs) {
			return nil, nil, errors.New("connection refused")
		}
		ch := chs[dials]
		dials++
		return ch, &fakeConn{}, nil
	}, &dials
}

func notification() model.Notification {
	return model.Notification{
		UserID: 7,
		Tokens: []string{"phone"},
		Title:  "Investment return",
		Body:   "Bond paid 12.50",
		Data:   map[string]string{"type": "investment_return"},
		SentAt: time.Date(2023, 9, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestAMQPPublisher_Notify(t *testing.T) {
	ch := &fakeChannel{}
	dial, _ := dialSequence(ch)
	p := newPublisher(dial, "notifications", "push")

	require.NoError(t, p.Notify(context.Background(), notification()))
	require.Len(t, ch.msgs, 1)
	assert.Equal(t, "notifications", ch.exchange)
	assert.Equal(t, "push", ch.key)

	msg := ch.msgs[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp091.Persistent, msg.DeliveryMode)

	var got model.Notification
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, notification(), got)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestAMQPPublisher_NotifyError(t *testing.T) {
	dial, _ := dialSequence(&fakeChannel{err: errors.New("no route")})
	p := newPublisher(dial, "notifications", "push")

	err := p.Notify(context.Background(), notification())
	assert.ErrorContains(t, err, "publish notification")
}

func TestAMQPPublisher_ReconnectsAfterClose(t *testing.T) {
	ctx := context.Background()
	first, second := &fakeChannel{}, &fakeChannel{}
	dial, dials := dialSequence(first, second)
	p := newPublisher(dial, "notifications", "push")

	require.NoError(t, p.Notify(ctx, notification()))
	require.NotNil(t, first.notify)

	first.notify <- &amqp091.Error{Code: amqp091.ConnectionForced, Reason: "broker restart"}
	require.NoError(t, p.Notify(ctx, notification()))

	assert.Equal(t, 2, *dials)
	assert.True(t, first.closed)
	assert.Len(t, first.msgs, 1)
	assert.Len(t, second.msgs, 1)
}

func TestAMQPPublisher_ClosedChannelIsReopened(t *testing.T) {
	ctx := context.Background()
	first, second := &fakeChannel{err: amqp091.ErrClosed}, &fakeChannel{}
	dial, dials := dialSequence(first, second)
	p := newPublisher(dial, "notifications", "push")

	assert.ErrorIs(t, p.Notify(ctx, notification()), amqp091.ErrClosed)
	require.NoError(t, p.Notify(ctx, notification()))
	assert.Equal(t, 2, *dials)
	assert.Len(t, second.msgs, 1)
}

func TestAMQPPublisher_BrokerDown(t *testing.T) {
	first := &fakeChannel{}
	dial, _ := dialSequence(first)
	p := newPublisher(dial, "notifications", "push")

	require.NoError(t, p.Notify(context.Background(), notification()))
	close(first.notify)

	err := p.Notify(context.Background(), notification())
	assert.ErrorContains(t, err, "connection refused")
	assert.Len(t, first.msgs, 1)
}

func TestLogNotifier(t *testing.T) {
	buf := &bytes.Buffer{}
	n := NewLogNotifier(zerolog.New(buf))

	require.NoError(t, n.Notify(context.Background(), notification()))
	assert.Contains(t, buf.String(), `"user_id":7`)
	assert.Contains(t, buf.String(), "Investment return")
}
