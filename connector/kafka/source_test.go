package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/RuiFG/streaming/streaming-unique/connector"
	"github.com/RuiFG/streaming/streaming-unique/element"
	"github.com/RuiFG/streaming/streaming-unique/log"
	"github.com/Shopify/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(message *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, message.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func TestConsumeClaim(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 3)}
	claim.messages <- &sarama.ConsumerMessage{Topic: "quotes", Offset: 1, Timestamp: now, Value: []byte(`{"symbol":"IBM"}`)}
	claim.messages <- &sarama.ConsumerMessage{Topic: "quotes", Offset: 2, Timestamp: now, Value: []byte(`oops`)}
	claim.messages <- &sarama.ConsumerMessage{Topic: "quotes", Offset: 3, Value: []byte(`{"symbol":"WSO2"}`)}
	close(claim.messages)

	var events []*element.Event[element.Record]
	h := &handler[element.Record]{
		logger:   log.Nop(),
		formatFn: connector.DecodeJSON(nil),
		emit: func(event *element.Event[element.Record]) {
			events = append(events, event)
		},
	}
	session := &fakeSession{ctx: context.Background()}
	require.NoError(t, h.ConsumeClaim(session, claim))

	require.Len(t, events, 2)
	assert.Equal(t, "IBM", events[0].Value["symbol"])
	assert.True(t, events[0].HasTimestamp)
	assert.Equal(t, now.UnixMilli(), events[0].Timestamp)
	assert.Equal(t, "WSO2", events[1].Value["symbol"])
	assert.False(t, events[1].HasTimestamp)
	assert.Equal(t, []int64{1, 2, 3}, session.marked)
}

func TestConsumeClaimStopsWithSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := &handler[element.Record]{logger: log.Nop(), formatFn: connector.DecodeJSON(nil),
		emit: func(*element.Event[element.Record]) { t.Error("nothing to emit") }}
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage)}
	assert.NoError(t, h.ConsumeClaim(&fakeSession{ctx: ctx}, claim))
}

func TestNewSourceValidates(t *testing.T) {
	_, err := NewSource(Config{Topics: []string{"quotes"}, GroupId: "g"}, connector.DecodeJSON(nil), log.Nop())
	assert.Error(t, err)
	_, err = NewSource(Config{Addresses: []string{"localhost:9092"}, GroupId: "g"}, connector.DecodeJSON(nil), log.Nop())
	assert.Error(t, err)
	_, err = NewSource(Config{Addresses: []string{"localhost:9092"}, Topics: []string{"quotes"}}, connector.DecodeJSON(nil), log.Nop())
	assert.Error(t, err)

	source, err := NewSource(Config{Addresses: []string{"localhost:9092"}, Topics: []string{"quotes"}, GroupId: "g"},
		connector.DecodeJSON(nil), log.Nop())
	require.NoError(t, err)
	assert.Equal(t, sarama.OffsetNewest, source.config.SaramaConfig.Consumer.Offsets.Initial)
}

func TestNewSaramaConfig(t *testing.T) {
	config, err := NewSaramaConfig("2.8.0")
	require.NoError(t, err)
	assert.Equal(t, sarama.V2_8_0_0, config.Version)
	_, err = NewSaramaConfig("not-a-version")
	assert.Error(t, err)
}
