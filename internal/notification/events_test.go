package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicPublishOrder(t *testing.T) {
	topic := newTopic[string](ChannelRead, discardLogger())
	var got []string
	topic.Subscribe(func(id string) { got = append(got, "first:"+id) })
	topic.Subscribe(func(id string) { got = append(got, "second:"+id) })

	topic.Publish("x")
	assert.Equal(t, []string{"first:x", "second:x"}, got)
}

func TestTopicUnsubscribe(t *testing.T) {
	topic := newTopic[int](ChannelAllRead, discardLogger())
	calls := 0
	unsubscribe := topic.Subscribe(func(int) { calls++ })
	topic.Publish(1)
	unsubscribe()
	unsubscribe()
	topic.Publish(2)

	assert.Equal(t, 1, calls)
	assert.Zero(t, topic.Len())
}

func TestTopicLateSubscriberMissesEarlierEvents(t *testing.T) {
	topic := newTopic[string](ChannelRead, discardLogger())
	topic.Publish("early")
	var got []string
	topic.Subscribe(func(id string) { got = append(got, id) })
	topic.Publish("late")
	assert.Equal(t, []string{"late"}, got)
}

func TestTopicRecoversSubscriberPanic(t *testing.T) {
	topic := newTopic[string](ChannelRead, discardLogger())
	topic.Subscribe(func(string) { panic("boom") })
	reached := false
	topic.Subscribe(func(string) { reached = true })

	assert.NotPanics(t, func() { topic.Publish("x") })
	assert.True(t, reached)
}
