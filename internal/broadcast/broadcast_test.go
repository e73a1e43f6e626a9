package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesPublishedEvent(t *testing.T) {
	b := New(4)
	sub := b.Subscribe()
	defer sub.Unsubscribe()

	b.Publish(Event{Type: IndexerStatus, Phase: PhaseReady})

	select {
	case ev := <-sub.Events():
		assert.Equal(t, IndexerStatus, ev.Type)
		assert.Equal(t, PhaseReady, ev.Phase)
	default:
		t.Fatal("expected a buffered event to be immediately available")
	}
}

func TestPublishDropsOnFullChannel(t *testing.T) {
	b := New(1)
	sub := b.Subscribe()
	defer sub.Unsubscribe()

	b.Publish(Event{Type: FocusNode})
	b.Publish(Event{Type: FocusNode}) // channel has depth 1; this one should drop silently

	count := 0
	for {
		select {
		case <-sub.Events():
			count++
			continue
		default:
		}
		break
	}
	assert.Equal(t, 1, count)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New(4)
	sub := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())
	sub.Unsubscribe()
	assert.Equal(t, 0, b.SubscriberCount())

	b.Publish(Event{Type: GraphUpdate})
	_, ok := <-sub.Events()
	assert.False(t, ok, "channel should be closed after unsubscribe")
}
