package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/rueidis"
)

// RedisMutationSource subscribes to a redis pub/sub channel carrying the
// backend's record mutation stream.
type RedisMutationSource struct {
	client  rueidis.Client
	channel string
}

func NewRedisMutationSource(client rueidis.Client, channel string) *RedisMutationSource {
	return &RedisMutationSource{
		client:  client,
		channel: channel,
	}
}

// Listen blocks until ctx is canceled or the subscription fails. Messages
// that do not decode are logged and skipped; a malformed event must not kill
// the stream.
func (r *RedisMutationSource) Listen(ctx context.Context, handle func(MutationEvent)) error {
	cmd := r.client.B().Subscribe().Channel(r.channel).Build()
	return r.client.Receive(ctx, cmd, func(msg rueidis.PubSubMessage) {
		var event MutationEvent
		if err := json.Unmarshal([]byte(msg.Message), &event); err != nil {
			log.Printf("realtime: skipping undecodable event on %s: %v", r.channel, err)
			return
		}
		handle(event)
	})
}
