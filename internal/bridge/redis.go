package bridge

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSink relays events over redis pub/sub so a UI running in another
// process (or the async worker's events) can observe them. Publish failure
// is logged and dropped; the in-process subscribers already got the event.
type RedisSink struct {
	client *redis.Client
	prefix string
}

func NewRedisSink(client *redis.Client, channelPrefix string) *RedisSink {
	if channelPrefix == "" {
		channelPrefix = "inkwell:events:"
	}
	return &RedisSink{client: client, prefix: channelPrefix}
}

func (s *RedisSink) Deliver(name string, payload json.RawMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.client.Publish(ctx, s.prefix+name, []byte(payload)).Err(); err != nil {
		log.Printf("bridge: redis publish failed channel=%s err=%v", name, err)
	}
}
