package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Stream is the Redis stream receiving game action records.
const Stream = "game:actions"

// ActionRecord is one entry in the append-only action history of a room.
// ActionIndex orders records within a game; ActorID is uuid.Nil for events
// the server originated itself.
type ActionRecord struct {
	GameID      uuid.UUID              `json:"gameId"`
	ActionIndex int                    `json:"actionIndex"`
	ActorID     uuid.UUID              `json:"actorId"`
	ActionType  string                 `json:"actionType"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Timestamp   int64                  `json:"timestamp"`
}

// Historian publishes action records to a Redis stream, best effort. Game
// state never depends on it: a nil or unreachable Redis only costs the audit
// trail, never a move.
type Historian struct {
	rdb *redis.Client
	log logrus.FieldLogger
}

// New connects to Redis at addr. An empty addr disables publishing entirely
// and returns a Historian whose Record calls are no-ops.
func New(addr string, log logrus.FieldLogger) *Historian {
	h := &Historian{log: log}
	if addr == "" {
		log.Info("action history disabled, no redis address configured")
		return h
	}
	h.rdb = redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis unreachable, action history will be dropped until it recovers")
	}
	return h
}

// Record publishes one action record asynchronously.
func (h *Historian) Record(rec ActionRecord) {
	if h == nil || h.rdb == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		payload, err := json.Marshal(rec.Payload)
		if err != nil {
			h.log.WithError(err).Warn("dropping unserializable action payload")
			payload = []byte("{}")
		}
		err = h.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: Stream,
			Values: map[string]interface{}{
				"game_id":      rec.GameID.String(),
				"action_index": rec.ActionIndex,
				"actor_id":     rec.ActorID.String(),
				"action_type":  rec.ActionType,
				"payload":      string(payload),
				"timestamp":    rec.Timestamp,
			},
		}).Err()
		if err != nil {
			h.log.WithError(err).WithFields(logrus.Fields{
				"game_id":     rec.GameID,
				"action_type": rec.ActionType,
			}).Warn("failed to publish action record")
		}
	}()
}

// Close releases the Redis connection.
func (h *Historian) Close() error {
	if h == nil || h.rdb == nil {
		return nil
	}
	return h.rdb.Close()
}
