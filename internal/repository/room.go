package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/xoxo-backend/internal/apperror"
	"github.com/rocketscienceinc/xoxo-backend/internal/entity"
)

// ErrRoomExists - the create-if-absent write lost: the code is taken.
var ErrRoomExists = errors.New("room already exists")

const maxUpdateRetries = 5

type RoomRepository interface {
	Create(ctx context.Context, room *entity.Room) error
	GetByCode(ctx context.Context, code string) (*entity.Room, error)
	Update(ctx context.Context, code string, mutate func(room *entity.Room) error) (*entity.Room, error)
	DeleteByCode(ctx context.Context, code string) error
	DeleteOlderThan(ctx context.Context, cutoff int64) (int, error)

	Subscribe(ctx context.Context, code string) (<-chan *entity.Room, func(), error)
}

type dbRoom struct {
	client *redis.Client
}

func NewRoomRepository(client *redis.Client) RoomRepository {
	return &dbRoom{
		client: client,
	}
}

func roomKey(code string) string {
	return "room:" + code
}

func roomChannel(code string) string {
	return "room:updates:" + code
}

// Create - writes a brand-new room with set-if-absent semantics, so two
// clients racing on the same generated code cannot both win.
func (that *dbRoom) Create(ctx context.Context, room *entity.Room) error {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	ok, err := that.client.SetNX(ctx, roomKey(room.Code), roomJSON, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	if !ok {
		return fmt.Errorf("%w: code %s", ErrRoomExists, room.Code)
	}

	that.publish(ctx, room.Code, roomJSON)

	return nil
}

func (that *dbRoom) GetByCode(ctx context.Context, code string) (*entity.Room, error) {
	response, err := that.client.Get(ctx, roomKey(code)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room by code: %w", err)
	}

	var existingRoom entity.Room
	if err = json.Unmarshal([]byte(response), &existingRoom); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &existingRoom, nil
}

// Update - a checked read-modify-write. The mutate callback runs against the
// freshest document inside a WATCH transaction; if another writer lands
// first, the whole sequence is retried, so the callback's validations hold
// at the moment the write commits. Errors returned by mutate pass through
// unwrapped.
func (that *dbRoom) Update(ctx context.Context, code string, mutate func(room *entity.Room) error) (*entity.Room, error) {
	key := roomKey(code)

	var updated *entity.Room
	var updatedJSON []byte

	txf := func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrRoomNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get room by code: %w", err)
		}

		var room entity.Room
		if err = json.Unmarshal([]byte(response), &room); err != nil {
			return fmt.Errorf("failed to unmarshal room: %w", err)
		}

		if err = mutate(&room); err != nil {
			return err
		}

		roomJSON, err := json.Marshal(&room)
		if err != nil {
			return fmt.Errorf("could not marshal room: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, roomJSON, 0)
			return nil
		})
		if err != nil {
			return err
		}

		updated = &room
		updatedJSON = roomJSON

		return nil
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := that.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}

		that.publish(ctx, code, updatedJSON)

		return updated, nil
	}

	return nil, fmt.Errorf("failed to update room %s: %w", code, redis.TxFailedErr)
}

func (that *dbRoom) DeleteByCode(ctx context.Context, code string) error {
	if err := that.client.Del(ctx, roomKey(code)).Err(); err != nil {
		return fmt.Errorf("failed to delete room by code: %w", err)
	}

	return nil
}

// DeleteOlderThan - coarse leak prevention: removes every room created
// before the cutoff (unix milliseconds), regardless of status.
func (that *dbRoom) DeleteOlderThan(ctx context.Context, cutoff int64) (int, error) {
	var deleted int

	iter := that.client.Scan(ctx, 0, roomKey("*"), 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		response, err := that.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return deleted, fmt.Errorf("failed to get room: %w", err)
		}

		var room entity.Room
		if err = json.Unmarshal([]byte(response), &room); err != nil {
			// not a room document, leave it alone
			continue
		}

		if room.CreatedAt == 0 || room.CreatedAt >= cutoff {
			continue
		}

		if err = that.client.Del(ctx, key).Err(); err != nil {
			return deleted, fmt.Errorf("failed to delete expired room: %w", err)
		}
		deleted++
	}

	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to scan rooms: %w", err)
	}

	return deleted, nil
}

// Subscribe - returns a stream of room snapshots published after every
// write, plus a cancel func. Cancel is idempotent and closes the stream.
func (that *dbRoom) Subscribe(ctx context.Context, code string) (<-chan *entity.Room, func(), error) {
	pubsub := that.client.Subscribe(ctx, roomChannel(code))

	// force the subscription to be established before the first write races it
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to room: %w", err)
	}

	updates := make(chan *entity.Room)

	go func() {
		defer close(updates)

		for msg := range pubsub.Channel() {
			var room entity.Room
			if err := json.Unmarshal([]byte(msg.Payload), &room); err != nil {
				continue
			}

			select {
			case updates <- &room:
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = pubsub.Close()
		})
	}

	return updates, cancel, nil
}

func (that *dbRoom) publish(ctx context.Context, code string, roomJSON []byte) {
	_ = that.client.Publish(ctx, roomChannel(code), roomJSON).Err()
}
