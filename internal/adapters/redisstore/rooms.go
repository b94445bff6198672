// Package redisstore backs the room-lookup and guest-presence
// collaborators with redis. The signaling hot path only ever reads rooms;
// writes belong to the API tier.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/loopcast/studio-signaling/internal/core"
	"github.com/loopcast/studio-signaling/internal/domain"
)

const roomKeyPrefix = "room:"

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

// FindRoom reads a room snapshot. Missing keys map to ErrRoomNotFound so
// callers can distinguish "no such room" from a storage outage.
func (s *Store) FindRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	data, err := s.rdb.Get(ctx, roomKeyPrefix+string(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("room lookup: %w", err)
	}
	var room domain.Room
	if err := room.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", id, err)
	}
	return &room, nil
}
