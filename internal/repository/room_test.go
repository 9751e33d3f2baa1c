package repository

import (
	"testing"
	"time"

	"github.com/rocketscienceinc/xoxo-backend/internal/apperror"
	"github.com/rocketscienceinc/xoxo-backend/internal/entity"
	"github.com/rocketscienceinc/xoxo-backend/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom(code string) *entity.Room {
	return entity.NewRoom(code, &entity.PlayerRef{UID: "uid-x", Username: "alice"}, time.Now().UnixMilli())
}

func TestRoomRepository_Create(t *testing.T) {
	t.Run("Create_Success", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)

		// Given: a fresh room
		room := newTestRoom("12345")

		// When: Create is called
		err := roomRepo.Create(ctx, room)

		// Then: the room is stored and readable
		require.NoError(t, err)

		stored, err := roomRepo.GetByCode(ctx, "12345")
		require.NoError(t, err)
		assert.Equal(t, entity.StatusWaiting, stored.Status)
		assert.Equal(t, "uid-x", stored.PlayerX.UID)
		assert.Nil(t, stored.PlayerO)
	})

	t.Run("Create_CodeTaken", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)

		// Given: a room already stored under the code
		require.NoError(t, roomRepo.Create(ctx, newTestRoom("12345")))

		// When: a second create races on the same code
		err := roomRepo.Create(ctx, newTestRoom("12345"))

		// Then: the create-if-absent write loses
		require.ErrorIs(t, err, ErrRoomExists)
	})
}

func TestRoomRepository_GetByCode(t *testing.T) {
	t.Run("GetByCode_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)

		// When: GetByCode is called with a nonexistent code
		_, err := roomRepo.GetByCode(ctx, "99999")

		// Then: ErrRoomNotFound is returned
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}

func TestRoomRepository_Update(t *testing.T) {
	t.Run("Update_AppliesMutation", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)
		require.NoError(t, roomRepo.Create(ctx, newTestRoom("12345")))

		// When: updating the room inside the checked write
		updated, err := roomRepo.Update(ctx, "12345", func(room *entity.Room) error {
			room.PlayerO = &entity.PlayerRef{UID: "uid-o", Username: "bob"}
			room.Status = entity.StatusPlaying
			return nil
		})

		// Then: the mutation is committed
		require.NoError(t, err)
		assert.Equal(t, entity.StatusPlaying, updated.Status)

		stored, err := roomRepo.GetByCode(ctx, "12345")
		require.NoError(t, err)
		assert.Equal(t, "uid-o", stored.PlayerO.UID)
	})

	t.Run("Update_MutationErrorPassesThrough", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)
		require.NoError(t, roomRepo.Create(ctx, newTestRoom("12345")))

		// When: the mutation rejects the update
		_, err := roomRepo.Update(ctx, "12345", func(_ *entity.Room) error {
			return apperror.ErrRoomFull
		})

		// Then: the sentinel comes back unwrapped and nothing is written
		require.ErrorIs(t, err, apperror.ErrRoomFull)

		stored, getErr := roomRepo.GetByCode(ctx, "12345")
		require.NoError(t, getErr)
		assert.Equal(t, entity.StatusWaiting, stored.Status)
	})

	t.Run("Update_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)

		// When: updating a nonexistent room
		_, err := roomRepo.Update(ctx, "99999", func(_ *entity.Room) error {
			return nil
		})

		// Then: ErrRoomNotFound is returned
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}

func TestRoomRepository_DeleteByCode(t *testing.T) {
	ctx, st := suite.New(t)

	roomRepo := NewRoomRepository(st.Storage)
	require.NoError(t, roomRepo.Create(ctx, newTestRoom("12345")))

	// When: deleting the room
	err := roomRepo.DeleteByCode(ctx, "12345")

	// Then: it is gone
	require.NoError(t, err)

	_, err = roomRepo.GetByCode(ctx, "12345")
	require.ErrorIs(t, err, apperror.ErrRoomNotFound)
}

func TestRoomRepository_DeleteOlderThan(t *testing.T) {
	ctx, st := suite.New(t)

	roomRepo := NewRoomRepository(st.Storage)

	// Given: one stale room and one fresh room
	stale := newTestRoom("11111")
	stale.CreatedAt = time.Now().Add(-25 * time.Hour).UnixMilli()
	require.NoError(t, roomRepo.Create(ctx, stale))

	fresh := newTestRoom("22222")
	require.NoError(t, roomRepo.Create(ctx, fresh))

	// When: sweeping rooms older than 24 hours
	cutoff := time.Now().Add(-24 * time.Hour).UnixMilli()
	deleted, err := roomRepo.DeleteOlderThan(ctx, cutoff)

	// Then: only the stale room is removed
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = roomRepo.GetByCode(ctx, "11111")
	require.ErrorIs(t, err, apperror.ErrRoomNotFound)

	_, err = roomRepo.GetByCode(ctx, "22222")
	require.NoError(t, err)
}

func TestRoomRepository_Subscribe(t *testing.T) {
	t.Run("Subscribe_DeliversSnapshotsOnEveryWrite", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)
		require.NoError(t, roomRepo.Create(ctx, newTestRoom("12345")))

		// Given: an established subscription
		updates, cancel, err := roomRepo.Subscribe(ctx, "12345")
		require.NoError(t, err)
		defer cancel()

		// When: the room is updated
		_, err = roomRepo.Update(ctx, "12345", func(room *entity.Room) error {
			room.Status = entity.StatusPlaying
			return nil
		})
		require.NoError(t, err)

		// Then: the new snapshot arrives on the stream
		select {
		case snapshot := <-updates:
			require.NotNil(t, snapshot)
			assert.Equal(t, entity.StatusPlaying, snapshot.Status)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for room update")
		}
	})

	t.Run("Subscribe_CancelIsIdempotentAndClosesStream", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)
		require.NoError(t, roomRepo.Create(ctx, newTestRoom("12345")))

		updates, cancel, err := roomRepo.Subscribe(ctx, "12345")
		require.NoError(t, err)

		// When: cancelling twice in a row
		cancel()
		cancel()

		// Then: no panic, and the stream drains closed
		deadline := time.After(5 * time.Second)
		for {
			select {
			case _, open := <-updates:
				if !open {
					return
				}
			case <-deadline:
				t.Fatal("stream did not close after cancel")
			}
		}
	})
}

func TestRoomRepository_UpdateContention(t *testing.T) {
	ctx, st := suite.New(t)

	roomRepo := NewRoomRepository(st.Storage)

	room := newTestRoom("12345")
	room.Status = entity.StatusPlaying
	room.PlayerO = &entity.PlayerRef{UID: "uid-o"}
	require.NoError(t, roomRepo.Create(ctx, room))

	// When: two writers update the same room concurrently
	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := roomRepo.Update(ctx, "12345", func(r *entity.Room) error {
				r.Board[0] = entity.SymbolX
				return nil
			})
			done <- err
		}()
	}

	// Then: both writes settle without corruption
	for i := 0; i < 2; i++ {
		require.NoError(t, <-done)
	}

	stored, err := roomRepo.GetByCode(ctx, "12345")
	require.NoError(t, err)
	assert.Equal(t, entity.SymbolX, stored.Board[0])
}
