package lib

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestDraftKey(t *testing.T) {
	assert.Equal(t, "draft:7:create", DraftKey(7, "create", 0))
	assert.Equal(t, "draft:7:edit:42", DraftKey(7, "edit", 42))
	// unknown modes fall back to the create slot
	assert.Equal(t, "draft:7:create", DraftKey(7, "", 0))
}

func TestMemoryDraftStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDraftStore()

	val, err := store.Get(ctx, "draft:1:create")
	assert.Nil(t, err)
	assert.Empty(t, val)

	err = store.Set(ctx, "draft:1:create", `{"start_date":"2026-07-10"}`, DraftTTL)
	assert.Nil(t, err)

	val, err = store.Get(ctx, "draft:1:create")
	assert.Nil(t, err)
	assert.Equal(t, `{"start_date":"2026-07-10"}`, val)

	err = store.Remove(ctx, "draft:1:create")
	assert.Nil(t, err)

	val, err = store.Get(ctx, "draft:1:create")
	assert.Nil(t, err)
	assert.Empty(t, val)
}

func TestRedisDraftStore(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	store := &RedisDraftStore{inner: client}

	t.Run("Missing key reads as empty", func(t *testing.T) {
		mock.ExpectGet("draft:1:create").RedisNil()
		val, err := store.Get(ctx, "draft:1:create")
		assert.Nil(t, err)
		assert.Empty(t, val)
	})

	t.Run("Set applies the TTL", func(t *testing.T) {
		mock.ExpectSet("draft:1:create", `{}`, 30*24*time.Hour).SetVal("OK")
		err := store.Set(ctx, "draft:1:create", `{}`, DraftTTL)
		assert.Nil(t, err)
	})

	t.Run("Remove deletes the key", func(t *testing.T) {
		mock.ExpectDel("draft:1:edit:42").SetVal(1)
		err := store.Remove(ctx, "draft:1:edit:42")
		assert.Nil(t, err)
	})

	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestNewDraftStoreInjection(t *testing.T) {
	mem := NewMemoryDraftStore()
	got := NewDraftStore(mem)
	assert.Equal(t, DraftStore(mem), got)
	assert.Equal(t, DraftStore(mem), GetDraftStore())
}
