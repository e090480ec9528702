package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPersistedRef(t *testing.T) {
	ref := PersistedRef(101)

	id, ok := ref.RemoteID()
	assert.True(t, ok)
	assert.Equal(t, int64(101), id)
	assert.False(t, ref.IsLocal())
	assert.Equal(t, int64(101), ref.LegacyID())
	assert.Equal(t, "101", ref.String())

	_, ok = ref.LocalKey()
	assert.False(t, ok)
}

func TestLocalRef(t *testing.T) {
	key := uuid.New()
	created := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	ref := LocalRef(key, created)

	assert.True(t, ref.IsLocal())
	assert.Equal(t, -created.UnixMilli(), ref.LegacyID())
	assert.Equal(t, "local:"+key.String(), ref.String())

	got, ok := ref.LocalKey()
	assert.True(t, ok)
	assert.Equal(t, key, got)

	_, ok = ref.RemoteID()
	assert.False(t, ok)
}

func TestLocalRefLegacyIDIsAlwaysNegative(t *testing.T) {
	assert.Equal(t, int64(-1), LocalRef(uuid.New(), time.UnixMilli(0)).LegacyID())
}

func TestZeroRefIsLocal(t *testing.T) {
	var o Order
	assert.True(t, o.IsLocal())
	assert.True(t, PersistedRef(0).IsLocal())
	assert.True(t, PersistedRef(-4).IsLocal())
}
