package login

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/longgate/internal/realm"
)

func TestUserManager_TryRegister(t *testing.T) {
	um := NewUserManager()

	first := &User{AccountID: 1, Username: "alice", CreatedAt: time.Now()}
	second := &User{AccountID: 1, Username: "alice", CreatedAt: time.Now()}

	require.True(t, um.TryRegister(first))
	assert.False(t, um.TryRegister(second), "duplicate account must be refused")

	got, ok := um.Get(1)
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Equal(t, 1, um.Count())
}

func TestUserManager_RemoveIf(t *testing.T) {
	um := NewUserManager()

	u := &User{AccountID: 7}
	other := &User{AccountID: 7}
	require.True(t, um.TryRegister(u))

	assert.False(t, um.RemoveIf(7, other), "foreign instance must not remove the entry")
	assert.Equal(t, 1, um.Count())

	assert.True(t, um.RemoveIf(7, u))
	assert.False(t, um.RemoveIf(7, u))
	_, ok := um.Get(7)
	assert.False(t, ok)

	require.True(t, um.TryRegister(other))
	um.Remove(7)
	assert.Zero(t, um.Count())
}

func TestUserManager_CleanExpired(t *testing.T) {
	um := NewUserManager()

	old := &User{AccountID: 1, CreatedAt: time.Now().Add(-time.Minute)}
	fresh := &User{AccountID: 2, CreatedAt: time.Now()}
	require.True(t, um.TryRegister(old))
	require.True(t, um.TryRegister(fresh))

	expired := um.CleanExpired(30 * time.Second)

	require.Len(t, expired, 1)
	assert.Same(t, old, expired[0])
	assert.Equal(t, 1, um.Count())
	_, ok := um.Get(2)
	assert.True(t, ok)
}

func TestUserManager_ConcurrentRegister(t *testing.T) {
	um := NewUserManager()

	const goroutines = 64
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range goroutines {
		wg.Go(func() {
			if um.TryRegister(&User{AccountID: 42}) {
				wins.Add(1)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 1, um.Count())
}

func TestUserManager_RemoveByRealm(t *testing.T) {
	um := NewUserManager()
	aurora := realm.New("Aurora", true, nil)
	boreal := realm.New("Boreal", false, nil)

	require.True(t, um.TryRegister(&User{AccountID: 1, Realm: aurora}))
	require.True(t, um.TryRegister(&User{AccountID: 2, Realm: boreal}))
	require.True(t, um.TryRegister(&User{AccountID: 3, Realm: aurora}))

	removed := um.RemoveByRealm(aurora)

	assert.Len(t, removed, 2)
	assert.Equal(t, 1, um.Count())
	_, ok := um.Get(2)
	assert.True(t, ok)
}
