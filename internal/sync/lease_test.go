package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/vvm-sync/internal/model"
)

func TestLeases_CoalesceWhileHeld(t *testing.T) {
	l := newLeases()

	require.True(t, l.acquire("a", model.SyncDownloadOnly))
	assert.True(t, l.isHeld("a"))
	assert.False(t, l.acquire("a", model.SyncUploadOnly))
	assert.False(t, l.acquire("a", model.SyncUploadOnly))

	pending, ok := l.release("a")
	assert.True(t, ok)
	assert.Equal(t, model.SyncUploadOnly, pending)
	assert.False(t, l.isHeld("a"))
}

func TestLeases_UnionToFull(t *testing.T) {
	l := newLeases()
	require.True(t, l.acquire("a", model.SyncFull))
	l.acquire("a", model.SyncUploadOnly)
	l.acquire("a", model.SyncDownloadOnly)

	pending, ok := l.release("a")
	assert.True(t, ok)
	assert.Equal(t, model.SyncFull, pending)
}

func TestLeases_IndependentAccounts(t *testing.T) {
	l := newLeases()
	require.True(t, l.acquire("a", model.SyncFull))
	require.True(t, l.acquire("b", model.SyncFull))

	_, ok := l.release("a")
	assert.False(t, ok)
	assert.True(t, l.isHeld("b"))
}

func TestQueue_FIFO(t *testing.T) {
	q := newQueue[int]()
	q.Push(1)
	q.Push(2)
	q.Push(3)
	assert.Equal(t, 3, q.Len())

	ctx := context.Background()
	for want := 1; want <= 3; want++ {
		got, ok := q.Pop(ctx)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestQueue_PopWaitsForPush(t *testing.T) {
	q := newQueue[string]()
	got := make(chan string, 1)
	go func() {
		v, _ := q.Pop(context.Background())
		got <- v
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push("x")

	select {
	case v := <-got:
		assert.Equal(t, "x", v)
	case <-time.After(time.Second):
		t.Fatal("Pop did not return")
	}
}

func TestQueue_PopCancelled(t *testing.T) {
	q := newQueue[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := q.Pop(ctx)
	assert.False(t, ok)
}

func TestActivity_Wait(t *testing.T) {
	a := newActivity()
	require.NoError(t, a.wait(context.Background()))

	a.add()
	a.add()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, a.wait(ctx), context.DeadlineExceeded)

	a.done()
	a.done()
	a.done() // extra done is ignored
	require.NoError(t, a.wait(context.Background()))

	a.add()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	assert.Error(t, a.wait(ctx2))
}
