package viewport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNode struct {
	isLoading bool
	hasMore   bool
	loads     int
	remaining int
	err       error
}

func (n *fakeNode) state() (bool, bool) { return n.isLoading, n.hasMore }

func (n *fakeNode) loadMore(context.Context) error {
	n.loads++
	if n.err != nil {
		return n.err
	}
	n.remaining--
	n.hasMore = n.remaining > 0
	return nil
}

func TestFiresOncePerEntry(t *testing.T) {
	node := &fakeNode{hasMore: true, remaining: 10}
	tr := New(node.state, node.loadMore, 0)
	ctx := context.Background()

	fired, err := tr.Observe(ctx, true)
	require.NoError(t, err)
	assert.True(t, fired)

	// Still visible: not a new entry.
	fired, _ = tr.Observe(ctx, true)
	assert.False(t, fired)

	fired, _ = tr.Observe(ctx, false)
	assert.False(t, fired)
	fired, _ = tr.Observe(ctx, true)
	assert.True(t, fired)

	assert.Equal(t, 2, node.loads)
}

func TestDoesNotFireWhileLoading(t *testing.T) {
	node := &fakeNode{hasMore: true, remaining: 10}
	tr := New(node.state, node.loadMore, 0)
	ctx := context.Background()

	node.isLoading = true
	fired, _ := tr.Observe(ctx, true)
	assert.False(t, fired)
	assert.Equal(t, 0, node.loads)

	node.isLoading = false
	_, _ = tr.Observe(ctx, false)
	fired, _ = tr.Observe(ctx, true)
	assert.True(t, fired)
}

func TestLoadingWithoutPagesDoesNotStop(t *testing.T) {
	// First page in flight: nothing is known about later pages yet.
	node := &fakeNode{isLoading: true, hasMore: false}
	tr := New(node.state, node.loadMore, 0)
	ctx := context.Background()

	fired, _ := tr.Observe(ctx, true)
	assert.False(t, fired)
	assert.False(t, tr.Stopped())

	node.isLoading = false
	node.hasMore = true
	node.remaining = 5
	_, _ = tr.Observe(ctx, false)
	fired, err := tr.Observe(ctx, true)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, 1, node.loads)
}

func TestStopsWhenExhausted(t *testing.T) {
	node := &fakeNode{hasMore: true, remaining: 1}
	tr := New(node.state, node.loadMore, 0)
	ctx := context.Background()

	fired, _ := tr.Observe(ctx, true)
	assert.True(t, fired)
	assert.True(t, tr.Stopped())

	_, _ = tr.Observe(ctx, false)
	fired, _ = tr.Observe(ctx, true)
	assert.False(t, fired)
	assert.Equal(t, 1, node.loads)

	node.hasMore = true
	node.remaining = 5
	tr.Reset()
	fired, _ = tr.Observe(ctx, true)
	assert.True(t, fired)
}

func TestNeverFiresForExhaustedNode(t *testing.T) {
	node := &fakeNode{hasMore: false}
	tr := New(node.state, node.loadMore, 0)

	fired, _ := tr.Observe(context.Background(), true)
	assert.False(t, fired)
	assert.True(t, tr.Stopped())
}

func TestLoadErrorIsReturnedAndObservingContinues(t *testing.T) {
	node := &fakeNode{hasMore: true, remaining: 3, err: errors.New("timeout")}
	tr := New(node.state, node.loadMore, 0)
	ctx := context.Background()

	fired, err := tr.Observe(ctx, true)
	assert.True(t, fired)
	assert.Error(t, err)
	assert.False(t, tr.Stopped())
}

func TestMinIntervalDebouncesFlapping(t *testing.T) {
	node := &fakeNode{hasMore: true, remaining: 100}
	tr := New(node.state, node.loadMore, time.Hour)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = tr.Observe(ctx, true)
		_, _ = tr.Observe(ctx, false)
	}
	assert.Equal(t, 1, node.loads)
}
