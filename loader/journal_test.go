package loader

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal(t *testing.T) {
	ctx := context.Background()
	j, err := OpenJournal(t.TempDir())
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.Append(ctx, 0, events(1, 5)...))
	require.NoError(t, j.Append(ctx, 1, events(1, 2)...))

	p0 := j.Provider(0)
	got, err := p0.Next(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(3), got[0].Version)
	assert.Equal(t, []string{"x"}, got[0].Fields["n"])

	got, err = j.Provider(1).Next(ctx, 0, 100)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.NoError(t, j.Truncate(0, 3))
	got, err = p0.Next(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(4), got[0].Version)

	assert.Error(t, j.Append(ctx, 0, events(0, 0)...))
}

func TestJournal_InMemoryFeedsLoader(t *testing.T) {
	ctx := context.Background()
	j, err := OpenJournal("")
	require.NoError(t, err)

	require.NoError(t, j.Append(ctx, 3, events(1, 7)...))
	r := &recorder{}
	l := NewStreamLoader(3, j.Provider(3), r, fastOpts()...)
	require.NoError(t, l.Start(ctx))
	assert.Eventually(t, func() bool { return r.count() == 7 }, 2*time.Second, time.Millisecond)
	require.NoError(t, l.Shutdown(ctx))

	require.NoError(t, j.Close())
	_, err = j.Provider(3).Next(ctx, 0, 1)
	assert.ErrorIs(t, err, ErrJournalClosed)
	assert.ErrorIs(t, j.Append(ctx, 3, events(8, 8)...), ErrJournalClosed)
}
