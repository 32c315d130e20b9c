package settings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestKV(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "endpoint")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Put(ctx, "endpoint", "ws://localhost:8888"))
	got, err := s.Get(ctx, "endpoint")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8888", got)

	// overwrite
	require.NoError(t, s.Put(ctx, "endpoint", "wss://other:9000"))
	got, err = s.Get(ctx, "endpoint")
	require.NoError(t, err)
	assert.Equal(t, "wss://other:9000", got)

	require.NoError(t, s.Delete(ctx, "endpoint"))
	_, err = s.Get(ctx, "endpoint")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPanelLayout(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.LoadPanelLayout(ctx, "steering")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.SavePanelLayout(ctx,
		PanelLayout{Panel: "steering", X: 10, Y: 20, Visible: true}))
	require.NoError(t, s.SavePanelLayout(ctx,
		PanelLayout{Panel: "pedals", X: -5, Y: 0.5, Visible: false}))

	got, err := s.LoadPanelLayout(ctx, "steering")
	require.NoError(t, err)
	assert.Equal(t, PanelLayout{Panel: "steering", X: 10, Y: 20, Visible: true}, got)

	// moving a panel updates in place
	require.NoError(t, s.SavePanelLayout(ctx,
		PanelLayout{Panel: "steering", X: 42, Y: 21, Visible: true}))

	all, err := s.AllPanelLayouts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []PanelLayout{
		{Panel: "pedals", X: -5, Y: 0.5, Visible: false},
		{Panel: "steering", X: 42, Y: 21, Visible: true},
	}, all)
}
