// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/zonewatch/internal/derived"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zones.sqlite")
	s, err := New(context.Background(), path, DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestLoadEmptyDatabase(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, derived.ErrNoDocument)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, path := newTestStore(t)
	doc := derived.Document{Version: derived.DocumentVersion, Zones: []derived.ZoneSpec{
		{Name: "ops", Components: []derived.ComponentSpec{
			{Kind: "executor", Params: derived.Params{"min_executors": 3, "labels": "linux docker"}},
			{Kind: "class_loader", Params: derived.Params{"classes": "a.B,c.D@git"}},
		}},
		{Name: "empty"},
		{Name: "debug", Components: []derived.ComponentSpec{{Kind: "debug", Params: derived.Params{"ttl": 2}}}},
	}}
	require.NoError(t, s.Save(context.Background(), doc))

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	// A second store on the same file sees the same document.
	require.NoError(t, s.Close())
	reopened, err := New(context.Background(), path, DefaultConfig())
	require.NoError(t, err)
	defer reopened.Close()
	got, err = reopened.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ops", "empty", "debug"}, got.Names())
}

func TestSaveReplacesEverything(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, derived.Document{Zones: []derived.ZoneSpec{
		{Name: "a", Components: []derived.ComponentSpec{{Kind: "debug"}}},
		{Name: "b"},
	}}))
	require.NoError(t, s.Save(ctx, derived.Document{Zones: []derived.ZoneSpec{{Name: "c"}}}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, got.Names())
	assert.Empty(t, got.Zones[0].Components)

	require.NoError(t, s.Save(ctx, derived.Document{}))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Zones)
}

func TestSaveDuplicateNamesRollsBack(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, derived.Document{Zones: []derived.ZoneSpec{{Name: "keep"}}}))

	err := s.Save(ctx, derived.Document{Zones: []derived.ZoneSpec{{Name: "x"}, {Name: "x"}}})
	require.Error(t, err)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, got.Names())
}

func TestLoadCorruptParams(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, derived.Document{Zones: []derived.ZoneSpec{
		{Name: "ops", Components: []derived.ComponentSpec{{Kind: "debug", Params: derived.Params{"ttl": 1}}}},
	}}))
	_, err := s.db.ExecContext(ctx, `UPDATE zone_components SET params = '{{{'`)
	require.NoError(t, err)

	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, derived.ErrCorruptDocument)
}

func TestVerifyIntegrity(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Save(context.Background(), derived.Document{Zones: []derived.ZoneSpec{{Name: "ops"}}}))

	issues, err := s.Verify()
	require.NoError(t, err)
	assert.Nil(t, issues)

	garbage := filepath.Join(t.TempDir(), "garbage.sqlite")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not a sqlite database, not even close......"), 0o600))
	issues, err = VerifyIntegrity(garbage, "full")
	assert.True(t, err != nil || len(issues) > 0, "garbage file must not verify as healthy")
}
