// SPDX-License-Identifier: MIT

package badgerstore

import (
	"context"
	"testing"

	"github.com/ManuGH/zonewatch/internal/derived"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmpty(t *testing.T) {
	s, err := OpenInMemory(DefaultHistory)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, derived.ErrNoDocument)
}

func TestSaveLoadSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	doc := derived.Document{Version: derived.DocumentVersion, Zones: []derived.ZoneSpec{
		{Name: "ops", Components: []derived.ComponentSpec{
			{Kind: "file", Params: derived.Params{"path": "/var/lib/zonewatch/marker"}},
		}},
	}}

	s, err := Open(dir, DefaultHistory)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), doc))
	require.NoError(t, s.Close())

	reopened, err := Open(dir, DefaultHistory)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	s, err := OpenInMemory(2)
	require.NoError(t, err)
	defer s.Close()

	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, s.Save(context.Background(), derived.Document{Zones: []derived.ZoneSpec{{Name: name}}}))
	}

	hist, err := s.History()
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, []string{"third"}, hist[0].Names())
	assert.Equal(t, []string{"second"}, hist[1].Names())

	cur, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"third"}, cur.Names())
}

func TestNoHistory(t *testing.T) {
	s, err := OpenInMemory(0)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(context.Background(), derived.Document{}))
	hist, err := s.History()
	require.NoError(t, err)
	assert.Empty(t, hist)
}
