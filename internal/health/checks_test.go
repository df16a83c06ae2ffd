// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/zonewatch/internal/derived"
	"github.com/ManuGH/zonewatch/internal/inventory"
	"github.com/ManuGH/zonewatch/internal/plugins"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugCheckTTL(t *testing.T) {
	c := Adapt(NewDebugCheck(2))
	ctx := context.Background()

	assert.Equal(t, "DebugCheck [ttl={2},count=0]", c.String())
	assert.Equal(t, derived.Success, c.PerformDerivation(ctx).Result())
	assert.Equal(t, derived.Success, c.PerformDerivation(ctx).Result())
	assert.Equal(t, derived.Failure, c.PerformDerivation(ctx).Result())
	assert.Equal(t, derived.Failure, c.PerformDerivation(ctx).Result())
	assert.Equal(t, "DebugCheck [ttl={2},count=4]", c.String())
}

func TestDebugCheckNegativeTTLNeverFails(t *testing.T) {
	c := NewDebugCheck(-1)
	for i := 0; i < 10; i++ {
		assert.Equal(t, derived.Success, c.Perform(context.Background(), NewListener()))
	}
	assert.Equal(t, int64(10), c.Count())
}

func TestDebugCheckZeroTTLFailsImmediately(t *testing.T) {
	c := NewDebugCheck(0)
	assert.Equal(t, derived.Failure, c.Perform(context.Background(), NewListener()))
}

func testInventory() *inventory.Static {
	return inventory.NewStatic(
		inventory.Node{Name: "master", Executors: 2, Online: true},
		inventory.Node{Name: "linux-1", Labels: []string{"linux"}, Executors: 4, Online: true},
		inventory.Node{Name: "linux-2", Labels: []string{"linux", "docker"}, Executors: 4, Online: false},
		inventory.Node{Name: "win-1", Labels: []string{"windows"}, Executors: 3, Online: true},
	)
}

func TestExecutorCheck(t *testing.T) {
	inv := testInventory()
	tests := []struct {
		name   string
		min    int
		labels string
		want   derived.Result
	}{
		{name: "all nodes include master", min: 9, labels: "", want: derived.Success},
		{name: "all nodes too few", min: 100, labels: "", want: derived.Failure},
		{name: "offline nodes skipped", min: 5, labels: "linux", want: derived.Failure},
		{name: "single label", min: 4, labels: "linux", want: derived.Success},
		{name: "union of labels", min: 7, labels: "linux, windows", want: derived.Success},
		{name: "overlapping labels counted once", min: 5, labels: "linux docker", want: derived.Failure},
		{name: "unknown label", min: 1, labels: "non-existence-label", want: derived.Failure},
		{name: "zero required", min: 0, labels: "non-existence-label", want: derived.Success},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewExecutorCheck(inv, tt.min, tt.labels)
			require.NoError(t, err)
			l := NewListener()
			assert.Equal(t, tt.want, c.Perform(context.Background(), l))
			if tt.want == derived.Failure {
				assert.Contains(t, l.String(), "ERROR: Found")
			} else {
				assert.Empty(t, l.String())
			}
		})
	}
}

func TestExecutorCheckEmptyInventory(t *testing.T) {
	c, err := NewExecutorCheck(inventory.NewStatic(), 0, "")
	require.NoError(t, err)
	assert.Equal(t, derived.Success, c.Perform(context.Background(), NewListener()))

	c, err = NewExecutorCheck(inventory.NewStatic(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, derived.Failure, c.Perform(context.Background(), NewListener()))
}

func TestExecutorCheckMessageAndDisplay(t *testing.T) {
	c, err := NewExecutorCheck(testInventory(), 42, "l1\nl2   l3,l4 l1")
	require.NoError(t, err)
	assert.Equal(t, []string{"l1", "l2", "l3", "l4"}, c.Labels())
	assert.Equal(t, "ExecutorCheck [label={l1,l2,l3,l4},minExecutors=42]", c.String())

	l := NewListener()
	assert.Equal(t, derived.Failure, c.Perform(context.Background(), l))
	assert.Equal(t, "ERROR: Found 0 online executors, need at least 42 (labels: l1,l2,l3,l4).\n", l.String())

	_, err = NewExecutorCheck(testInventory(), -1, "")
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = NewExecutorCheck(nil, 1, "")
	assert.ErrorIs(t, err, ErrInvalidParams)
}

type brokenInventory struct{}

func (brokenInventory) Nodes(context.Context) ([]inventory.Node, error) {
	return nil, errors.New("controller unreachable")
}

func TestExecutorCheckInventoryError(t *testing.T) {
	c, err := NewExecutorCheck(brokenInventory{}, 1, "")
	require.NoError(t, err)
	l := NewListener()
	assert.Equal(t, derived.Failure, c.Perform(context.Background(), l))
	assert.Contains(t, l.String(), "controller unreachable")
}

func TestClassCheck(t *testing.T) {
	catalog := plugins.NewStatic(
		[]string{"java.lang.String"},
		plugins.NewPlugin("git", "5.2.0", "hudson.plugins.git.GitSCM"),
	)

	t.Run("all present", func(t *testing.T) {
		c, err := NewClassCheck(catalog, "java.lang.String, hudson.plugins.git.GitSCM@git")
		require.NoError(t, err)
		l := NewListener()
		assert.Equal(t, derived.Success, c.Perform(context.Background(), l))
		assert.Empty(t, l.String())
		assert.Equal(t, "ClassLoaderCheck [java.lang.String,hudson.plugins.git.GitSCM@git]", c.String())
	})

	t.Run("misses are all reported", func(t *testing.T) {
		c, err := NewClassCheck(catalog, "com.example.Missing\njava.lang.String@git hudson.plugins.git.GitSCM@svn")
		require.NoError(t, err)
		l := NewListener()
		assert.Equal(t, derived.Failure, c.Perform(context.Background(), l))
		assert.Equal(t,
			"ERROR: Class not found: com.example.Missing.\n"+
				"ERROR: Class not found: java.lang.String@git.\n"+
				"ERROR: Plugin not found: svn.\n",
			l.String())
	})

	t.Run("empty list succeeds", func(t *testing.T) {
		c, err := NewClassCheck(catalog, "  ")
		require.NoError(t, err)
		assert.Empty(t, c.Classes())
		assert.Equal(t, derived.Success, c.Perform(context.Background(), NewListener()))
	})

	_, err := NewClassCheck(nil, "x")
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestFileCheck(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "full.txt")
	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(full, []byte("data"), 0o600))
	require.NoError(t, os.WriteFile(empty, nil, 0o600))

	tests := []struct {
		path string
		want derived.Result
		msg  string
	}{
		{path: full, want: derived.Success},
		{path: empty, want: derived.Unstable, msg: "file is empty"},
		{path: dir, want: derived.Failure, msg: "expected file, got directory"},
		{path: filepath.Join(dir, "missing"), want: derived.Failure, msg: "file not found"},
	}
	for _, tt := range tests {
		c, err := NewFileCheck(tt.path)
		require.NoError(t, err)
		l := NewListener()
		assert.Equal(t, tt.want, c.Perform(context.Background(), l), tt.path)
		if tt.msg == "" {
			assert.Empty(t, l.String())
		} else {
			assert.Contains(t, l.String(), tt.msg)
		}
	}

	_, err := NewFileCheck("")
	assert.ErrorIs(t, err, ErrInvalidParams)
}

type badResultCheck struct{}

func (badResultCheck) Perform(_ context.Context, l *Listener) derived.Result {
	l.Printf("partial output\n")
	return derived.Result(0)
}
func (badResultCheck) Describe() derived.ComponentSpec { return derived.ComponentSpec{Kind: "bad"} }
func (badResultCheck) String() string { return "BadCheck" }

func TestAdapterInvalidResultIsFailure(t *testing.T) {
	rep := Adapt(badResultCheck{}).PerformDerivation(context.Background())
	assert.Equal(t, derived.Failure, rep.Result())
	assert.Contains(t, rep.Value(), "partial output")
	assert.Contains(t, rep.Value(), "BadCheck returned")
}

func TestFailureValue(t *testing.T) {
	assert.Equal(t, "ERROR: timed out\n", FailureValue(errors.New("timed out")))
}
