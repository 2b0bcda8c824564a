package store_test

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairchat/internal/store"
)

type note struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

func (n *note) RecordID() string      { return n.ID }
func (n *note) SetRecordID(id string) { n.ID = id }

func openNotes(t *testing.T) (*store.Collection[*note], string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.json")
	c, err := store.Open[*note](path)
	require.NoError(t, err)
	return c, path
}

func TestOpenInitializesDocument(t *testing.T) {
	_, path := openNotes(t)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestOpenKeepsExistingDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"n1","body":"kept"}]`), 0o644))

	c, err := store.Open[*note](path)
	require.NoError(t, err)

	notes, err := c.LoadAll()
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "kept", notes[0].Body)
}

func TestAppendAssignsUniqueIDs(t *testing.T) {
	c, _ := openNotes(t)

	first, err := c.Append(&note{Body: "one"})
	require.NoError(t, err)
	second, err := c.Append(&note{Body: "two"})
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.NotEmpty(t, second.ID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestAppendKeepsSuppliedID(t *testing.T) {
	c, _ := openNotes(t)

	stored, err := c.Append(&note{ID: "fixed", Body: "one"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", stored.ID)
}

func TestLoadAllPreservesInsertionOrder(t *testing.T) {
	c, _ := openNotes(t)

	for i := 0; i < 5; i++ {
		_, err := c.Append(&note{Body: fmt.Sprintf("note-%d", i)})
		require.NoError(t, err)
	}

	notes, err := c.LoadAll()
	require.NoError(t, err)
	require.Len(t, notes, 5)
	for i, n := range notes {
		assert.Equal(t, fmt.Sprintf("note-%d", i), n.Body)
	}
}

func TestFindUnique(t *testing.T) {
	c, _ := openNotes(t)

	_, err := c.Append(&note{Body: "wanted"})
	require.NoError(t, err)

	found, err := c.FindUnique(func(n *note) bool { return n.Body == "wanted" })
	require.NoError(t, err)
	assert.Equal(t, "wanted", found.Body)

	_, err = c.FindUnique(func(n *note) bool { return n.Body == "missing" })
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAppendUniqueRejectsMatchingRecord(t *testing.T) {
	c, _ := openNotes(t)

	_, err := c.AppendUnique(&note{Body: "taken"}, func(n *note) bool { return n.Body == "taken" })
	require.NoError(t, err)

	_, err = c.AppendUnique(&note{Body: "taken"}, func(n *note) bool { return n.Body == "taken" })
	assert.ErrorIs(t, err, store.ErrDuplicate)

	notes, err := c.LoadAll()
	require.NoError(t, err)
	assert.Len(t, notes, 1, "rejected append must not mutate the collection")
}

func TestConcurrentAppendUniqueCommitsOnce(t *testing.T) {
	c, _ := openNotes(t)

	const writers = 16
	match := func(n *note) bool { return n.Body == "contended" }

	start := make(chan struct{})
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := c.AppendUnique(&note{Body: "contended"}, match)
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	committed := 0
	for err := range errs {
		if err == nil {
			committed++
		} else {
			require.ErrorIs(t, err, store.ErrDuplicate)
		}
	}
	assert.Equal(t, 1, committed, "exactly one of the contending appends may commit")

	notes, err := c.LoadAll()
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestWriteFailureLeavesDocumentIntact(t *testing.T) {
	c, path := openNotes(t)

	_, err := c.Append(&note{Body: "survivor"})
	require.NoError(t, err)

	// Occupying the temp path with a directory makes the rewrite fail.
	require.NoError(t, os.Mkdir(path+".tmp", 0o755))

	_, err = c.Append(&note{Body: "doomed"})
	assert.ErrorIs(t, err, store.ErrWrite)

	notes, err := c.LoadAll()
	require.NoError(t, err)
	require.Len(t, notes, 1, "failed append must not be committed")
	assert.Equal(t, "survivor", notes[0].Body)
}

func TestLoadAllReportsCorruptDocument(t *testing.T) {
	c, path := openNotes(t)
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := c.LoadAll()
	assert.ErrorIs(t, err, store.ErrCorrupt)

	_, err = c.Append(&note{Body: "after corruption"})
	assert.ErrorIs(t, err, store.ErrCorrupt)
}

func TestConcurrentAppendsLoseNoWrites(t *testing.T) {
	c, _ := openNotes(t)

	const writers = 50
	var wg sync.WaitGroup
	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Append(&note{Body: fmt.Sprintf("writer-%d", i)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	notes, err := c.LoadAll()
	require.NoError(t, err)
	assert.Len(t, notes, writers)

	seen := make(map[string]bool, writers)
	for _, n := range notes {
		assert.False(t, seen[n.Body], "duplicate record %q", n.Body)
		seen[n.Body] = true
	}
}
