package session

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"sqlbench/cli/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkInvariants asserts the structural guarantees that must hold after every operation.
func checkInvariants(t *testing.T, r *Registry) {
	t.Helper()
	all := r.Sessions()
	require.NotEmpty(t, all, "registry must never be empty")

	seen := make(map[ID]bool, len(all))
	activeFound := false
	for _, s := range all {
		require.False(t, seen[s.ID], "duplicate id %s", s.ID)
		seen[s.ID] = true
		if s.ID == r.ActiveID() {
			activeFound = true
		}
	}
	require.True(t, activeFound, "active id %s is not a member", r.ActiveID())
	require.Equal(t, len(all), r.Len())
}

func TestNewRegistryBootstrapsOneSession(t *testing.T) {
	r := NewRegistry()

	all := r.Sessions()
	require.Len(t, all, 1)
	assert.Equal(t, ID("tab-1"), all[0].ID)
	assert.Equal(t, "Query 1", all[0].Title)
	assert.Equal(t, DefaultDraft, all[0].DraftQuery)
	assert.Nil(t, all[0].LastResult)
	assert.Equal(t, StatusIdle, all[0].Status)
	assert.Equal(t, all[0].ID, r.ActiveID())
}

func TestCreateActivatesNewSession(t *testing.T) {
	r := NewRegistry()
	id := r.Create()

	assert.Equal(t, ID("tab-2"), id)
	assert.Equal(t, id, r.ActiveID())
	assert.Equal(t, "Query 2", r.Active().Title)
	checkInvariants(t, r)
}

func TestCloseLastSessionSubstitutesFreshOne(t *testing.T) {
	r := NewRegistry()
	first := r.ActiveID()
	r.UpdateDraft(first, "select 1")

	r.Close(first)

	all := r.Sessions()
	require.Len(t, all, 1)
	assert.NotEqual(t, first, all[0].ID)
	assert.Equal(t, DefaultDraft, all[0].DraftQuery)
	assert.Nil(t, all[0].LastResult)
	assert.Equal(t, all[0].ID, r.ActiveID())
	checkInvariants(t, r)
}

func TestCloseActiveMovesToLastRemaining(t *testing.T) {
	r := NewRegistry()
	a := r.ActiveID()
	b := r.Create()
	c := r.Create()

	r.SetActive(b)
	r.Close(b)
	assert.Equal(t, c, r.ActiveID())

	r.Close(c)
	assert.Equal(t, a, r.ActiveID())
	checkInvariants(t, r)
}

func TestCloseInactiveKeepsActive(t *testing.T) {
	r := NewRegistry()
	a := r.ActiveID()
	b := r.Create()

	r.SetActive(a)
	r.Close(b)
	assert.Equal(t, a, r.ActiveID())
}

func TestUnknownIDsAreNoOps(t *testing.T) {
	r := NewRegistry()
	before := r.Sessions()

	r.Close("nope")
	r.Rename("nope", "x")
	r.UpdateDraft("nope", "x")
	r.UpdateResult("nope", &model.Result{Success: true})
	r.SetRunning("nope", true)
	assert.False(t, r.SetActive("nope"))
	assert.False(t, r.BeginRun("nope"))
	_, ok := r.Duplicate("nope")
	assert.False(t, ok)
	_, ok = r.Get("nope")
	assert.False(t, ok)

	assert.Equal(t, before, r.Sessions())
}

func TestDuplicateNeverCopiesResultOrRunning(t *testing.T) {
	r := NewRegistry()
	src := r.ActiveID()
	r.UpdateDraft(src, "select * from users")
	r.UpdateResult(src, &model.Result{Success: true, Columns: []string{"id"}, Data: [][]any{{1}}})
	r.SetRunning(src, true)

	dup, ok := r.Duplicate(src)
	require.True(t, ok)

	got, ok := r.Get(dup)
	require.True(t, ok)
	assert.Equal(t, "Query 1 (Copy)", got.Title)
	assert.Equal(t, "select * from users", got.DraftQuery)
	assert.Nil(t, got.LastResult)
	assert.Equal(t, StatusIdle, got.Status)
	assert.Equal(t, dup, r.ActiveID())

	orig, _ := r.Get(src)
	assert.True(t, orig.Running())
	assert.NotNil(t, orig.LastResult)
}

func TestRenameIgnoresBlank(t *testing.T) {
	r := NewRegistry()
	id := r.ActiveID()

	r.Rename(id, "  Reports  ")
	s, _ := r.Get(id)
	assert.Equal(t, "Reports", s.Title)

	r.Rename(id, "   ")
	s, _ = r.Get(id)
	assert.Equal(t, "Reports", s.Title)
}

func TestBeginRunIsExclusive(t *testing.T) {
	r := NewRegistry()
	id := r.ActiveID()

	assert.True(t, r.BeginRun(id))
	assert.False(t, r.BeginRun(id))
	r.SetRunning(id, false)
	assert.True(t, r.BeginRun(id))
}

func TestSnapshotsAreCopies(t *testing.T) {
	r := NewRegistry()
	id := r.ActiveID()
	r.UpdateResult(id, &model.Result{Success: true, Message: "ok"})

	s := r.Active()
	s.Title = "mutated"
	s.LastResult.Message = "mutated"

	fresh, _ := r.Get(id)
	assert.Equal(t, "Query 1", fresh.Title)
	assert.Equal(t, "ok", fresh.LastResult.Message)
}

func TestAt(t *testing.T) {
	r := NewRegistry()
	b := r.Create()

	id, ok := r.At(2)
	assert.True(t, ok)
	assert.Equal(t, b, id)
	_, ok = r.At(0)
	assert.False(t, ok)
	_, ok = r.At(3)
	assert.False(t, ok)
}

func TestRegistriesAreIndependent(t *testing.T) {
	r1 := NewRegistry()
	r2 := NewRegistry()
	r1.Create()
	r1.UpdateDraft(r1.ActiveID(), "only in r1")

	assert.Equal(t, 2, r1.Len())
	assert.Equal(t, 1, r2.Len())
	assert.Equal(t, DefaultDraft, r2.Active().DraftQuery)
}

func TestUUIDGenerator(t *testing.T) {
	r := NewRegistry(WithIDGenerator(UUIDs{}))
	a := r.ActiveID()
	b := r.Create()

	assert.Len(t, string(a), 36)
	assert.NotEqual(t, a, b)
}

func TestIDsNeverReusedAfterClose(t *testing.T) {
	r := NewRegistry()
	seen := map[ID]bool{r.ActiveID(): true}
	for i := 0; i < 20; i++ {
		r.Close(r.ActiveID())
		id := r.ActiveID()
		require.False(t, seen[id], "id %s reused", id)
		seen[id] = true
	}
}

func TestRandomOperationsPreserveInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := NewRegistry()

	pick := func() ID {
		all := r.Sessions()
		if rng.Intn(10) == 0 {
			return "missing"
		}
		return all[rng.Intn(len(all))].ID
	}

	for i := 0; i < 2000; i++ {
		switch rng.Intn(7) {
		case 0:
			r.Create()
		case 1:
			r.Close(pick())
		case 2:
			r.Duplicate(pick())
		case 3:
			r.Rename(pick(), fmt.Sprintf("t%d", i))
		case 4:
			r.SetActive(pick())
		case 5:
			r.UpdateDraft(pick(), "select 1")
		case 6:
			r.SetRunning(pick(), rng.Intn(2) == 0)
		}
		checkInvariants(t, r)
	}
}

func TestConcurrentMutations(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := r.Create()
				r.UpdateDraft(id, "select 1")
				r.BeginRun(id)
				r.UpdateResult(id, &model.Result{Success: true})
				r.SetRunning(id, false)
				r.Close(id)
			}
		}()
	}
	wg.Wait()
	checkInvariants(t, r)
}

func TestDefaultDraftOption(t *testing.T) {
	r := NewRegistry(WithDefaultDraft("-- scratch\n"))
	assert.Equal(t, "-- scratch\n", r.Placeholder())
	assert.Equal(t, "-- scratch\n", r.Active().DraftQuery)

	id := r.Create()
	s, _ := r.Get(id)
	assert.Equal(t, "-- scratch\n", s.DraftQuery)
}
