package store

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakePersister struct {
	mu      sync.Mutex
	loaded  []Entry
	saved   [][]Entry
	saveErr error
	block   chan struct{} // when set, Save waits on it
	entered chan struct{}
}

func (f *fakePersister) Load(context.Context) ([]Entry, error) { return f.loaded, nil }

func (f *fakePersister) Save(_ context.Context, entries []Entry) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, append([]Entry(nil), entries...))
	return nil
}

func (f *fakePersister) saves() [][]Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved
}

func TestAddAndGet(t *testing.T) {
	s := New(&fakePersister{})
	if got := s.Get("u1"); got != 0 {
		t.Fatalf("Get on empty store = %d", got)
	}
	if got := s.Add("u1", 70); got != 70 {
		t.Fatalf("Add = %d, want 70", got)
	}
	if got := s.Add("u1", 30); got != 100 {
		t.Fatalf("Add = %d, want 100", got)
	}
	if got := s.Get("u1"); got != 100 {
		t.Fatalf("Get = %d, want 100", got)
	}
}

func TestAddClampsAtZero(t *testing.T) {
	s := New(&fakePersister{})
	s.Add("u1", 20)
	if got := s.Add("u1", -50); got != 0 {
		t.Fatalf("Add = %d, want 0", got)
	}
	if got := s.Add("u2", -5); got != 0 {
		t.Fatalf("Add on new user = %d, want 0", got)
	}
}

func TestZeroDeltaCreatesNoEntry(t *testing.T) {
	s := New(&fakePersister{})
	s.Add("ghost", 0)
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0", s.Len())
	}
	if s.Dirty() {
		t.Fatal("store dirty after no-op add")
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	s := New(&fakePersister{})
	s.Add("a", 40)
	s.Add("b", 100)
	s.Add("c", 40)
	s.Add("d", 85)

	got := s.Leaderboard(0)
	want := []string{"b", "d", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, r := range got {
		if r.UserID != want[i] || r.Rank != i+1 {
			t.Errorf("row %d = %+v, want user %s rank %d", i, r, want[i], i+1)
		}
	}

	if top := s.Leaderboard(2); len(top) != 2 || top[1].UserID != "d" {
		t.Errorf("Leaderboard(2) = %+v", top)
	}

	r, ok := s.Rank("c")
	if !ok || r.Rank != 4 || r.Score != 40 {
		t.Errorf("Rank(c) = %+v, %v", r, ok)
	}
	if _, ok := s.Rank("nobody"); ok {
		t.Error("Rank found a user that never scored")
	}
}

func TestFlushSkipsWhenClean(t *testing.T) {
	p := &fakePersister{}
	s := New(p)
	ctx := context.Background()

	if err := s.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if n := len(p.saves()); n != 0 {
		t.Fatalf("clean flush wrote %d snapshots", n)
	}

	s.Add("u1", 10)
	if !s.Dirty() {
		t.Fatal("store not dirty after Add")
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if n := len(p.saves()); n != 1 {
		t.Fatalf("got %d saves, want 1", n)
	}
	if s.Dirty() {
		t.Fatal("store dirty after flush")
	}
}

func TestFlushFailureKeepsDirty(t *testing.T) {
	boom := errors.New("disk full")
	p := &fakePersister{saveErr: boom}
	s := New(p)
	s.Add("u1", 10)

	err := s.Flush(context.Background())
	var pe *PersistenceError
	if !errors.As(err, &pe) || !errors.Is(err, boom) {
		t.Fatalf("Flush err = %v, want PersistenceError wrapping %v", err, boom)
	}
	if !s.Dirty() {
		t.Fatal("failed flush cleared dirty state")
	}
	if got := s.Get("u1"); got != 10 {
		t.Fatalf("cache changed after failed flush: %d", got)
	}
}

func TestResetDuringFlushIsPersisted(t *testing.T) {
	p := &fakePersister{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	s := New(p)
	s.Add("u1", 50)

	done := make(chan error, 1)
	go func() { done <- s.Flush(context.Background()) }()

	<-p.entered
	s.ResetAll()
	close(p.block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if !s.Dirty() {
		t.Fatal("reset during flush was marked clean")
	}

	p.entered = nil
	if err := s.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	saves := p.saves()
	if len(saves) != 2 {
		t.Fatalf("got %d saves, want 2", len(saves))
	}
	if len(saves[1]) != 0 {
		t.Fatalf("last save = %+v, want empty", saves[1])
	}
}

func TestOpenLoadsPersistedOrder(t *testing.T) {
	p := &fakePersister{loaded: []Entry{{"x", 10}, {"y", 10}, {"z", 30}}}
	s, err := Open(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	lb := s.Leaderboard(0)
	if lb[0].UserID != "z" || lb[1].UserID != "x" || lb[2].UserID != "y" {
		t.Fatalf("leaderboard = %+v", lb)
	}
	if s.Dirty() {
		t.Fatal("freshly loaded store is dirty")
	}
}

func TestConcurrentAdds(t *testing.T) {
	s := New(&fakePersister{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add("u1", 2)
		}()
	}
	wg.Wait()
	if got := s.Get("u1"); got != 100 {
		t.Fatalf("Get = %d, want 100", got)
	}
}
