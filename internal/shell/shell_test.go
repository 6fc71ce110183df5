package shell

import (
	"context"
	"errors"
	"testing"
	"time"

	"coinshelter/internal/auth"
	"coinshelter/internal/core"
	"coinshelter/internal/records"
	"coinshelter/internal/records/memory"
)

type recordingPublisher struct {
	events []string
	err    error
}

func (p *recordingPublisher) PublishCoinChange(ctx context.Context, id, op string) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, op+":"+id)
	return nil
}

// failingStore wraps a store and fails every mutation.
type failingStore struct {
	records.Store
}

var errStore = errors.New("store down")

func (failingStore) Insert(context.Context, string, core.CoinDraft) (core.CoinRecord, error) {
	return core.CoinRecord{}, errStore
}
func (failingStore) Update(context.Context, string, string, core.CoinDraft) (core.CoinRecord, error) {
	return core.CoinRecord{}, errStore
}
func (failingStore) Delete(context.Context, string, string) error { return errStore }

func draft(name string, material core.Material, cents int64) core.CoinDraft {
	return core.CoinDraft{Name: name, Material: material, Price: &core.Money{Cents: cents}}
}

func signedIn(t *testing.T, store records.Store, users records.UserStore, pub ChangePublisher) *Shell {
	t.Helper()
	provider := auth.NewProvider(users, auth.Options{
		Secret:   []byte("test-secret-key-0123456789"),
		TokenTTL: time.Hour,
	}, nil)
	s := New(store, provider, pub, nil)
	if _, _, err := provider.SignUp(context.Background(), "collector@example.com", "hunter2hunter2", ""); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	return s
}

func TestCreateRequiresSession(t *testing.T) {
	store := memory.New()
	provider := auth.NewProvider(store, auth.Options{
		Secret:   []byte("test-secret-key-0123456789"),
		TokenTTL: time.Hour,
	}, nil)
	s := New(store, provider, nil, nil)

	_, err := s.Create(context.Background(), draft("Ducat", core.Gold, 10000))
	if !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Fatalf("Create() without session error = %v, want ErrNotAuthenticated", err)
	}
	if len(s.Snapshot()) != 0 {
		t.Error("Create() without session mutated the list")
	}
}

func TestCreateInsertsAtFront(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{}
	s := signedIn(t, store, store, pub)
	ctx := context.Background()

	first, err := s.Create(ctx, draft("First", core.Gold, 100))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, err := s.Create(ctx, draft("Second", core.Silver, 200))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	list := s.Snapshot()
	if len(list) != 2 {
		t.Fatalf("Snapshot() len = %d, want 2", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("list order = [%s %s], want newest first", list[0].Name, list[1].Name)
	}
	if len(pub.events) != 2 || pub.events[0] != "created:"+first.ID {
		t.Errorf("published events = %v, want created events in order", pub.events)
	}
}

func TestUpdateReplacesInPlace(t *testing.T) {
	store := memory.New()
	s := signedIn(t, store, store, nil)
	ctx := context.Background()

	a, _ := s.Create(ctx, draft("A", core.Gold, 100))
	b, _ := s.Create(ctx, draft("B", core.Silver, 200))
	c, _ := s.Create(ctx, draft("C", core.Copper, 300))

	updated, err := s.Update(ctx, b.ID, draft("B2", core.Platinum, 999))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "B2" {
		t.Errorf("Update() name = %q, want B2", updated.Name)
	}

	list := s.Snapshot()
	wantOrder := []string{c.ID, b.ID, a.ID}
	for i, id := range wantOrder {
		if list[i].ID != id {
			t.Fatalf("list[%d].ID = %s, want %s (position must not move on update)", i, list[i].ID, id)
		}
	}
	if list[1].Name != "B2" || list[1].Material != core.Platinum {
		t.Errorf("list[1] = %q/%q, want replaced record", list[1].Name, list[1].Material)
	}
}

func TestUpdateUnknownIDLeavesListUnchanged(t *testing.T) {
	store := memory.New()
	s := signedIn(t, store, store, nil)
	ctx := context.Background()

	if _, err := s.Create(ctx, draft("Keep", core.Gold, 100)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	before := s.Snapshot()

	_, err := s.Update(ctx, "missing", draft("X", core.Gold, 1))
	if !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("Update() error = %v, want ErrNotFound", err)
	}

	after := s.Snapshot()
	if len(after) != len(before) || after[0].Name != "Keep" {
		t.Error("failed update mutated the list")
	}
}

func TestDeleteRemoves(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{}
	s := signedIn(t, store, store, pub)
	ctx := context.Background()

	a, _ := s.Create(ctx, draft("A", core.Gold, 100))
	b, _ := s.Create(ctx, draft("B", core.Silver, 200))

	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	list := s.Snapshot()
	if len(list) != 1 || list[0].ID != b.ID {
		t.Errorf("list after delete = %v, want only %s", list, b.Name)
	}
	if pub.events[len(pub.events)-1] != "deleted:"+a.ID {
		t.Errorf("last event = %s, want deleted:%s", pub.events[len(pub.events)-1], a.ID)
	}
}

func TestStoreFailureLeavesListUnchanged(t *testing.T) {
	mem := memory.New()
	s := signedIn(t, failingStore{Store: mem}, mem, nil)
	ctx := context.Background()

	if _, err := s.Create(ctx, draft("Doomed", core.Gold, 100)); !errors.Is(err, errStore) {
		t.Fatalf("Create() error = %v, want store error", err)
	}
	if len(s.Snapshot()) != 0 {
		t.Error("failed create mutated the list")
	}
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{err: errors.New("broker down")}
	s := signedIn(t, store, store, pub)

	if _, err := s.Create(context.Background(), draft("Ducat", core.Gold, 100)); err != nil {
		t.Fatalf("Create() error = %v, publish failures must not surface", err)
	}
}

func TestViewRecomputes(t *testing.T) {
	store := memory.New()
	s := signedIn(t, store, store, nil)
	ctx := context.Background()
	s.now = func() time.Time { return time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC) }

	gold := draft("Sovereign", core.Gold, 40000)
	gold.PurchasedAt, _ = core.ParseDate("2024-02-01")
	if _, err := s.Create(ctx, gold); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := s.Create(ctx, draft("Denarius", core.Silver, 15000)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	visible, stats, ok := s.View(core.ViewState{Sort: core.SortNone, Filter: core.FilterGold})
	if !ok {
		t.Fatal("View() ok = false, want data")
	}
	if len(visible) != 1 || visible[0].Name != "Sovereign" {
		t.Fatalf("View() visible = %v, want only the gold coin", visible)
	}
	if stats.Count != 1 || stats.TotalCents != 40000 {
		t.Errorf("View() stats = count %d total %d, want 1/40000", stats.Count, stats.TotalCents)
	}
	if stats.ThisMonth != 40000 {
		t.Errorf("View() ThisMonth = %d, want 40000", stats.ThisMonth)
	}

	_, _, ok = s.View(core.ViewState{Sort: core.SortNone, Filter: core.FilterPlatinum})
	if ok {
		t.Error("View() ok = true on empty visible list, want no-data signal")
	}
}

func TestCannotMutateAnotherOwnersRecord(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	foreign, err := store.Insert(ctx, "someone-else", draft("Theirs", core.Gold, 10000))
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	s := signedIn(t, store, store, nil)

	if _, err := s.Update(ctx, foreign.ID, draft("Hijacked", core.Copper, 1)); !errors.Is(err, records.ErrNotFound) {
		t.Errorf("Update() on foreign record error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, foreign.ID); !errors.Is(err, records.ErrNotFound) {
		t.Errorf("Delete() on foreign record error = %v, want ErrNotFound", err)
	}

	got, err := store.Get(ctx, foreign.ID)
	if err != nil || got.Name != "Theirs" || got.Material != core.Gold {
		t.Errorf("foreign record must be untouched, got %+v (%v)", got, err)
	}
}

func TestSessionChangeLoadsCollection(t *testing.T) {
	store := memory.New()
	provider := auth.NewProvider(store, auth.Options{
		Secret:   []byte("test-secret-key-0123456789"),
		TokenTTL: time.Hour,
	}, nil)
	ctx := context.Background()

	session, _, err := provider.SignUp(ctx, "collector@example.com", "hunter2hunter2", "")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if _, err := store.Insert(ctx, session.UserID, draft("Existing", core.Gold, 100)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	provider.SignOut()

	s := New(store, provider, nil, nil)
	if _, err := provider.SignIn(ctx, "collector@example.com", "hunter2hunter2"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	list := s.Snapshot()
	if len(list) != 1 || list[0].Name != "Existing" {
		t.Errorf("Snapshot() after sign in = %v, want stored collection", list)
	}
}
