package memory

import (
	"context"
	"errors"
	"testing"

	"coinshelter/internal/core"
	"coinshelter/internal/records"
)

func draft(name string, cents int64) core.CoinDraft {
	return core.CoinDraft{
		Name:     name,
		Material: core.Gold,
		Price:    &core.Money{Cents: cents},
	}
}

func TestInsertAndListNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.Insert(ctx, "owner", draft("first", 100))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	second, err := s.Insert(ctx, "owner", draft("second", 200))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("insert must assign unique ids")
	}

	list, err := s.ListByOwner(ctx, "owner")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Name != "second" || list[1].Name != "first" {
		t.Fatalf("expected newest first, got %+v", list)
	}
}

func TestListFiltersByOwner(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.Insert(ctx, "alice", draft("a", 1)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.Insert(ctx, "bob", draft("b", 2)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	list, _ := s.ListByOwner(ctx, "alice")
	if len(list) != 1 || list[0].Name != "a" {
		t.Fatalf("expected only alice's coins, got %+v", list)
	}
}

func TestUpdateReplacesFields(t *testing.T) {
	s := New()
	ctx := context.Background()
	rec, _ := s.Insert(ctx, "owner", draft("old", 100))

	year := 1921
	d := draft("new", 300)
	d.Year = &year
	updated, err := s.Update(ctx, "owner", rec.ID, d)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "new" || updated.PriceCents() != 300 || updated.Year == nil {
		t.Fatalf("update must replace fields, got %+v", updated)
	}
	if updated.ID != rec.ID || !updated.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("update must not touch identity")
	}

	got, _ := s.Get(ctx, rec.ID)
	if got.Name != "new" {
		t.Fatalf("update must persist in place")
	}
}

func TestUpdateUnknownID(t *testing.T) {
	s := New()
	_, err := s.Update(context.Background(), "owner", "missing", draft("x", 1))
	if !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	rec, _ := s.Insert(ctx, "owner", draft("x", 1))
	if err := s.Delete(ctx, "owner", rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, rec.ID); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "owner", rec.ID); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("second delete must fail, got %v", err)
	}
}

func TestMutationsAreOwnerScoped(t *testing.T) {
	s := New()
	ctx := context.Background()
	rec, _ := s.Insert(ctx, "alice", draft("guarded", 100))

	if _, err := s.Update(ctx, "bob", rec.ID, draft("hijacked", 1)); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("foreign update must fail with ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, "bob", rec.ID); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("foreign delete must fail with ErrNotFound, got %v", err)
	}
	got, err := s.Get(ctx, rec.ID)
	if err != nil || got.Name != "guarded" {
		t.Fatalf("record must survive foreign mutations, got %+v (%v)", got, err)
	}
}

func TestInsertValidates(t *testing.T) {
	s := New()
	bad := core.CoinDraft{Name: "", Material: core.Gold, Price: &core.Money{Cents: 1}}
	if _, err := s.Insert(context.Background(), "owner", bad); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUsers(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, records.User{Email: "a@example.com", Name: "A"})
	if err != nil || u.ID == "" {
		t.Fatalf("create user: %v (%+v)", err, u)
	}

	if _, err := s.CreateUser(ctx, records.User{Email: "A@Example.com"}); !errors.Is(err, records.ErrDuplicateEmail) {
		t.Fatalf("duplicate email must be rejected case-insensitively, got %v", err)
	}

	got, err := s.GetUserByEmail(ctx, "A@EXAMPLE.COM")
	if err != nil || got.ID != u.ID {
		t.Fatalf("lookup by email: %v (%+v)", err, got)
	}

	if err := s.ConfirmUser(ctx, u.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	got, _ = s.GetUserByEmail(ctx, u.Email)
	if !got.Confirmed {
		t.Fatalf("expected confirmed user")
	}

	if _, err := s.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
