package store

import "testing"

func TestCreate_OneStorePerOwner(t *testing.T) {
	repo := NewInMemoryRepository(nil)

	first, err := repo.Create(Store{OwnerID: 50, Name: "Duck Depot"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID == 0 {
		t.Fatal("expected generated id")
	}

	if _, err := repo.Create(Store{OwnerID: 50, Name: "Second Shop"}); err != ErrStoreExists {
		t.Fatalf("expected ErrStoreExists, got %v", err)
	}
}

func TestGetByOwner(t *testing.T) {
	repo := NewInMemoryRepository([]Store{
		{ID: 1, OwnerID: 50, Name: "Duck Depot"},
	})

	st, err := repo.GetByOwner(50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.ID != 1 {
		t.Fatalf("unexpected store %+v", st)
	}

	if _, err := repo.GetByOwner(99); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate_PreservesOwnerAndCreatedAt(t *testing.T) {
	repo := NewInMemoryRepository([]Store{
		{ID: 1, OwnerID: 50, Name: "Duck Depot", CreatedAt: "2026-01-01T00:00:00Z"},
	})

	updated, err := repo.Update(1, Store{Name: "Duck Depot & Co", OwnerID: 99})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.OwnerID != 50 {
		t.Fatalf("owner must not change, got %d", updated.OwnerID)
	}
	if updated.CreatedAt != "2026-01-01T00:00:00Z" {
		t.Fatalf("createdAt must not change, got %s", updated.CreatedAt)
	}
	if updated.Name != "Duck Depot & Co" {
		t.Fatalf("unexpected name %s", updated.Name)
	}
}
