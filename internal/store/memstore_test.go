package store

import (
	"context"
	"testing"
	"time"
)

func TestMemCollectionInsertGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemCollection[string]()

	if err := c.Insert(ctx, "a", "hello"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := c.Insert(ctx, "a", "again"); err == nil {
		t.Fatal("expected error inserting duplicate id")
	}

	v, ok, err := c.Get(ctx, "a")
	if err != nil || !ok || v != "hello" {
		t.Fatalf("expected (hello, true), got (%v, %v, %v)", v, ok, err)
	}

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Fatal("expected doc gone after delete")
	}
}

func TestMemCollectionQueryFiltersByPredicate(t *testing.T) {
	ctx := context.Background()
	c := NewMemCollection[int]()
	c.Insert(ctx, "odd1", 1)
	c.Insert(ctx, "even1", 2)
	c.Insert(ctx, "odd2", 3)

	evens, err := c.Query(ctx, func(_ string, v int) bool { return v%2 == 0 })
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(evens) != 1 || evens["even1"] != 2 {
		t.Errorf("expected one even doc, got %v", evens)
	}
}

func TestMemTransactorRunsFn(t *testing.T) {
	tx := NewMemTransactor()
	called := false
	if err := tx.RunTransaction(context.Background(), func(context.Context) error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected fn to run")
	}
}

func TestMemSchedulerRunsAfterDelay(t *testing.T) {
	s := NewMemScheduler()
	done := make(chan struct{})

	if err := s.RunAfter(context.Background(), 10*time.Millisecond, func(context.Context) error {
		close(done)
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected scheduled fn to run within timeout")
	}
}
