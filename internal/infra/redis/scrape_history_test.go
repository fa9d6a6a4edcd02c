//go:build !integration

package redis

import (
	"context"
	"testing"
	"time"

	"competitor-ad-studio/internal/domain/model"
)

// fakeRedis implements RedisClient over an in-memory list map.
type fakeRedis struct {
	lists map[string][]string

	lpushErr error
	ltrimErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{lists: make(map[string][]string)}
}

func (f *fakeRedis) Ping(context.Context) error { return nil }

func (f *fakeRedis) LPush(_ context.Context, key string, values ...interface{}) error {
	if f.lpushErr != nil {
		return f.lpushErr
	}
	for _, v := range values {
		f.lists[key] = append([]string{v.(string)}, f.lists[key]...)
	}
	return nil
}

func (f *fakeRedis) LTrim(_ context.Context, key string, start, stop int64) error {
	if f.ltrimErr != nil {
		return f.ltrimErr
	}
	l := f.lists[key]
	if start < 0 || start >= int64(len(l)) {
		f.lists[key] = nil
		return nil
	}
	end := stop + 1
	if stop < 0 || end > int64(len(l)) {
		end = int64(len(l))
	}
	f.lists[key] = l[start:end]
	return nil
}

func (f *fakeRedis) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	l := f.lists[key]
	if start >= int64(len(l)) {
		return nil, nil
	}
	end := stop + 1
	if stop < 0 || end > int64(len(l)) {
		end = int64(len(l))
	}
	return append([]string(nil), l[start:end]...), nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.lists, k)
	}
	return nil
}

func (f *fakeRedis) Close() error { return nil }

func rec(id, target string) *model.ScrapeRecord {
	return &model.ScrapeRecord{
		ID:          id,
		JobID:       "job-" + id,
		Target:      target,
		SubmittedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestHistoryStoreAppendAndList(t *testing.T) {
	cli := newFakeRedis()
	store := NewHistoryStore(cli)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		if err := store.Append(ctx, "single", rec(id, "comp"), 50); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, err := store.List(ctx, "single", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Newest first.
	if got[0].ID != "c" || got[2].ID != "a" {
		t.Errorf("order = [%s %s %s]", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestHistoryStoreTrimsToCap(t *testing.T) {
	cli := newFakeRedis()
	store := NewHistoryStore(cli)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.Append(ctx, "bulk", rec(string(rune('a'+i)), "comp"), 3); err != nil {
			t.Fatal(err)
		}
	}
	got, err := store.List(ctx, "bulk", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want cap 3", len(got))
	}
	if got[0].ID != "e" || got[2].ID != "c" {
		t.Errorf("surviving records = [%s %s %s]", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestHistoryStoreListLimit(t *testing.T) {
	cli := newFakeRedis()
	store := NewHistoryStore(cli)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Append(ctx, "single", rec(id, "comp"), 50); err != nil {
			t.Fatal(err)
		}
	}
	got, err := store.List(ctx, "single", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "c" {
		t.Errorf("limited list = %+v", got)
	}
}

func TestHistoryStoreSkipsCorruptEntries(t *testing.T) {
	cli := newFakeRedis()
	store := NewHistoryStore(cli)
	ctx := context.Background()

	if err := store.Append(ctx, "single", rec("a", "comp"), 50); err != nil {
		t.Fatal(err)
	}
	cli.lists[key("single")] = append([]string{"{corrupt"}, cli.lists[key("single")]...)

	got, err := store.List(ctx, "single", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("list with corrupt entry = %+v", got)
	}
}

func TestHistoryStoreBucketsAreIndependent(t *testing.T) {
	cli := newFakeRedis()
	store := NewHistoryStore(cli)
	ctx := context.Background()

	if err := store.Append(ctx, "single", rec("s", "comp"), 50); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(ctx, "bulk", rec("b", "c1,c2"), 20); err != nil {
		t.Fatal(err)
	}

	single, _ := store.List(ctx, "single", 0)
	bulk, _ := store.List(ctx, "bulk", 0)
	if len(single) != 1 || single[0].ID != "s" {
		t.Errorf("single bucket = %+v", single)
	}
	if len(bulk) != 1 || bulk[0].ID != "b" {
		t.Errorf("bulk bucket = %+v", bulk)
	}
}
