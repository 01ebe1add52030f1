// Package repotest holds the behaviour every ports.LinkRepository must share.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/ports"
)

// Factory returns an empty repository. Cleanup is the factory's job.
type Factory func(t *testing.T) ports.LinkRepository

// Base has a non-zero nanosecond part so lossy timestamp encodings show up.
var Base = time.Date(2025, 4, 2, 10, 30, 15, 123456789, time.UTC)

// Link builds an active link created offset after Base.
func Link(code string, offset time.Duration) domain.ShortLink {
	created := Base.Add(offset)
	return domain.ShortLink{
		ID:              "id-" + code,
		OriginalURL:     "https://example.com/" + code,
		ShortCode:       code,
		CreatedAt:       created,
		ValidityMinutes: 30,
		ExpiresAt:       created.Add(30 * time.Minute),
		IsActive:        true,
		Clicks:          []domain.ClickRecord{},
	}
}

func Run(t *testing.T, newRepo Factory) {
	t.Run("SaveAndGetAll", func(t *testing.T) { testSaveAndGetAll(t, newRepo(t)) })
	t.Run("FindByCode", func(t *testing.T) { testFindByCode(t, newRepo(t)) })
	t.Run("SaveBatchAllOrNothing", func(t *testing.T) { testSaveBatchAllOrNothing(t, newRepo(t)) })
	t.Run("RecordClick", func(t *testing.T) { testRecordClick(t, newRepo(t)) })
	t.Run("Deactivate", func(t *testing.T) { testDeactivate(t, newRepo(t)) })
	t.Run("ClearAll", func(t *testing.T) { testClearAll(t, newRepo(t)) })
}

func testSaveAndGetAll(t *testing.T, repo ports.LinkRepository) {
	ctx := context.Background()

	var batch []domain.ShortLink
	for i := 0; i < 5; i++ {
		batch = append(batch, Link(fmt.Sprintf("code%d", 5-i), time.Duration(i)*time.Second))
	}
	batch[1].Clicks = []domain.ClickRecord{
		{Timestamp: Base.Add(time.Minute + 7), UserAgent: "ua", Referrer: domain.DirectReferrer, IPHash: "abc"},
		{Timestamp: Base.Add(2 * time.Minute), Referrer: "https://ref.example.com"},
	}
	if err := repo.SaveBatch(ctx, batch); err != nil {
		t.Fatalf("SaveBatch() error = %v", err)
	}

	all, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	AssertLinksEqual(t, all, batch)
}

// AssertLinksEqual compares links field by field, including click order and
// exact timestamps.
func AssertLinksEqual(t *testing.T, got, want []domain.ShortLink) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d links, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.ID != w.ID || g.ShortCode != w.ShortCode || g.OriginalURL != w.OriginalURL ||
			g.ValidityMinutes != w.ValidityMinutes || g.IsActive != w.IsActive {
			t.Errorf("link %d = %+v, want %+v", i, g, w)
		}
		if !g.CreatedAt.Equal(w.CreatedAt) || !g.ExpiresAt.Equal(w.ExpiresAt) {
			t.Errorf("link %d times = %v/%v, want %v/%v", i, g.CreatedAt, g.ExpiresAt, w.CreatedAt, w.ExpiresAt)
		}
		if len(g.Clicks) != len(w.Clicks) {
			t.Errorf("link %d has %d clicks, want %d", i, len(g.Clicks), len(w.Clicks))
			continue
		}
		for j := range w.Clicks {
			gc, wc := g.Clicks[j], w.Clicks[j]
			if !gc.Timestamp.Equal(wc.Timestamp) || gc.UserAgent != wc.UserAgent || gc.Referrer != wc.Referrer || gc.IPHash != wc.IPHash {
				t.Errorf("link %d click %d = %+v, want %+v", i, j, gc, wc)
			}
		}
	}
}

func testFindByCode(t *testing.T, repo ports.LinkRepository) {
	ctx := context.Background()
	if err := repo.SaveBatch(ctx, []domain.ShortLink{Link("Abc123", 0)}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.FindByCode(ctx, "Abc123")
	if err != nil || got == nil {
		t.Fatalf("FindByCode() = %v, %v", got, err)
	}
	if got.ID != "id-Abc123" || got.Clicks == nil {
		t.Errorf("FindByCode() = %+v", got)
	}

	for _, code := range []string{"abc123", "zzzzzz"} {
		got, err := repo.FindByCode(ctx, code)
		if err != nil || got != nil {
			t.Errorf("FindByCode(%q) = %+v, %v, want nil, nil", code, got, err)
		}
	}
}

func testSaveBatchAllOrNothing(t *testing.T, repo ports.LinkRepository) {
	ctx := context.Background()
	if err := repo.SaveBatch(ctx, []domain.ShortLink{Link("taken1", 0)}); err != nil {
		t.Fatal(err)
	}

	dup := Link("taken1", time.Second)
	dup.ID = "other"
	err := repo.SaveBatch(ctx, []domain.ShortLink{Link("fresh1", time.Second), dup})
	if !errors.Is(err, domain.ErrPersistenceFailure) {
		t.Fatalf("SaveBatch() error = %v, want ErrPersistenceFailure", err)
	}
	if !errors.Is(err, domain.ErrShortcodeInUse) {
		t.Errorf("SaveBatch() error = %v, want it to wrap ErrShortcodeInUse", err)
	}

	codes, err := repo.ListShortcodes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := codes["fresh1"]; ok || len(codes) != 1 {
		t.Errorf("codes after failed batch = %v", codes)
	}
}

func testRecordClick(t *testing.T, repo ports.LinkRepository) {
	ctx := context.Background()
	if err := repo.SaveBatch(ctx, []domain.ShortLink{Link("one111", 0), Link("two222", time.Second)}); err != nil {
		t.Fatal(err)
	}

	clicks := []domain.ClickRecord{
		{Timestamp: Base.Add(time.Minute), UserAgent: "first", Referrer: domain.DirectReferrer},
		{Timestamp: Base.Add(time.Minute), UserAgent: "second", Referrer: domain.DirectReferrer},
		{Timestamp: Base.Add(2*time.Minute + 1), UserAgent: "third", Referrer: "https://x.example"},
	}
	for _, c := range clicks {
		if err := repo.RecordClick(ctx, "two222", c); err != nil {
			t.Fatalf("RecordClick() error = %v", err)
		}
	}
	if err := repo.RecordClick(ctx, "nope11", clicks[0]); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("RecordClick(unknown) error = %v, want ErrNotFound", err)
	}

	got, err := repo.FindByCode(ctx, "two222")
	if err != nil {
		t.Fatal(err)
	}
	want := Link("two222", time.Second)
	want.Clicks = clicks
	AssertLinksEqual(t, []domain.ShortLink{*got}, []domain.ShortLink{want})

	other, _ := repo.FindByCode(ctx, "one111")
	if len(other.Clicks) != 0 {
		t.Errorf("unrelated link gained %d clicks", len(other.Clicks))
	}
}

func testDeactivate(t *testing.T, repo ports.LinkRepository) {
	ctx := context.Background()
	if err := repo.SaveBatch(ctx, []domain.ShortLink{Link("off111", 0)}); err != nil {
		t.Fatal(err)
	}

	if err := repo.Deactivate(ctx, "off111"); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if err := repo.Deactivate(ctx, "nope11"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Deactivate(unknown) error = %v, want ErrNotFound", err)
	}

	got, _ := repo.FindByCode(ctx, "off111")
	if got == nil || got.IsActive {
		t.Errorf("FindByCode() after Deactivate = %+v", got)
	}
	codes, _ := repo.ListShortcodes(ctx)
	if _, ok := codes["off111"]; !ok {
		t.Error("deactivated code no longer reserved")
	}
}

func testClearAll(t *testing.T, repo ports.LinkRepository) {
	ctx := context.Background()
	l := Link("gone11", 0)
	l.Clicks = []domain.ClickRecord{{Timestamp: Base, Referrer: domain.DirectReferrer}}
	if err := repo.SaveBatch(ctx, []domain.ShortLink{l, Link("gone22", time.Second)}); err != nil {
		t.Fatal(err)
	}

	if err := repo.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}

	all, err := repo.GetAll(ctx)
	if err != nil || len(all) != 0 {
		t.Errorf("GetAll() after ClearAll = %d links, %v", len(all), err)
	}
	codes, _ := repo.ListShortcodes(ctx)
	if len(codes) != 0 {
		t.Errorf("ListShortcodes() after ClearAll = %v", codes)
	}

	// The store stays usable.
	if err := repo.SaveBatch(ctx, []domain.ShortLink{Link("gone11", 0)}); err != nil {
		t.Errorf("SaveBatch() after ClearAll error = %v", err)
	}
}
