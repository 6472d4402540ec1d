package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"salesdash/internal/core"
)

func TestMemoryStoreAddListDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	r, err := s.AddSale(ctx, core.SalesRecord{Year: 2024, Month: 2, Product: "Widget", Category: "Tools", Amount: 12.5})
	if err != nil || r.ID != 1 || r.CreatedAt.IsZero() {
		t.Fatalf("unexpected add: r=%+v err=%v", r, err)
	}
	if _, err := s.AddSale(ctx, core.SalesRecord{Year: 2024, Month: 13, Product: "x", Category: "y"}); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}

	list, _ := s.ListSales(ctx, 2024)
	if len(list) != 1 {
		t.Fatalf("expected 1 record, got %v", list)
	}
	if other, _ := s.ListSales(ctx, 2023); len(other) != 0 {
		t.Fatalf("expected no 2023 records, got %v", other)
	}

	if err := s.DeleteSale(ctx, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteSale(ctx, r.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMemoryStoreMonthlySeries(t *testing.T) {
	ctx := context.Background()
	s := New(
		core.SalesRecord{Year: 2024, Month: 3, Product: "a", Category: "Food", Amount: 30},
		core.SalesRecord{Year: 2024, Month: 1, Product: "b", Category: "Food", Amount: 10},
		core.SalesRecord{Year: 2024, Month: 1, Product: "c", Category: "Tech", Amount: 5},
	)

	got, err := s.MonthlySeries(ctx, core.SeriesQuery{Year: 2024})
	if err != nil || len(got) != 2 || got[0].Period != "Jan" || got[0].Amount != 15 || got[1].Period != "Mar" {
		t.Fatalf("unexpected series: %v err=%v", got, err)
	}
	cats, _ := s.Categories(ctx, 2024)
	if len(cats) != 2 || cats[0] != "Food" {
		t.Fatalf("unexpected categories: %v", cats)
	}
}

func TestNewFromFilesSeeds(t *testing.T) {
	dir := t.TempDir()
	// No file -> empty store
	s := NewFromFiles(dir)
	if list, _ := s.ListSales(context.Background(), 0); len(list) != 0 {
		t.Fatalf("expected empty store when seed file missing")
	}

	content := "# year,month,product,category,amount\n" +
		"2024,Jan,Widget,Tools,100\n" +
		"2024,2,Gadget,Tools,102,50\n" + // wrong column count
		"2024,Feb,Gadget,Tools,98\n" +
		"2024,Foo,Broken,Tools,1\n" +
		"\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_sales.csv"), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	s = NewFromFiles(dir)
	list, _ := s.ListSales(context.Background(), 2024)
	if len(list) != 2 || list[0].Month != 1 || list[1].Amount != 98 {
		t.Fatalf("unexpected seeded records: %+v", list)
	}
}
