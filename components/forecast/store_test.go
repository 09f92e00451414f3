package forecast

import "testing"

func row(id, company string) Submission {
	return Submission{ID: id, CompanyName: company, CreatedAt: "2026-08-01T10:00:00Z"}
}

func TestStoreLoadReplacesWholesale(t *testing.T) {
	store := NewStore()
	store.Load([]Submission{row("1", "Acme")})
	store.Load([]Submission{row("2", "Globex"), row("3", "Initech")})
	store.Recompute()

	if store.Len() != 2 {
		t.Fatalf("expected 2 rows after reload, got %d", store.Len())
	}
	if _, ok := store.Get("1"); ok {
		t.Fatalf("expected previous rows to be dropped")
	}
}

func TestStoreApplyInsertPrepends(t *testing.T) {
	store := NewStore()
	store.Load([]Submission{row("1", "Acme")})
	store.ApplyInsert(row("2", "Globex"))

	all := store.All()
	if len(all) != 2 || all[0].ID != "2" {
		t.Fatalf("expected new row first, got %+v", all)
	}
}

func TestStoreApplyInsertReplacesExistingID(t *testing.T) {
	store := NewStore()
	store.Load([]Submission{row("1", "Acme"), row("2", "Globex")})

	updated := row("2", "Globex Renamed")
	store.ApplyInsert(updated)

	all := store.All()
	if len(all) != 2 {
		t.Fatalf("expected no duplicate, got %d rows", len(all))
	}
	got, _ := store.Get("2")
	if got.CompanyName != "Globex Renamed" {
		t.Fatalf("expected replacement in place, got %q", got.CompanyName)
	}
}

func TestStoreApplyUpdateDropsUnknownRow(t *testing.T) {
	store := NewStore()
	store.Load([]Submission{row("1", "Acme")})

	if store.ApplyUpdate(row("99", "Ghost")) {
		t.Fatalf("expected update for unknown row to report false")
	}
	if store.Len() != 1 {
		t.Fatalf("expected store unchanged")
	}
}

func TestStoreApplyDelete(t *testing.T) {
	store := NewStore()
	store.Load([]Submission{row("1", "Acme"), row("2", "Globex")})
	store.ApplyDelete("1")

	if store.Len() != 1 {
		t.Fatalf("expected 1 row after delete, got %d", store.Len())
	}
	if _, ok := store.Get("1"); ok {
		t.Fatalf("expected deleted row to be gone")
	}
}

func TestStoreInsertThenFilterRecompute(t *testing.T) {
	store := NewStore()
	store.Load([]Submission{row("1", "Acme"), row("2", "Globex")})
	store.SetFilter("Acme")
	store.Recompute()

	store.ApplyInsert(row("3", "Acme"))
	store.Recompute()

	filtered := store.Filtered()
	if len(filtered) != 2 {
		t.Fatalf("expected 2 Acme rows, got %d", len(filtered))
	}
	if filtered[0].ID != "3" {
		t.Fatalf("expected inserted row first in filtered view, got %s", filtered[0].ID)
	}
	for _, r := range filtered {
		if r.CompanyName != "Acme" {
			t.Fatalf("filtered view leaked row for %q", r.CompanyName)
		}
	}
}

func TestStoreSetFilterEmptyResetsToAll(t *testing.T) {
	store := NewStore()
	store.Load([]Submission{row("1", "Acme"), row("2", "Globex")})
	store.SetFilter("Acme")
	store.SetFilter("")
	store.Recompute()

	if store.Selection() != FilterAll {
		t.Fatalf("expected ALL sentinel, got %q", store.Selection())
	}
	if len(store.Filtered()) != 2 {
		t.Fatalf("expected full view under ALL")
	}
}

func TestStoreTitle(t *testing.T) {
	store := NewStore()
	store.Load([]Submission{row("1", "Acme")})
	store.Recompute()
	if store.Title() != "Global Forecast Dashboard" {
		t.Fatalf("unexpected global title %q", store.Title())
	}

	store.SetFilter("Acme")
	store.Recompute()
	if store.Title() != "Forecast for Acme" {
		t.Fatalf("unexpected filtered title %q", store.Title())
	}
}

func TestStoreAccessorsReturnCopies(t *testing.T) {
	store := NewStore()
	store.Load([]Submission{row("1", "Acme")})
	store.Recompute()

	all := store.All()
	all[0].CompanyName = "Mutated"
	got, _ := store.Get("1")
	if got.CompanyName != "Acme" {
		t.Fatalf("expected store isolated from caller mutation")
	}
}
