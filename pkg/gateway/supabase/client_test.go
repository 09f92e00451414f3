package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	forecast "github.com/goliatone/forecast-dashboard/components/forecast"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(Config{
		BaseURL: server.URL,
		APIKey:  "test-key",
	})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	return client
}

func TestSelectBuildsQuery(t *testing.T) {
	var gotPath string
	var gotAuth, gotKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("apikey")
		json.NewEncoder(w).Encode([]forecast.Submission{{ID: "1", CompanyName: "Acme"}})
	})

	rows, err := client.Select(context.Background(), forecast.SelectQuery{CompanyName: "Acme", Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "1" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if gotKey != "test-key" || gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth headers %q %q", gotKey, gotAuth)
	}
	want := "/rest/v1/customer_forecasts?company_name=eq.Acme&limit=10&order=created_at.desc&select=%2A"
	if gotPath != want {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestSelectAllSkipsCompanyParam(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		w.Write([]byte("[]"))
	})

	if _, err := client.Select(context.Background(), forecast.SelectQuery{CompanyName: forecast.FilterAll}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if gotPath != "/rest/v1/customer_forecasts?order=created_at.desc&select=%2A" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestUpdateSendsPatch(t *testing.T) {
	var gotMethod, gotPath, gotPrefer string
	var gotFields map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.String()
		gotPrefer = r.Header.Get("Prefer")
		json.NewDecoder(r.Body).Decode(&gotFields)
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.Update(context.Background(), "abc", map[string]any{"status": "on_hold"})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if gotMethod != http.MethodPatch {
		t.Fatalf("unexpected method %q", gotMethod)
	}
	if gotPath != "/rest/v1/customer_forecasts?id=eq.abc" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotPrefer != "return=minimal" {
		t.Fatalf("unexpected prefer %q", gotPrefer)
	}
	if gotFields["status"] != "on_hold" {
		t.Fatalf("unexpected fields %v", gotFields)
	}
}

func TestInsertReturnsRepresentation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Prefer") != "return=representation" {
			t.Errorf("unexpected prefer %q", r.Header.Get("Prefer"))
		}
		var row forecast.Submission
		json.NewDecoder(r.Body).Decode(&row)
		row.ID = "generated"
		json.NewEncoder(w).Encode([]forecast.Submission{row})
	})

	stored, err := client.Insert(context.Background(), forecast.Submission{CompanyName: "Acme"})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if stored.ID != "generated" || stored.CompanyName != "Acme" {
		t.Fatalf("unexpected row %+v", stored)
	}
}

func TestDeleteSurfacesRemoteError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "permission denied", http.StatusForbidden)
	})
	if err := client.Delete(context.Background(), "abc"); err == nil {
		t.Fatal("expected error for remote failure")
	}
	if err := client.Delete(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestGetSessionUnauthenticated(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	session, err := client.GetSession(context.Background())
	if err != nil {
		t.Fatalf("unauthenticated must not error, got %v", err)
	}
	if session != nil {
		t.Fatalf("expected nil session, got %+v", session)
	}
}

func TestGetSessionDecodesUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "u1", "email": "ops@example.com"})
	})
	session, err := client.GetSession(context.Background())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if session == nil || session.UserID != "u1" || session.Email != "ops@example.com" {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestStorageRoundTrip(t *testing.T) {
	objects := map[string][]byte{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		switch r.Method {
		case http.MethodPost:
			data, _ := io.ReadAll(r.Body)
			objects[key] = data
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			data, ok := objects[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(data)
		case http.MethodDelete:
			if _, ok := objects[key]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			delete(objects, key)
			w.WriteHeader(http.StatusOK)
		}
	})

	ctx := context.Background()
	if err := client.Upload(ctx, "uploads/f.xlsx", []byte("payload")); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	data, err := client.Download(ctx, "uploads/f.xlsx")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected data %q", data)
	}
	if err := client.Remove(ctx, "uploads/f.xlsx"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	// Removing a missing object is tolerated.
	if err := client.Remove(ctx, "uploads/f.xlsx"); err != nil {
		t.Fatalf("expected 404 tolerated, got %v", err)
	}

	url, err := client.URL(ctx, "uploads/f.xlsx")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if url == "" || url[len(url)-len("uploads/f.xlsx"):] != "uploads/f.xlsx" {
		t.Fatalf("unexpected url %q", url)
	}
}
