package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"montra/internal/export"
)

const testOAuthClient = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTokenSourceErrors(t *testing.T) {
	dir := t.TempDir()
	client := writeFile(t, dir, "client.json", testOAuthClient)
	bad := writeFile(t, dir, "bad.json", "invalid-json")

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"no credentials", Config{}, "missing credentials"},
		{"missing service account file", Config{ServiceAccountFile: filepath.Join(dir, "nope.json")}, "read service account file"},
		{"invalid oauth client", Config{OAuthClientFile: bad}, "oauth config"},
		{"missing token", Config{OAuthClientFile: client}, "missing oauth token"},
		{"unreadable token", Config{OAuthClientFile: client, OAuthTokenFile: filepath.Join(dir, "nope.json")}, "read oauth token file"},
		{"invalid token", Config{OAuthClientFile: client, OAuthTokenFile: bad}, "parse oauth token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokenSource(context.Background(), tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestTokenSourceFromStoredToken(t *testing.T) {
	dir := t.TempDir()
	client := writeFile(t, dir, "client.json", testOAuthClient)
	tokenPath := filepath.Join(dir, "token.json")
	want := &oauth2.Token{AccessToken: "abc", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
	if err := SaveToken(tokenPath, want); err != nil {
		t.Fatalf("save token: %v", err)
	}

	info, err := os.Stat(tokenPath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("token file mode = %v, want 0600", info.Mode().Perm())
	}

	ts, err := tokenSource(context.Background(), Config{OAuthClientFile: client, OAuthTokenFile: tokenPath})
	if err != nil {
		t.Fatalf("token source: %v", err)
	}
	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok.AccessToken != "abc" {
		t.Errorf("access token = %q", tok.AccessToken)
	}
}

func TestOAuthConfigRedirect(t *testing.T) {
	cfg, err := OAuthConfig([]byte(testOAuthClient), "http://localhost:8085/callback")
	if err != nil {
		t.Fatalf("oauth config: %v", err)
	}
	if cfg.RedirectURL != "http://localhost:8085/callback" {
		t.Errorf("redirect = %q", cfg.RedirectURL)
	}
	if len(cfg.Scopes) != 1 || cfg.Scopes[0] != gsheet.SpreadsheetsScope {
		t.Errorf("scopes = %v", cfg.Scopes)
	}
}

type fakeSheetsAPI struct {
	mu      sync.Mutex
	tabs    []string
	added   []string
	gets    int
	cleared bool
	written [][]any
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && !strings.Contains(r.URL.Path, "/values/"):
		f.gets++
		ss := gsheet.Spreadsheet{}
		for _, tab := range f.tabs {
			ss.Sheets = append(ss.Sheets, &gsheet.Sheet{Properties: &gsheet.SheetProperties{Title: tab}})
		}
		_ = json.NewEncoder(w).Encode(ss)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.added = append(f.added, rq.AddSheet.Properties.Title)
				f.tabs = append(f.tabs, rq.AddSheet.Properties.Title)
			}
		}
		_ = json.NewEncoder(w).Encode(gsheet.BatchUpdateSpreadsheetResponse{})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
		f.cleared = true
		_ = json.NewEncoder(w).Encode(gsheet.ClearValuesResponse{ClearedRange: "Montra!A1:G10"})
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("valueInputOption") != "RAW" {
			http.Error(w, "bad input option", http.StatusBadRequest)
			return
		}
		f.written = vr.Values
		_ = json.NewEncoder(w).Encode(gsheet.UpdateValuesResponse{
			UpdatedRange: "Montra!A1:G3",
			UpdatedRows:  int64(len(vr.Values)),
		})
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotFound)
	}
}

func newFakeClient(t *testing.T, api *fakeSheetsAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return newClient(svc, "sheet-id", "", nil)
}

func TestClientExportRows(t *testing.T) {
	api := &fakeSheetsAPI{tabs: []string{"Montra"}}
	c := newFakeClient(t, api)

	rows := []export.Row{
		{Date: "2025-03-01", Time: "12:00", Type: "Expense", Category: "Food", Amount: "12.50", PaymentMethod: "Card"},
		{Date: "2025-03-02", Time: "09:00", Type: "Income", Category: "Salary", Amount: "3000.00", PaymentMethod: "Bank Transfer"},
	}
	res, err := c.ExportRows(context.Background(), "", rows)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.Rows != 2 || res.Range != "Montra!A1:G3" || res.SpreadsheetID != "sheet-id" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !api.cleared {
		t.Error("sheet was not cleared before writing")
	}
	if len(api.written) != 3 || api.written[0][0] != "Date" || api.written[1][4] != "12.50" {
		t.Fatalf("unexpected values: %v", api.written)
	}
	if len(api.added) != 0 {
		t.Errorf("existing sheet was added again: %v", api.added)
	}
}

func TestClientExportRowsCreatesMissingSheet(t *testing.T) {
	api := &fakeSheetsAPI{tabs: []string{"Montra"}}
	c := newFakeClient(t, api)

	for i := 0; i < 2; i++ {
		if _, err := c.ExportRows(context.Background(), "Montra-7", nil); err != nil {
			t.Fatalf("export %d: %v", i, err)
		}
	}
	if len(api.added) != 1 || api.added[0] != "Montra-7" {
		t.Fatalf("added sheets = %v, want [Montra-7]", api.added)
	}
	if api.gets != 1 {
		t.Errorf("spreadsheet fetched %d times, want 1", api.gets)
	}
}

func TestClientExportRowsWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, err := c.ExportRows(context.Background(), "", nil); err == nil {
		t.Fatal("expected error without service")
	}
}
