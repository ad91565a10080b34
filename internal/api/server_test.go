package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"stratsim/internal/config"
	"stratsim/internal/sim"
	"stratsim/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.Open(context.Background(), store.Config{
		Dialect:    "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "api.db"),
	})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	svc := sim.NewService(st, sim.ServiceOptions{})
	srv := httptest.NewServer(New(config.APIConfig{}, nil, svc).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body string, out any) int {
	t.Helper()
	var rd *bytes.Reader
	if body == "" {
		rd = bytes.NewReader(nil)
	} else {
		rd = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	var out map[string]any
	if code := doJSON(t, http.MethodGet, srv.URL+"/healthz", "", &out); code != http.StatusOK {
		t.Fatalf("healthz status = %d", code)
	}
	if out["ok"] != true {
		t.Fatalf("healthz body = %v", out)
	}
}

func TestCampaignEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var created struct {
		ID    string         `json:"id"`
		Seed  int64          `json:"seed"`
		State map[string]any `json:"state"`
	}
	code := doJSON(t, http.MethodPost, srv.URL+"/v1/campaigns",
		`{"seed": 42, "turns": 4, "personality": "aggressive", "invest_dist": "30/20/15/10/15/5/5"}`, &created)
	if code != http.StatusCreated {
		t.Fatalf("create status = %d", code)
	}
	if created.ID == "" || created.Seed != 42 {
		t.Fatalf("created = %+v", created)
	}

	var advanced struct {
		State struct {
			Turn int `json:"turn"`
		} `json:"state"`
	}
	code = doJSON(t, http.MethodPost, srv.URL+"/v1/campaigns/"+created.ID+"/advance", `{"turns": 2}`, &advanced)
	if code != http.StatusOK {
		t.Fatalf("advance status = %d", code)
	}
	if advanced.State.Turn != 2 {
		t.Fatalf("turn after advance = %d", advanced.State.Turn)
	}

	var hist struct {
		Turns []map[string]any `json:"turns"`
	}
	code = doJSON(t, http.MethodGet, srv.URL+"/v1/campaigns/"+created.ID+"/history", "", &hist)
	if code != http.StatusOK || len(hist.Turns) != 2 {
		t.Fatalf("history status = %d, turns = %d", code, len(hist.Turns))
	}

	var list struct {
		Campaigns []map[string]any `json:"campaigns"`
	}
	code = doJSON(t, http.MethodGet, srv.URL+"/v1/campaigns", "", &list)
	if code != http.StatusOK || len(list.Campaigns) != 1 {
		t.Fatalf("list status = %d, campaigns = %d", code, len(list.Campaigns))
	}

	if code := doJSON(t, http.MethodDelete, srv.URL+"/v1/campaigns/"+created.ID, "", nil); code != http.StatusOK {
		t.Fatalf("delete status = %d", code)
	}
	if code := doJSON(t, http.MethodGet, srv.URL+"/v1/campaigns/"+created.ID, "", nil); code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", code)
	}
}

func TestCampaignErrors(t *testing.T) {
	srv := newTestServer(t)

	if code := doJSON(t, http.MethodPost, srv.URL+"/v1/campaigns", `{"turns": 0, "seed": 1}`, nil); code != http.StatusBadRequest {
		t.Fatalf("zero turns status = %d", code)
	}
	if code := doJSON(t, http.MethodPost, srv.URL+"/v1/campaigns", `{"turns": 4, "seed": 1, "personality": "mean"}`, nil); code != http.StatusBadRequest {
		t.Fatalf("bad personality status = %d", code)
	}
	if code := doJSON(t, http.MethodPost, srv.URL+"/v1/campaigns", `{"bogus_field": true}`, nil); code != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d", code)
	}
	if code := doJSON(t, http.MethodGet, srv.URL+"/v1/campaigns/nope", "", nil); code != http.StatusNotFound {
		t.Fatalf("missing campaign status = %d", code)
	}

	// A finished campaign rejects further advances with a conflict.
	var created struct {
		ID string `json:"id"`
	}
	doJSON(t, http.MethodPost, srv.URL+"/v1/campaigns", `{"seed": 9, "turns": 1}`, &created)
	doJSON(t, http.MethodPost, srv.URL+"/v1/campaigns/"+created.ID+"/advance", `{"turns": 5}`, nil)
	if code := doJSON(t, http.MethodPost, srv.URL+"/v1/campaigns/"+created.ID+"/advance", `{"turns": 1}`, nil); code != http.StatusConflict {
		t.Fatalf("advance finished status = %d", code)
	}
}

func TestCampaignExport(t *testing.T) {
	srv := newTestServer(t)

	var created struct {
		ID string `json:"id"`
	}
	doJSON(t, http.MethodPost, srv.URL+"/v1/campaigns", `{"seed": 5, "turns": 3}`, &created)
	doJSON(t, http.MethodPost, srv.URL+"/v1/campaigns/"+created.ID+"/advance", `{"turns": 3}`, nil)

	resp, err := http.Get(srv.URL + "/v1/campaigns/" + created.ID + "/export?format=xlsx")
	if err != nil {
		t.Fatalf("export xlsx: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export xlsx status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("export xlsx content type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("export xlsx disposition = %q", cd)
	}

	var exported []map[string]any
	if code := doJSON(t, http.MethodGet, srv.URL+"/v1/campaigns/"+created.ID+"/export?format=json", "", &exported); code != http.StatusOK {
		t.Fatalf("export json status = %d", code)
	}
	if len(exported) != 3 {
		t.Fatalf("export json records = %d", len(exported))
	}

	if code := doJSON(t, http.MethodGet, srv.URL+"/v1/campaigns/"+created.ID+"/export?format=csv", "", nil); code != http.StatusBadRequest {
		t.Fatalf("unknown format status = %d", code)
	}

	// Export with no turns played yet is rejected.
	var empty struct {
		ID string `json:"id"`
	}
	doJSON(t, http.MethodPost, srv.URL+"/v1/campaigns", `{"seed": 6, "turns": 3}`, &empty)
	if code := doJSON(t, http.MethodGet, srv.URL+"/v1/campaigns/"+empty.ID+"/export?format=xlsx", "", nil); code != http.StatusBadRequest {
		t.Fatalf("empty export status = %d", code)
	}
}

func TestCampaignAutopilotToggle(t *testing.T) {
	srv := newTestServer(t)

	var created struct {
		ID        string `json:"id"`
		Autopilot bool   `json:"autopilot"`
	}
	doJSON(t, http.MethodPost, srv.URL+"/v1/campaigns", `{"seed": 3, "turns": 5}`, &created)
	if created.Autopilot {
		t.Fatal("autopilot on by default")
	}

	if code := doJSON(t, http.MethodPost, srv.URL+"/v1/campaigns/"+created.ID+"/autopilot", `{"enabled": true}`, nil); code != http.StatusOK {
		t.Fatalf("autopilot toggle status = %d", code)
	}
	var got struct {
		Autopilot bool `json:"autopilot"`
	}
	doJSON(t, http.MethodGet, srv.URL+"/v1/campaigns/"+created.ID, "", &got)
	if !got.Autopilot {
		t.Fatal("autopilot not persisted")
	}
}

func TestPortfolioEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var created struct {
		ID          string `json:"id"`
		Stance      string `json:"stance"`
		TurnsPlayed int    `json:"turns_played"`
	}
	code := doJSON(t, http.MethodPost, srv.URL+"/v1/portfolios",
		`{"seed": 17, "turns": 5, "stance": "bullish", "chess_ai": true, "alloc": "30/20/10/20/20"}`, &created)
	if code != http.StatusCreated {
		t.Fatalf("create status = %d", code)
	}
	if created.Stance != "bullish" || created.TurnsPlayed != 0 {
		t.Fatalf("created = %+v", created)
	}

	var advanced struct {
		TurnsPlayed int  `json:"turns_played"`
		Finished    bool `json:"finished"`
	}
	code = doJSON(t, http.MethodPost, srv.URL+"/v1/portfolios/"+created.ID+"/advance", `{"turns": 5}`, &advanced)
	if code != http.StatusOK {
		t.Fatalf("advance status = %d", code)
	}
	if advanced.TurnsPlayed != 5 || !advanced.Finished {
		t.Fatalf("advanced = %+v", advanced)
	}

	var hist struct {
		Turns []struct {
			Turn    int    `json:"turn"`
			AIPhase string `json:"ai_phase"`
		} `json:"turns"`
	}
	code = doJSON(t, http.MethodGet, srv.URL+"/v1/portfolios/"+created.ID+"/history", "", &hist)
	if code != http.StatusOK || len(hist.Turns) != 5 {
		t.Fatalf("history status = %d, turns = %d", code, len(hist.Turns))
	}
	if hist.Turns[0].AIPhase == "" {
		t.Fatal("chess run missing ai phase in history")
	}

	var exported []map[string]any
	if code := doJSON(t, http.MethodGet, srv.URL+"/v1/portfolios/"+created.ID+"/export", "", &exported); code != http.StatusOK {
		t.Fatalf("export status = %d", code)
	}
	if len(exported) != 5 {
		t.Fatalf("export records = %d", len(exported))
	}

	if code := doJSON(t, http.MethodPost, srv.URL+"/v1/portfolios/"+created.ID+"/advance", `{"turns": 1}`, nil); code != http.StatusConflict {
		t.Fatalf("advance finished status = %d", code)
	}
}

func TestPortfolioErrors(t *testing.T) {
	srv := newTestServer(t)

	if code := doJSON(t, http.MethodPost, srv.URL+"/v1/portfolios", `{"turns": 4, "seed": 1, "stance": "mooning"}`, nil); code != http.StatusBadRequest {
		t.Fatalf("bad stance status = %d", code)
	}
	if code := doJSON(t, http.MethodGet, srv.URL+"/v1/portfolios/nope", "", nil); code != http.StatusNotFound {
		t.Fatalf("missing portfolio status = %d", code)
	}
}
