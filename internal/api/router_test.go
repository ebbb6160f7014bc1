package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"globalnews_translator/internal/app/service"
	"globalnews_translator/internal/common/security"
	"globalnews_translator/internal/domain/model"
	"globalnews_translator/internal/domain/repository"
	"globalnews_translator/internal/platform/queue"

	"go.uber.org/zap"
)

type stubPipeline struct {
	mu      sync.Mutex
	running bool
	stopErr error
}

func (p *stubPipeline) set(running bool, stopErr error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running, p.stopErr = running, stopErr
}

func (p *stubPipeline) Start() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return false
	}
	p.running = true
	return true
}

func (p *stubPipeline) Stop(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	return p.stopErr
}

func (p *stubPipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *stubPipeline) QueueMetrics(context.Context) (*model.QueueMetrics, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &model.QueueMetrics{Capacity: 3, Running: p.running}, nil
}

type stubHealth struct{ err error }

func (s stubHealth) Healthy(context.Context) error { return s.err }

type testServer struct {
	*httptest.Server
	store    *repository.MemoryStore
	pipeline *stubPipeline
	issuer   *security.TokenIssuer
}

func newTestServer(t *testing.T, health stubHealth) *testServer {
	t.Helper()
	log := zap.NewNop()
	store := repository.NewMemoryStore()
	ctx := context.Background()
	for _, a := range []model.Article{
		{ID: "a1", Title: "Hello", URL: "https://news.example/a1", Language: "en", Urgency: model.UrgencyNormal, PublishedAt: time.Now()},
		{ID: "b1", Title: "Quake", URL: "https://news.example/b1", Language: "en", Urgency: model.UrgencyBreaking, PublishedAt: time.Now()},
	} {
		if err := store.SaveArticle(ctx, &a); err != nil {
			t.Fatal(err)
		}
	}

	hash, err := security.HashPassword("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	issuer := security.NewTokenIssuer([]byte("test-secret"), time.Hour)
	pipeline := &stubPipeline{}
	jobs := service.NewTranslationJobService(store, store, queue.NewChannelSignal(), "llama3.1:8b", log)
	ts := service.NewTranslationService(jobs, pipeline, pipeline, store, store, store, log)
	auth := service.NewAuthService(hash, issuer, log)

	srv := httptest.NewServer(NewRouter(log, issuer, auth, ts, health, RouterOptions{StopTimeout: time.Second}))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: store, pipeline: pipeline, issuer: issuer}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err == nil {
		_ = json.Unmarshal(raw, &out)
	}
	return resp, out
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/api/v1/auth/token", "", map[string]string{"password": "s3cret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, body = %v", resp.StatusCode, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}
	return token
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, stubHealth{})
	resp, body := srv.do(t, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK || body["gateway"] != "ok" {
		t.Fatalf("health = %d %v", resp.StatusCode, body)
	}

	down := newTestServer(t, stubHealth{err: errors.New("connection refused")})
	resp, body = down.do(t, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusServiceUnavailable || body["status"] != "degraded" {
		t.Fatalf("degraded health = %d %v", resp.StatusCode, body)
	}
}

func TestOperatorRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t, stubHealth{})

	resp, _ := srv.do(t, http.MethodGet, "/api/v1/pipeline/metrics", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", resp.StatusCode)
	}

	resp, _ = srv.do(t, http.MethodGet, "/api/v1/pipeline/metrics", "not-a-jwt", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d, want 401", resp.StatusCode)
	}

	reader, err := srv.issuer.GenerateToken("dashboard", "reader")
	if err != nil {
		t.Fatal(err)
	}
	resp, _ = srv.do(t, http.MethodGet, "/api/v1/pipeline/metrics", reader, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-operator status = %d, want 403", resp.StatusCode)
	}

	resp, _ = srv.do(t, http.MethodPost, "/api/v1/auth/token", "", map[string]string{"password": "nope"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want 401", resp.StatusCode)
	}
}

func TestJobLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t, stubHealth{})
	token := srv.login(t)

	resp, body := srv.do(t, http.MethodPost, "/api/v1/translations/jobs", token, map[string]any{
		"article_id":       "a1",
		"target_languages": []string{"es", "fr"},
		"priority":         "high",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body = %v", resp.StatusCode, body)
	}
	ids, _ := body["job_ids"].([]any)
	if len(ids) != 1 {
		t.Fatalf("job_ids = %v", body["job_ids"])
	}
	jobID := ids[0].(string)

	resp, body = srv.do(t, http.MethodGet, "/api/v1/translations/jobs/"+jobID, token, nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "queued" || body["priority"] != "high" {
		t.Fatalf("get job = %d %v", resp.StatusCode, body)
	}

	resp, body = srv.do(t, http.MethodPost, "/api/v1/translations/jobs/"+jobID+"/cancel", token, nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "cancelled" {
		t.Fatalf("cancel = %d %v", resp.StatusCode, body)
	}
	resp, _ = srv.do(t, http.MethodPost, "/api/v1/translations/jobs/"+jobID+"/cancel", token, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second cancel status = %d, want 409", resp.StatusCode)
	}

	resp, _ = srv.do(t, http.MethodGet, "/api/v1/translations/jobs/missing", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing job status = %d, want 404", resp.StatusCode)
	}
}

func TestCreateJobsValidationOverHTTP(t *testing.T) {
	srv := newTestServer(t, stubHealth{})
	token := srv.login(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"no languages", map[string]any{"article_id": "a1", "target_languages": []string{}, "priority": "normal"}, http.StatusBadRequest},
		{"bad priority", map[string]any{"article_id": "a1", "target_languages": []string{"es"}, "priority": "asap"}, http.StatusBadRequest},
		{"no article id", map[string]any{"target_languages": []string{"es"}, "priority": "normal"}, http.StatusBadRequest},
		{"unknown field", map[string]any{"article_id": "a1", "target_languages": []string{"es"}, "priority": "normal", "colour": "red"}, http.StatusBadRequest},
		{"missing article", map[string]any{"article_id": "zzz", "target_languages": []string{"es"}, "priority": "normal"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := srv.do(t, http.MethodPost, "/api/v1/translations/jobs", token, tt.body)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d, body = %v", resp.StatusCode, tt.want, body)
			}
		})
	}
}

func TestBulkAndArticleTranslationsOverHTTP(t *testing.T) {
	srv := newTestServer(t, stubHealth{})
	token := srv.login(t)

	resp, body := srv.do(t, http.MethodPost, "/api/v1/translations/jobs/bulk", token, map[string]any{
		"urgency":          "breaking",
		"target_languages": []string{"es", "ar"},
	})
	if resp.StatusCode != http.StatusCreated || body["count"] != float64(1) {
		t.Fatalf("bulk = %d %v", resp.StatusCode, body)
	}

	resp, _ = srv.do(t, http.MethodPost, "/api/v1/translations/jobs/bulk", token, map[string]any{
		"urgency":          "low",
		"target_languages": []string{"es"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("low urgency bulk status = %d, want 400", resp.StatusCode)
	}

	err := srv.store.SaveTranslationResult(context.Background(), &model.TranslationResult{
		ArticleID: "b1", TargetLanguage: "es", TranslatedTitle: "Terremoto", Status: model.ResultStatusCompleted,
	})
	if err != nil {
		t.Fatal(err)
	}
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/translations/articles/b1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	var results []model.TranslationResult
	if err := json.NewDecoder(res.Body).Decode(&results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].TranslatedTitle != "Terremoto" {
		t.Fatalf("results = %+v", results)
	}

	resp, _ = srv.do(t, http.MethodGet, "/api/v1/translations/articles/nope", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown article status = %d, want 404", resp.StatusCode)
	}
}

func TestPipelineControlOverHTTP(t *testing.T) {
	srv := newTestServer(t, stubHealth{})
	token := srv.login(t)

	resp, body := srv.do(t, http.MethodPost, "/api/v1/pipeline/start", token, nil)
	if resp.StatusCode != http.StatusOK || body["changed"] != true {
		t.Fatalf("start = %d %v", resp.StatusCode, body)
	}
	resp, body = srv.do(t, http.MethodPost, "/api/v1/pipeline/start", token, nil)
	if resp.StatusCode != http.StatusOK || body["changed"] != false || body["running"] != true {
		t.Fatalf("second start = %d %v", resp.StatusCode, body)
	}

	resp, body = srv.do(t, http.MethodGet, "/api/v1/pipeline/metrics", token, nil)
	if resp.StatusCode != http.StatusOK || body["running"] != true || body["capacity"] != float64(3) {
		t.Fatalf("metrics = %d %v", resp.StatusCode, body)
	}

	resp, body = srv.do(t, http.MethodPost, "/api/v1/pipeline/stop", token, nil)
	if resp.StatusCode != http.StatusOK || body["changed"] != true || body["running"] != false {
		t.Fatalf("stop = %d %v", resp.StatusCode, body)
	}

	srv.pipeline.set(true, context.DeadlineExceeded)
	resp, body = srv.do(t, http.MethodPost, "/api/v1/pipeline/stop", token, nil)
	if resp.StatusCode != http.StatusAccepted || body["draining"] != true {
		t.Fatalf("draining stop = %d %v", resp.StatusCode, body)
	}
}
