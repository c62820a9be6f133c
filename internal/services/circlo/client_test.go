package circlo_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"golang.org/x/time/rate"

	"reelfactory/internal/services"
	"reelfactory/internal/services/circlo"
	"reelfactory/internal/testsupport"
)

func newClient(url string) *circlo.Client {
	return circlo.NewClient(
		circlo.Config{BaseURL: url, Token: "secret"},
		circlo.WithLimiter(rate.NewLimiter(rate.Inf, 1)),
	)
}

func TestCreatePostSendsPlatformPayload(t *testing.T) {
	srv := testsupport.NewRecordingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"post":{"id":"ext-1","caption":"hi"}}`))
	})

	published, err := newClient(srv.URL).CreatePost(context.Background(), circlo.Post{
		Niche:    "Travel",
		MediaURL: "http://media.test/a.png",
		Caption:  "hi #DNA",
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if published.ID != "ext-1" {
		t.Fatalf("unexpected post id %q", published.ID)
	}

	reqs := srv.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	req := reqs[0]
	if req.Method != http.MethodPost || req.Path != "/api/user-preferences/recommend/create-post" {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", got)
	}
	var body map[string]any
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["profile"] != "general" || body["media_type"] != "image" || body["media_source"] != "http://media.test/a.png" {
		t.Fatalf("unexpected body: %v", body)
	}
	if kws, ok := body["keywords"].([]any); !ok || len(kws) != 0 {
		t.Fatalf("expected empty keywords array, got %v", body["keywords"])
	}
}

func TestCreatePostClassifiesFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		marker error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"bad token"}`, services.ErrConfiguration},
		{"throttled", http.StatusTooManyRequests, ``, services.ErrTransient},
		{"rejected", http.StatusBadRequest, `{"message":"bad media"}`, services.ErrExternal},
		{"unsuccessful", http.StatusOK, `{"success":false,"message":"duplicate"}`, services.ErrExternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := testsupport.NewRecordingServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := newClient(srv.URL).CreatePost(context.Background(), circlo.Post{Niche: "x"})
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected %v, got %v", tc.marker, err)
			}
		})
	}
}

func TestCreatePostRequiresCredentials(t *testing.T) {
	client := circlo.NewClient(circlo.Config{BaseURL: "http://x"})
	if client.Configured() {
		t.Fatal("expected unconfigured client")
	}
	if _, err := client.CreatePost(context.Background(), circlo.Post{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
