package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/desertthunder/portify/internal/shared"
)

func TestAPIClient(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom Client", func(t *testing.T) {
			customClient := &http.Client{}
			api := newAPIClient("http://example.com/", customClient, 5)

			if api.baseURL != "http://example.com" {
				t.Errorf("expected trailing slash trimmed, got %s", api.baseURL)
			}
			if api.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Nil Client", func(t *testing.T) {
			api := newAPIClient("http://example.com", nil, 0)
			if api.httpClient != http.DefaultClient {
				t.Error("expected default client fallback")
			}
			if api.limiter == nil {
				t.Error("expected limiter to be configured")
			}
		})
	})

	t.Run("Request", func(t *testing.T) {
		t.Run("Sends Bearer and Query", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != "Bearer token123" {
					t.Errorf("expected bearer header, got %q", got)
				}
				if got := r.URL.Query().Get("limit"); got != "50" {
					t.Errorf("expected limit query param, got %q", got)
				}
				json.NewEncoder(w).Encode(map[string]string{"id": "abc"})
			}))
			defer srv.Close()

			api := newAPIClient(srv.URL, srv.Client(), 1000)

			var result struct {
				ID string `json:"id"`
			}
			query := url.Values{"limit": {"50"}}
			if err := api.request(context.Background(), http.MethodGet, "/thing", "token123", query, nil, &result); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result.ID != "abc" {
				t.Errorf("expected decoded id, got %q", result.ID)
			}
		})

		t.Run("Maps 401 To Unauthorized", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer srv.Close()

			api := newAPIClient(srv.URL, srv.Client(), 1000)
			err := api.request(context.Background(), http.MethodGet, "/me", "expired", nil, nil, nil)
			if !errors.Is(err, shared.ErrUnauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
		})

		t.Run("Maps Other Failures To Provider Error", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "quota exceeded", http.StatusForbidden)
			}))
			defer srv.Close()

			api := newAPIClient(srv.URL, srv.Client(), 1000)
			err := api.request(context.Background(), http.MethodGet, "/me", "t", nil, nil, nil)
			if !errors.Is(err, shared.ErrProvider) {
				t.Errorf("expected ErrProvider, got %v", err)
			}
		})

		t.Run("Maps Undecodable Body To Invalid Response", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			}))
			defer srv.Close()

			api := newAPIClient(srv.URL, srv.Client(), 1000)

			var result map[string]any
			err := api.request(context.Background(), http.MethodGet, "/me", "t", nil, nil, &result)
			if !errors.Is(err, shared.ErrInvalidResponse) {
				t.Errorf("expected ErrInvalidResponse, got %v", err)
			}
		})
	})

	t.Run("PostForm", func(t *testing.T) {
		t.Run("Sends Form Encoding and Headers", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
					t.Errorf("expected form content type, got %q", got)
				}
				if got := r.Header.Get("Authorization"); got != "Basic abc" {
					t.Errorf("expected basic auth header, got %q", got)
				}
				if err := r.ParseForm(); err != nil {
					t.Fatalf("failed to parse form: %v", err)
				}
				if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
					t.Errorf("expected grant_type, got %q", got)
				}
				json.NewEncoder(w).Encode(map[string]string{"access_token": "fresh"})
			}))
			defer srv.Close()

			api := newAPIClient(srv.URL, srv.Client(), 1000)

			headers := http.Header{}
			headers.Set("Authorization", "Basic abc")

			var result struct {
				AccessToken string `json:"access_token"`
			}
			form := url.Values{"grant_type": {"refresh_token"}}
			if err := api.postForm(context.Background(), srv.URL+"/token", form, headers, &result); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result.AccessToken != "fresh" {
				t.Errorf("expected decoded access token, got %q", result.AccessToken)
			}
		})
	})
}

func TestBasicAuthHeader(t *testing.T) {
	// base64("id:secret")
	if got := basicAuthHeader("id", "secret"); got != "Basic aWQ6c2VjcmV0" {
		t.Errorf("unexpected header value %q", got)
	}
}
