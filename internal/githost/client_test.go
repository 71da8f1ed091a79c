package githost

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestClientRetriesTransientStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"login":"wizz"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	login, err := c.AuthenticatedUser(context.Background())
	if err != nil {
		t.Fatalf("AuthenticatedUser() error = %v", err)
	}
	if login != "wizz" {
		t.Fatalf("login = %q, want wizz", login)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"name already exists on this account"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.CreateRepo(context.Background(), "todo", true)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("CreateRepo() error = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("StatusCode = %d, want 422", apiErr.StatusCode)
	}
	if apiErr.Message != "name already exists on this account" {
		t.Fatalf("Message = %q", apiErr.Message)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry)", calls)
	}
}

func TestRefSHAMapsMissingRef(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	if _, err := c.RefSHA(context.Background(), "wizz", "todo", "main"); !errors.Is(err, ErrRefNotFound) {
		t.Fatalf("RefSHA() error = %v, want ErrRefNotFound", err)
	}
}

func TestClientSendsAuthAndAccept(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.github+json" {
			t.Errorf("Accept = %q", got)
		}
		w.Write([]byte(`{"sha":"abc"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	sha, err := c.CreateBlob(context.Background(), "wizz", "todo", "content", "utf-8")
	if err != nil {
		t.Fatalf("CreateBlob() error = %v", err)
	}
	if sha != "abc" {
		t.Fatalf("sha = %q, want abc", sha)
	}
}
