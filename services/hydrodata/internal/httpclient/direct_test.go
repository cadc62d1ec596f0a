package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDirectGet(t *testing.T) {
	var gotQuery, gotUA, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/zip")
		w.Write([]byte("ZIPDATA"))
	}))
	defer srv.Close()

	client := NewDirect(DirectOptions{Token: "secret"})
	resp, err := client.Get(context.Background(), srv.URL, Params{"tipo": 3, "documentos": "111;222"}, 0)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if string(resp.Content) != "ZIPDATA" {
		t.Errorf("Expected ZIPDATA, got %q", resp.Content)
	}
	if resp.Header["Content-Type"] != "application/zip" {
		t.Errorf("Expected content type header, got %v", resp.Header)
	}
	if gotQuery != "documentos=111%3B222&tipo=3" {
		t.Errorf("Unexpected query %q", gotQuery)
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("Unexpected user agent %q", gotUA)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Unexpected authorization %q", gotAuth)
	}
}

func TestDirectGetWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Error("Authorization header should be absent")
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := NewDirect(DirectOptions{UserAgent: "custom/1.0"})
	if _, err := client.Get(context.Background(), srv.URL+"?keep=1", nil, time.Second); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
}

func TestDirectGetStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewDirect(DirectOptions{}).Get(context.Background(), srv.URL, nil, 0)
	if err == nil {
		t.Fatal("Expected an error")
	}

	code, ok := StatusCode(err)
	if !ok || code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d (ok=%v)", code, ok)
	}
	if IsConnectionError(err) {
		t.Error("Status errors are not connection errors")
	}
}

func TestDirectGetConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close()

	_, err := NewDirect(DirectOptions{}).Get(context.Background(), target, nil, time.Second)
	if !IsConnectionError(err) {
		t.Fatalf("Expected connection error, got %v", err)
	}
	if _, ok := StatusCode(err); ok {
		t.Error("Connection errors carry no status code")
	}
	if !strings.Contains(err.Error(), target) {
		t.Errorf("Error should mention %s: %v", target, err)
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Unwrap() == nil {
		t.Error("Connection error should wrap its cause")
	}
}

func TestDirectGetTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewDirect(DirectOptions{}).Get(context.Background(), srv.URL, nil, 50*time.Millisecond)
	if !IsConnectionError(err) {
		t.Fatalf("Expected timeout to surface as connection error, got %v", err)
	}
}

func TestDirectGetEmptyURL(t *testing.T) {
	if _, err := NewDirect(DirectOptions{}).Get(context.Background(), "", nil, 0); err == nil {
		t.Error("Expected an error for an empty url")
	}
}

func newCountingServer(t *testing.T, hits *int) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		w.Write([]byte("live"))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}
