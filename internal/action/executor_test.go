package action

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/muurk/deckd/internal/config"
)

func TestSecondDispatchOnBusyKeyDropped(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
	}))
	defer srv.Close()

	e := NewExecutor()
	act := &config.Action{Kind: config.ActionHTTP, Method: "GET", URL: srv.URL}

	if !e.Dispatch(0, act) {
		t.Fatal("first Dispatch() = false, want true")
	}
	<-started

	if e.Dispatch(0, act) {
		t.Error("second Dispatch() on busy key = true, want false")
	}
	// A different key is unaffected by key 0 being busy.
	if !e.Dispatch(1, &config.Action{Kind: config.ActionShell, Command: "true"}) {
		t.Error("Dispatch() on idle key = false, want true")
	}

	close(release)
	if !e.Wait(2 * time.Second) {
		t.Fatal("Wait() timed out")
	}

	// Key 0 is free again after completion.
	if !e.Dispatch(0, &config.Action{Kind: config.ActionShell, Command: "true"}) {
		t.Error("Dispatch() after completion = false, want true")
	}
	e.Wait(2 * time.Second)
}

func TestHTTPActionRequest(t *testing.T) {
	var gotMethod, gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
	}))
	defer srv.Close()

	e := NewExecutor()
	err := e.runHTTP(&config.Action{
		Kind:    config.ActionHTTP,
		Method:  "post",
		URL:     srv.URL,
		Headers: map[string]string{"Authorization": "Bearer abc"},
		Body:    `{"entity_id": "switch.printer"}`,
	})
	if err != nil {
		t.Fatalf("runHTTP() error = %v", err)
	}
	if gotMethod != "POST" {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotAuth != "Bearer abc" {
		t.Errorf("Authorization = %q, want Bearer abc", gotAuth)
	}
	if gotBody != `{"entity_id": "switch.printer"}` {
		t.Errorf("body = %q", gotBody)
	}
}

func TestHTTPActionNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	e := NewExecutor()
	if err := e.runHTTP(&config.Action{Kind: config.ActionHTTP, Method: "GET", URL: srv.URL}); err == nil {
		t.Error("runHTTP() with 502 = nil error, want error")
	}
}

func TestShellExitStatus(t *testing.T) {
	if err := runShell("exit 0"); err != nil {
		t.Errorf("runShell(exit 0) error = %v", err)
	}
	if err := runShell("echo oops >&2; exit 3"); err == nil {
		t.Error("runShell(exit 3) = nil error, want error")
	}
}

func TestPanicInActionIsContained(t *testing.T) {
	e := NewExecutor()
	// A nil action dereferences inside the goroutine; the recover boundary
	// must absorb it and release the key.
	if !e.Dispatch(4, nil) {
		t.Fatal("Dispatch(nil) = false, want true")
	}
	if !e.Wait(2 * time.Second) {
		t.Fatal("Wait() timed out; panic was not recovered")
	}
	if !e.Dispatch(4, &config.Action{Kind: config.ActionShell, Command: "true"}) {
		t.Error("key still marked in flight after panic")
	}
	e.Wait(2 * time.Second)
}

func TestIsSync(t *testing.T) {
	for _, kind := range []string{config.ActionNavigate, config.ActionBack, config.ActionHome} {
		if !IsSync(kind) {
			t.Errorf("IsSync(%q) = false, want true", kind)
		}
	}
	for _, kind := range []string{config.ActionHTTP, config.ActionShell} {
		if IsSync(kind) {
			t.Errorf("IsSync(%q) = true, want false", kind)
		}
	}
}
