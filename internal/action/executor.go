package action

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/deckd/internal/config"
	"github.com/muurk/deckd/internal/logging"
)

const (
	// httpTimeout bounds one HTTP action end to end.
	httpTimeout = 10 * time.Second

	// shellTimeout bounds one shell action; a hung script must not
	// accumulate goroutines forever.
	shellTimeout = 30 * time.Second
)

// IsSync reports whether an action kind executes synchronously inside the
// coordinator (navigation mutations) instead of being dispatched to the
// executor. Navigation is classified as an action only for configuration
// uniformity.
func IsSync(kind string) bool {
	switch kind {
	case config.ActionNavigate, config.ActionBack, config.ActionHome:
		return true
	}
	return false
}

// Executor runs http and shell actions as independent units of work so the
// event loop never blocks on network or process latency.
//
// At most one action per key is in flight at a time: a repeated press on a
// busy key is dropped, not queued, which keeps rapid double-presses from
// turning into action storms. Completions are logged only; they never
// re-enter the event stream.
type Executor struct {
	client *http.Client

	mu       sync.Mutex
	inflight map[int]bool
	wg       sync.WaitGroup
}

// NewExecutor creates an executor with its own HTTP client.
func NewExecutor() *Executor {
	return &Executor{
		client:   &http.Client{Timeout: httpTimeout},
		inflight: make(map[int]bool),
	}
}

// Dispatch starts the action bound to key in the background and returns
// immediately. Returns false, without dispatching, when an action for this
// key is still in flight.
//
// Actions run on a detached context: shutdown lets them finish within the
// coordinator's grace period rather than cancelling a half-sent request.
// A panic inside an action is caught here and reported as a failed action;
// it never reaches the coordinator.
func (e *Executor) Dispatch(key int, act *config.Action) bool {
	e.mu.Lock()
	if e.inflight[key] {
		e.mu.Unlock()
		return false
	}
	e.inflight[key] = true
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			e.mu.Lock()
			delete(e.inflight, key)
			e.mu.Unlock()
		}()
		defer func() {
			if r := recover(); r != nil {
				logging.Error("Action panicked",
					zap.Int("key", key),
					zap.Any("panic", r),
				)
			}
		}()

		logging.LogAction(key, act.Kind, e.run(act))
	}()
	return true
}

// Wait blocks until all in-flight actions finish, or until the grace period
// expires. Returns false when actions were abandoned.
func (e *Executor) Wait(grace time.Duration) bool {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(grace):
		return false
	}
}

func (e *Executor) run(act *config.Action) error {
	switch act.Kind {
	case config.ActionHTTP:
		return e.runHTTP(act)
	case config.ActionShell:
		return runShell(act.Command)
	default:
		return fmt.Errorf("action kind %q is not dispatchable", act.Kind)
	}
}

func (e *Executor) runHTTP(act *config.Action) error {
	ctx, cancel := context.WithTimeout(context.Background(), httpTimeout)
	defer cancel()

	var body io.Reader
	if act.Body != "" {
		body = strings.NewReader(act.Body)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(act.Method), act.URL, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range act.Headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s returned %s", req.Method, act.URL, resp.Status)
	}
	logging.Debug("HTTP action succeeded",
		zap.String("method", req.Method),
		zap.String("url", act.URL),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}

func runShell(command string) error {
	ctx, cancel := context.WithTimeout(context.Background(), shellTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "/bin/sh", "-c", command).CombinedOutput()
	if err != nil {
		return fmt.Errorf("shell command failed: %w (output: %s)", err, truncate(string(out), 256))
	}
	if len(out) > 0 {
		logging.Debug("Shell output", zap.String("output", truncate(string(out), 256)))
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
