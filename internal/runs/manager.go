package runs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/copyleftdev/sablcheck/internal/failure"
	"github.com/copyleftdev/sablcheck/internal/scenario"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const callbackTimeout = 10 * time.Second

var (
	ErrNotFound     = errors.New("run not found")
	ErrShuttingDown = errors.New("run manager is shutting down")
)

// Executor drives a pending run to a terminal state.
type Executor interface {
	Execute(ctx context.Context, sc scenario.Scenario, run *scenario.Run) scenario.Result
}

type entry struct {
	run         *scenario.Run
	callbackURL string
}

// Manager keeps submitted runs in memory and executes them in the
// background, at most maxConcurrent at a time.
type Manager struct {
	exec   Executor
	logger *zap.Logger
	client *http.Client

	mu      sync.RWMutex
	runs    map[uuid.UUID]*entry
	order   []uuid.UUID
	closing bool

	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(exec Executor, maxConcurrent int, logger *zap.Logger) *Manager {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		exec:   exec,
		logger: logger.Named("runs"),
		client: &http.Client{Timeout: callbackTimeout},
		runs:   make(map[uuid.UUID]*entry),
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit registers a pending run of sc and starts it asynchronously. When
// callbackURL is set the terminal result is POSTed there as JSON.
func (m *Manager) Submit(sc scenario.Scenario, callbackURL string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closing {
		return uuid.Nil, ErrShuttingDown
	}

	run := scenario.NewRun(sc)
	id := run.ID()
	m.runs[id] = &entry{run: run, callbackURL: callbackURL}
	m.order = append(m.order, id)

	m.wg.Add(1)
	go m.execute(sc.Clone(), m.runs[id])

	m.logger.Info("run submitted", zap.String("run_id", id.String()), zap.String("scenario", sc.ID))
	return id, nil
}

func (m *Manager) execute(sc scenario.Scenario, e *entry) {
	defer m.wg.Done()

	if err := m.sem.Acquire(m.ctx, 1); err != nil {
		// Cancelled while queued: the run still reaches a terminal state.
		if serr := e.run.Start(); serr == nil {
			_ = e.run.Finish(failure.Wrap(failure.BrowserError, err, "run cancelled before start"))
		}
		m.notify(e)
		return
	}
	defer m.sem.Release(1)

	m.exec.Execute(m.ctx, sc, e.run)
	m.notify(e)
}

// Get returns a snapshot of the run's current result.
func (m *Manager) Get(id uuid.UUID) (scenario.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.runs[id]
	if !ok {
		return scenario.Result{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.run.Result(), nil
}

// List returns every known run in submission order.
func (m *Manager) List() []scenario.Result {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]scenario.Result, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.runs[id].run.Result())
	}
	return out
}

func (m *Manager) notify(e *entry) {
	if e.callbackURL == "" {
		return
	}
	res := e.run.Result()
	logger := m.logger.With(zap.String("run_id", res.RunID.String()), zap.String("callback", e.callbackURL))

	body, err := json.Marshal(res)
	if err != nil {
		logger.Error("failed to marshal callback payload", zap.Error(err))
		return
	}
	req, err := http.NewRequest(http.MethodPost, e.callbackURL, bytes.NewReader(body))
	if err != nil {
		logger.Error("failed to create callback request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		logger.Warn("callback failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		logger.Debug("callback delivered", zap.Int("status", resp.StatusCode))
	} else {
		logger.Warn("callback rejected", zap.Int("status", resp.StatusCode))
	}
}

// Shutdown stops accepting runs, cancels those in flight and waits for them
// to record their terminal state or for ctx to end.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closing = true
	m.mu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		m.logger.Info("run manager shut down")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
