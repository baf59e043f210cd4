// Package query owns live query sessions: streaming execution with
// batched delivery, explicit cancellation, and schema introspection
// against registered database connections.
package query

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Yashh56/relwave-app-sub001/pkg/adapters/datasource"
	"github.com/Yashh56/relwave-app-sub001/pkg/apperrors"
	"github.com/Yashh56/relwave-app-sub001/pkg/config"
	"github.com/Yashh56/relwave-app-sub001/pkg/credstore"
	"github.com/Yashh56/relwave-app-sub001/pkg/logging"
	"github.com/Yashh56/relwave-app-sub001/pkg/models"
)

// Notifier receives session lifecycle events. Exactly one terminal event
// (Done, Cancelled or Error) is delivered per session.
type Notifier interface {
	QueryStarted(sessionID string)
	QueryResult(sessionID string, batchIndex int, rows [][]any, columns []datasource.ColumnInfo)
	QueryProgress(sessionID string, rowsStreamed int64, elapsed time.Duration)
	QueryDone(sessionID string, totalRows int64, elapsed time.Duration)
	QueryCancelled(sessionID string, rowsStreamed int64)
	QueryError(sessionID string, message string)
}

// ConnectFunc opens an adapter for an engine; swapped out in tests.
type ConnectFunc func(ctx context.Context, engine models.Engine, desc models.ConnectionDescriptor) (datasource.Adapter, error)

// Manager tracks running query sessions keyed by session ID.
type Manager struct {
	store    *credstore.Store
	cfg      *config.Config
	notifier Notifier
	logger   *zap.Logger
	connect  ConnectFunc

	mu       sync.Mutex
	sessions map[string]*session
}

// session is one in-flight query. The cancelled flag is the single source
// of truth for the terminal state: it is set before the context is
// cancelled, so the runner never has to interpret driver error text.
type session struct {
	id        string
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// NewManager builds a Manager wired to the real adapter registry.
func NewManager(store *credstore.Store, cfg *config.Config, notifier Notifier, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:    store,
		cfg:      cfg,
		notifier: notifier,
		logger:   logger,
		connect:  datasource.Connect,
		sessions: make(map[string]*session),
	}
}

// open resolves the stored metadata and credentials for databaseID and
// dials an adapter.
func (m *Manager) open(ctx context.Context, databaseID string) (datasource.Adapter, *models.DatabaseMeta, error) {
	meta := m.store.Get(databaseID)
	if meta == nil {
		return nil, nil, apperrors.ErrDatabaseNotFound
	}
	password, _ := m.store.GetPassword(meta)
	desc := credstore.BuildDescriptor(meta, password)

	adapter, err := m.connect(ctx, meta.Engine, desc)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", meta.Name, err)
	}
	return adapter, meta, nil
}

// Run starts a streaming query against the database and returns the new
// session ID immediately. Rows flow to the Notifier from a background
// goroutine; the session ends with exactly one terminal event. A
// non-positive batchSize falls back to the configured default.
func (m *Manager) Run(ctx context.Context, databaseID, sqlText string, batchSize int) (string, error) {
	// The session must outlive the RPC request that started it, so it
	// runs on its own context rather than the caller's.
	runCtx, cancel := context.WithCancel(context.Background())

	adapter, meta, err := m.open(runCtx, databaseID)
	if err != nil {
		cancel()
		return "", err
	}
	if batchSize <= 0 {
		batchSize = m.cfg.BatchSize
	}

	sess := &session{id: uuid.NewString(), cancel: cancel}
	m.mu.Lock()
	m.sessions[sess.id] = sess
	m.mu.Unlock()

	m.store.TouchLastAccessed(meta.ID)
	m.logger.Info("query session started",
		zap.String("sessionId", sess.id),
		zap.String("databaseId", databaseID),
		zap.String("query", logging.SanitizeQuery(sqlText)))

	go m.runSession(runCtx, sess, adapter, sqlText, batchSize)
	return sess.id, nil
}

func (m *Manager) runSession(ctx context.Context, sess *session, adapter datasource.Adapter, sqlText string, batchSize int) {
	defer adapter.Close()
	defer func() {
		m.mu.Lock()
		delete(m.sessions, sess.id)
		m.mu.Unlock()
	}()

	m.notifier.QueryStarted(sess.id)

	start := time.Now()
	interval := m.cfg.ProgressInterval()
	lastProgress := start
	var rowsStreamed int64
	batchIndex := 0

	err := adapter.StreamQuery(ctx, sqlText, batchSize, func(rows [][]any, columns []datasource.ColumnInfo) error {
		m.notifier.QueryResult(sess.id, batchIndex, rows, columns)
		batchIndex++
		rowsStreamed += int64(len(rows))

		if now := time.Now(); now.Sub(lastProgress) >= interval {
			m.notifier.QueryProgress(sess.id, rowsStreamed, now.Sub(start))
			lastProgress = now
		}
		return nil
	})

	elapsed := time.Since(start)
	switch {
	case sess.cancelled.Load():
		// User-initiated, whatever the driver reported.
		m.notifier.QueryCancelled(sess.id, rowsStreamed)
		m.logger.Info("query session cancelled",
			zap.String("sessionId", sess.id), zap.Int64("rows", rowsStreamed))
	case err != nil:
		m.notifier.QueryError(sess.id, logging.SanitizeError(err))
		m.logger.Warn("query session failed",
			zap.String("sessionId", sess.id), zap.String("error", logging.SanitizeError(err)))
	default:
		m.notifier.QueryDone(sess.id, rowsStreamed, elapsed)
		m.logger.Info("query session done",
			zap.String("sessionId", sess.id),
			zap.Int64("rows", rowsStreamed),
			zap.Duration("elapsed", elapsed))
	}
}

// Cancel requests cancellation of a running session. Cancelling an unknown
// or already-finished session is a no-op.
func (m *Manager) Cancel(sessionID string) {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return
	}
	// Order matters: the flag must be visible before the context error
	// surfaces in the runner.
	sess.cancelled.Store(true)
	sess.cancel()
}

// ActiveSessions returns the IDs of sessions that have not yet reached a
// terminal state.
func (m *Manager) ActiveSessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// TestConnection dials the database and verifies credentials.
func (m *Manager) TestConnection(ctx context.Context, databaseID string) error {
	adapter, _, err := m.open(ctx, databaseID)
	if err != nil {
		return err
	}
	defer adapter.Close()
	return adapter.TestConnection(ctx)
}

// Stats returns engine-reported size statistics for one database.
func (m *Manager) Stats(ctx context.Context, databaseID string) (*datasource.DatabaseStats, error) {
	adapter, _, err := m.open(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	defer adapter.Close()
	return adapter.Stats(ctx)
}

// ListTables lists tables and views in one schema of the database.
func (m *Manager) ListTables(ctx context.Context, databaseID, schema string) ([]datasource.TableInfo, error) {
	adapter, _, err := m.open(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	defer adapter.Close()
	return adapter.ListTables(ctx, schema)
}

// OpenExecutor dials the database for statement execution. The caller owns
// the returned adapter and must close it.
func (m *Manager) OpenExecutor(ctx context.Context, databaseID string) (datasource.Adapter, error) {
	adapter, _, err := m.open(ctx, databaseID)
	return adapter, err
}
