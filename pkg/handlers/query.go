package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Yashh56/relwave-app-sub001/pkg/adapters/datasource"
	"github.com/Yashh56/relwave-app-sub001/pkg/query"
)

func (h *Handler) queryRun(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		DatabaseID string `json:"databaseId"`
		SQL        string `json:"sql"`
		BatchSize  int    `json:"batchSize"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.DatabaseID, "databaseId"); err != nil {
		return nil, err
	}
	if err := requireField(p.SQL, "sql"); err != nil {
		return nil, err
	}

	// batchSize is optional; zero means the configured default.
	sessionID, err := h.queries.Run(ctx, p.DatabaseID, p.SQL, p.BatchSize)
	if err != nil {
		return nil, err
	}
	return map[string]string{"sessionId": sessionID}, nil
}

func (h *Handler) queryCancel(params json.RawMessage) (any, error) {
	var p struct {
		SessionID string `json:"sessionId"`
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if err := requireField(p.SessionID, "sessionId"); err != nil {
		return nil, err
	}
	h.queries.Cancel(p.SessionID)
	return map[string]bool{"requested": true}, nil
}

// Notifier adapts session lifecycle events onto the RPC notification
// channel.
type Notifier struct {
	sender NotifySender
}

func NewNotifier(sender NotifySender) *Notifier {
	return &Notifier{sender: sender}
}

func (n *Notifier) QueryStarted(sessionID string) {
	n.sender.Notify("query.started", map[string]string{"sessionId": sessionID})
}

func (n *Notifier) QueryResult(sessionID string, batchIndex int, rows [][]any, columns []datasource.ColumnInfo) {
	n.sender.Notify("query.result", map[string]any{
		"sessionId":  sessionID,
		"batchIndex": batchIndex,
		"rows":       rows,
		"columns":    columns,
	})
}

func (n *Notifier) QueryProgress(sessionID string, rowsStreamed int64, elapsed time.Duration) {
	n.sender.Notify("query.progress", map[string]any{
		"sessionId": sessionID,
		"rows":      rowsStreamed,
		"elapsedMs": elapsed.Milliseconds(),
	})
}

func (n *Notifier) QueryDone(sessionID string, totalRows int64, elapsed time.Duration) {
	n.sender.Notify("query.done", map[string]any{
		"sessionId": sessionID,
		"totalRows": totalRows,
		"elapsedMs": elapsed.Milliseconds(),
	})
}

func (n *Notifier) QueryCancelled(sessionID string, rowsStreamed int64) {
	n.sender.Notify("query.cancelled", map[string]any{
		"sessionId": sessionID,
		"rows":      rowsStreamed,
	})
}

func (n *Notifier) QueryError(sessionID string, message string) {
	n.sender.Notify("query.error", map[string]any{
		"sessionId": sessionID,
		"error":     message,
	})
}

var _ query.Notifier = (*Notifier)(nil)
