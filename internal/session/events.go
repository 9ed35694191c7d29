// Package session provides the per-session event model, the NDJSON event
// log, and the in-memory event bus the dashboard subscribes to.
package session

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of session event.
type EventType string

const (
	EventInit     EventType = "init"
	EventPhase    EventType = "phase"
	EventScore    EventType = "score"
	EventStrategy EventType = "strategy"
	EventAgent    EventType = "agent"
	EventCommit   EventType = "commit"
	EventRollback EventType = "rollback"
	EventResult   EventType = "result"
	EventError    EventType = "error"
	EventAborted  EventType = "aborted"
)

// Event is a single timestamped entry in a session's event stream.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, data map[string]any) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		Type:      t,
		Data:      data,
	}
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// InitData returns event data for a session start.
func InitData(sessionID, projectPath, branch string, initialScore float64, metricCount int) map[string]any {
	return map[string]any{
		"session_id":    sessionID,
		"project_path":  projectPath,
		"branch":        branch,
		"initial_score": initialScore,
		"metric_count":  metricCount,
	}
}

// ScoreData returns event data for a scoring pass.
func ScoreData(iteration int, score, delta float64) map[string]any {
	return map[string]any{
		"iteration": iteration,
		"score":     score,
		"delta":     delta,
	}
}

// StrategyData returns event data for a strategy selection.
func StrategyData(iteration int, name, focus string) map[string]any {
	return map[string]any{
		"iteration": iteration,
		"strategy":  name,
		"focus":     focus,
	}
}

// AgentData returns event data for an agent tool-call lifecycle event.
func AgentData(phase, toolName string, detail map[string]any) map[string]any {
	d := map[string]any{
		"phase": phase,
	}
	if toolName != "" {
		d["tool"] = toolName
	}
	for k, v := range detail {
		d[k] = v
	}
	return d
}

// CommitData returns event data for an accepted iteration.
func CommitData(iteration int, hash, message string, scoreDelta float64) map[string]any {
	return map[string]any{
		"iteration":   iteration,
		"hash":        hash,
		"message":     message,
		"score_delta": scoreDelta,
	}
}

// RollbackData returns event data for a rejected iteration.
func RollbackData(iteration int, reason, failedStrategy string) map[string]any {
	return map[string]any{
		"iteration":       iteration,
		"reason":          reason,
		"failed_strategy": failedStrategy,
	}
}

// ResultData returns event data for a terminal result.
func ResultData(reason string, initialScore, finalScore float64, iterations, commits int) map[string]any {
	return map[string]any{
		"reason":        reason,
		"initial_score": initialScore,
		"final_score":   finalScore,
		"iterations":    iterations,
		"commits":       commits,
	}
}

// ErrorData returns event data for an error.
func ErrorData(message string) map[string]any {
	return map[string]any{"message": message}
}

// AbortedData returns event data for a user abort.
func AbortedData(reason string) map[string]any {
	return map[string]any{"reason": reason}
}
