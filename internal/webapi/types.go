package webapi

import (
	"time"

	"github.com/burnish-dev/burnish/internal/polish"
	"github.com/burnish-dev/burnish/internal/session"
)

// SessionSummary is the API response for a single polish session in the list.
type SessionSummary struct {
	ID           string    `json:"id"`
	ProjectPath  string    `json:"projectPath"`
	Branch       string    `json:"branch"`
	InitialScore float64   `json:"initialScore"`
	BestScore    float64   `json:"bestScore"`
	Improvement  float64   `json:"improvement"`
	Iterations   int       `json:"iterations"`
	CommitCount  int       `json:"commitCount"`
	StartedAt    time.Time `json:"startedAt"`
}

// SessionDetail is the API response for a single session with its full
// trajectory and event log.
type SessionDetail struct {
	SessionSummary
	Commits    []polish.CommitInfo      `json:"commits"`
	Trajectory []float64                `json:"trajectory"`
	History    []polish.IterationRecord `json:"history"`
	Events     []session.Event          `json:"events"`
}

// SummaryResponse is the aggregate KPI response.
type SummaryResponse struct {
	TotalSessions  int     `json:"totalSessions"`
	TotalCommits   int     `json:"totalCommits"`
	AvgImprovement float64 `json:"avgImprovement"`
	AvgIterations  float64 `json:"avgIterations"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is returned for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
