package webapi

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/burnish-dev/burnish/internal/polish"
	"github.com/burnish-dev/burnish/internal/session"
)

// ErrSessionNotFound is returned when a session ID matches no stored session.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore provides access to recorded polish sessions.
type SessionStore interface {
	// ListSessions returns all sessions, sorted by the given field and order.
	ListSessions(sortField, order string) ([]SessionSummary, error)
	// GetSession returns a single session with trajectory and event log.
	GetSession(id string) (*SessionDetail, error)
	// Summary returns aggregate metrics across all sessions.
	Summary() (*SummaryResponse, error)
}

// FileStore reads persisted polish state and NDJSON event logs from the
// results directory. Every request rescans the directory so sessions that
// finish while the server is running show up without a restart.
type FileStore struct {
	dir string

	mu       sync.RWMutex
	sessions map[string]*polish.PolishState
}

// NewFileStore creates a FileStore that reads results from dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:      dir,
		sessions: make(map[string]*polish.PolishState),
	}
}

const stateSuffix = ".state.json"

// load reads all state files from the configured directory.
func (fs *FileStore) load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.sessions = make(map[string]*polish.PolishState)

	if fs.dir == "" {
		return nil
	}

	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), stateSuffix) {
			continue
		}
		state, err := polish.LoadState(filepath.Join(fs.dir, e.Name()))
		if err != nil {
			continue
		}
		if state.SessionID == "" {
			state.SessionID = strings.TrimSuffix(e.Name(), stateSuffix)
		}
		fs.sessions[state.SessionID] = state
	}

	return nil
}

func stateToSummary(s *polish.PolishState) SessionSummary {
	return SessionSummary{
		ID:           s.SessionID,
		ProjectPath:  s.ProjectPath,
		Branch:       s.Branch,
		InitialScore: s.InitialScore,
		BestScore:    s.BestScore,
		Improvement:  s.BestScore - s.InitialScore,
		Iterations:   s.Iteration,
		CommitCount:  len(s.Commits),
		StartedAt:    s.StartedAt,
	}
}

// ListSessions returns all sessions sorted by the given field and order.
func (fs *FileStore) ListSessions(sortField, order string) ([]SessionSummary, error) {
	if err := fs.load(); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	sessions := make([]SessionSummary, 0, len(fs.sessions))
	for _, s := range fs.sessions {
		sessions = append(sessions, stateToSummary(s))
	}

	sortSessions(sessions, sortField, order)
	return sessions, nil
}

// GetSession returns a single session with trajectory and event log.
func (fs *FileStore) GetSession(id string) (*SessionDetail, error) {
	if err := fs.load(); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	state, ok := fs.sessions[id]
	fs.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}

	detail := &SessionDetail{
		SessionSummary: stateToSummary(state),
		Commits:        state.Commits,
		Trajectory:     state.Trajectory,
		History:        state.History,
	}
	if detail.Commits == nil {
		detail.Commits = []polish.CommitInfo{}
	}
	if detail.Trajectory == nil {
		detail.Trajectory = []float64{}
	}
	if detail.History == nil {
		detail.History = []polish.IterationRecord{}
	}

	// The event log is optional; a session interrupted before its first
	// event still renders.
	events, err := session.ReadLog(session.LogPath(fs.dir, id))
	if err == nil {
		detail.Events = events
	}
	if detail.Events == nil {
		detail.Events = []session.Event{}
	}

	return detail, nil
}

// Summary returns aggregate metrics across all sessions.
func (fs *FileStore) Summary() (*SummaryResponse, error) {
	if err := fs.load(); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	resp := &SummaryResponse{}
	if len(fs.sessions) == 0 {
		return resp, nil
	}

	totalImprovement := 0.0
	totalIterations := 0

	for _, s := range fs.sessions {
		resp.TotalSessions++
		resp.TotalCommits += len(s.Commits)
		totalImprovement += s.BestScore - s.InitialScore
		totalIterations += s.Iteration
	}

	resp.AvgImprovement = totalImprovement / float64(resp.TotalSessions)
	resp.AvgIterations = float64(totalIterations) / float64(resp.TotalSessions)

	return resp, nil
}

func sortSessions(sessions []SessionSummary, field, order string) {
	less := func(i, j int) bool {
		switch field {
		case "improvement":
			return sessions[i].Improvement < sessions[j].Improvement
		case "iterations":
			return sessions[i].Iterations < sessions[j].Iterations
		case "commits":
			return sessions[i].CommitCount < sessions[j].CommitCount
		default: // "started" or empty
			return sessions[i].StartedAt.Before(sessions[j].StartedAt)
		}
	}

	if order == "asc" {
		sort.Slice(sessions, less)
	} else {
		sort.Slice(sessions, func(i, j int) bool { return less(j, i) })
	}
}

// Ensure FileStore satisfies SessionStore.
var _ SessionStore = (*FileStore)(nil)
