// Package polish runs the closed improvement loop: score, pick the worst
// metric, let the agent make one atomic fix, re-score, then commit or roll
// back. The loop ends on target, plateau, budget, or abort.
package polish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/burnish-dev/burnish/internal/agent"
	"github.com/burnish-dev/burnish/internal/metrics"
	"github.com/burnish-dev/burnish/internal/plateau"
	"github.com/burnish-dev/burnish/internal/session"
	"github.com/burnish-dev/burnish/internal/strategy"
	"github.com/burnish-dev/burnish/internal/vcs"
)

// Reason is the terminal state of a polish session.
type Reason string

const (
	ReasonTargetReached Reason = "target_reached"
	ReasonPlateau       Reason = "plateau"
	ReasonMaxIterations Reason = "max_iterations"
	ReasonTimeout       Reason = "timeout"
	ReasonError         Reason = "error"
	ReasonUserStopped   Reason = "user_stopped"
	ReasonAborted       Reason = "aborted"
)

// ErrUserStop is the cancellation cause for a graceful, user-requested stop
// (SIGINT). Cancel the Run context with context.WithCancelCause and this
// cause to get a user_stopped result instead of aborted.
var ErrUserStop = errors.New("user requested stop")

// Default budgets, used when Options leaves them zero.
const (
	DefaultTarget        = 95.0
	DefaultMaxIterations = 50
	DefaultMaxDuration   = 2 * time.Hour
	DefaultAgentTimeout  = 15 * time.Minute
)

// PolishResult is what a finished session reports, whatever the reason.
type PolishResult struct {
	SessionID    string            `json:"session_id"`
	Reason       Reason            `json:"reason"`
	InitialScore float64           `json:"initial_score"`
	FinalScore   float64           `json:"final_score"`
	Iterations   int               `json:"iterations"`
	Commits      []CommitInfo      `json:"commits,omitempty"`
	Trajectory   []float64         `json:"trajectory,omitempty"`
	History      []IterationRecord `json:"history,omitempty"`
	Branch       string            `json:"branch"`
	ErrorMsg     string            `json:"error,omitempty"`
}

// Options configures a polish session.
type Options struct {
	// ProjectPath is the git repository to polish. The session never edits
	// it directly; work happens in an isolated clone.
	ProjectPath string
	// BaseBranch to clone from; empty means the repo's current HEAD branch.
	BaseBranch string
	// SessionID names the session; empty means a fresh ID is generated.
	// Callers that open the event log before Run need to fix the ID here.
	SessionID string

	Target        float64
	MaxIterations int
	MaxDuration   time.Duration
	// StallEpsilon is the minimum committed delta that still counts as
	// progress for the stall counter. Zero means any positive delta resets.
	StallEpsilon float64

	AgentTimeout time.Duration
	Model        string
	Rules        []string

	// ResultsDir receives the per-iteration state file; empty disables
	// persistence.
	ResultsDir string
	// Resume continues from a previously persisted state: session identity,
	// failed attempts, and commit history carry over, the workspace is fresh.
	Resume *PolishState
}

// Controller drives the loop. All collaborators are injected.
type Controller struct {
	opts     Options
	scorer   *metrics.Scorer
	selector *strategy.Selector
	engine   agent.FixEngine
	detector plateau.Detector
	logger   session.Logger
	bus      *session.EventBus

	now func() time.Time
}

// createWorkspace is a test hook.
var createWorkspace = vcs.CreateIsolatedWorkspace

// NewController wires a controller. logger may be nil (events are dropped),
// bus may be nil (no live subscribers).
func NewController(opts Options, scorer *metrics.Scorer, selector *strategy.Selector,
	engine agent.FixEngine, detector plateau.Detector, logger session.Logger, bus *session.EventBus) (*Controller, error) {

	if opts.ProjectPath == "" {
		return nil, fmt.Errorf("ProjectPath is required")
	}
	if scorer == nil || selector == nil || engine == nil || detector == nil {
		return nil, fmt.Errorf("scorer, selector, engine and detector are all required")
	}

	if opts.Target <= 0 {
		opts.Target = DefaultTarget
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultMaxDuration
	}
	if opts.AgentTimeout <= 0 {
		opts.AgentTimeout = DefaultAgentTimeout
	}
	if logger == nil {
		logger = session.NopLogger{}
	}

	return &Controller{
		opts:     opts,
		scorer:   scorer,
		selector: selector,
		engine:   engine,
		detector: detector,
		logger:   logger,
		bus:      bus,
		now:      time.Now,
	}, nil
}

// Run executes the session to a terminal state. The returned error is
// non-nil only for session-fatal failures (workspace integrity, scoring
// aborts); per-iteration failures are absorbed into rollbacks.
func (c *Controller) Run(ctx context.Context) (*PolishResult, error) {
	branch := vcs.DefaultBranchName(c.now())

	ws, err := createWorkspace(c.opts.ProjectPath, c.opts.BaseBranch, branch)
	if err != nil {
		return nil, fmt.Errorf("creating isolated workspace: %w", err)
	}
	defer func() {
		if derr := ws.Destroy(); derr != nil {
			slog.Warn("failed to destroy workspace", "path", ws.Path, "error", derr)
		}
	}()

	score, err := c.scorer.Score(ctx, ws.Path)
	if err != nil {
		return nil, fmt.Errorf("initial scoring: %w", err)
	}

	state := c.initState(branch, score.Score)
	state.Trajectory = append(state.Trajectory, score.Score)

	c.emit(session.EventInit, session.InitData(state.SessionID, c.opts.ProjectPath, branch, score.Score, len(score.Metrics)))
	c.emit(session.EventScore, session.ScoreData(state.Iteration, score.Score, 0))

	deadline := c.now().Add(c.opts.MaxDuration)

	var reason Reason
	var runErr error

loop:
	for {
		// Budgets first: they override plateau logic.
		switch {
		case state.Iteration >= c.opts.MaxIterations:
			reason = ReasonMaxIterations
			break loop
		case c.now().After(deadline):
			reason = ReasonTimeout
			break loop
		case ctx.Err() != nil:
			reason = cancelReason(ctx)
			break loop
		}

		// Target short-circuits everything else.
		if score.Score >= c.opts.Target {
			reason = ReasonTargetReached
			break loop
		}

		plateaued, perr := c.detector.Plateaued(ctx, samplesFrom(state), state.StalledCount)
		if perr != nil {
			slog.Warn("plateau check failed, continuing", "error", perr)
		} else if plateaued {
			reason = ReasonPlateau
			break loop
		}

		strat, serr := c.selector.Select(score, state.FailedAttempts)
		if serr != nil {
			if errors.Is(serr, strategy.ErrNoViableStrategy) {
				reason = ReasonPlateau
				break loop
			}
			reason = ReasonError
			runErr = serr
			c.emit(session.EventError, session.ErrorData(serr.Error()))
			break loop
		}

		state.Iteration++
		iter := state.Iteration
		c.emit(session.EventPhase, map[string]any{"iteration": iter, "phase": "fixing", "focus": strat.Focus})
		c.emit(session.EventStrategy, session.StrategyData(iter, strat.Name, strat.Focus))

		outcome, ferr := c.runFix(ctx, ws, score, strat, state)
		if ctx.Err() != nil {
			// Abort mid-fix: the agent was cancelled; restore the tree and
			// report aborted. Workspace teardown happens in the defer.
			if rerr := ws.RollbackChange(); rerr != nil {
				slog.Warn("rollback during abort failed", "error", rerr)
			}
			reason = cancelReason(ctx)
			c.emit(session.EventAborted, session.AbortedData(context.Cause(ctx).Error()))
			break loop
		}
		if ferr != nil {
			// The engine could not run the attempt at all. Same recovery as
			// an agent error inside the attempt.
			outcome = &agent.FixOutcome{Status: agent.StatusAgentError, ErrorMsg: ferr.Error()}
		}

		switch outcome.Status {
		case agent.StatusSuccess:
			newScore, scoreErr := c.scorer.Score(ctx, ws.Path)
			if scoreErr != nil {
				reason = cancelReason(ctx)
				c.emit(session.EventAborted, session.AbortedData(scoreErr.Error()))
				if rerr := ws.RollbackChange(); rerr != nil {
					slog.Warn("rollback during abort failed", "error", rerr)
				}
				break loop
			}

			delta := newScore.Score - score.Score
			c.emit(session.EventScore, session.ScoreData(iter, newScore.Score, delta))

			if delta > 0 {
				committed, cerr := c.acceptFix(ws, state, strat, iter, delta, newScore.Score)
				if cerr != nil {
					reason = ReasonError
					runErr = cerr
					c.emit(session.EventError, session.ErrorData(cerr.Error()))
					break loop
				}
				if committed {
					score = newScore
				} else {
					// Score moved but the tree did not: a flaky metric, not
					// progress. Keep the old measurement.
					c.rejectFix(state, strat, iter, "no_improvement", strategy.ReasonNoImprovement, score.Score, 0)
				}
			} else {
				if rerr := ws.RollbackChange(); rerr != nil {
					reason = ReasonError
					runErr = rerr
					c.emit(session.EventError, session.ErrorData(rerr.Error()))
					break loop
				}
				c.rejectFix(state, strat, iter, "no_improvement", strategy.ReasonNoImprovement, score.Score, delta)
			}

		case agent.StatusNoChanges:
			// Nothing to measure; clear any stray state and move on.
			if rerr := ws.RollbackChange(); rerr != nil {
				reason = ReasonError
				runErr = rerr
				c.emit(session.EventError, session.ErrorData(rerr.Error()))
				break loop
			}
			c.rejectFix(state, strat, iter, "no_changes", strategy.ReasonNoImprovement, score.Score, 0)

		case agent.StatusAgentError, agent.StatusContinuationExhausted:
			if rerr := ws.RollbackChange(); rerr != nil {
				reason = ReasonError
				runErr = rerr
				c.emit(session.EventError, session.ErrorData(rerr.Error()))
				break loop
			}
			c.rejectFix(state, strat, iter, string(outcome.Status), strategy.ReasonError, score.Score, 0)
			if outcome.ErrorMsg != "" {
				c.emit(session.EventError, session.ErrorData(outcome.ErrorMsg))
			}
		}

		state.Trajectory = append(state.Trajectory, score.Score)
		c.persist(state)
	}

	// Committed work survives a graceful stop; only a hard abort discards it.
	if len(state.Commits) > 0 && reason != ReasonAborted {
		if ferr := ws.Finalize(); ferr != nil {
			c.emit(session.EventError, session.ErrorData(ferr.Error()))
			if runErr == nil {
				runErr = ferr
			}
		}
	}

	c.emit(session.EventResult, session.ResultData(string(reason), state.InitialScore, score.Score, state.Iteration, len(state.Commits)))
	c.persist(state)

	result := &PolishResult{
		SessionID:    state.SessionID,
		Reason:       reason,
		InitialScore: state.InitialScore,
		FinalScore:   score.Score,
		Iterations:   state.Iteration,
		Commits:      state.Commits,
		Trajectory:   state.Trajectory,
		History:      state.History,
		Branch:       state.Branch,
	}
	if runErr != nil {
		result.ErrorMsg = runErr.Error()
	}
	return result, runErr
}

func (c *Controller) initState(branch string, initialScore float64) *PolishState {
	if c.opts.Resume != nil {
		state := c.opts.Resume
		state.Branch = branch
		state.StartedAt = c.now()
		return state
	}

	id := c.opts.SessionID
	if id == "" {
		id = session.NewID()
	}

	return &PolishState{
		SessionID:    id,
		ProjectPath:  c.opts.ProjectPath,
		Branch:       branch,
		StartedAt:    c.now(),
		InitialScore: initialScore,
		BestScore:    initialScore,
	}
}

// acceptFix commits the change. Returns committed=false when the tree turned
// out to be unchanged.
func (c *Controller) acceptFix(ws *vcs.Workspace, state *PolishState, strat *strategy.Strategy, iter int, delta, newScore float64) (bool, error) {
	message := fmt.Sprintf("polish: improve %s (%+.1f)", strat.Focus, delta)

	hash, err := ws.CommitChange(message)
	if errors.Is(err, vcs.ErrNoChanges) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	state.Commits = append(state.Commits, CommitInfo{
		Iteration: iter,
		Hash:      hash,
		Focus:     strat.Focus,
		Delta:     delta,
		Score:     newScore,
		Timestamp: c.now(),
	})
	state.LastImprovement = iter
	state.BestScore = math.Max(state.BestScore, newScore)

	if delta > c.opts.StallEpsilon {
		state.StalledCount = 0
	} else {
		// Committed, but below the configured progress threshold.
		state.StalledCount++
	}

	state.History = append(state.History, IterationRecord{
		Iteration: iter,
		Focus:     strat.Focus,
		Score:     newScore,
		Delta:     delta,
		Committed: true,
		Status:    string(agent.StatusSuccess),
	})

	c.emit(session.EventCommit, session.CommitData(iter, hash, message, delta))
	return true, nil
}

func (c *Controller) rejectFix(state *PolishState, strat *strategy.Strategy, iter int, status string, failReason strategy.FailReason, score, delta float64) {
	state.FailedAttempts = append(state.FailedAttempts, strategy.FailedAttempt{
		Strategy:  strat.Name,
		Focus:     strat.Focus,
		Reason:    failReason,
		Timestamp: c.now(),
	})
	state.StalledCount++
	state.History = append(state.History, IterationRecord{
		Iteration: iter,
		Focus:     strat.Focus,
		Score:     score,
		Delta:     delta,
		Committed: false,
		Status:    status,
	})

	c.emit(session.EventRollback, session.RollbackData(iter, status, strat.Name))
}

// agentEventBuffer bounds the live stream between the engine and the
// controller. The engine blocks rather than drop when the buffer fills.
const agentEventBuffer = 64

// agentTextLimit truncates streamed assistant text in events; the full text
// survives in the FixOutcome.
const agentTextLimit = 400

func (c *Controller) runFix(ctx context.Context, ws *vcs.Workspace, score *metrics.ScoreResult, strat *strategy.Strategy, state *PolishState) (*agent.FixOutcome, error) {
	req := &agent.FixRequest{
		ProjectPath:    ws.Path,
		Strategy:       strat,
		FailedAttempts: state.FailedAttempts,
		Rules:          c.opts.Rules,
		ModelID:        c.opts.Model,
		Timeout:        c.opts.AgentTimeout,
	}
	if mr := score.Find(strat.Focus); mr != nil {
		req.CurrentScore = mr.NormalizedScore
		req.TargetScore = mr.Target
		req.HigherIsBetter = mr.HigherIsBetter
	}

	events := make(chan agent.AgentEvent, agentEventBuffer)

	var outcome *agent.FixOutcome
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		outcome, err = c.engine.RunFix(gctx, req, events)
		return err
	})
	g.Go(func() error {
		for ev := range events {
			detail := map[string]any{}
			if ev.Text != "" {
				detail["text"] = truncate(ev.Text, agentTextLimit)
			}
			if ev.Success != nil {
				detail["success"] = *ev.Success
			}
			c.emit(session.EventAgent, session.AgentData(string(ev.Phase), ev.Tool, detail))
		}
		return nil
	})

	err := g.Wait()
	return outcome, err
}

func (c *Controller) persist(state *PolishState) {
	if c.opts.ResultsDir == "" {
		return
	}
	path := StatePath(c.opts.ResultsDir, state.SessionID)
	if err := state.Save(path); err != nil {
		slog.Warn("failed to persist polish state", "path", path, "error", err)
	}
}

func (c *Controller) emit(t session.EventType, data map[string]any) {
	ev := session.NewEvent(t, data)
	if err := c.logger.Log(ev); err != nil {
		slog.Warn("failed to log session event", "type", t, "error", err)
	}
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}

func samplesFrom(state *PolishState) []plateau.Sample {
	samples := make([]plateau.Sample, 0, len(state.History))
	for _, rec := range state.History {
		samples = append(samples, plateau.Sample{
			Iteration: rec.Iteration,
			Focus:     rec.Focus,
			Score:     rec.Score,
			Delta:     rec.Delta,
			Committed: rec.Committed,
		})
	}
	return samples
}

// cancelReason maps a cancelled context to its terminal reason.
func cancelReason(ctx context.Context) Reason {
	if errors.Is(context.Cause(ctx), ErrUserStop) {
		return ReasonUserStopped
	}
	return ReasonAborted
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
