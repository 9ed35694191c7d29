package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/burnish-dev/burnish/internal/agent"
	"github.com/burnish-dev/burnish/internal/metrics"
	"github.com/burnish-dev/burnish/internal/plateau"
	"github.com/burnish-dev/burnish/internal/polish"
	"github.com/burnish-dev/burnish/internal/projectconfig"
	"github.com/burnish-dev/burnish/internal/rules"
	"github.com/burnish-dev/burnish/internal/session"
	"github.com/burnish-dev/burnish/internal/strategy"
	"github.com/burnish-dev/burnish/internal/utils"
	"github.com/burnish-dev/burnish/internal/validation"
	"github.com/burnish-dev/burnish/internal/webserver"
)

type polishFlags struct {
	target        float64
	maxIterations int
	maxDuration   time.Duration
	model         string
	engineType    string
	baseBranch    string
	resultsDir    string
	resumeID      string
	verbose       bool
	serveDash     bool
	servePort     int
}

func newPolishCommand() *cobra.Command {
	var flags polishFlags

	cmd := &cobra.Command{
		Use:   "polish [directory]",
		Short: "Run the closed polish loop against a repository",
		Long: `Run the closed polish loop against a git repository.

The repository is scored against the metrics in .burnish.yaml, then the loop
repeats: pick the worst metric, ask the agent for one atomic fix, re-score,
and commit or roll back. Work happens on an isolated branch in a temporary
clone; the original working tree is never touched. The branch is pushed back
to the repository only when at least one fix was committed.

Press Ctrl-C once to stop gracefully after the current iteration; committed
work is kept.

If no directory is specified, the current directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return polishCommandE(cmd, dir, flags)
		},
	}

	cmd.Flags().Float64Var(&flags.target, "target", 0, "Target composite score (overrides config)")
	cmd.Flags().IntVar(&flags.maxIterations, "max-iterations", 0, "Maximum fix iterations (overrides config)")
	cmd.Flags().DurationVar(&flags.maxDuration, "max-duration", 0, "Wall-clock budget, e.g. 30m (overrides config)")
	cmd.Flags().StringVar(&flags.model, "model", "", "Model to use (overrides config)")
	cmd.Flags().StringVar(&flags.engineType, "engine", "copilot-sdk", "Agent engine: copilot-sdk, mock")
	cmd.Flags().StringVar(&flags.baseBranch, "base-branch", "", "Branch to polish (default: current HEAD)")
	cmd.Flags().StringVar(&flags.resultsDir, "results-dir", "", "Directory for session state and event logs (overrides config)")
	cmd.Flags().StringVar(&flags.resumeID, "resume", "", "Resume a previous session by ID")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose output with agent activity")
	cmd.Flags().BoolVar(&flags.serveDash, "serve", false, "Serve the dashboard API while polishing")
	cmd.Flags().IntVar(&flags.servePort, "port", 0, "Dashboard port with --serve (overrides config)")

	return cmd
}

func polishCommandE(cmd *cobra.Command, projectPath string, flags polishFlags) error {
	absPath, err := filepath.Abs(projectPath)
	if err != nil {
		return fmt.Errorf("resolving project path: %w", err)
	}

	if err := validateConfigAt(absPath); err != nil {
		return err
	}

	cfg, err := projectconfig.Load(absPath)
	if err != nil {
		return err
	}
	applyPolishFlags(cfg, flags)

	defs := cfg.MetricDefs()
	if len(defs) == 0 {
		return fmt.Errorf("no metrics configured; run `burnish init` to create .burnish.yaml")
	}

	scorer, err := metrics.NewScorer(defs)
	if err != nil {
		return fmt.Errorf("building scorer: %w", err)
	}
	selector := strategy.NewSelector(cfg.Polish.RetryCeiling)

	engine, err := buildEngine(flags.engineType, cfg.Polish.Model)
	if err != nil {
		return err
	}

	// Graceful stop on the first interrupt; the loop finishes its current
	// iteration and keeps committed work.
	ctx, cancel := context.WithCancelCause(cmd.Context())
	defer cancel(nil)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nStopping after the current iteration (Ctrl-C received)...")
		cancel(polish.ErrUserStop)
	}()

	if err := engine.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing agent engine: %w", err)
	}
	defer func() {
		shutdownCtx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer scancel()
		engine.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	detector, err := buildDetector(cfg, engine)
	if err != nil {
		return err
	}

	ruleList, err := rules.Load(cfg.Rules, utils.ResolvePath(cfg.RulesFile, absPath))
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	resultsDir := utils.ResolvePath(cfg.ResultsDir, absPath)

	sessionID := session.NewID()
	var resume *polish.PolishState
	if flags.resumeID != "" {
		resume, err = polish.LoadState(polish.StatePath(resultsDir, flags.resumeID))
		if err != nil {
			return fmt.Errorf("resuming session %s: %w", flags.resumeID, err)
		}
		sessionID = resume.SessionID
	}

	logger, err := session.NewJSONLogger(session.LogPath(resultsDir, sessionID))
	if err != nil {
		return fmt.Errorf("opening session log: %w", err)
	}
	defer logger.Close() //nolint:errcheck

	bus := session.NewEventBus()

	// Console progress rendering runs off the live bus, same as a dashboard.
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()
	renderDone := make(chan struct{})
	go func() {
		defer close(renderDone)
		renderProgress(cmd.OutOrStdout(), events, flags.verbose)
	}()

	g, gctx := errgroup.WithContext(context.Background())
	serveCancel := func() {}
	if flags.serveDash {
		registry := session.NewBusRegistry()
		deregister := registry.Register(sessionID, bus)
		defer deregister()

		port := cfg.Server.Port
		if flags.servePort > 0 {
			port = flags.servePort
		}
		srv, serr := webserver.New(webserver.Config{
			Port:       port,
			ResultsDir: resultsDir,
			Live:       registry,
		})
		if serr != nil {
			return serr
		}

		var serveCtx context.Context
		serveCtx, serveCancel = context.WithCancel(gctx)
		defer serveCancel()
		g.Go(func() error {
			return srv.ListenAndServe(serveCtx)
		})
	}

	opts := polish.Options{
		ProjectPath:   absPath,
		BaseBranch:    flags.baseBranch,
		SessionID:     sessionID,
		Target:        cfg.Polish.Target,
		MaxIterations: cfg.Polish.MaxIterations,
		MaxDuration:   time.Duration(cfg.Polish.MaxDurationMs) * time.Millisecond,
		StallEpsilon:  cfg.Polish.StallEpsilon,
		AgentTimeout:  time.Duration(cfg.Polish.AgentTimeoutSec) * time.Second,
		Model:         cfg.Polish.Model,
		Rules:         ruleList,
		ResultsDir:    resultsDir,
		Resume:        resume,
	}

	controller, err := polish.NewController(opts, scorer, selector, engine, detector, logger, bus)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Polishing: %s\n", absPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Session:   %s\n", sessionID)
	fmt.Fprintf(cmd.OutOrStdout(), "Engine:    %s\n", flags.engineType)
	fmt.Fprintf(cmd.OutOrStdout(), "Model:     %s\n", cfg.Polish.Model)
	fmt.Fprintf(cmd.OutOrStdout(), "Target:    %.0f (max %d iterations)\n\n", cfg.Polish.Target, cfg.Polish.MaxIterations)

	result, runErr := controller.Run(ctx)

	bus.Close()
	<-renderDone
	serveCancel()
	if werr := g.Wait(); werr != nil && runErr == nil {
		runErr = werr
	}

	if result != nil {
		printPolishSummary(cmd.OutOrStdout(), result)
	}
	if runErr != nil {
		return runErr
	}

	if result.Reason != polish.ReasonTargetReached {
		return &TargetNotReachedError{
			Message: fmt.Sprintf("polish ended (%s) at score %.1f, below target %.0f",
				result.Reason, result.FinalScore, cfg.Polish.Target),
		}
	}
	return nil
}

// applyPolishFlags overlays CLI flags onto the loaded config.
func applyPolishFlags(cfg *projectconfig.ProjectConfig, flags polishFlags) {
	if flags.target > 0 {
		cfg.Polish.Target = flags.target
	}
	if flags.maxIterations > 0 {
		cfg.Polish.MaxIterations = flags.maxIterations
	}
	if flags.maxDuration > 0 {
		cfg.Polish.MaxDurationMs = flags.maxDuration.Milliseconds()
	}
	if flags.model != "" {
		cfg.Polish.Model = flags.model
	}
	if flags.resultsDir != "" {
		cfg.ResultsDir = flags.resultsDir
	}
}

func buildEngine(engineType, model string) (agent.FixEngine, error) {
	switch engineType {
	case "mock":
		return agent.NewMockEngine(model), nil
	case "copilot-sdk":
		return agent.NewCopilotEngineBuilder(model, nil).Build(), nil
	default:
		return nil, fmt.Errorf("unknown engine type: %s (supported: copilot-sdk, mock)", engineType)
	}
}

func buildDetector(cfg *projectconfig.ProjectConfig, engine agent.FixEngine) (plateau.Detector, error) {
	switch cfg.Polish.PlateauDetection {
	case "llm":
		asker, ok := engine.(plateau.Asker)
		if !ok {
			return nil, fmt.Errorf("engine does not support LLM plateau detection")
		}
		return plateau.NewLLMDetector(asker, cfg.Polish.MaxStalled)
	case "", "stalled":
		return plateau.NewStalledDetector(cfg.Polish.MaxStalled)
	default:
		return nil, fmt.Errorf("unknown plateau_detection: %s (supported: stalled, llm)", cfg.Polish.PlateauDetection)
	}
}

// validateConfigAt runs schema validation when a .burnish.yaml sits directly
// in the project directory. Configs found higher up are still loaded but not
// re-validated here.
func validateConfigAt(dir string) error {
	path := filepath.Join(dir, ".burnish.yaml")
	if _, err := os.Stat(path); err != nil {
		return nil //nolint:nilerr // absent config falls back to defaults
	}

	issues, err := validation.ValidateConfigFile(path)
	if err != nil {
		return fmt.Errorf("validating %s: %w", path, err)
	}
	if len(issues) > 0 {
		return fmt.Errorf("invalid %s:\n  %s", path, strings.Join(issues, "\n  "))
	}
	return nil
}
