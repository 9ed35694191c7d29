package metrics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// defaultRunTimeoutSeconds bounds a single metric command when the metric
// does not specify its own timeout.
const defaultRunTimeoutSeconds = 300

// Runner executes one metric's command in a working directory and returns
// the raw numeric value. Implementations own the command semantics entirely.
type Runner interface {
	Run(ctx context.Context, metric Metric, dir string) (float64, error)
}

// NewRunner creates a runner for the metric's configured runner type,
// decoding Params with mapstructure.
func NewRunner(metric Metric) (Runner, error) {
	kind := metric.Runner
	if kind == "" {
		kind = "command"
	}

	switch kind {
	case "command":
		var v struct {
			Timeout int    `mapstructure:"timeout"`
			Pattern string `mapstructure:"pattern"`
		}
		if err := mapstructure.Decode(metric.Params, &v); err != nil {
			return nil, fmt.Errorf("decoding params for metric %q: %w", metric.Name, err)
		}
		return newCommandRunner(v.Timeout, v.Pattern)
	case "exit_code":
		var v struct {
			Timeout int `mapstructure:"timeout"`
		}
		if err := mapstructure.Decode(metric.Params, &v); err != nil {
			return nil, fmt.Errorf("decoding params for metric %q: %w", metric.Name, err)
		}
		return &exitCodeRunner{timeout: timeoutFor(v.Timeout)}, nil
	default:
		return nil, fmt.Errorf("'%s' is not a valid runner type", kind)
	}
}

func timeoutFor(seconds int) time.Duration {
	if seconds <= 0 {
		seconds = defaultRunTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

// commandRunner runs the metric command through the shell and parses a
// numeric value out of its combined output. By default the last number in
// the output wins; a custom pattern with one capture group overrides that.
type commandRunner struct {
	timeout time.Duration
	pattern *regexp.Regexp
}

var lastNumberRE = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

func newCommandRunner(timeoutSeconds int, pattern string) (*commandRunner, error) {
	r := &commandRunner{timeout: timeoutFor(timeoutSeconds)}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if re.NumSubexp() != 1 {
			return nil, fmt.Errorf("pattern %q must have exactly one capture group", pattern)
		}
		r.pattern = re
	}
	return r, nil
}

func (r *commandRunner) Run(ctx context.Context, metric Metric, dir string) (float64, error) {
	output, _, err := runShell(ctx, metric.Command, dir, r.timeout)
	if err != nil {
		// A failing command can still print a usable value (e.g. a test
		// runner that exits 1 with "12 passed" on partial failure).
		if v, parseErr := r.parse(output); parseErr == nil {
			return v, nil
		}
		return 0, &RunError{Metric: metric.Name, Err: err}
	}
	v, err := r.parse(output)
	if err != nil {
		return 0, &RunError{Metric: metric.Name, Err: err}
	}
	return v, nil
}

func (r *commandRunner) parse(output string) (float64, error) {
	var candidate string
	if r.pattern != nil {
		m := r.pattern.FindStringSubmatch(output)
		if m == nil {
			return 0, fmt.Errorf("output did not match pattern %q", r.pattern)
		}
		candidate = m[1]
	} else {
		all := lastNumberRE.FindAllString(output, -1)
		if len(all) == 0 {
			return 0, fmt.Errorf("no numeric value in command output")
		}
		candidate = all[len(all)-1]
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(candidate), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", candidate, err)
	}
	return v, nil
}

// exitCodeRunner maps command success to 100 and failure to 0. Useful for
// pass/fail checks like linters with no numeric output.
type exitCodeRunner struct {
	timeout time.Duration
}

func (r *exitCodeRunner) Run(ctx context.Context, metric Metric, dir string) (float64, error) {
	_, exitErr, err := runShell(ctx, metric.Command, dir, r.timeout)
	if err != nil {
		return 0, &RunError{Metric: metric.Name, Err: err}
	}
	if exitErr != nil {
		return 0, nil
	}
	return 100, nil
}

// runShell executes a shell command line in dir with a timeout. It separates
// start failures (command could not run) from non-zero exits.
func runShell(ctx context.Context, command, dir string, timeout time.Duration) (output string, exitErr error, err error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = dir

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	runErr := cmd.Run()
	output = buf.String()

	if runErr == nil {
		return output, nil, nil
	}
	if runCtx.Err() != nil {
		return output, nil, fmt.Errorf("command timed out after %s", timeout)
	}
	var ee *exec.ExitError
	if errors.As(runErr, &ee) {
		return output, ee, nil
	}
	return output, nil, runErr
}
