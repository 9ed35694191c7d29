// Package wizard provides the interactive project setup form behind
// `burnish init --interactive`.
package wizard

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/template"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/burnish-dev/burnish/internal/projectconfig"
)

// ProjectSpec holds all fields collected during the interactive wizard.
type ProjectSpec struct {
	Target           int
	MaxIterations    int
	Model            string
	PlateauDetection string

	MetricName     string
	MetricCommand  string
	HigherIsBetter bool
}

const configTemplate = `# burnish project configuration
polish:
  target: {{ .Target }}
  max_iterations: {{ .MaxIterations }}
  model: {{ .Model }}
  plateau_detection: {{ .PlateauDetection }}

results_dir: results/
rules_file: POLISH.md

metrics:
  - name: {{ .MetricName }}
    command: "{{ .MetricCommand }}"
    weight: 1.0
{{- if not .HigherIsBetter }}
    target: 0
    higher_is_better: false
{{- end }}
`

const rulesTemplate = `# Polish Rules

Constraints the fix agent must respect on every change.

- Never delete or skip tests to improve a score
- Keep public APIs backwards compatible
- One focused change per iteration
`

// RunProjectWizard runs an interactive huh form to collect project settings.
func RunProjectWizard(in io.Reader, out io.Writer) (*ProjectSpec, error) {
	var (
		target           = strconv.Itoa(int(projectconfig.DefaultTarget))
		maxIterations    = strconv.Itoa(projectconfig.DefaultMaxIterations)
		model            string
		plateauDetection string
		metricName       string
		metricCommand    string
		higherIsBetter   = true
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Target score").
				Description("Stop polishing once the composite score reaches this value (1-100)").
				Value(&target).
				Validate(validateScore),
			huh.NewInput().
				Title("Max iterations").
				Description("Hard budget on fix attempts").
				Value(&maxIterations).
				Validate(validatePositiveInt),
			huh.NewSelect[string]().
				Title("Model").
				Options(
					huh.NewOption("claude-sonnet-4.6", "claude-sonnet-4.6"),
					huh.NewOption("claude-opus-4.6", "claude-opus-4.6"),
					huh.NewOption("gpt-5", "gpt-5"),
					huh.NewOption("gpt-4o", "gpt-4o"),
				).
				Value(&model),
			huh.NewSelect[string]().
				Title("Plateau detection").
				Options(
					huh.NewOption("stalled counter", "stalled"),
					huh.NewOption("LLM judgment", "llm"),
				).
				Value(&plateauDetection),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Metric name").
				Description("A short identifier for your first quality metric").
				Placeholder("lint").
				Value(&metricName).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("metric name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Metric command").
				Description("Shell command whose numeric output is the raw score").
				Placeholder("golangci-lint run 2>&1 | wc -l").
				Value(&metricCommand).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("metric command is required")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Is a higher raw value better?").
				Description("Choose No for counts you want driven to zero, like lint warnings").
				Value(&higherIsBetter),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	targetN, _ := strconv.Atoi(strings.TrimSpace(target))        //nolint:errcheck
	iterationsN, _ := strconv.Atoi(strings.TrimSpace(maxIterations)) //nolint:errcheck

	return &ProjectSpec{
		Target:           targetN,
		MaxIterations:    iterationsN,
		Model:            model,
		PlateauDetection: plateauDetection,
		MetricName:       strings.TrimSpace(metricName),
		MetricCommand:    strings.TrimSpace(metricCommand),
		HigherIsBetter:   higherIsBetter,
	}, nil
}

// DefaultSpec returns the project settings used when init runs non-interactively.
func DefaultSpec() *ProjectSpec {
	return &ProjectSpec{
		Target:           int(projectconfig.DefaultTarget),
		MaxIterations:    projectconfig.DefaultMaxIterations,
		Model:            projectconfig.DefaultModel,
		PlateauDetection: projectconfig.DefaultPlateauDetection,
		MetricName:       "tests",
		MetricCommand:    "go test ./... > /dev/null 2>&1 && echo 100 || echo 0",
		HigherIsBetter:   true,
	}
}

// GenerateConfigYAML renders a .burnish.yaml from the given spec.
func GenerateConfigYAML(spec *ProjectSpec) (string, error) {
	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, spec); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

// GenerateRulesMD returns the starter POLISH.md rules document.
func GenerateRulesMD() string {
	return rulesTemplate
}

func validateScore(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n < 1 || n > 100 {
		return fmt.Errorf("must be between 1 and 100")
	}
	return nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n < 1 {
		return fmt.Errorf("must be at least 1")
	}
	return nil
}
