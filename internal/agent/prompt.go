package agent

import (
	"fmt"
	"strings"
)

// BuildFixPrompt renders the prompt for one fix attempt. Every prompt must:
// name the target metric with its current and target scores, state the
// improvement direction, list the behavioral rules verbatim, list prior
// failed attempts, and demand a single atomic change.
func BuildFixPrompt(req *FixRequest) string {
	var b strings.Builder

	direction := "Higher is better"
	if !req.HigherIsBetter {
		direction = "Lower is better"
	}

	fmt.Fprintf(&b, "You are improving the code quality of the project in the current working directory.\n\n")
	fmt.Fprintf(&b, "Target metric: %s\n", req.Strategy.Focus)
	fmt.Fprintf(&b, "Current score: %.1f / target %.1f. %s.\n\n", req.CurrentScore, req.TargetScore, direction)
	fmt.Fprintf(&b, "Strategy: %s\n", req.Strategy.Instruction)

	if len(req.Rules) > 0 {
		b.WriteString("\nRules you must follow:\n")
		for _, rule := range req.Rules {
			fmt.Fprintf(&b, "- %s\n", rule)
		}
	}

	if len(req.FailedAttempts) > 0 {
		b.WriteString("\nEarlier attempts that did NOT improve the score - do not repeat them:\n")
		for _, fa := range req.FailedAttempts {
			line := fmt.Sprintf("- %s (%s)", fa.Strategy, fa.Reason)
			if fa.File != "" {
				line += fmt.Sprintf(" at %s", fa.File)
				if fa.Line > 0 {
					line += fmt.Sprintf(":%d", fa.Line)
				}
			}
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\nMake ONE SINGLE atomic change that addresses the strategy, then stop. ")
	b.WriteString("Do not refactor unrelated code, do not touch other metrics, do not batch multiple fixes together.\n")

	return b.String()
}

// continuationPrompt nudges the agent to finish after it ran out of turns.
const continuationPrompt = "Continue where you left off and finish the fix. " +
	"The overall change must still be ONE SINGLE atomic change."
