package planloom

import (
	"regexp"
	"strings"
	"time"
)

// Plan is the finalized output of one agent run: the user's goal and the
// generated day-by-day breakdown. Plans are created once and never mutated.
type Plan struct {
	ID        string    `json:"id"`
	Goal      string    `json:"goal"`
	Output    string    `json:"output"`
	Days      []PlanDay `json:"days,omitempty"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PlanDay is one day (or phase) of a plan.
type PlanDay struct {
	Label string   `json:"label" jsonschema_description:"Short label for the day or phase, e.g. 'Day 1'"`
	Steps []string `json:"steps" jsonschema_description:"Ordered actionable steps for this day"`
}

// PlanDocument is the structured rendering the agent requests from the model
// once the tool loop has finished.
type PlanDocument struct {
	Days []PlanDay `json:"days" jsonschema_description:"The plan broken into days or phases, in order"`
}

var dayHeading = regexp.MustCompile(`(?i)^\s*(?:#+\s*)?(?:\*\*)?\s*(day\s+\d+.*)`)

var stepLine = regexp.MustCompile(`^\s*(?:[-*]|\d+[.)])\s+(.*\S)\s*$`)

// ParseDays recovers the day/step structure from a markdown plan. It is the
// fallback when the structured rendering call fails; the model's free-form
// answer follows the "Day N:" convention the system prompt asks for.
func ParseDays(output string) []PlanDay {
	var days []PlanDay
	var current *PlanDay

	for _, line := range strings.Split(output, "\n") {
		if m := dayHeading.FindStringSubmatch(line); m != nil {
			label := strings.TrimSpace(strings.TrimRight(m[1], " :*#"))
			days = append(days, PlanDay{Label: label})
			current = &days[len(days)-1]
			continue
		}
		if current == nil {
			continue
		}
		if m := stepLine.FindStringSubmatch(line); m != nil {
			current.Steps = append(current.Steps, strings.TrimSpace(m[1]))
		}
	}
	return days
}
