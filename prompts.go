package planloom

import (
	"fmt"
	"strings"
)

// PlannerPrompt is the system prompt for the planning agent. The Day N
// convention in the final answer is what ParseDays recovers when the
// structured rendering call is unavailable.
const PlannerPrompt = `You are a helpful task planning agent. Given a goal, break it into actionable steps, enrich with external info using the available tools, and output a clear, day-by-day or step-by-step plan.

Use the web search tool for facts you are unsure about (opening hours, prices, travel times) and the weather tool when the goal involves outdoor activities or travel.

Format the final plan like:

Day 1:
- Step 1: ...
- Step 2: ...

Day 2:
- ...

Include relevant info from searches or weather.`

const renderPlanPrompt = `Render the plan you just produced as structured JSON matching the provided schema. Keep the day labels and step text unchanged; do not invent new steps.`

// buildSystemPrompt appends rendered memory to the agent's system prompt.
func buildSystemPrompt(prompt string, memory *MemoryBlock) string {
	rendered := memory.Render()
	if rendered == "" {
		return prompt
	}
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nContext about this user's earlier plans:\n")
	b.WriteString(rendered)
	return b.String()
}

func summaryPrompt(question string) string {
	return fmt.Sprintf("Summarize the conversation as an answer to the first question: %s", question)
}
