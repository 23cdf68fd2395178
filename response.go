package planloom

type ResponseType string

const (
	// ResponseTypePartialText is a streamed fragment of the model's answer.
	ResponseTypePartialText ResponseType = "partial"
	// ResponseTypeToolStatus reports a tool the agent is about to run.
	ResponseTypeToolStatus ResponseType = "tool_status"
	// ResponseTypePlan carries the finalized plan.
	ResponseTypePlan  ResponseType = "plan"
	ResponseTypeError ResponseType = "error"
	ResponseTypeEnd   ResponseType = "end"
)

// Response represents a communication unit from the Agent to the caller/UI.
type Response struct {
	Content string
	Plan    *Plan
	Type    ResponseType
}
