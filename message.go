package planloom

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
)

func UserMessage(content string) openai.ChatCompletionMessageParamUnion {
	return openai.UserMessage(content)
}

func AssistantMessage(content string) openai.ChatCompletionMessageParamUnion {
	return openai.AssistantMessage(content)
}

func DeveloperMessage(content string) openai.ChatCompletionMessageParamUnion {
	return openai.DeveloperMessage(content)
}

// MessageList holds an ordered collection of chat messages to preserve the history.
type MessageList struct {
	Messages []openai.ChatCompletionMessageParamUnion
}

func NewMessageList(msgs ...openai.ChatCompletionMessageParamUnion) *MessageList {
	return &MessageList{
		Messages: msgs,
	}
}

func (ml *MessageList) Len() int {
	return len(ml.Messages)
}

// Add appends one or more new messages to the MessageList in a FIFO order.
func (ml *MessageList) Add(msgs ...openai.ChatCompletionMessageParamUnion) {
	ml.Messages = append(ml.Messages, msgs...)
}

// AddFirstDeveloperMessage prepends a developer message to the message list.
// It panics if the provided message is not a developer message.
func (ml *MessageList) AddFirstDeveloperMessage(msg openai.ChatCompletionMessageParamUnion) {
	if msg.OfDeveloper == nil {
		panic("AddFirstDeveloperMessage expects a DeveloperMessage")
	}
	ml.Messages = append([]openai.ChatCompletionMessageParamUnion{msg}, ml.Messages...)
}

func (ml *MessageList) ReplaceAt(index int, newMsg openai.ChatCompletionMessageParamUnion) error {
	if index < 0 || index >= len(ml.Messages) {
		return fmt.Errorf("index out of range")
	}
	ml.Messages[index] = newMsg
	return nil
}

func (ml *MessageList) All() []openai.ChatCompletionMessageParamUnion {
	return ml.Messages
}

// Clone returns a shallow copy of the MessageList. The message values are
// copied; a later Add on the clone does not affect the original.
func (ml *MessageList) Clone() *MessageList {
	cloned := make([]openai.ChatCompletionMessageParamUnion, len(ml.Messages))
	copy(cloned, ml.Messages)
	return &MessageList{Messages: cloned}
}

// CloneWithoutDeveloperMessages returns a copy of the MessageList that
// excludes any developer or system messages, preserving the original order of
// the remaining messages. This is useful when sending conversation history
// back to the LLM, where developer/system prompts should not be repeated.
func (ml *MessageList) CloneWithoutDeveloperMessages() *MessageList {
	filtered := make([]openai.ChatCompletionMessageParamUnion, 0, len(ml.Messages))
	for _, msg := range ml.Messages {
		if msg.OfDeveloper == nil && msg.OfSystem == nil {
			filtered = append(filtered, msg)
		}
	}
	return &MessageList{Messages: filtered}
}

func (ml *MessageList) Clear() {
	ml.Messages = nil
}

// LastUserMessageString returns the text of the most recent user message, or
// an empty string when the history has none.
func (ml *MessageList) LastUserMessageString() string {
	for i := len(ml.Messages) - 1; i >= 0; i-- {
		msg := ml.Messages[i]
		if msg.OfUser == nil {
			continue
		}
		if !param.IsOmitted(msg.OfUser.Content.OfString) {
			return msg.OfUser.Content.OfString.Value
		}
	}
	return ""
}

// MessageText extracts the plain text content from a chat message of any
// role. Tool calls carried by assistant messages are ignored.
func MessageText(msg openai.ChatCompletionMessageParamUnion) string {
	switch {
	case msg.OfUser != nil:
		if !param.IsOmitted(msg.OfUser.Content.OfString) {
			return msg.OfUser.Content.OfString.Value
		}
	case msg.OfAssistant != nil:
		if !param.IsOmitted(msg.OfAssistant.Content.OfString) {
			return msg.OfAssistant.Content.OfString.Value
		}
	case msg.OfDeveloper != nil:
		if !param.IsOmitted(msg.OfDeveloper.Content.OfString) {
			return msg.OfDeveloper.Content.OfString.Value
		}
	case msg.OfSystem != nil:
		if !param.IsOmitted(msg.OfSystem.Content.OfString) {
			return msg.OfSystem.Content.OfString.Value
		}
	case msg.OfTool != nil:
		if !param.IsOmitted(msg.OfTool.Content.OfString) {
			return msg.OfTool.Content.OfString.Value
		}
	}
	return ""
}
