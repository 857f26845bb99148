// internal/types/models.go
package types

import (
	"encoding/json"
	"time"
)

// Agent is a remote conversational counterpart exposed by the assistant
// service. Exactly one agent is active in a session at a time.
type Agent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MessageType identifies who produced a chat message.
type MessageType string

const (
	MessageUser   MessageType = "user"
	MessageAgent  MessageType = "agent"
	MessageSystem MessageType = "system"
)

// SubTypeCandidateSelection marks an agent message that carries a mutable
// candidate list awaiting accept/reject decisions.
const SubTypeCandidateSelection = "candidate_selection"

// ChatMessage is one entry in the session transcript. The transcript is
// append-only and scoped to the active agent; Candidates is the only field
// that shrinks after creation, and PromptIssued only ever flips false->true.
type ChatMessage struct {
	ID            MessageID        `json:"id"`
	Type          MessageType      `json:"type"`
	Text          string           `json:"text"`
	Timestamp     time.Time        `json:"timestamp"`
	SubType       string           `json:"sub_type,omitempty"`
	Candidates    []CandidateAgent `json:"candidates,omitempty"`
	ProjectID     string           `json:"project_id,omitempty"`
	IsPlaceholder bool             `json:"is_placeholder,omitempty"`
	PromptIssued  bool             `json:"prompt_issued,omitempty"`
}

// CandidateAgent is a staffing suggestion embedded in a candidate-selection
// message. Candidates are immutable and identified by Name within one list.
type CandidateAgent struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Department  string   `json:"department"`
	Skills      []string `json:"skills"`
	Description string   `json:"description"`
}

// Project is created remotely in response to a "define project" command.
// Participants mutate via accept actions; everything else is read-only here.
type Project struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Owner        string   `json:"owner,omitempty"`
	Participants []string `json:"participants"`
	Objective    string   `json:"objective,omitempty"`
	Description  string   `json:"description,omitempty"`
	PlanSteps    []string `json:"plan_steps"`
	Status       string   `json:"status,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
}

// Task is a read-only projection fetched from the assistant service and
// passed through unmodified. Accessors pull the common display fields
// without constraining the payload shape.
type Task map[string]any

func (t Task) str(keys ...string) string {
	for _, k := range keys {
		if v, ok := t[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func (t Task) ID() string     { return t.str("id", "task_id") }
func (t Task) Title() string  { return t.str("title", "name", "description") }
func (t Task) Status() string { return t.str("status") }

// EventTime mirrors the calendar-provider shape: either a timed instant or
// an all-day date, one of the two fields set.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
}

// Value returns whichever representation is present.
func (e EventTime) Value() string {
	if e.DateTime != "" {
		return e.DateTime
	}
	return e.Date
}

// Attendee is a meeting participant reference.
type Attendee struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// Meeting is a read-only projection of a calendar event.
type Meeting struct {
	ID          string     `json:"id"`
	Summary     string     `json:"summary,omitempty"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Start       EventTime  `json:"start"`
	End         EventTime  `json:"end"`
	Attendees   []Attendee `json:"attendees,omitempty"`
	Organizer   *Attendee  `json:"organizer,omitempty"`
}

// Label returns the display name of the meeting, whichever field the
// provider populated.
func (m Meeting) Label() string {
	if m.Summary != "" {
		return m.Summary
	}
	if m.Title != "" {
		return m.Title
	}
	return "(untitled)"
}

// SendResult is the reply envelope of the send_message endpoint.
type SendResult struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// UnmarshalJSONList decodes a JSON array into a typed slice, tolerating a
// null body.
func UnmarshalJSONList[T any](data []byte) ([]T, error) {
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NewUserMessage builds a transcript entry for operator input.
func NewUserMessage(text string) ChatMessage {
	return ChatMessage{ID: NewMessageID(), Type: MessageUser, Text: text, Timestamp: time.Now()}
}

// NewAgentMessage builds a plain-text agent reply entry.
func NewAgentMessage(text string) ChatMessage {
	return ChatMessage{ID: NewMessageID(), Type: MessageAgent, Text: text, Timestamp: time.Now()}
}

// NewSystemMessage builds a system/status entry.
func NewSystemMessage(text string) ChatMessage {
	return ChatMessage{ID: NewMessageID(), Type: MessageSystem, Text: text, Timestamp: time.Now()}
}

// NewCandidateMessage builds a candidate-selection agent entry owning a
// mutable candidate list for the named project.
func NewCandidateMessage(intro, projectID string, candidates []CandidateAgent) ChatMessage {
	return ChatMessage{
		ID:         NewMessageID(),
		Type:       MessageAgent,
		Text:       intro,
		Timestamp:  time.Now(),
		SubType:    SubTypeCandidateSelection,
		Candidates: candidates,
		ProjectID:  projectID,
	}
}
