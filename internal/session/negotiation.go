package session

import (
	"context"
	"fmt"
	"time"

	"github.com/user/crewdesk/internal/types"
)

// cooldownWindow suppresses duplicate next-step prompts for a project.
// Exhaustion can be reached independently by two messages tied to the same
// project, and a second user action can race the first one's prompt; the
// window absorbs both.
const cooldownWindow = 2 * time.Second

// CandidateAction is an operator decision on one staffing suggestion.
type CandidateAction string

const (
	ActionAccept CandidateAction = "accept"
	ActionReject CandidateAction = "reject"
)

// ApplyCandidateAction processes an accept/reject on one candidate of one
// candidate-selection message: log the decision, forward the matching
// command, shrink the list, and emit the next-step prompt exactly once when
// the list empties.
func (s *Session) ApplyCandidateAction(ctx context.Context, messageID types.MessageID, projectID, name string, action CandidateAction) {
	agent := s.ActiveAgent()

	if action == ActionAccept {
		s.addSystemMessage(fmt.Sprintf("Adding %s to project %s.", name, projectID))
	} else {
		s.addSystemMessage(fmt.Sprintf("Passing on %s for project %s.", name, projectID))
	}

	// Accept mutates the remote project; reject only informs the agent.
	if agent != nil {
		var command string
		if action == ActionAccept {
			command = fmt.Sprintf("add %s to project %s", name, projectID)
		} else {
			command = fmt.Sprintf("note that %s was not selected for project %s", name, projectID)
		}
		s.deliver(ctx, agent.ID, command)
	}

	s.mu.Lock()
	idx := indexOfMessage(s.messages, messageID)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	msg := &s.messages[idx]
	if msg.SubType != types.SubTypeCandidateSelection || msg.Candidates == nil {
		s.mu.Unlock()
		return
	}

	msg.Candidates = removeCandidate(msg.Candidates, name)

	var prompt *types.ChatMessage
	if len(msg.Candidates) == 0 {
		if _, done := s.processed[messageID]; !done {
			s.processed[messageID] = struct{}{}
			if _, cooling := s.cooldown[projectID]; !cooling {
				project := projectID
				s.cooldown[project] = time.AfterFunc(s.cooldownWindow, func() {
					s.mu.Lock()
					delete(s.cooldown, project)
					s.mu.Unlock()
				})
				p := types.NewSystemMessage(nextStepPrompt(projectID))
				prompt = &p
			}
		}
		msg.PromptIssued = true
	}
	if prompt != nil {
		s.messages = append(s.messages, *prompt)
	}
	s.mu.Unlock()
	s.signal()
}

// removeCandidate drops every candidate with the given name. Names are the
// only identity candidates have; duplicates within one list fall together.
func removeCandidate(candidates []types.CandidateAgent, name string) []types.CandidateAgent {
	out := candidates[:0]
	for _, c := range candidates {
		if c.Name != name {
			out = append(out, c)
		}
	}
	return out
}

func nextStepPrompt(projectID string) string {
	return fmt.Sprintf(
		"All candidates for project %s have been reviewed. What would you like to do next? "+
			"Say 'add <name> to project %s' to bring in someone else, or 'finalize project %s' to lock the plan.",
		projectID, projectID, projectID)
}
