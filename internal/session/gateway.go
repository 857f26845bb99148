package session

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/user/crewdesk/internal/types"
)

// candidateMarker prefixes the one structured reply shape the service
// embeds in plain text: the marker, a project name, "':", then a JSON array
// of candidates.
const candidateMarker = "Here are the best-suited candidates for your project '"

// longRunningPattern matches commands whose processing spans several remote
// steps; those get a cycling progress indicator instead of a static one.
var longRunningPattern = regexp.MustCompile(`(?i)\b(define|create|plan|finalize)\b.*\bproject\b`)

// SendCommand runs one operator command end to end: transcript entry,
// progress indicator, remote send, reply classification. The indicator is
// removed on every path out.
func (s *Session) SendCommand(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	agent := s.ActiveAgent()
	if agent == nil {
		s.addSystemMessage("Select an agent before sending commands.")
		return
	}

	s.append(types.NewUserMessage(text))
	placeholder := s.ShowProgress(longRunningPattern.MatchString(text), "")
	defer s.HideProgress(placeholder)

	s.deliver(ctx, agent.ID, text)
}

// deliver sends text to an agent and applies the classified outcome to the
// transcript. Failures become system messages; nothing here panics or
// propagates.
func (s *Session) deliver(ctx context.Context, agentID, text string) {
	result, err := s.api.SendMessage(ctx, agentID, text, s.senderID)
	if err != nil {
		s.appendFor(agentID, types.NewSystemMessage("Could not reach the assistant service: "+err.Error()))
		return
	}
	if result.Error != "" {
		s.appendFor(agentID, types.NewSystemMessage(result.Error))
		return
	}
	if result.Response == "" {
		return
	}
	s.appendFor(agentID, classifyResponse(result.Response))
}

// classifyResponse decides whether a reply is plain text or a structured
// candidate offer. Any malformed structured payload degrades to plain text;
// a reply is never dropped.
func classifyResponse(response string) types.ChatMessage {
	if !strings.HasPrefix(response, candidateMarker) {
		return types.NewAgentMessage(response)
	}

	rest := response[len(candidateMarker):]
	sep := strings.Index(rest, "':")
	if sep < 0 {
		return types.NewAgentMessage(response)
	}
	projectID := rest[:sep]
	payload := rest[sep+2:]

	var candidates []types.CandidateAgent
	if err := json.Unmarshal([]byte(payload), &candidates); err != nil {
		return types.NewAgentMessage(response)
	}

	intro := response[:len(candidateMarker)+sep+2]
	return types.NewCandidateMessage(intro, projectID, candidates)
}
