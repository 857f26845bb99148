package session

import (
	"time"

	"github.com/user/crewdesk/internal/types"
)

// cycleInterval is how often a multi-step indicator rotates its status line.
const cycleInterval = 3 * time.Second

// progressStatuses is the fixed rotation of status lines for multi-step
// work. The first entry doubles as the default initial text.
var progressStatuses = []string{
	"Thinking...",
	"Reaching out to participants...",
	"Collecting availability...",
	"Drafting the plan...",
	"Almost there...",
}

// ShowProgress appends a placeholder message and returns its id. For
// multi-step work it also arms the cycling timer; only one cycling timer is
// ever live, so arming a new one cancels any previous one first.
func (s *Session) ShowProgress(multiStep bool, initialText string) types.MessageID {
	if initialText == "" {
		initialText = progressStatuses[0]
	}
	msg := types.NewAgentMessage(initialText)
	msg.IsPlaceholder = true

	s.mu.Lock()
	if multiStep {
		for id := range s.cyclers {
			s.stopCyclerLocked(id)
		}
		stop := make(chan struct{})
		s.cyclers[msg.ID] = stop
		go s.cycle(msg.ID, startIndexAfter(initialText), stop)
	}
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.signal()
	return msg.ID
}

// HideProgress removes the placeholder (no-op when already gone) and
// unconditionally clears its timer. Callers defer it so the indicator
// disappears on failure paths too.
func (s *Session) HideProgress(id types.MessageID) {
	s.mu.Lock()
	s.stopCyclerLocked(id)
	removed := false
	if i := indexOfMessage(s.messages, id); i >= 0 {
		s.messages = append(s.messages[:i], s.messages[i+1:]...)
		removed = true
	}
	s.mu.Unlock()
	if removed {
		s.signal()
	}
}

// startIndexAfter picks where cycling resumes: after the matching status
// when the initial text is one of the rotation entries, otherwise at the
// second entry (the first was already shown).
func startIndexAfter(initialText string) int {
	for i, status := range progressStatuses {
		if status == initialText {
			return (i + 1) % len(progressStatuses)
		}
	}
	return 1 % len(progressStatuses)
}

func (s *Session) cycle(id types.MessageID, next int, stop chan struct{}) {
	ticker := time.NewTicker(s.cycleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if _, live := s.cyclers[id]; !live {
				s.mu.Unlock()
				return
			}
			if i := indexOfMessage(s.messages, id); i >= 0 {
				s.messages[i].Text = progressStatuses[next]
			}
			next = (next + 1) % len(progressStatuses)
			s.mu.Unlock()
			s.signal()
		}
	}
}

func (s *Session) stopCyclerLocked(id types.MessageID) {
	if stop, ok := s.cyclers[id]; ok {
		close(stop)
		delete(s.cyclers, id)
	}
}
