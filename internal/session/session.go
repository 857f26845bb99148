// Package session holds the conversation state machine: the active agent,
// the transcript, the cached agent data, and the negotiation bookkeeping.
// All state lives behind one mutex and every mutation is a single
// read-modify-write under it; nothing blocking happens while it is held.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/crewdesk/internal/api"
	"github.com/user/crewdesk/internal/channel"
	"github.com/user/crewdesk/internal/types"
)

// RoomSwitcher is the slice of the push channel the session drives: one room
// membership, tied to the active agent. *channel.Manager satisfies it.
type RoomSwitcher interface {
	SwitchRoom(id string)
}

// Notifier receives out-of-band change alerts (topic plus a short line).
type Notifier func(topic, text string)

// Session is the top-level controller for one operator conversation.
type Session struct {
	api      *api.Client
	rooms    RoomSwitcher
	senderID string
	notify   Notifier

	mu          sync.Mutex
	activeAgent *types.Agent
	agents      []types.Agent
	messages    []types.ChatMessage
	projects    []types.Project
	tasks       []types.Task
	meetings    []types.Meeting

	processed map[types.MessageID]struct{}
	cooldown  map[string]*time.Timer
	cyclers   map[types.MessageID]chan struct{}

	cycleInterval  time.Duration
	cooldownWindow time.Duration

	updates chan struct{}
}

// New creates a Session wired to the service client and the room switcher.
// senderID identifies the operator on outbound commands.
func New(client *api.Client, rooms RoomSwitcher, senderID string) *Session {
	return &Session{
		api:            client,
		rooms:          rooms,
		senderID:       senderID,
		processed:      make(map[types.MessageID]struct{}),
		cooldown:       make(map[string]*time.Timer),
		cyclers:        make(map[types.MessageID]chan struct{}),
		cycleInterval:  cycleInterval,
		cooldownWindow: cooldownWindow,
		updates:        make(chan struct{}, 1),
	}
}

// SetNotifier installs an optional out-of-band alert sink.
func (s *Session) SetNotifier(fn Notifier) {
	s.notify = fn
}

// Updates signals after every state change; the channel is coalescing, so a
// reader re-snapshots rather than counting signals.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

// Close cancels every timer the session owns.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimersLocked()
}

func (s *Session) signal() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// Snapshot accessors. All return copies so callers can render without
// racing the session.

func (s *Session) ActiveAgent() *types.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeAgent == nil {
		return nil
	}
	agent := *s.activeAgent
	return &agent
}

func (s *Session) Agents() []types.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Agent(nil), s.agents...)
}

func (s *Session) Messages() []types.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ChatMessage, len(s.messages))
	copy(out, s.messages)
	for i := range out {
		out[i].Candidates = append([]types.CandidateAgent(nil), out[i].Candidates...)
	}
	return out
}

func (s *Session) Projects() []types.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Project(nil), s.projects...)
}

func (s *Session) Tasks() []types.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Task(nil), s.tasks...)
}

func (s *Session) Meetings() []types.Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Meeting(nil), s.meetings...)
}

// append adds a message to the transcript unconditionally.
func (s *Session) append(msg types.ChatMessage) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.signal()
}

// appendFor adds a message only while the named agent is still active.
// Replies to commands issued for a previous agent are dropped, not spliced
// into the new agent's transcript.
func (s *Session) appendFor(agentID string, msg types.ChatMessage) {
	s.mu.Lock()
	if s.activeAgent == nil || s.activeAgent.ID != agentID {
		s.mu.Unlock()
		slog.Debug("dropping reply for inactive agent", "agent_id", agentID)
		return
	}
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.signal()
}

func (s *Session) addSystemMessage(text string) {
	s.append(types.NewSystemMessage(text))
}

// LoadAgents fetches the agent list and auto-selects the first agent when
// none is active yet.
func (s *Session) LoadAgents(ctx context.Context) error {
	agents, err := s.api.Agents(ctx)
	if err != nil {
		s.addSystemMessage("Could not load agents: " + err.Error())
		return err
	}
	s.SetAgents(agents)
	return nil
}

// SetAgents replaces the known agent list. When the list becomes non-empty
// and no agent is active, the first agent is selected as the initial
// context.
func (s *Session) SetAgents(agents []types.Agent) {
	s.mu.Lock()
	s.agents = append([]types.Agent(nil), agents...)
	needInitial := s.activeAgent == nil && len(agents) > 0
	var first types.Agent
	if needInitial {
		first = agents[0]
	}
	s.mu.Unlock()
	s.signal()

	if needInitial {
		s.SelectAgent(&first, true)
	}
}

// SelectAgent switches the conversation to the given agent, or deselects
// with nil. Switching tears down all per-agent state: transcript, caches,
// negotiation bookkeeping, timers, and the channel room.
func (s *Session) SelectAgent(agent *types.Agent, initial bool) {
	s.mu.Lock()
	if agent == nil {
		s.resetAgentStateLocked()
		s.activeAgent = nil
		s.mu.Unlock()
		s.signal()
		s.rooms.SwitchRoom("")
		return
	}
	if s.activeAgent != nil && s.activeAgent.ID == agent.ID && !initial {
		s.mu.Unlock()
		return
	}

	selected := *agent
	s.resetAgentStateLocked()
	s.activeAgent = &selected
	if initial {
		s.messages = append(s.messages, types.NewSystemMessage("Context set to "+selected.Name+"."))
	} else {
		s.messages = append(s.messages, types.NewSystemMessage("Switched context to "+selected.Name+"."))
	}
	s.mu.Unlock()
	s.signal()

	s.rooms.SwitchRoom(selected.ID)
	go s.RefreshAll(context.Background(), selected.ID)
}

// resetAgentStateLocked clears everything scoped to the previous agent,
// stopping every timer before dropping the maps that own them.
func (s *Session) resetAgentStateLocked() {
	s.stopTimersLocked()
	s.messages = nil
	s.projects = nil
	s.tasks = nil
	s.meetings = nil
	s.processed = make(map[types.MessageID]struct{})
	s.cooldown = make(map[string]*time.Timer)
	s.cyclers = make(map[types.MessageID]chan struct{})
}

func (s *Session) stopTimersLocked() {
	for id := range s.cyclers {
		s.stopCyclerLocked(id)
	}
	for project, timer := range s.cooldown {
		timer.Stop()
		delete(s.cooldown, project)
	}
}

// RefreshAll refetches meetings, projects, and tasks for one agent in
// parallel. Results only land while that agent is still the active one.
func (s *Session) RefreshAll(ctx context.Context, agentID string) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.refreshMeetings(ctx, agentID) })
	g.Go(func() error { return s.refreshProjects(ctx, agentID) })
	g.Go(func() error { return s.refreshTasks(ctx, agentID) })
	if err := g.Wait(); err != nil {
		s.appendFor(agentID, types.NewSystemMessage("Could not refresh agent data: "+err.Error()))
	}
}

func (s *Session) refreshMeetings(ctx context.Context, agentID string) error {
	meetings, err := s.api.Meetings(ctx, agentID)
	if err != nil {
		return fmt.Errorf("meetings: %w", err)
	}
	s.mu.Lock()
	if s.activeAgent != nil && s.activeAgent.ID == agentID {
		s.meetings = meetings
	}
	s.mu.Unlock()
	s.signal()
	return nil
}

func (s *Session) refreshProjects(ctx context.Context, agentID string) error {
	projects, err := s.api.Projects(ctx, agentID)
	if err != nil {
		return fmt.Errorf("projects: %w", err)
	}
	s.mu.Lock()
	if s.activeAgent != nil && s.activeAgent.ID == agentID {
		s.projects = projects
	}
	s.mu.Unlock()
	s.signal()
	return nil
}

func (s *Session) refreshTasks(ctx context.Context, agentID string) error {
	tasks, err := s.api.Tasks(ctx, agentID)
	if err != nil {
		return fmt.Errorf("tasks: %w", err)
	}
	s.mu.Lock()
	if s.activeAgent != nil && s.activeAgent.ID == agentID {
		s.tasks = tasks
	}
	s.mu.Unlock()
	s.signal()
	return nil
}

// HandleChangeNotice reacts to a push-channel topic by refetching the
// corresponding dataset for whichever agent is active right now. The agent
// is looked up live, never captured, so a stale registration cannot refetch
// for a deselected agent.
func (s *Session) HandleChangeNotice(ctx context.Context, topic string) {
	agent := s.ActiveAgent()
	if agent == nil {
		return
	}

	var err error
	var what string
	switch topic {
	case channel.TopicMeetings:
		what = "Meetings"
		err = s.refreshMeetings(ctx, agent.ID)
	case channel.TopicProjects:
		what = "Projects"
		err = s.refreshProjects(ctx, agent.ID)
	case channel.TopicTasks:
		what = "Tasks"
		err = s.refreshTasks(ctx, agent.ID)
	default:
		return
	}
	if err != nil {
		slog.Warn("change refetch failed", "topic", topic, "error", err)
		return
	}
	if s.notify != nil {
		s.notify(topic, fmt.Sprintf("%s updated for %s.", what, agent.Name))
	}
}

// HandleChannelError surfaces a push-channel failure in the transcript.
func (s *Session) HandleChannelError(err error) {
	s.addSystemMessage("Connection problem: " + err.Error())
}

func indexOfMessage(messages []types.ChatMessage, id types.MessageID) int {
	for i := range messages {
		if messages[i].ID == id {
			return i
		}
	}
	return -1
}
