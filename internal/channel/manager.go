// Package channel owns the single push connection to the assistant service
// and the one room membership tied to the active agent. Notifications carry
// no payload; they only tell the session which dataset to refetch.
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Notification topics pushed by the service.
const (
	TopicMeetings = "update_meetings"
	TopicProjects = "update_projects"
	TopicTasks    = "update_tasks"
)

const (
	eventJoinRoom  = "join_room"
	eventLeaveRoom = "leave_room"

	defaultRedialWait = 5 * time.Second
	writeTimeout      = 10 * time.Second
)

// Frame is the wire shape of one push-channel message in either direction.
type Frame struct {
	Event string            `json:"event"`
	Data  map[string]string `json:"data,omitempty"`
}

// Manager maintains the push connection. At most one room is joined at any
// time, and room changes always leave before joining.
type Manager struct {
	url     string
	token   string
	notify  func(topic string)
	onError func(err error)

	mu   sync.Mutex
	conn *websocket.Conn
	room string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	redialWait time.Duration
}

// New creates a Manager. notify is called with the topic of every change
// notification; onError receives connection-level failures (both may be nil).
func New(url, token string, notify func(topic string), onError func(err error)) *Manager {
	return &Manager{
		url:        url,
		token:      token,
		notify:     notify,
		onError:    onError,
		redialWait: defaultRedialWait,
	}
}

// Connect dials the push channel and starts the read loop. A failed first
// dial is reported through onError and retried in the background; Connect
// itself only fails on a nil context.
func (m *Manager) Connect(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("nil context")
	}
	m.ctx, m.cancel = context.WithCancel(ctx)

	if err := m.dial(); err != nil {
		m.report(err)
	}

	m.wg.Add(1)
	go m.run()
	return nil
}

// Close tears the connection down and waits for the read loop to exit.
func (m *Manager) Close() {
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "client closing")
	}
	m.wg.Wait()
}

// Room returns the currently joined room, or "" when none.
func (m *Manager) Room() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.room
}

// SwitchRoom changes the room membership to the given agent id: the current
// room (if any, and different) is left first, then the new one is joined.
// An empty id is plain deselection.
func (m *Manager) SwitchRoom(newID string) {
	m.mu.Lock()
	current := m.room
	conn := m.conn
	if current == newID {
		m.mu.Unlock()
		return
	}
	m.room = newID
	m.mu.Unlock()

	// Without a live connection the membership is only recorded; dial
	// re-joins the recorded room once the channel is up.
	if conn == nil {
		return
	}
	if current != "" {
		m.write(conn, Frame{Event: eventLeaveRoom, Data: map[string]string{"room": current}})
	}
	if newID != "" {
		m.write(conn, Frame{Event: eventJoinRoom, Data: map[string]string{"room": newID}})
	}
}

func (m *Manager) dial() error {
	header := http.Header{}
	if m.token != "" {
		header.Set("Authorization", "Bearer "+m.token)
	}
	conn, _, err := websocket.Dial(m.ctx, m.url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return fmt.Errorf("dial push channel: %w", err)
	}

	m.mu.Lock()
	m.conn = conn
	room := m.room
	m.mu.Unlock()

	slog.Debug("push channel connected", "url", m.url)
	if room != "" {
		m.write(conn, Frame{Event: eventJoinRoom, Data: map[string]string{"room": room}})
	}
	return nil
}

func (m *Manager) run() {
	defer m.wg.Done()
	for {
		if m.ctx.Err() != nil {
			return
		}

		m.mu.Lock()
		conn := m.conn
		m.mu.Unlock()

		if conn == nil {
			select {
			case <-time.After(m.redialWait):
			case <-m.ctx.Done():
				return
			}
			if err := m.dial(); err != nil {
				m.report(err)
			}
			continue
		}

		var frame Frame
		if err := wsjson.Read(m.ctx, conn, &frame); err != nil {
			if m.ctx.Err() != nil {
				return
			}
			m.report(fmt.Errorf("push channel read: %w", err))
			m.mu.Lock()
			if m.conn == conn {
				m.conn = nil
			}
			m.mu.Unlock()
			conn.Close(websocket.StatusInternalError, "read failed")
			continue
		}
		m.dispatch(frame)
	}
}

func (m *Manager) dispatch(frame Frame) {
	switch frame.Event {
	case TopicMeetings, TopicProjects, TopicTasks:
		if m.notify != nil {
			m.notify(frame.Event)
		}
	default:
		slog.Debug("ignoring push event", "event", frame.Event)
	}
}

func (m *Manager) write(conn *websocket.Conn, frame Frame) {
	ctx, cancel := context.WithTimeout(m.ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, frame); err != nil {
		m.report(fmt.Errorf("push channel write %s: %w", frame.Event, err))
	}
}

func (m *Manager) report(err error) {
	slog.Warn("push channel error", "error", err)
	if m.onError != nil {
		m.onError(err)
	}
}
