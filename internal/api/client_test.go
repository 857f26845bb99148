package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/user/crewdesk/internal/types"
)

func TestAgents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/nodes" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			t.Error("missing bearer token")
		}
		json.NewEncoder(w).Encode([]types.Agent{
			{ID: "ceo", Name: "CEO Assistant"},
			{ID: "ops", Name: "Ops Assistant"},
		})
	}))
	defer server.Close()

	c := New(server.URL, "tok-1")
	agents, err := c.Agents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(agents) != 2 || agents[0].ID != "ceo" {
		t.Errorf("unexpected agents: %+v", agents)
	}
}

func TestProjects_ArrayShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("agent_id") != "ceo" {
			t.Errorf("missing agent_id query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"id":"p1","name":"Launch","participants":["ana"]},{"id":"p2"}]`))
	}))
	defer server.Close()

	c := New(server.URL, "")
	projects, err := c.Projects(context.Background(), "ceo")
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	if projects[1].Name != "p2" {
		t.Errorf("missing name should default to id, got %q", projects[1].Name)
	}
	if projects[1].Participants == nil || projects[1].PlanSteps == nil {
		t.Error("participants/plan steps should default to empty slices")
	}
}

func TestProjects_MapShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"p2":{"name":"Beta"},"p1":{"name":"Alpha"}}`))
	}))
	defer server.Close()

	c := New(server.URL, "")
	projects, err := c.Projects(context.Background(), "ceo")
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	if projects[0].ID != "p1" || projects[1].ID != "p2" {
		t.Errorf("map keys should become sorted ids: %+v", projects)
	}
	if projects[0].Name != "Alpha" {
		t.Errorf("unexpected name: %s", projects[0].Name)
	}
}

func TestProjects_MapShapeMissingName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"p1":{}}`))
	}))
	defer server.Close()

	c := New(server.URL, "")
	projects, err := c.Projects(context.Background(), "ceo")
	if err != nil {
		t.Fatal(err)
	}
	if projects[0].ID != "p1" || projects[0].Name != "p1" {
		t.Errorf("id/name should default to each other: %+v", projects[0])
	}
}

func TestMeetings_ProviderShapes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":"m1","summary":"Kickoff","start":{"dateTime":"2026-09-01T10:00:00Z"},"end":{"dateTime":"2026-09-01T11:00:00Z"}},
			{"id":"m2","title":"Offsite","start":{"date":"2026-09-10"},"end":{"date":"2026-09-11"},
			 "attendees":[{"email":"ana@example.com","displayName":"Ana"}],"organizer":{"email":"boss@example.com"}}
		]`))
	}))
	defer server.Close()

	c := New(server.URL, "")
	meetings, err := c.Meetings(context.Background(), "ceo")
	if err != nil {
		t.Fatal(err)
	}
	if len(meetings) != 2 {
		t.Fatalf("expected 2 meetings, got %d", len(meetings))
	}
	if meetings[0].Label() != "Kickoff" {
		t.Errorf("summary label: %s", meetings[0].Label())
	}
	if meetings[1].Label() != "Offsite" {
		t.Errorf("title label fallback: %s", meetings[1].Label())
	}
	if meetings[1].Start.Value() != "2026-09-10" {
		t.Errorf("all-day start: %s", meetings[1].Start.Value())
	}
	if meetings[1].Organizer == nil || meetings[1].Organizer.Email != "boss@example.com" {
		t.Errorf("organizer: %+v", meetings[1].Organizer)
	}
}

func TestTasks_PassThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"t1","title":"Book room","status":"open","custom":{"nested":true}}]`))
	}))
	defer server.Close()

	c := New(server.URL, "")
	tasks, err := c.Tasks(context.Background(), "ceo")
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Title() != "Book room" || tasks[0].Status() != "open" {
		t.Errorf("task accessors: %+v", tasks[0])
	}
	if _, ok := tasks[0]["custom"]; !ok {
		t.Error("unknown fields must pass through")
	}
}

func TestSendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/send_message" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["node_id"] != "ceo" || body["message"] != "hello" || body["sender_id"] != "user" {
			t.Errorf("unexpected body: %v", body)
		}
		json.NewEncoder(w).Encode(types.SendResult{Response: "hi there"})
	}))
	defer server.Close()

	c := New(server.URL, "")
	result, err := c.SendMessage(context.Background(), "ceo", "hello", "user")
	if err != nil {
		t.Fatal(err)
	}
	if result.Response != "hi there" {
		t.Errorf("unexpected response: %q", result.Response)
	}
}

func TestSendMessage_ApplicationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.SendResult{Error: "agent unavailable"})
	}))
	defer server.Close()

	c := New(server.URL, "")
	result, err := c.SendMessage(context.Background(), "ceo", "hello", "user")
	if err != nil {
		t.Fatal(err)
	}
	if result.Error != "agent unavailable" {
		t.Errorf("expected application error in envelope, got %+v", result)
	}
}

func TestErrorStatusCarriesUpstreamMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"No token provided"}`))
	}))
	defer server.Close()

	c := New(server.URL, "")
	_, err := c.Agents(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "/nodes: No token provided" {
		t.Errorf("unexpected error text: %s", got)
	}
}
