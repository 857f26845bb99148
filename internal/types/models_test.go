// internal/types/models_test.go
package types

import (
	"encoding/json"
	"testing"
)

func TestChatMessageSerialization(t *testing.T) {
	msg := NewCandidateMessage("Candidates:", "p1", []CandidateAgent{
		{Name: "Ana", Title: "Engineer", Department: "R&D", Skills: []string{"go"}},
	})

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}

	var decoded ChatMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded.SubType != SubTypeCandidateSelection {
		t.Errorf("expected sub type %s, got %s", SubTypeCandidateSelection, decoded.SubType)
	}
	if len(decoded.Candidates) != 1 || decoded.Candidates[0].Name != "Ana" {
		t.Errorf("candidates did not round trip: %+v", decoded.Candidates)
	}
}

func TestTaskAccessors(t *testing.T) {
	task := Task{"task_id": "t1", "name": "Prepare deck", "status": "open", "extra": 42.0}

	if task.ID() != "t1" {
		t.Errorf("id: %q", task.ID())
	}
	if task.Title() != "Prepare deck" {
		t.Errorf("title: %q", task.Title())
	}
	if task.Status() != "open" {
		t.Errorf("status: %q", task.Status())
	}

	empty := Task{}
	if empty.ID() != "" || empty.Title() != "" || empty.Status() != "" {
		t.Error("accessors on empty task must return empty strings")
	}
}

func TestEventTimeValue(t *testing.T) {
	timed := EventTime{DateTime: "2026-01-05T09:00:00Z"}
	if timed.Value() != "2026-01-05T09:00:00Z" {
		t.Errorf("timed value: %q", timed.Value())
	}
	allDay := EventTime{Date: "2026-01-05"}
	if allDay.Value() != "2026-01-05" {
		t.Errorf("all-day value: %q", allDay.Value())
	}
}

func TestMeetingLabel(t *testing.T) {
	if got := (Meeting{Summary: "Standup"}).Label(); got != "Standup" {
		t.Errorf("summary label: %q", got)
	}
	if got := (Meeting{Title: "Planning"}).Label(); got != "Planning" {
		t.Errorf("title label: %q", got)
	}
	if got := (Meeting{}).Label(); got != "(untitled)" {
		t.Errorf("fallback label: %q", got)
	}
}

func TestUnmarshalJSONList(t *testing.T) {
	agents, err := UnmarshalJSONList[Agent]([]byte(`[{"id":"a","name":"A"}]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(agents) != 1 || agents[0].ID != "a" {
		t.Errorf("decoded %+v", agents)
	}

	null, err := UnmarshalJSONList[Agent]([]byte(`null`))
	if err != nil {
		t.Fatal(err)
	}
	if null != nil {
		t.Errorf("null body should decode to nil, got %+v", null)
	}
}
