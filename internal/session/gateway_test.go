package session

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/user/crewdesk/internal/types"
)

func TestClassifyResponse_PlainText(t *testing.T) {
	msg := classifyResponse("Sure, I scheduled the meeting.")
	if msg.Type != types.MessageAgent || msg.SubType != "" {
		t.Errorf("expected plain agent message, got %+v", msg)
	}
	if msg.Text != "Sure, I scheduled the meeting." {
		t.Errorf("text altered: %q", msg.Text)
	}
}

func TestClassifyResponse_CandidatePayload(t *testing.T) {
	candidates := []types.CandidateAgent{
		{Name: "Ana", Title: "Engineer", Department: "R&D", Skills: []string{"go", "sql"}, Description: "Backend"},
		{Name: "Ben", Title: "Designer", Department: "UX", Skills: []string{"figma"}, Description: "Product design"},
	}
	payload, _ := json.Marshal(candidates)
	response := "Here are the best-suited candidates for your project 'Launch':" + string(payload)

	msg := classifyResponse(response)
	if msg.SubType != types.SubTypeCandidateSelection {
		t.Fatalf("expected candidate message, got %+v", msg)
	}
	if msg.ProjectID != "Launch" {
		t.Errorf("project id: %q", msg.ProjectID)
	}
	if !reflect.DeepEqual(msg.Candidates, candidates) {
		t.Errorf("candidates not deep-equal: %+v", msg.Candidates)
	}
	if msg.Text != "Here are the best-suited candidates for your project 'Launch':" {
		t.Errorf("intro text: %q", msg.Text)
	}
}

func TestClassifyResponse_MalformedPayloadFallsBack(t *testing.T) {
	response := "Here are the best-suited candidates for your project 'Launch':[{not json"
	msg := classifyResponse(response)
	if msg.SubType != "" {
		t.Fatalf("malformed payload must degrade to plain text, got %+v", msg)
	}
	if msg.Text != response {
		t.Errorf("original text must be preserved: %q", msg.Text)
	}
}

func TestClassifyResponse_MarkerWithoutSeparator(t *testing.T) {
	response := "Here are the best-suited candidates for your project 'Launch with no closing"
	msg := classifyResponse(response)
	if msg.SubType != "" || msg.Text != response {
		t.Errorf("expected plain fallback, got %+v", msg)
	}
}

func TestSendCommand_NoActiveAgent(t *testing.T) {
	s, _ := newTestSession(t, nil)

	s.SendCommand(context.Background(), "define project Launch")

	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].Type != types.MessageSystem {
		t.Fatalf("expected one system message, got %+v", msgs)
	}
	if !strings.Contains(msgs[0].Text, "Select an agent") {
		t.Errorf("unexpected text: %q", msgs[0].Text)
	}
}

func TestSendCommand_AppendsUserAndReply(t *testing.T) {
	s, _ := newTestSession(t, nil)
	s.SelectAgent(&types.Agent{ID: "ceo", Name: "CEO Assistant"}, true)

	s.SendCommand(context.Background(), "  hello there  ")

	msgs := s.Messages()
	// context message, user message, reply; placeholder removed
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %+v", msgs)
	}
	if msgs[1].Type != types.MessageUser || msgs[1].Text != "hello there" {
		t.Errorf("user message: %+v", msgs[1])
	}
	if msgs[2].Type != types.MessageAgent || msgs[2].Text != "ok" {
		t.Errorf("reply: %+v", msgs[2])
	}
	for _, m := range msgs {
		if m.IsPlaceholder {
			t.Error("placeholder left in transcript")
		}
	}
}

func TestSendCommand_EmptyInputIgnored(t *testing.T) {
	s, _ := newTestSession(t, nil)
	s.SelectAgent(&types.Agent{ID: "ceo", Name: "CEO Assistant"}, true)

	s.SendCommand(context.Background(), "   ")
	if len(s.Messages()) != 1 {
		t.Errorf("blank command must be ignored: %+v", s.Messages())
	}
}

func TestSendCommand_TransportFailure(t *testing.T) {
	mux := testHandler(map[string]http.HandlerFunc{
		"/send_message": func(w http.ResponseWriter, r *http.Request) {
			// Hijack-free way to kill the connection mid-request.
			if conn, _, err := w.(http.Hijacker).Hijack(); err == nil {
				conn.Close()
			}
		},
	})
	s, _ := newTestSession(t, mux)
	s.SelectAgent(&types.Agent{ID: "ceo", Name: "CEO Assistant"}, true)

	s.SendCommand(context.Background(), "hello")

	var errs int
	for _, m := range s.Messages() {
		if m.IsPlaceholder {
			t.Error("placeholder left after failure")
		}
		if m.Type == types.MessageSystem && strings.HasPrefix(m.Text, "Could not reach") {
			errs++
		}
	}
	if errs != 1 {
		t.Errorf("expected exactly one transport error message, got %d", errs)
	}
}

func TestSendCommand_ApplicationError(t *testing.T) {
	mux := testHandler(map[string]http.HandlerFunc{
		"/send_message": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(types.SendResult{Error: "User not initialized"})
		},
	})
	s, _ := newTestSession(t, mux)
	s.SelectAgent(&types.Agent{ID: "ceo", Name: "CEO Assistant"}, true)

	s.SendCommand(context.Background(), "hello")

	msgs := s.Messages()
	last := msgs[len(msgs)-1]
	if last.Type != types.MessageSystem || last.Text != "User not initialized" {
		t.Errorf("expected upstream error surfaced, got %+v", last)
	}
}

func TestSendCommand_CandidateReplyRouted(t *testing.T) {
	mux := testHandler(map[string]http.HandlerFunc{
		"/send_message": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(types.SendResult{
				Response: `Here are the best-suited candidates for your project 'Launch':[{"name":"Ana","title":"Engineer","department":"R&D","skills":["go"],"description":"Backend"}]`,
			})
		},
	})
	s, _ := newTestSession(t, mux)
	s.SelectAgent(&types.Agent{ID: "ceo", Name: "CEO Assistant"}, true)

	s.SendCommand(context.Background(), "define project Launch")

	msgs := s.Messages()
	last := msgs[len(msgs)-1]
	if last.SubType != types.SubTypeCandidateSelection || last.ProjectID != "Launch" {
		t.Fatalf("expected candidate-selection message, got %+v", last)
	}
	if len(last.Candidates) != 1 || last.Candidates[0].Name != "Ana" {
		t.Errorf("candidates: %+v", last.Candidates)
	}
}

func TestSendCommand_ReplyAfterSwitchDropped(t *testing.T) {
	release := make(chan struct{})
	mux := testHandler(map[string]http.HandlerFunc{
		"/send_message": func(w http.ResponseWriter, r *http.Request) {
			<-release
			json.NewEncoder(w).Encode(types.SendResult{Response: "late reply"})
		},
	})
	s, _ := newTestSession(t, mux)
	s.SelectAgent(&types.Agent{ID: "ceo", Name: "CEO Assistant"}, true)

	done := make(chan struct{})
	go func() {
		s.SendCommand(context.Background(), "hello")
		close(done)
	}()

	waitFor(t, "user message", func() bool {
		for _, m := range s.Messages() {
			if m.Type == types.MessageUser {
				return true
			}
		}
		return false
	})

	s.SelectAgent(&types.Agent{ID: "ops", Name: "Ops Assistant"}, false)
	close(release)
	<-done

	for _, m := range s.Messages() {
		if m.Text == "late reply" {
			t.Error("reply for previous agent applied to new transcript")
		}
	}
}

func TestLongRunningPattern(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"define project Launch", true},
		{"Finalize project p1", true},
		{"please create a project for onboarding", true},
		{"plan the project timeline", true},
		{"what meetings do I have today?", false},
		{"add Ana to project p1", false},
	}
	for _, tc := range cases {
		if got := longRunningPattern.MatchString(tc.text); got != tc.want {
			t.Errorf("%q: expected %v, got %v", tc.text, tc.want, got)
		}
	}
}
