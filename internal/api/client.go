// Package api is the HTTP boundary to the assistant service. Everything the
// session core consumes from the network goes through this client, and any
// shape quirks of the service (array-vs-map project listings, optional
// fields) are normalized here so the core only ever sees canonical types.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/user/crewdesk/internal/types"
)

// Client talks to the assistant service. All requests carry the bearer
// credential; acquisition of the credential is the caller's problem.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// New creates a Client for the service at baseURL (e.g. "https://host/api").
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		// The service reports failures as {"error": "..."} with a non-200.
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
			return nil, fmt.Errorf("%s: %s", req.URL.Path, payload.Error)
		}
		return nil, fmt.Errorf("%s: unexpected status %d", req.URL.Path, resp.StatusCode)
	}
	return body, nil
}

func agentQuery(agentID string) url.Values {
	q := url.Values{}
	q.Set("agent_id", agentID)
	return q
}

// Agents lists the remote agents available to the operator.
func (c *Client) Agents(ctx context.Context) ([]types.Agent, error) {
	body, err := c.get(ctx, "/nodes", nil)
	if err != nil {
		return nil, err
	}
	agents, err := types.UnmarshalJSONList[types.Agent](body)
	if err != nil {
		return nil, fmt.Errorf("decode agents: %w", err)
	}
	return agents, nil
}

// Meetings fetches the meetings scoped to one agent.
func (c *Client) Meetings(ctx context.Context, agentID string) ([]types.Meeting, error) {
	body, err := c.get(ctx, "/meetings", agentQuery(agentID))
	if err != nil {
		return nil, err
	}
	meetings, err := types.UnmarshalJSONList[types.Meeting](body)
	if err != nil {
		return nil, fmt.Errorf("decode meetings: %w", err)
	}
	return meetings, nil
}

// Tasks fetches the tasks scoped to one agent, passed through unmodified.
func (c *Client) Tasks(ctx context.Context, agentID string) ([]types.Task, error) {
	body, err := c.get(ctx, "/tasks", agentQuery(agentID))
	if err != nil {
		return nil, err
	}
	tasks, err := types.UnmarshalJSONList[types.Task](body)
	if err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return tasks, nil
}

// Projects fetches the projects scoped to one agent. The service returns
// either a plain array or a map keyed by project id; both come back as a
// canonical slice.
func (c *Client) Projects(ctx context.Context, agentID string) ([]types.Project, error) {
	body, err := c.get(ctx, "/projects", agentQuery(agentID))
	if err != nil {
		return nil, err
	}
	projects, err := normalizeProjects(body)
	if err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	return projects, nil
}

// normalizeProjects accepts both response shapes and fills the defaulting
// rules: missing participants/plan steps become empty slices, a missing id
// or name borrows the other field.
func normalizeProjects(body []byte) ([]types.Project, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	var projects []types.Project

	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		// nothing
	case trimmed[0] == '[':
		if err := json.Unmarshal(body, &projects); err != nil {
			return nil, err
		}
	case trimmed[0] == '{':
		var byID map[string]types.Project
		if err := json.Unmarshal(body, &byID); err != nil {
			return nil, err
		}
		for id, p := range byID {
			if p.ID == "" {
				p.ID = id
			}
			projects = append(projects, p)
		}
		// Map iteration order is random; keep listings stable.
		sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	default:
		return nil, fmt.Errorf("unexpected projects payload")
	}

	for i := range projects {
		if projects[i].ID == "" {
			projects[i].ID = projects[i].Name
		}
		if projects[i].Name == "" {
			projects[i].Name = projects[i].ID
		}
		if projects[i].Participants == nil {
			projects[i].Participants = []string{}
		}
		if projects[i].PlanSteps == nil {
			projects[i].PlanSteps = []string{}
		}
	}
	return projects, nil
}

// SendMessage posts an operator command to an agent and returns the reply
// envelope. Application-level failures arrive in the envelope's Error field,
// not as a transport error.
func (c *Client) SendMessage(ctx context.Context, agentID, text, senderID string) (types.SendResult, error) {
	payload, err := json.Marshal(map[string]string{
		"node_id":   agentID,
		"message":   text,
		"sender_id": senderID,
	})
	if err != nil {
		return types.SendResult{}, fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send_message", bytes.NewReader(payload))
	if err != nil {
		return types.SendResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return types.SendResult{}, err
	}

	var result types.SendResult
	if err := json.Unmarshal(body, &result); err != nil {
		return types.SendResult{}, fmt.Errorf("decode reply: %w", err)
	}
	return result, nil
}
