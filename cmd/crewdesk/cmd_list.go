package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/crewdesk/internal/api"
	"github.com/user/crewdesk/internal/types"
)

func init() {
	rootCmd.AddCommand(agentsCmd, projectsCmd, tasksCmd, meetingsCmd)

	for _, cmd := range []*cobra.Command{projectsCmd, tasksCmd, meetingsCmd} {
		cmd.Flags().String("agent", "", "agent id or name (defaults to the first agent)")
	}
}

func newClient() *api.Client {
	cfg := loadConfig()
	return api.New(cfg.Backend.BaseURL, cfg.Backend.Token)
}

// resolveAgent picks the agent a listing is scoped to: an explicit id or
// name when given, otherwise the first agent the service reports.
func resolveAgent(ctx context.Context, client *api.Client, idOrName string) (*types.Agent, error) {
	agents, err := client.Agents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	if len(agents) == 0 {
		return nil, fmt.Errorf("no agents available")
	}
	if idOrName == "" {
		return &agents[0], nil
	}
	for i := range agents {
		if agents[i].ID == idOrName || strings.EqualFold(agents[i].Name, idOrName) {
			return &agents[i], nil
		}
	}
	return nil, fmt.Errorf("unknown agent %q", idOrName)
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List available agents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		agents, err := newClient().Agents(cmd.Context())
		if err != nil {
			return fmt.Errorf("list agents: %w", err)
		}
		if len(agents) == 0 {
			fmt.Println("No agents found.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME")
		for _, a := range agents {
			fmt.Fprintf(w, "%s\t%s\n", a.ID, a.Name)
		}
		return w.Flush()
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List an agent's projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		scope, _ := cmd.Flags().GetString("agent")
		agent, err := resolveAgent(cmd.Context(), client, scope)
		if err != nil {
			return err
		}
		projects, err := client.Projects(cmd.Context(), agent.ID)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
		if len(projects) == 0 {
			fmt.Printf("No projects for %s.\n", agent.Name)
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTATUS\tPARTICIPANTS")
		for _, p := range projects {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Status, strings.Join(p.Participants, ", "))
		}
		return w.Flush()
	},
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List an agent's tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		scope, _ := cmd.Flags().GetString("agent")
		agent, err := resolveAgent(cmd.Context(), client, scope)
		if err != nil {
			return err
		}
		tasks, err := client.Tasks(cmd.Context(), agent.ID)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		if len(tasks) == 0 {
			fmt.Printf("No tasks for %s.\n", agent.Name)
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tSTATUS")
		for _, t := range tasks {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID(), t.Title(), t.Status())
		}
		return w.Flush()
	},
}

var meetingsCmd = &cobra.Command{
	Use:   "meetings",
	Short: "List an agent's meetings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		scope, _ := cmd.Flags().GetString("agent")
		agent, err := resolveAgent(cmd.Context(), client, scope)
		if err != nil {
			return err
		}
		meetings, err := client.Meetings(cmd.Context(), agent.ID)
		if err != nil {
			return fmt.Errorf("list meetings: %w", err)
		}
		if len(meetings) == 0 {
			fmt.Printf("No meetings for %s.\n", agent.Name)
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "START\tTITLE\tORGANIZER")
		for _, m := range meetings {
			organizer := ""
			if m.Organizer != nil {
				organizer = m.Organizer.Email
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", m.Start.Value(), m.Label(), organizer)
		}
		return w.Flush()
	},
}
