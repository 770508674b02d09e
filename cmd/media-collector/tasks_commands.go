package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nexelor/media-collector/internal/api"
	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/store"
)

func newTasksCommand(ctx *commandContext) *cobra.Command {
	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect and prune persisted task records",
	}

	tasksCmd.AddCommand(newTasksListCommand(ctx))
	tasksCmd.AddCommand(newTasksShowCommand(ctx))
	tasksCmd.AddCommand(newTasksPruneCommand(ctx))

	return tasksCmd
}

func parseStates(values []string) ([]scheduler.State, error) {
	states := make([]scheduler.State, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		matched := false
		for _, state := range []scheduler.State{scheduler.StatePending, scheduler.StateRunning, scheduler.StateCompleted, scheduler.StateFailed} {
			if strings.EqualFold(value, string(state)) {
				states = append(states, state)
				matched = true
				break
			}
		}
		if !matched {
			return nil, fmt.Errorf("unknown task status %q (want pending, running, completed, or failed)", value)
		}
	}
	return states, nil
}

func newTasksListCommand(ctx *commandContext) *cobra.Command {
	var status string
	var queue string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List task records, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := parseStates([]string{status})
			if err != nil {
				return err
			}
			filter := store.TaskFilter{Queue: strings.TrimSpace(queue), Limit: limit}
			if len(states) == 1 {
				filter.State = states[0]
			}
			return ctx.withStore(func(st *store.Store) error {
				recs, err := st.ListTaskRecords(cmd.Context(), filter)
				if err != nil {
					return err
				}
				tasks := api.FromRecords(recs)
				if asJSON {
					return writeJSON(cmd, api.TaskListResponse{Tasks: tasks})
				}
				if len(tasks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No task records")
					return nil
				}
				rows := make([][]string, 0, len(tasks))
				for _, task := range tasks {
					rows = append(rows, []string{task.ID, task.Queue, task.Name, task.Priority, task.Status, task.CreatedAt, task.Error})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Queue", "Name", "Priority", "Status", "Created", "Error"},
					rows,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (pending, running, completed, failed)")
	cmd.Flags().StringVarP(&queue, "queue", "q", "", "Filter by queue name")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum records to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newTasksShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withStore(func(st *store.Store) error {
				rec, err := st.TaskRecord(cmd.Context(), id)
				if errors.Is(err, store.ErrRecordNotFound) {
					return fmt.Errorf("task %s not found", id)
				}
				if err != nil {
					return err
				}
				task := api.FromRecord(rec)
				if asJSON {
					return writeJSON(cmd, task)
				}
				rows := [][]string{
					{"ID", task.ID},
					{"Name", task.Name},
					{"Queue", task.Queue},
					{"Priority", task.Priority},
					{"Status", task.Status},
					{"Created", task.CreatedAt},
					{"Updated", task.UpdatedAt},
				}
				if task.Error != "" {
					rows = append(rows, []string{"Error", task.Error})
				}
				if len(task.Payload) > 0 {
					rows = append(rows, []string{"Payload", string(task.Payload)})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newTasksPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	var statuses []string

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old finished task records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return errors.New("--older-than must not be negative")
			}
			states, err := parseStates(statuses)
			if err != nil {
				return err
			}
			cutoff := time.Now().Add(-olderThan)
			return ctx.withStore(func(st *store.Store) error {
				removed, err := st.PruneTaskRecords(cmd.Context(), cutoff, states...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d task records\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Only prune records last updated before this age")
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Statuses to prune (default completed,failed)")
	return cmd
}
