package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nexelor/media-collector/internal/api"
	"github.com/nexelor/media-collector/internal/config"
	"github.com/nexelor/media-collector/internal/daemon"
	"github.com/nexelor/media-collector/internal/preflight"
	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/store"
)

const statusAPITimeout = 3 * time.Second

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, source, and task status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var lines []string
			lines = append(lines, renderSectionHeader("Daemon", colorize)...)
			daemonLines, stats := daemonStatusLines(cmd.Context(), ctx, cfg, colorize)
			lines = append(lines, daemonLines...)

			if stats != nil && len(stats.Inbox) > 0 {
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Queues", colorize)...)
				lines = append(lines, inboxLines(stats.Inbox, colorize)...)
			}

			if !skipPreflight {
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Preflight", colorize)...)
				lines = append(lines, preflightLines(preflight.RunAll(cmd.Context(), cfg), colorize)...)
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Tasks", colorize)...)
			err = ctx.withStore(func(st *store.Store) error {
				health, healthErr := st.CheckHealth(cmd.Context())
				lines = append(lines, storeHealthLine(health, healthErr, colorize))
				taskStats, err := st.TaskStats(cmd.Context())
				if err != nil {
					return err
				}
				lines = append(lines, taskStatLines(api.MergeTaskStats(taskStats), colorize)...)
				return nil
			})
			if err != nil {
				lines = append(lines, renderStatusLine("Store", statusError, err.Error(), colorize))
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip directory and source API checks")
	return cmd
}

// daemonStatusLines reports the lock and PID files and, when the daemon is
// running, its REST health. stats is nil when the API could not be reached.
func daemonStatusLines(ctx context.Context, cc *commandContext, cfg *config.Config, colorize bool) ([]string, *api.StatsResponse) {
	var lines []string
	held, err := daemon.LockHeld(cfg.LockPath())
	switch {
	case err != nil:
		lines = append(lines, renderStatusLine("media-collector", statusWarn, err.Error(), colorize))
	case !held:
		lines = append(lines, renderStatusLine("media-collector", statusError, "Not running", colorize))
	default:
		message := "Running"
		if pid, err := daemon.ReadPID(cfg.PIDPath()); err == nil && pid > 0 {
			message = fmt.Sprintf("Running (pid %d)", pid)
		}
		lines = append(lines, renderStatusLine("media-collector", statusOK, message, colorize))
	}
	lines = append(lines, renderStatusLine("Config", statusInfo, cc.configPath, colorize))
	lines = append(lines, renderStatusLine("Database", statusInfo, cfg.DatabasePath(), colorize))

	if !held || strings.TrimSpace(cfg.API.Bind) == "" {
		return lines, nil
	}
	client, err := cc.apiClient()
	if err != nil {
		return append(lines, renderStatusLine("API", statusWarn, err.Error(), colorize)), nil
	}
	reqCtx, cancel := context.WithTimeout(ctx, statusAPITimeout)
	defer cancel()
	health, err := client.Health(reqCtx)
	if err != nil {
		return append(lines, renderStatusLine("API", statusWarn, fmt.Sprintf("unreachable (%v)", err), colorize)), nil
	}
	lines = append(lines, renderStatusLine("API", statusOK, fmt.Sprintf("%s %s at %s", health.Status, health.Version, cfg.API.Bind), colorize))
	stats, err := client.Stats(reqCtx)
	if err != nil {
		return append(lines, renderStatusLine("Stats", statusWarn, err.Error(), colorize)), nil
	}
	lines = append(lines, renderStatusLine("Modules", statusInfo, fmt.Sprintf("mal=%s anilist=%s picture=%s",
		yesNo(stats.Modules.MALEnabled), yesNo(stats.Modules.AniListEnabled), yesNo(stats.Modules.PictureEnabled)), colorize))
	return lines, &stats
}

func inboxLines(inbox map[string]int, colorize bool) []string {
	names := make([]string, 0, len(inbox))
	for name := range inbox {
		names = append(names, name)
	}
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, renderStatusLine(name, statusInfo, fmt.Sprintf("%d waiting", inbox[name]), colorize))
	}
	return lines
}

func taskStatLines(stats map[string]int, colorize bool) []string {
	order := []struct {
		state scheduler.State
		kind  statusKind
	}{
		{scheduler.StatePending, statusInfo},
		{scheduler.StateRunning, statusInfo},
		{scheduler.StateCompleted, statusOK},
		{scheduler.StateFailed, statusError},
	}
	lines := make([]string, 0, len(order))
	for _, entry := range order {
		count := stats[string(entry.state)]
		kind := entry.kind
		if count == 0 {
			kind = statusInfo
		}
		lines = append(lines, renderStatusLine(string(entry.state), kind, fmt.Sprintf("%d", count), colorize))
	}
	return lines
}

func storeHealthLine(health store.DatabaseHealth, err error, colorize bool) string {
	switch {
	case err != nil:
		return renderStatusLine("Store", statusError, err.Error(), colorize)
	case !health.IntegrityCheck:
		return renderStatusLine("Store", statusWarn, "integrity check failed", colorize)
	}
	return renderStatusLine("Store", statusOK, fmt.Sprintf("schema v%d, %d documents, %d task records",
		health.SchemaVersion, health.Documents, health.TaskRecords), colorize)
}
