package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// completePositions lists task positions with the description as the
// completion hint. Completed tasks are offered too since "delete" accepts them.
func completePositions(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if Engine == nil || len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	now := Engine.Now()
	var out []string
	for i, t := range Engine.Snapshot() {
		pos := strconv.Itoa(i + 1)
		if toComplete != "" && !strings.HasPrefix(pos, toComplete) {
			continue
		}
		hint := t.Description
		if due := t.DueLabel(); due != "" {
			hint += " (" + string(t.Status(now)) + ", due " + due + ")"
		}
		out = append(out, pos+"\t"+hint)
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// completeStatuses returns the display statuses accepted by --status.
func completeStatuses(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		"pending\tNot completed, deadline not reached",
		"overdue\tNot completed, deadline passed",
		"completed\tMarked done",
	}, cobra.ShellCompDirectiveNoFileComp
}

// completeOutputFormats returns the formats accepted by --output.
func completeOutputFormats(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{"table", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
}
