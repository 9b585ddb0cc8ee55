package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/usecase/pipeline"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <meeting-id>",
		Short: "Show the processing steps of a meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meetingID, err := parseMeetingID(args[0])
			if err != nil {
				return err
			}
			defer ctx.close()
			return printStatus(cmd, ctx, meetingID)
		},
	}
}

func renderStatus(meeting *entities.Meeting, s *pipeline.StatusSnapshot, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Meeting:  %s (%s)\n", s.Title, s.MeetingID)
	fmt.Fprintf(&b, "Status:   %s\n", s.OverallStatus)
	fmt.Fprintf(&b, "Audio:    %s\n", humanize.Bytes(uint64(max(meeting.FileSize, 0))))
	fmt.Fprintf(&b, "Uploaded: %s\n", humanize.RelTime(s.CreatedAt, now, "ago", "from now"))
	if s.FailedStep != nil {
		fmt.Fprintf(&b, "Failed:   %s (reprocess required)\n", *s.FailedStep)
	} else if s.CurrentStep != nil {
		fmt.Fprintf(&b, "Current:  %s\n", *s.CurrentStep)
	}

	rows := make([][]string, 0, len(s.Steps))
	for i, step := range s.Steps {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			string(step.Kind),
			string(step.Status),
			fmt.Sprintf("%d%%", step.Progress),
			stepTime(step.StartedAt, now),
			stepTime(step.CompletedAt, now),
			step.Error,
		})
	}
	b.WriteString(renderTable(
		[]string{"#", "Step", "Status", "Progress", "Started", "Completed", "Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
	))
	return b.String()
}

func stepTime(t *time.Time, now time.Time) string {
	if t == nil {
		return "-"
	}
	return humanize.RelTime(*t, now, "ago", "from now")
}
