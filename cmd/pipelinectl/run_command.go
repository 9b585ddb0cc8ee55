package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
	"github.com/johnquangdev/meeting-pipeline/internal/usecase/pipeline"
)

// inlineRunner executes submissions synchronously in the CLI process.
// It stands in for the worker pool as both pipeline.Dispatcher and pipeline.Queue.
type inlineRunner struct {
	ctx  context.Context
	orch pipeline.Runner
	ran  []uuid.UUID
	errs []error
}

func (r *inlineRunner) Submit(meetingID uuid.UUID) error {
	err := r.orch.Run(r.ctx, meetingID)
	r.record(meetingID, err)
	return nil
}

// SubmitLeased owns the lease and releases it once the run returns
func (r *inlineRunner) SubmitLeased(lease repositories.Lease) error {
	err := r.orch.RunLeased(r.ctx, lease)
	_ = lease.Release(context.WithoutCancel(r.ctx))
	r.record(lease.MeetingID(), err)
	return nil
}

func (r *inlineRunner) Queued(uuid.UUID) bool { return false }

func (r *inlineRunner) record(meetingID uuid.UUID, err error) {
	r.ran = append(r.ran, meetingID)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("meeting %s: %w", meetingID, err))
	}
}

func (r *inlineRunner) err() error {
	return errors.Join(r.errs...)
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <meeting-id>",
		Short: "Resume a meeting's chain in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meetingID, err := parseMeetingID(args[0])
			if err != nil {
				return err
			}
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			defer ctx.close()

			p, err := a.NewPipeline(cmd.Context())
			if err != nil {
				return err
			}
			if err := p.Orchestrator.Run(cmd.Context(), meetingID); err != nil {
				return err
			}
			return printStatus(cmd, ctx, meetingID)
		},
	}
}

func newReprocessCommand(ctx *commandContext) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "reprocess <meeting-id>",
		Short: "Reset steps from a point and re-run them in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meetingID, err := parseMeetingID(args[0])
			if err != nil {
				return err
			}
			var fromStep *entities.StepKind
			if from != "" {
				kind, err := entities.ParseStepKind(from)
				if err != nil {
					return err
				}
				fromStep = &kind
			}

			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			defer ctx.close()

			p, err := a.NewPipeline(cmd.Context())
			if err != nil {
				return err
			}
			runner := &inlineRunner{ctx: cmd.Context(), orch: p.Orchestrator}
			controller := pipeline.NewReprocessController(a.Meetings, a.Ledger, a.Locker, runner, a.Policy, ctx.logger())
			if p.Events != nil {
				controller.WithEventCleanup(p.Events)
			}

			start, err := controller.Reprocess(cmd.Context(), meetingID, fromStep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reprocessed from %s\n", start)
			if err := runner.err(); err != nil {
				return err
			}
			return printStatus(cmd, ctx, meetingID)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Step to restart from (transcription, analysis, timeline_extraction, task_extraction); defaults to the first failed step")
	return cmd
}

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Resume every stalled meeting in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			defer ctx.close()

			p, err := a.NewPipeline(cmd.Context())
			if err != nil {
				return err
			}
			runner := &inlineRunner{ctx: cmd.Context(), orch: p.Orchestrator}
			sweeper := pipeline.NewSweeper(a.Meetings, a.Ledger, runner, a.Policy, ctx.logger())

			n, err := sweeper.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Resumed %d meeting(s)\n", n)
			return runner.err()
		},
	}
}

func printStatus(cmd *cobra.Command, ctx *commandContext, meetingID uuid.UUID) error {
	a, err := ctx.ensureApp(cmd.Context())
	if err != nil {
		return err
	}
	meeting, err := a.Meetings.FindByID(cmd.Context(), meetingID)
	if err != nil {
		return err
	}
	if meeting == nil {
		return entities.ErrMeetingNotFound
	}
	snapshot, err := a.Projector.Status(cmd.Context(), meetingID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderStatus(meeting, snapshot, time.Now()))
	return nil
}
