package cli

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/askiada/go-stagerun/internal/script"
	"github.com/askiada/go-stagerun/pkg/pipeline"
	"github.com/askiada/go-stagerun/pkg/pipeline/drawer"
	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

func newPlanCmd(a *app) *cobra.Command {
	var file, output string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the units a pipeline file would run, without running them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def, err := script.Load(file)
			if err != nil {
				return err
			}

			pipe, err := def.Build(pipeline.WithLogger(a.logger))
			if err != nil {
				return err
			}

			if output == "" {
				plan, err := pipe.Plan()
				if err != nil {
					return err
				}

				return writePlan(a.stdout, plan)
			}

			var d *drawer.DOTDrawer
			if output == "-" {
				d = drawer.NewDOTWriter(a.stdout)
			} else {
				d = drawer.NewDOTDrawer(output)
			}

			return drawer.DrawPlan(cmd.Context(), d, pipe)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the pipeline file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the plan as a DOT graph to this file, - for stdout")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func writePlan(wrt io.Writer, plan []pipeline.PlanStep) error {
	for _, step := range plan {
		var err error

		switch {
		case step.Stage != nil:
			_, err = fmt.Fprintf(wrt, "stage %s jobs=%d\n", step.Stage.Name, step.Stage.Jobs)
		case step.Unit.Kind == model.JobKind:
			_, err = fmt.Fprintf(wrt, "  job %s\n", step.Unit.Name)
		case step.Unit.Job != "":
			_, err = fmt.Fprintf(wrt, "  %s %s job=%s\n", step.Unit.Kind, step.Unit.Name, step.Unit.Job)
		default:
			_, err = fmt.Fprintf(wrt, "%s %s\n", step.Unit.Kind, step.Unit.Name)
		}

		if err != nil {
			return errors.Wrap(err, "unable to write plan")
		}
	}

	return nil
}
