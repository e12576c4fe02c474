package cli

import (
	"encoding/json"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/askiada/go-stagerun/internal/script"
	"github.com/askiada/go-stagerun/pkg/pipeline"
	"github.com/askiada/go-stagerun/pkg/pipeline/drawer"
	"github.com/askiada/go-stagerun/pkg/pipeline/logging"
	"github.com/askiada/go-stagerun/pkg/pipeline/measure"
	"github.com/askiada/go-stagerun/pkg/pipeline/metrics"
	"github.com/askiada/go-stagerun/pkg/pipeline/model"
	"github.com/askiada/go-stagerun/pkg/pipeline/tracing"
)

// ErrInvalidEnv is returned for --env values that are not key=value pairs.
var ErrInvalidEnv = errors.New("invalid environment variable")

type runFlags struct {
	file     string
	env      []string
	envFiles []string
	afterAll string
	graph    string
	trace    bool
	metrics  bool
}

func newRunCmd(a *app) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a pipeline file and print the final environment as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.applyRunConfig(cmd, flags)

			return a.run(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "Path to the pipeline file")
	cmd.Flags().StringArrayVarP(&flags.env, "env", "e", nil, "Initial environment entry key=value, repeatable")
	cmd.Flags().StringArrayVar(&flags.envFiles, "env-file", nil, "Dotenv file seeding the initial environment, repeatable")
	cmd.Flags().StringVar(&flags.afterAll, "after-all", "", "Environment of the after-all hooks: last-job or baseline")
	cmd.Flags().StringVar(&flags.graph, "graph", "", "Write the DOT graph of the run to this file")
	cmd.Flags().BoolVar(&flags.trace, "trace", false, "Write spans to stderr")
	cmd.Flags().BoolVar(&flags.metrics, "metrics", false, "Write Prometheus metrics to stderr")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// applyRunConfig fills the flags that were not set from the configuration.
func (a *app) applyRunConfig(cmd *cobra.Command, flags *runFlags) {
	if !cmd.Flags().Changed("after-all") {
		flags.afterAll = a.cfg.Run.AfterAll
	}

	if !cmd.Flags().Changed("graph") {
		flags.graph = a.cfg.Run.Graph
	}

	if !cmd.Flags().Changed("trace") {
		flags.trace = a.cfg.Run.Trace
	}

	if !cmd.Flags().Changed("metrics") {
		flags.metrics = a.cfg.Run.Metrics
	}
}

func (a *app) run(cmd *cobra.Command, flags *runFlags) error {
	ctx := cmd.Context()

	def, err := script.Load(flags.file)
	if err != nil {
		return err
	}

	initial, err := initialEnv(flags.envFiles, flags.env)
	if err != nil {
		return err
	}

	mode, err := pipeline.ParseAfterAllMode(flags.afterAll)
	if err != nil {
		return errors.Wrap(err, "invalid --after-all")
	}

	opts := []model.PipelineOption{logging.PipelineLogger(a.logger)}

	var reg *prometheus.Registry

	if flags.metrics {
		reg = prometheus.NewRegistry()

		opt, err := metrics.PipelineMetrics(reg)
		if err != nil {
			return err
		}

		opts = append(opts, opt)
	}

	if flags.trace {
		tp, err := tracing.NewProvider("stagerun", Version, a.stderr)
		if err != nil {
			return err
		}

		defer func() {
			_ = tp.Shutdown(ctx)
		}()

		opts = append(opts, tracing.PipelineTracer(tp))
	}

	if flags.graph != "" {
		msr := measure.NewDefaultMeasure()
		opts = append(opts, measure.PipelineMeasure(msr), drawer.PipelineDrawer(drawer.NewDOTDrawer(flags.graph), msr))
	}

	pipe, err := def.Build(
		pipeline.WithLogger(a.logger),
		pipeline.WithAfterAllMode(mode),
		pipeline.WithOptions(opts...),
	)
	if err != nil {
		return err
	}

	final, runErr := pipe.Run(ctx, initial)

	if reg != nil {
		err := metrics.Write(a.stderr, reg)
		if err != nil {
			a.logger.WarnContext(ctx, "unable to write metrics", "error", err)
		}
	}

	if runErr != nil {
		return errors.Wrapf(runErr, "pipeline %s failed in %s", pipe.Name(), pipe.Phase())
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(final)
}

// initialEnv reads the dotenv files in order, then applies the key=value pairs.
func initialEnv(envFiles, pairs []string) (pipeline.Env, error) {
	env := pipeline.Env{}

	if len(envFiles) > 0 {
		values, err := godotenv.Read(envFiles...)
		if err != nil {
			return nil, errors.Wrap(err, "unable to read env file")
		}

		for k, v := range values {
			env[k] = v
		}
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, errors.Wrapf(ErrInvalidEnv, "%q is not key=value", pair)
		}

		env[key] = value
	}

	return env, nil
}
