package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smallnest/leadgraph/graph"
	"github.com/smallnest/leadgraph/lead"
	"github.com/smallnest/leadgraph/pipeline"
	"github.com/smallnest/leadgraph/research"
	"github.com/smallnest/leadgraph/source"
	"github.com/smallnest/leadgraph/source/memory"
)

var runFlags struct {
	ids        []string
	stepBound  int
	send       bool
	dryRun     bool
	sequential bool
	trace      bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process leads through the outreach workflow",
	Long: `Process every NEW lead of the configured source, or only the leads given
with --ids. Qualified leads get an outreach report, an interview script and
a personalized email draft; every processed lead is written back.

With --dry-run the records are copied into memory first and emails are
collected in an in-memory outbox, so neither the source nor any mailbox
is touched.`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringSliceVar(&runFlags.ids, "ids", nil, "Comma separated lead ids (default: all NEW leads)")
	f.IntVar(&runFlags.stepBound, "step-bound", 0, "Maximum node applications (default: step_bound or 1000)")
	f.BoolVar(&runFlags.send, "send", false, "Send emails instead of only drafting them")
	f.BoolVar(&runFlags.dryRun, "dry-run", false, "Work on an in-memory copy and do not deliver email")
	f.BoolVar(&runFlags.sequential, "sequential", false, "Run parallel analysis steps one after another")
	f.BoolVar(&runFlags.trace, "trace", false, "Log every step and edge of the run")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	src, err := source.Open(ctx, cfg.Source)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Error("failed to close source: %v", err)
		}
	}()

	var leads lead.Source = src
	if runFlags.dryRun {
		mem := memory.New()
		n, err := source.Import(ctx, src, mem, lead.FetchOptions{IDs: runFlags.ids})
		if err != nil {
			return err
		}
		logger.Info("dry run on %d copied leads", n)
		leads = mem
	}

	narrator, err := cfg.LLM.Narrator()
	if err != nil {
		return err
	}
	searcher, err := cfg.Search.Searcher()
	if err != nil {
		return err
	}

	pcfg := cfg.Pipeline
	if runFlags.send {
		pcfg.SendDirectly = true
	}
	r, err := pipeline.Build(pipeline.Deps{
		Source:    leads,
		Narrator:  narrator,
		Searcher:  searcher,
		Scraper:   research.NewHTTPScraper(),
		Deliverer: cfg.Mail.Deliverer(runFlags.dryRun),
		Exporter:  cfg.Exporter(),
		Logger:    logger.Child("pipeline"),
	}, pcfg)
	if err != nil {
		return err
	}

	stepBound := cfg.StepBound
	if cmd.Flags().Changed("step-bound") {
		stepBound = runFlags.stepBound
	}
	gcfg := &graph.Config{
		StepBound:  stepBound,
		Logger:     logger,
		Sequential: runFlags.sequential,
	}
	if runFlags.trace {
		gcfg.Tracer = graph.NewTracer()
		gcfg.Tracer.AddHook(graph.NewLoggingHook(logger))
	}
	summary, runErr := pipeline.Run(ctx, r, runFlags.ids, gcfg)
	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(summary, pcfg, runErr))
	return runErr
}
