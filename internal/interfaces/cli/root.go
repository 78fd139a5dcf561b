// Package cli implements the command line interface.  Commands build the
// analysis stack in-process and print JSON results, so the tool works
// without a running API server.
package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/turtacn/CyberTrace-Intelligence/internal/analysis"
	"github.com/turtacn/CyberTrace-Intelligence/internal/application/advisory"
	"github.com/turtacn/CyberTrace-Intelligence/internal/application/casework"
	"github.com/turtacn/CyberTrace-Intelligence/internal/application/linkage"
	"github.com/turtacn/CyberTrace-Intelligence/internal/config"
	"github.com/turtacn/CyberTrace-Intelligence/internal/extraction"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CyberTrace-Intelligence/internal/knowledge"
	"github.com/turtacn/CyberTrace-Intelligence/internal/matching"
	"github.com/turtacn/CyberTrace-Intelligence/internal/worker"
	"github.com/turtacn/CyberTrace-Intelligence/pkg/types/common"
)

// app carries the lazily built service stack shared by subcommands.
type app struct {
	cfgPath string
	cfg     *config.Config
	logger  logging.Logger
}

func (a *app) load() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) runner() worker.Runner {
	return worker.NewRunner(a.cfg.Worker, a.logger, nil)
}

func (a *app) casework() casework.Service {
	runner := a.runner()
	extractor := extraction.New(runner, a.logger)
	pipeline := analysis.NewPipeline(runner, extractor, a.logger, nil)
	return casework.NewService(pipeline, extractor, a.logger)
}

func (a *app) linkage() (linkage.Service, error) {
	victims, err := matching.NewCachedCSVStore(a.cfg.Matcher.VictimStorePath, "victim", false, a.logger, nil)
	if err != nil {
		return nil, err
	}
	officials, err := matching.NewCachedCSVStore(a.cfg.Matcher.OfficialStorePath, "official", false, a.logger, nil)
	if err != nil {
		return nil, err
	}
	defaults := common.Thresholds{
		Cross:  a.cfg.Matcher.CrossThreshold,
		Within: a.cfg.Matcher.WithinThreshold,
	}
	basic := matching.NewMatcher(defaults, nil, a.logger, nil)
	embedder := knowledge.NewWorkerEmbedder(a.runner(), nil)
	semantic := matching.NewMatcher(defaults, embedder, a.logger, nil)
	return linkage.NewService(victims, officials, basic, semantic, a.logger), nil
}

func (a *app) advisory() advisory.Service {
	runner := a.runner()
	embedder := knowledge.NewWorkerEmbedder(runner, nil)
	retriever := knowledge.NewRetriever(a.cfg.Knowledge, embedder, knowledge.NewMemoryIndex(), a.logger, nil)
	synth := knowledge.NewSynthesizer(a.cfg.Knowledge, retriever, runner, a.logger, nil)
	return advisory.NewService(synth, a.logger)
}

// printJSON writes indented JSON to the command's stdout.
func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// NewRootCommand builds the command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "cybertrace",
		Short:         "Cybercrime complaint analysis and entity matching",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "path to config file")

	root.AddCommand(
		newAnalyzeCommand(a),
		newMatchCommand(a),
		newChatCommand(a),
		newVersionCommand(version),
	)
	return root
}
