package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/micrictor/flowbase/internal/catalog"
	"github.com/micrictor/flowbase/internal/logging"
	"github.com/micrictor/flowbase/internal/prism"
	"github.com/micrictor/flowbase/internal/reconcile"
	"github.com/micrictor/flowbase/internal/runner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Add the base rules to every security policy",
	Long: `Fetches every network security policy, works out which catalog rules each one
is missing and submits the policy with those rules appended.`,
	Args: cobra.NoArgs,
	Run:  reconcileMain,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().String("catalog", "", "Base rule catalog (default BaseRules.json)")
	reconcileCmd.Flags().Bool("dry-run", false, "Log the payloads instead of submitting them")
	reconcileCmd.Flags().String("log-dir", "", "Directory for the run log")
	reconcileCmd.Flags().String("log-level", "", "debug, info, warn or error")

	viper.BindPFlag("catalog", reconcileCmd.Flags().Lookup("catalog"))
	viper.BindPFlag("reconcile.dryRun", reconcileCmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("log.dir", reconcileCmd.Flags().Lookup("log-dir"))
	viper.BindPFlag("log.level", reconcileCmd.Flags().Lookup("log-level"))
}

func reconcileMain(cmd *cobra.Command, args []string) {
	log.SetPrefix("[flowbase] ")

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, closer, err := logging.New(cfg.Log.Dir, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer closer.Close()
	exit := func(format string, args ...interface{}) {
		logger.Errorf(format, args...)
		closer.Close()
		os.Exit(1)
	}

	rules, err := catalog.LoadFile(cfg.Catalog)
	if err != nil {
		exit("Unable to load base rules: %v", err)
	}
	inbound, outbound := rules.Count()
	logger.Infof("Loaded %d base rules from %s (%d inbound, %d outbound elements).",
		len(rules.Rules), cfg.Catalog, inbound, outbound)

	password, err := prismPassword(cfg)
	if err != nil {
		exit("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := prism.NewClient(cfg.Prism, password,
		prism.WithPolling(cfg.Reconcile.PollInterval, cfg.Reconcile.PollAttempts))
	r := runner.New(runner.Deps{
		Lister: client,
		Update: client,
		Tasks:  client,
		Engine: reconcile.NewEngine(rules, logger),
		Log:    logger,
	}, runner.Options{
		PageSize: cfg.Reconcile.PageSize,
		DryRun:   cfg.Reconcile.DryRun,
	})

	summary, err := r.Run(ctx)
	if err != nil {
		exit("Run aborted after %d policies: %v", summary.Processed, err)
	}
	if summary.Failed > 0 {
		exit("%d of %d policies failed, see the errors above.", summary.Failed, summary.Processed)
	}
}
