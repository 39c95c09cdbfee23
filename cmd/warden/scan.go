package main

import (
	"context"
	"fmt"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/obscura-sec/warden/pkg/archive"
	"github.com/obscura-sec/warden/pkg/caze"
	"github.com/obscura-sec/warden/pkg/config"
	"github.com/obscura-sec/warden/pkg/logging"
	"github.com/obscura-sec/warden/pkg/pipeline"
	"github.com/obscura-sec/warden/pkg/plugin"
	"github.com/obscura-sec/warden/pkg/ruleset"

	_ "github.com/obscura-sec/warden/pkg/plugin/callback"
	_ "github.com/obscura-sec/warden/pkg/plugin/post"
	_ "github.com/obscura-sec/warden/pkg/plugin/pre"
)

var (
	scanRulesDir     string
	scanCaseDir      string
	scanConfigPath   string
	scanPreModule    string
	scanProcesses    int
	scanFast         bool
	scanFormat       string
	scanHashes       []string
	scanCallbacks    []string
	scanPosts        []string
	scanNeutralize   bool
	scanIgnoreWarn   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <target>",
	Short: "Scan a target against a ruleset",
	Long:  "Compile a directory of YARA rules and match it against a target (a file, or an archive/mail expanded by a pre-processing module)",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanRulesDir, "rules", "", "directory of .yar/.yara rule files (required)")
	scanCmd.Flags().StringVar(&scanCaseDir, "case", "", "case directory to write results into (required)")
	scanCmd.Flags().StringVar(&scanConfigPath, "config", "", "YAML configuration file overlaying the defaults")
	scanCmd.Flags().StringVar(&scanPreModule, "pre", "raw", "pre-processing module expanding the target into evidence (raw, archive, mail)")
	scanCmd.Flags().IntVar(&scanProcesses, "processes", 0, "worker count (0 = detect CPU count)")
	scanCmd.Flags().BoolVar(&scanFast, "fast", false, "enable YARA fast matching mode")
	scanCmd.Flags().StringVar(&scanFormat, "format", "json", "output format (json is the only wired format)")
	scanCmd.Flags().StringSliceVar(&scanHashes, "hash-algorithms", []string{"sha256"}, "hash algorithms to compute per match (md5, sha1, sha256, sha512)")
	scanCmd.Flags().StringSliceVar(&scanCallbacks, "callbacks", nil, "callback modules to invoke per match (tail, validate)")
	scanCmd.Flags().StringSliceVar(&scanPosts, "post", nil, "post-processing modules to run once scanning ends (sarif)")
	scanCmd.Flags().BoolVar(&scanNeutralize, "neutralize", false, "neutralize archived copies of matching evidence")
	scanCmd.Flags().BoolVar(&scanIgnoreWarn, "ignore-warnings", false, "do not treat YARA compiler warnings as fatal for a ruleset")

	scanCmd.MarkFlagRequired("rules")
	scanCmd.MarkFlagRequired("case")
}

func runScan(cmd *cobra.Command, args []string) error {
	target := args[0]

	minLevel := logging.LevelInfo
	if verbose {
		minLevel = logging.LevelDebug
	} else if quiet {
		minLevel = logging.LevelWarning
	}
	log := logging.New(minLevel)

	if scanFormat != "json" {
		return fmt.Errorf("unsupported output format %q (only json is wired)", scanFormat)
	}

	snap := config.Default()
	if scanConfigPath != "" {
		loaded, err := config.Load(scanConfigPath)
		if err != nil {
			return err
		}
		snap = loaded
	}
	snap.Arguments.Processes = scanProcesses
	snap.Arguments.Fast = scanFast
	snap.Arguments.Format = scanFormat
	snap.Arguments.HashAlgorithms = scanHashes
	snap.Arguments.Callbacks = scanCallbacks
	snap.Arguments.Post = scanPosts
	snap.Arguments.IgnoreWarnings = scanIgnoreWarn
	if scanNeutralize {
		snap.Tunables.NeutralizeMatchingEvidences = true
	}

	c, err := caze.New(scanCaseDir, snap, log)
	if err != nil {
		return err
	}
	caseLog, err := logging.WithCaseFile(log, c.LogPath)
	if err != nil {
		return err
	}
	c.Log = caseLog
	defer caseLog.Close()
	defer c.TearDown()

	pre, err := plugin.LookupPre(scanPreModule)
	if err != nil {
		return fmt.Errorf("resolving pre-processing module: %w", err)
	}
	trackedFiles, cleanup, err := pre.Run(target)
	if err != nil {
		return fmt.Errorf("pre-processing target %s: %w", target, err)
	}
	if cleanup != nil {
		defer cleanup()
	}
	c.TrackFiles(trackedFiles)

	store, rulesetsLoaded, rulesLoaded, err := ruleset.Compile(scanRulesDir, ruleset.Options{
		Includes:       snap.Tunables.YaraIncludes,
		ErrorOnWarning: snap.Tunables.YaraErrorOnWarning && !snap.Arguments.IgnoreWarnings,
	}, caseLog)
	if err != nil {
		return fmt.Errorf("compiling rulesets: %w", err)
	}
	if rulesetsLoaded == 0 {
		return fmt.Errorf("no rulesets loaded from %s", scanRulesDir)
	}
	caseLog.Infof("compiled %d ruleset(s), %d rule(s) total", rulesetsLoaded, rulesLoaded)

	callbacks, err := plugin.LookupCallbacks(snap.Arguments.Callbacks)
	if err != nil {
		return fmt.Errorf("resolving callbacks: %w", err)
	}
	posts, err := plugin.LookupPosts(snap.Arguments.Post)
	if err != nil {
		return fmt.Errorf("resolving post-processing modules: %w", err)
	}

	// Only the parent reacts to the interactive interrupt (spec section 5);
	// workers observe cancellation through ctx, never a signal handler of
	// their own.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state, matched, err := pipeline.Run(ctx, pipeline.Config{
		Evidences:    c.Evidences(),
		Store:        store,
		MatchesPath:  c.MatchesPath,
		Arguments:    snap.Arguments,
		Tunables:     snap.Tunables,
		Callbacks:    callbacks,
		Log:          caseLog,
		DetectedCPUs: runtime.NumCPU(),
	})
	if err != nil {
		return fmt.Errorf("running scan: %w", err)
	}

	if err := archive.Run(c.StorageDir, matched, snap.Tunables.NeutralizeMatchingEvidences, caseLog); err != nil {
		return fmt.Errorf("archiving matched evidence: %w", err)
	}

	if state.MatchCount() > 0 {
		for _, post := range posts {
			if err := post.Run(c); err != nil {
				caseLog.Exceptionf(err, "post-processing module %s failed", post.Name())
			}
		}
	}

	return nil
}
