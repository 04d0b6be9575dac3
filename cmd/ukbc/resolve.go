package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ukernel/internal/config"
	"ukernel/internal/observ"
	"ukernel/internal/pipeline"
	"ukernel/internal/target"
	"ukernel/internal/trace"
	"ukernel/internal/ukernel"
)

var (
	resolveEmitDir string
	resolveVerbose bool
	resolveJobs    int
)

func init() {
	resolveCmd.Flags().StringVar(&resolveEmitDir, "emit-llvm", "", "write resolved modules as .ll files under this directory")
	resolveCmd.Flags().BoolVarP(&resolveVerbose, "verbose", "v", false, "list functions and their remaining target attributes")
	resolveCmd.Flags().IntVarP(&resolveJobs, "jobs", "j", 0, "targets resolved in parallel (0 = GOMAXPROCS)")
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [triple...]",
	Short: "Resolve base and architecture modules for target triples",
	Long: `Resolve loads the base module matching each target's pointer width and the
architecture-specific module when the catalog has one. Without arguments the
triples come from [resolve].triples in ukbc.toml, or the host triple.`,
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	targets, err := resolveTargets(args, cfg)
	if err != nil {
		return err
	}
	tbl, _, err := openCatalog(cmd, cfg)
	if err != nil {
		return err
	}
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()
	tracer, cleanup, err := setupTracing(cmd, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	var timer *observ.Timer
	if showTimings {
		timer = observ.NewTimer()
	}

	jobs := resolveJobs
	if !cmd.Flags().Changed("jobs") {
		jobs = cfg.Resolve.Jobs
	}

	results, loadErr := pipeline.Load(cmd.Context(), &pipeline.Request{
		Targets: targets,
		Catalog: tbl,
		Jobs:    jobs,
		Timer:   timer,
	})

	out := cmd.OutOrStdout()
	if !quietFlag(cmd) {
		printResults(out, results, resolveVerbose)
	}
	if loadErr == nil && resolveEmitDir != "" {
		idx := timer.Begin("emit-llvm")
		paths, err := emitLLVM(resolveEmitDir, results)
		timer.End(idx, fmt.Sprintf("%d files", len(paths)))
		if err != nil {
			return err
		}
		if !quietFlag(cmd) {
			for _, p := range paths {
				fmt.Fprintf(out, "wrote %s\n", p)
			}
		}
	}
	if timer != nil {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}

	if loadErr != nil {
		if ring, ok := trace.RingOf(tracer); ok {
			fmt.Fprintln(cmd.ErrOrStderr(), "trace (last events):")
			if err := ring.Dump(cmd.ErrOrStderr(), trace.FormatText); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		return loadErr
	}
	return nil
}

// resolveTargets picks the triples from the arguments, then the config,
// then the host.
func resolveTargets(args []string, cfg *config.Config) ([]target.Target, error) {
	if len(args) > 0 {
		targets := make([]target.Target, 0, len(args))
		for _, arg := range args {
			t, err := target.Parse(arg)
			if err != nil {
				return nil, err
			}
			targets = append(targets, t)
		}
		return targets, nil
	}
	if cfg != nil && len(cfg.Resolve.Triples) > 0 {
		return cfg.Targets()
	}
	return []target.Target{target.Host()}, nil
}

func outcomeLabel(o ukernel.Outcome) string {
	label := fmt.Sprintf("%-6s", o)
	switch o {
	case ukernel.OutcomeFound:
		return foundColor.Sprint(label)
	case ukernel.OutcomeAbsent:
		return absentColor.Sprint(label)
	case ukernel.OutcomeFailed:
		return failedColor.Sprint(label)
	}
	return label
}

func printResults(out io.Writer, results []pipeline.TargetResult, verbose bool) {
	for _, r := range results {
		if !r.Resolved() {
			continue
		}
		fmt.Fprintf(out, "%s %s\n", r.Target.Triple, dimColor.Sprintf("(%s, %s, %s)", r.Target.Width, archOrNone(r.Target), r.Duration.Round(time.Microsecond)))
		printModule(out, "base", r.Base, verbose)
		if r.Arch.Outcome != 0 {
			printModule(out, "arch", r.Arch, verbose)
		}
	}
}

func archOrNone(t target.Target) string {
	if t.ArchName() == "" || t.ArchName() == target.UnknownArch {
		return "no arch"
	}
	return t.ArchName()
}

func printModule(out io.Writer, role string, res ukernel.Result, verbose bool) {
	name := res.Name
	if name == "" {
		name = "-"
	}
	switch {
	case res.Found():
		detail := fmt.Sprintf("%d funcs", len(res.Module.Funcs))
		if res.Stripped > 0 {
			detail += fmt.Sprintf(", %d target attrs stripped", res.Stripped)
		}
		fmt.Fprintf(out, "  %-4s  %s  %s  %s\n", role, outcomeLabel(res.Outcome), name, dimColor.Sprint(detail))
		if verbose {
			for _, f := range res.Module.Funcs {
				attrs := "clean"
				if keys := ukernel.TargetAttrs(f); len(keys) > 0 {
					attrs = strings.Join(keys, ", ")
				}
				fmt.Fprintf(out, "          %s: %s\n", f.Ident(), attrs)
			}
		}
	case res.Failed():
		fmt.Fprintf(out, "  %-4s  %s  %s  %v\n", role, outcomeLabel(res.Outcome), name, res.Err)
	default:
		fmt.Fprintf(out, "  %-4s  %s  %s\n", role, outcomeLabel(res.Outcome), name)
	}
}

// emitLLVM writes every resolved module to dir/<triple>/<name>.ll.
func emitLLVM(dir string, results []pipeline.TargetResult) ([]string, error) {
	var paths []string
	for _, r := range results {
		mods := []ukernel.Result{r.Base, r.Arch}
		sub, err := tripleDir(r.Target.Triple)
		if err != nil {
			return paths, err
		}
		targetDir := filepath.Join(dir, sub)
		for _, res := range mods {
			if !res.Found() {
				continue
			}
			if err := os.MkdirAll(targetDir, 0o755); err != nil {
				return paths, fmt.Errorf("failed to create %s: %w", targetDir, err)
			}
			path := filepath.Join(targetDir, strings.TrimSuffix(res.Name, ".bc")+".ll")
			if err := os.WriteFile(path, []byte(res.Module.String()), 0o644); err != nil {
				return paths, fmt.Errorf("failed to write %s: %w", path, err)
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// tripleDir returns the directory name for a triple under the emit
// directory. Triples come from the command line and config files, so one
// that is not a single local path element is refused.
func tripleDir(triple string) (string, error) {
	if strings.ContainsAny(triple, `/\:`) || strings.IndexByte(triple, 0) >= 0 || !filepath.IsLocal(triple) {
		return "", fmt.Errorf("triple %q cannot be used as a directory name", triple)
	}
	return triple, nil
}
