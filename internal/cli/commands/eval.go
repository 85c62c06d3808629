package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/recvariant/internal/cli/output"
	"github.com/leapstack-labs/recvariant/pkg/tree"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// watchDebounce coalesces the bursts of events editors produce on save.
const watchDebounce = 100 * time.Millisecond

// EvalOptions holds options for the eval command.
type EvalOptions struct {
	Scale int
	Watch bool
}

// EvalResult is the report for one input file.
type EvalResult struct {
	File   string        `json:"file"`
	Sum    int           `json:"sum"`
	Depth  int           `json:"depth"`
	Leaves int           `json:"leaves"`
	Form   string        `json:"form"`
	Tree   any           `json:"tree"`
	Scaled *ScaledResult `json:"scaled,omitempty"`
}

// ScaledResult describes the scaled copy of a tree.
type ScaledResult struct {
	Factor int    `json:"factor"`
	Sum    int    `json:"sum"`
	Form   string `json:"form"`
	Tree   any    `json:"tree"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand() *cobra.Command {
	opts := &EvalOptions{}

	cmd := &cobra.Command{
		Use:   "eval FILE...",
		Short: "Evaluate trees read from YAML files",
		Long: `Decode each file as a Tree and report its sum, depth, leaf count and
canonical form.

A node is written as "leaf: N" or "branch: [A, B]". A bare integer is
shorthand for a leaf and a two-element sequence for a branch.`,
		Example: `  recvariant eval tree.yaml
  recvariant eval --scale 10 a.yaml b.yaml
  recvariant eval --watch tree.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			if !cmd.Flags().Changed("scale") {
				opts.Scale = cmdCtx.Cfg.Scale
			}
			return runEval(cmd.Context(), cmdCtx, args, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Scale, "scale", 1, "Multiply every leaf of a copy of each tree by N")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-evaluate files when they change")

	return cmd
}

func runEval(ctx context.Context, cmdCtx *CommandContext, files []string, opts *EvalOptions) error {
	if opts.Scale == 0 {
		return fmt.Errorf("scale must be non-zero")
	}

	results, err := evalFiles(ctx, files, opts.Scale, cmdCtx.Logger)
	if err != nil {
		return err
	}
	if err := renderEval(cmdCtx.Renderer, results); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fw, err := newFileWatcher(files, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer fw.Close()

	if cmdCtx.Renderer.EffectiveMode() != output.ModeJSON {
		cmdCtx.Renderer.Muted(fmt.Sprintf("Watching %d file(s) for changes (Ctrl+C to stop)", len(files)))
	}
	return fw.Run(ctx, func(file string) {
		res, err := evalFile(file, opts.Scale)
		if err != nil {
			cmdCtx.Renderer.Error(err.Error())
			return
		}
		_ = renderEval(cmdCtx.Renderer, []EvalResult{res})
	})
}

// evalFiles evaluates every file concurrently. Results keep the order of files.
func evalFiles(ctx context.Context, files []string, scale int, logger *slog.Logger) ([]EvalResult, error) {
	results := make([]EvalResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := evalFile(file, scale)
			if err != nil {
				return err
			}
			logger.Debug("evaluated tree", "file", file, "sum", res.Sum, "depth", res.Depth)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func evalFile(path string, scale int) (EvalResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EvalResult{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	t, err := tree.Parse(data)
	if err != nil {
		return EvalResult{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	var scaled *ScaledResult
	if scale != 1 {
		s, err := tree.Scaled(t, scale)
		if err != nil {
			return EvalResult{}, fmt.Errorf("failed to scale %s: %w", path, err)
		}
		scaled = &ScaledResult{
			Factor: scale,
			Sum:    tree.Sum(s),
			Form:   tree.Format(s),
			Tree:   tree.Export(s),
		}
	}

	// The original is read after scaling so the report shows it untouched.
	return EvalResult{
		File:   path,
		Sum:    tree.Sum(t),
		Depth:  tree.Depth(t),
		Leaves: tree.Leaves(t),
		Form:   tree.Format(t),
		Tree:   tree.Export(t),
		Scaled: scaled,
	}, nil
}

func renderEval(r *output.Renderer, results []EvalResult) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(results)
	}

	scaled := false
	for _, res := range results {
		if res.Scaled != nil {
			scaled = true
		}
	}

	header := []string{"File", "Sum", "Depth", "Leaves", "Form"}
	if scaled {
		header = append(header, "Scaled Sum", "Scaled Form")
	}
	rows := make([][]any, 0, len(results))
	for _, res := range results {
		row := []any{res.File, res.Sum, res.Depth, res.Leaves, res.Form}
		if scaled {
			if res.Scaled != nil {
				row = append(row, fmt.Sprintf("%d (x%d)", res.Scaled.Sum, res.Scaled.Factor), res.Scaled.Form)
			} else {
				row = append(row, "", "")
			}
		}
		rows = append(rows, row)
	}

	r.Table(header, rows)
	return nil
}

// fileWatcher reports writes to a fixed set of files. It watches their
// directories so files replaced on save are still seen.
type fileWatcher struct {
	watcher *fsnotify.Watcher
	targets map[string]string // absolute path -> path as given
	logger  *slog.Logger
}

func newFileWatcher(files []string, logger *slog.Logger) (*fileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	fw := &fileWatcher{
		watcher: watcher,
		targets: make(map[string]string, len(files)),
		logger:  logger,
	}
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		fw.targets[abs] = f
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return fw, nil
}

// Run calls onChange for every changed file until ctx is cancelled. Calls
// are serialised.
func (fw *fileWatcher) Run(ctx context.Context, onChange func(file string)) error {
	timers := make(map[string]*time.Timer)
	fired := make(chan string)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case file := <-fired:
			delete(timers, file)
			onChange(file)

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			file, ok := fw.targets[filepath.Clean(event.Name)]
			if !ok {
				continue
			}
			fw.logger.Debug("file changed", "file", file, "op", event.Op.String())

			if t, ok := timers[file]; ok {
				t.Stop()
			}
			timers[file] = time.AfterFunc(watchDebounce, func() {
				select {
				case fired <- file:
				case <-ctx.Done():
				}
			})

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			fw.logger.Error("watcher error", "error", err)
		}
	}
}

// Close stops watching.
func (fw *fileWatcher) Close() error {
	return fw.watcher.Close()
}
