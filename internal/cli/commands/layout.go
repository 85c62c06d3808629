package commands

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"

	"github.com/leapstack-labs/recvariant/internal/cli/output"
	"github.com/leapstack-labs/recvariant/pkg/tree"
	"github.com/leapstack-labs/recvariant/pkg/variant"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LayoutOptions holds options for the layout command.
type LayoutOptions struct {
	Forward []string
}

// SlotInfo describes one alternative of a planned layout.
type SlotInfo struct {
	Index          int    `json:"index"`
	Alternative    string `json:"alternative"`
	Type           string `json:"type"`
	Representation string `json:"representation"`
}

// LayoutOutput is the JSON form of the layout command.
type LayoutOutput struct {
	Sum     string     `json:"sum"`
	Forward []string   `json:"forward,omitempty"`
	Slots   []SlotInfo `json:"slots"`
	Cycle   []string   `json:"cycle,omitempty"`
	Order   []string   `json:"order"`
}

// NewLayoutCommand creates the layout command.
func NewLayoutCommand() *cobra.Command {
	opts := &LayoutOptions{}

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Show how Tree's alternatives are stored",
		Long: `Show the representation chosen for each alternative of Tree and the
containment cycle that makes Tree recursive.

With --forward the same alternatives are planned again in a fresh scope in
which the named types are declared but not yet defined. Any alternative
that reaches such a type by value is then boxed as well.`,
		Example: `  recvariant layout
  recvariant layout --forward Leaf
  recvariant layout -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			if !cmd.Flags().Changed("forward") {
				opts.Forward = cmdCtx.Cfg.Forward
			}

			out, err := planLayout(opts.Forward, cmdCtx.Logger)
			if err != nil {
				return err
			}
			return renderLayout(cmdCtx.Renderer, out)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Forward, "forward", nil, "Types to forward-declare before planning (Tree, Leaf, Branch)")
	_ = cmd.RegisterFlagCompletionFunc("forward", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return knownTypes(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func knownTypes() []string {
	names := make([]string, 0, len(tree.Types()))
	for name := range tree.Types() {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// planLayout returns the declared Tree layout, or with forward set, the
// layout the same alternatives get in a fresh scope where those types are
// still pending.
func planLayout(forward []string, logger *slog.Logger) (*LayoutOutput, error) {
	declared := tree.Layout()
	slots := declared.Slots()

	if len(forward) > 0 {
		known := tree.Types()
		types := make([]reflect.Type, 0, len(forward))
		for _, name := range forward {
			t, ok := known[name]
			if !ok {
				return nil, fmt.Errorf("unknown type %q (available: %s)", name, strings.Join(knownTypes(), ", "))
			}
			types = append(types, t)
		}

		scope := variant.NewScope(variant.WithLogger(logger))
		scope.Forward(types...)
		slots = scope.Select(declared.Name(), declared.Type(), tree.Alternatives()...)
	}

	order, err := variant.DefaultScope().Order()
	if err != nil {
		return nil, fmt.Errorf("failed to order declarations: %w", err)
	}

	out := &LayoutOutput{
		Sum:     declared.Name(),
		Forward: forward,
		Slots:   make([]SlotInfo, len(slots)),
		Cycle:   variant.DefaultScope().Cycle(declared.Name()),
		Order:   order,
	}
	for i, sl := range slots {
		out.Slots[i] = SlotInfo{
			Index:          sl.Index,
			Alternative:    sl.Name,
			Type:           sl.Type.String(),
			Representation: sl.Rep.String(),
		}
	}
	return out, nil
}

func renderLayout(r *output.Renderer, out *LayoutOutput) error {
	mode := r.EffectiveMode()
	if mode == output.ModeJSON {
		return r.JSON(out)
	}

	styles := r.Styles()
	titleCaser := cases.Title(language.English)

	r.Header(1, fmt.Sprintf("%s layout", out.Sum))
	if len(out.Forward) > 0 {
		r.KeyValue("Forward-declared", strings.Join(out.Forward, ", "))
	}

	rows := make([][]any, len(out.Slots))
	for i, sl := range out.Slots {
		rep := titleCaser.String(sl.Representation)
		if mode == output.ModeText {
			if sl.Representation == variant.Boxed.String() {
				rep = styles.Boxed.Render(rep)
			} else {
				rep = styles.Bare.Render(rep)
			}
		}
		rows[i] = []any{sl.Index, sl.Alternative, sl.Type, rep}
	}
	r.Table([]string{"Index", "Alternative", "Type", "Representation"}, rows)

	if mode == output.ModeMarkdown {
		r.Println("")
	}
	cycle := "none"
	if len(out.Cycle) > 0 {
		cycle = strings.Join(out.Cycle, " -> ")
	}
	r.KeyValue("Cycle", cycle)
	r.KeyValue("Order", strings.Join(out.Order, ", "))
	return nil
}
