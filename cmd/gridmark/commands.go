package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gridmark/internal/codec"
	"gridmark/internal/config"
	"gridmark/internal/domain"
	"gridmark/internal/numbering"
	"gridmark/internal/service"
	"gridmark/internal/watcher"
)

// withApp runs fn with a wired app, closing it afterwards. ctx is
// cancelled on SIGINT or SIGTERM.
func withApp(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

// render writes v with the exporter for format, or as text when format is empty
func render(w io.Writer, format string, v any, text func(w *tabwriter.Writer)) error {
	if format != "" {
		exporter, err := codec.ForFormat(format)
		if err != nil {
			return err
		}
		return exporter.Export(v, w)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func outputFlag(cmd *cobra.Command, output *string) {
	cmd.Flags().StringVarP(output, "output", "o", "", "Output format ("+strings.Join(codec.Formats(), ", ")+"); text when empty")
}

func importCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import PROJECT.yaml",
		Short: "Load categories, grids and elements from a project file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				result, err := a.projects.ImportFile(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d categories, %d grids, %d elements\n",
					result.Categories, result.Grids, result.Elements)
				return nil
			})
		},
	}
}

func categoriesCmd(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List model categories that have elements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				usages, err := a.projects.Categories(ctx)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), output, usages, func(w *tabwriter.Writer) {
					fmt.Fprintln(w, "CATEGORY\tELEMENTS\tBINDABLE")
					for _, u := range usages {
						fmt.Fprintf(w, "%s\t%d\t%t\n", u.Category.Name, u.ElementCount, u.Category.AllowsBoundParameters)
					}
				})
			})
		},
	}
	outputFlag(cmd, &output)
	return cmd
}

type numberOptions struct {
	category string
	start    string
	elements []string
	output   string
	progress bool
	watch    bool
	project  string
}

func numberCmd(opts *globalOptions) *cobra.Command {
	var nopts numberOptions

	cmd := &cobra.Command{
		Use:   "number",
		Short: "Number elements and write their grid squares",
		Long: `Number the selected elements in order, writing "Number" and "Grid Square"
on every element whose category the fields are bound to.

Elements are chosen by --category (all elements of that category, in model
order) or listed explicitly with --elements. --start names the reference
element and is required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if nopts.watch && nopts.project == "" {
				return errors.New("--watch requires --project")
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return runNumber(ctx, cmd, a, nopts)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&nopts.category, "category", "", "Category name to number")
	f.StringVar(&nopts.start, "start", "", "Reference element ID")
	f.StringSliceVar(&nopts.elements, "elements", nil, "Element IDs to number, in order")
	f.BoolVar(&nopts.progress, "progress", false, "Show progress on stderr")
	f.BoolVar(&nopts.watch, "watch", false, "Re-import --project and renumber whenever it changes")
	f.StringVar(&nopts.project, "project", "", "Project file imported before numbering")
	outputFlag(cmd, &nopts.output)
	return cmd
}

func runNumber(ctx context.Context, cmd *cobra.Command, a *app, nopts numberOptions) error {
	once := func(ctx context.Context) error {
		if nopts.project != "" {
			if _, err := a.projects.ImportFile(ctx, nopts.project); err != nil {
				return err
			}
		}

		var progress numbering.ProgressFunc
		if nopts.progress {
			progress = func(percent float64) {
				fmt.Fprintf(cmd.ErrOrStderr(), "\r%s", numbering.PercentText(percent))
				if percent >= 100 {
					fmt.Fprintln(cmd.ErrOrStderr())
				}
			}
		}

		result, err := a.numbering.Run(ctx, service.NumberingRequest{
			Category:       nopts.category,
			ElementIDs:     nopts.elements,
			StartElementID: nopts.start,
		}, progress)
		if err != nil {
			return describe(err)
		}
		return renderResult(cmd.OutOrStdout(), nopts.output, result)
	}

	if err := once(ctx); err != nil {
		if !nopts.watch {
			return err
		}
		a.logger.Error("numbering failed", "error", err)
	}
	if !nopts.watch {
		return nil
	}

	w := watcher.New(nopts.project, func(ctx context.Context, path string) error {
		return once(ctx)
	}).WithLogger(a.logger)

	if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func renderResult(w io.Writer, format string, result *domain.NumberingResult) error {
	return render(w, format, result, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "#\tELEMENT\tCATEGORY\tGRID SQUARE\tWRITTEN")
		for _, e := range result.Entries {
			label := e.Label
			if label == "" {
				label = "-"
			}
			written := strings.Join(e.Fields, ", ")
			if written == "" {
				written = "-"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.Ordinal, e.ElementID, e.Category, label, written)
		}
		if n := result.Unlabeled(); n > 0 {
			fmt.Fprintf(tw, "\n%d of %d elements have no grid square\n", n, len(result.Entries))
		}
	})
}

// describe turns precondition failures into the messages users expect
func describe(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotConfigured):
		return fmt.Errorf("%w: set definitions.path in the config or pass --definitions (create one with 'gridmark definitions init')", err)
	case errors.Is(err, domain.ErrEmptySelection):
		return fmt.Errorf("%w: pass --category or --elements", err)
	case errors.Is(err, domain.ErrMissingReference):
		return fmt.Errorf("%w: pass --start", err)
	}
	return err
}

func fieldsCmd(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fields",
		Short: "List shared field definitions and their category bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				groups, err := a.fields.ListFields(ctx)
				if err != nil {
					return describe(err)
				}
				return render(cmd.OutOrStdout(), output, groups, func(w *tabwriter.Writer) {
					fmt.Fprintln(w, "GROUP\tFIELD\tTYPE\tREGISTERED\tBOUND TO")
					for _, g := range groups {
						if len(g.Fields) == 0 {
							fmt.Fprintf(w, "%s\t-\t-\t-\t-\n", g.Name)
						}
						for _, f := range g.Fields {
							bound := "-"
							if f.Binding != nil {
								bound = strings.Join(f.Binding.CategoryIDs, ", ")
							}
							fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", g.Name, f.Definition.Name, f.Definition.Type, f.Registered, bound)
						}
					}
				})
			})
		},
	}
	outputFlag(cmd, &output)
	return cmd
}

func definitionsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "definitions",
		Short: "Manage the shared definition file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create an empty shared definition file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := service.InitDefinitionFile(cfg.Definitions.Path, cfg.Definitions.Group); err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", cfg.Definitions.Path)
			return nil
		},
	})
	return cmd
}

func configCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if path == "" {
				path = "(defaults)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config: %s\n%s\n", path, cfg.Summary())
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file (to --config, or the user config dir)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config %s already exists (use --force to overwrite)", path)
			}

			cfg := config.DefaultConfig()
			if err := applyOverrides(cfg, opts); err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	cmd.AddCommand(initCmd)
	return cmd
}
