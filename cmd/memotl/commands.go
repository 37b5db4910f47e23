package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/memotl"
	"github.com/ZaguanLabs/memotl/config"
	"github.com/ZaguanLabs/memotl/provider"
	"github.com/ZaguanLabs/memotl/server"
)

func newTranslateCmd(flags *globalFlags) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "translate TEXT...",
		Short: "Translate texts through the cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			src, tgt := pick(from, a.cfg.SourceLang), pick(to, a.cfg.TargetLang)
			out := cmd.OutOrStdout()
			for i, res := range translateAll(cmd, a, args, src, tgt) {
				fmt.Fprintf(out, "%s\t%s\t%s\n", args[i], res.Text, res.Outcome)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "source language (default from config)")
	cmd.Flags().StringVar(&to, "to", "", "target language (default from config)")
	return cmd
}

func newWarmCmd(flags *globalFlags) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "warm FILE",
		Short: "Pre-fill the cache from a file with one text per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			texts, err := readLines(args[0])
			if err != nil {
				return err
			}

			a, err := flags.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			src, tgt := pick(from, a.cfg.SourceLang), pick(to, a.cfg.TargetLang)
			cached, translated, failed := a.translator.Warm(cmd.Context(), texts, src, tgt)
			fmt.Fprintf(cmd.OutOrStdout(), "%d texts: %d cached, %d translated, %d failed\n",
				len(texts), cached, translated, failed)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "source language (default from config)")
	cmd.Flags().StringVar(&to, "to", "", "target language (default from config)")
	return cmd
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API used by host plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.NewServer(a.translator, a.store, a.logger, server.Options{
				Host:       a.cfg.Server.Host,
				Port:       a.cfg.Server.Port,
				SourceLang: a.cfg.SourceLang,
				TargetLang: a.cfg.TargetLang,
				Disabled:   !a.cfg.Enabled,
			})
			return srv.Start(cmd.Context())
		},
	}
}

func newModelsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models installed on the Ollama server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := flags.loadConfig()
			if err != nil {
				return err
			}

			models, err := provider.ListOllamaModels(cmd.Context(), cfg.Ollama.URL)
			if err != nil {
				return fmt.Errorf("listing models at %s: %w", cfg.Ollama.URL, err)
			}
			for _, m := range models {
				fmt.Fprintln(cmd.OutOrStdout(), m)
			}
			return nil
		},
	}
}

func newCacheCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the translation cache",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Show cached translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, e := range a.store.Entries(limit) {
				fmt.Fprintf(w, "%s\t%s\n", e.Key, e.Value)
			}
			return w.Flush()
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum entries to show (0 = all)")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show the number of cached translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "entries: %d\n", a.store.Stats().Count)
			return nil
		},
	}

	export := &cobra.Command{
		Use:   "export FILE",
		Short: "Write the cache snapshot to FILE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.ExportToFile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d entries to %s\n", a.store.Len(), args[0])
			return nil
		},
	}

	imp := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the cache with the snapshot in FILE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.ImportFromFile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries\n", a.store.Len())
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached translation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n := a.store.Len()
			a.store.Clear()
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %d entries\n", n)
			return nil
		},
	}

	cmd.AddCommand(list, stats, export, imp, clearCmd)
	return cmd
}

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to --config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(flags.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", flags.configPath)
			}
			if err := config.Save(flags.configPath, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", flags.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective backend settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := flags.loadConfig()
			if err != nil {
				return err
			}

			bc := cfg.Backend()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "service\t%s\n", bc.Service)
			fmt.Fprintf(w, "languages\t%s -> %s\n", memotl.LanguageName(cfg.SourceLang), memotl.LanguageName(cfg.TargetLang))
			fmt.Fprintf(w, "enabled\t%t\n", cfg.Enabled)
			if cfg.Cache.RedisURL != "" {
				fmt.Fprintf(w, "cache\tredis %s\n", cfg.Cache.RedisKey)
			} else {
				fmt.Fprintf(w, "cache\t%s\n", cfg.Cache.File)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(initCmd, show)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", memotl.Name, memotl.FullVersion())
			for _, field := range []struct{ label, value string }{
				{"commit", memotl.GitCommit},
				{"branch", memotl.GitBranch},
				{"built", memotl.BuildDate},
				{"go", memotl.GoVersion},
			} {
				if field.value != "unknown" && field.value != "" {
					fmt.Fprintf(out, "  %-8s %s\n", field.label+":", field.value)
				}
			}
		},
	}
}

func translateAll(cmd *cobra.Command, a *app, texts []string, src, tgt string) []memotl.Result {
	if len(texts) == 1 {
		return []memotl.Result{a.translator.Lookup(cmd.Context(), texts[0], src, tgt)}
	}
	return a.translator.TranslateAll(cmd.Context(), texts, src, tgt)
}

// readLines returns the non-blank lines of path.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var texts []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			texts = append(texts, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return texts, nil
}

func pick(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
