// Command memotl translates short texts through a persistent cache in front
// of a local model server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/memotl"
	"github.com/ZaguanLabs/memotl/cache"
	"github.com/ZaguanLabs/memotl/config"
	"github.com/ZaguanLabs/memotl/internal/logging"
	"github.com/ZaguanLabs/memotl/provider"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	stderr     io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{stderr: stderr}

	root := &cobra.Command{
		Use:   "memotl",
		Short: memotl.Description,
		Long: `memotl answers translation requests from a persistent cache and sends
cache misses to a local model server (Ollama or LM Studio). Concurrent
requests for the same text share a single backend call.

Example:
  memotl translate オーブ         # translate one text
  memotl warm texts.txt           # pre-fill the cache, one text per line
  memotl serve                    # HTTP API for host plugins`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       memotl.FullVersion(),
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&flags.configPath, "config", "memotl.yaml", "config file (YAML, JSON or TOML)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newTranslateCmd(flags),
		newWarmCmd(flags),
		newServeCmd(flags),
		newModelsCmd(flags),
		newCacheCmd(flags),
		newConfigCmd(flags),
		newVersionCmd(),
	)
	return root
}

// app is everything a command needs once the configuration is loaded.
type app struct {
	cfg        config.Config
	logger     zerolog.Logger
	store      *cache.Store
	translator *memotl.Translator
	closer     io.Closer
}

func (f *globalFlags) loadConfig() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, zerolog.Logger{}, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}

	logger, err := logging.NewWithWriter(f.stderr, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return config.Config{}, zerolog.Logger{}, err
	}
	return cfg, logger, nil
}

// setup opens the cache and resolves the backend.
func (f *globalFlags) setup(ctx context.Context) (*app, error) {
	cfg, logger, err := f.loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	var persister cache.Persister
	if cfg.Cache.RedisURL != "" {
		redisPersister, err := cache.NewRedisPersister(cache.RedisConfig{
			URL: cfg.Cache.RedisURL,
			Key: cfg.Cache.RedisKey,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		persister = redisPersister
		a.closer = redisPersister
	} else {
		persister = cache.NewFilePersister(cfg.Cache.File)
	}
	a.store = cache.Open(ctx, persister, cache.WithLogger(logger))

	backend := provider.New(cfg.Backend())
	a.translator = memotl.NewTranslator(a.store, backend,
		memotl.WithLogger(logger),
		memotl.WithWaitTimeout(cfg.Timeouts.Wait),
		memotl.WithHistory(100),
	)

	logger.Debug().
		Str("backend", backend.Name()).
		Str("source_lang", cfg.SourceLang).
		Str("target_lang", cfg.TargetLang).
		Int("cached", a.store.Len()).
		Msg("memotl ready")
	return a, nil
}

func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
