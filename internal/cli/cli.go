package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"envlens/internal/config"
	"envlens/internal/detect"
	"envlens/internal/fsio"
	"envlens/internal/loader"
	"envlens/internal/parser"
	"envlens/internal/textutil"
	"envlens/internal/watcher"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// Execute runs the CLI application.
func Execute() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	rootCmd := &cobra.Command{
		Use:   "envlens",
		Short: "Typed inspector for .env files",
		Long:  "envlens parses .env-style files into typed, source-attributed variables: values are classified (boolean, number, url, database_url, ...), ${NAME} references can be resolved, and unchanged files are served from cache.",
	}

	rootCmd.AddCommand(scanCmd(cfg))
	rootCmd.AddCommand(getCmd(cfg))
	rootCmd.AddCommand(watchCmd(cfg))
	rootCmd.AddCommand(typesCmd(cfg))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("level", level).Msg("Unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func scanCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [path ...]",
		Short: "Parse env files and print their typed variables",
		Long: `Parses the given env files and prints every variable with its detected
type. Paths may be files or directories; directories contribute their
env files in conventional order (.env, .env.local, .env.*, *.env).
With no paths, the current directory is scanned.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args)
		},
	}

	addParseFlags(cmd, cfg)
	cmd.Flags().Int("workers", cfg.Workers, "Concurrent file loads")
	cmd.Flags().Bool("json", false, "Emit results as JSON")

	return cmd
}

func getCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key> [path ...]",
		Short: "Print one variable's resolved value",
		Long: `Looks up a single variable across the given env files. Files are
consulted in argument order and later files shadow earlier ones, so
"get KEY .env .env.local" prefers the .env.local definition.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, args)
		},
	}

	addParseFlags(cmd, cfg)
	cmd.Flags().Int("workers", cfg.Workers, "Concurrent file loads")
	cmd.Flags().Bool("json", false, "Emit the full variable record as JSON")
	cmd.Flags().Bool("verbose", false, "Print the detected type and source alongside the value")

	return cmd
}

func watchCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [path ...]",
		Short: "Watch env files and reparse them on change",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args)
		},
	}

	addParseFlags(cmd, cfg)
	cmd.Flags().Int("workers", cfg.Workers, "Concurrent file loads")

	return cmd
}

func typesCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List active type matchers in priority order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypes(cmd)
		},
	}

	cmd.Flags().Bool("no-types", false, "Disable all built-in type matchers")
	cmd.Flags().StringSlice("disable-type", nil, "Disable a built-in type matcher by name (repeatable)")
	cmd.Flags().String("types-file", cfg.TypesFile, "Path to a JSONC file with custom type definitions")

	return cmd
}

func addParseFlags(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().Bool("interpolate", cfg.Interpolate, "Resolve ${NAME} references between variables")
	cmd.Flags().Bool("no-types", false, "Disable all built-in type matchers")
	cmd.Flags().StringSlice("disable-type", nil, "Disable a built-in type matcher by name (repeatable)")
	cmd.Flags().String("types-file", cfg.TypesFile, "Path to a JSONC file with custom type definitions")
}

// runScan handles the `scan` command.
func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupContext()
	defer cancel()

	paths, err := resolvePaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		log.Warn().Msg("No env files found")
		return nil
	}

	opts, err := buildOptions(cmd)
	if err != nil {
		return err
	}
	workers, _ := cmd.Flags().GetInt("workers")
	asJSON, _ := cmd.Flags().GetBool("json")

	l := loader.New(fsio.NewOS(), workers)
	results, errs := l.ParseFiles(ctx, paths, opts)

	if asJSON {
		return printJSON(results, errs)
	}
	printResults(paths, results, errs)

	if len(results) == 0 && len(errs) > 0 {
		return fmt.Errorf("no files loaded")
	}
	return nil
}

// runGet handles the `get` command.
func runGet(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupContext()
	defer cancel()

	key := args[0]
	paths, err := resolvePaths(args[1:])
	if err != nil {
		return err
	}
	opts, err := buildOptions(cmd)
	if err != nil {
		return err
	}
	workers, _ := cmd.Flags().GetInt("workers")

	l := loader.New(fsio.NewOS(), workers)
	results, errs := l.ParseFiles(ctx, paths, opts)
	for path, err := range errs {
		log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable file")
	}

	// Later files shadow earlier ones, so walk in argument order and
	// keep the last definition.
	var found parser.Variable
	defined := false
	for _, path := range paths {
		if v, ok := results[path][key]; ok {
			found = v
			defined = true
		}
	}
	if !defined {
		return fmt.Errorf("%s is not defined in the scanned files", key)
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		data, err := json.MarshalIndent(found, "", "  ")
		if err != nil {
			return fmt.Errorf("encode variable: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		fmt.Printf("%s  (%s, %s)\n", found.Value, found.Type, found.SourceFile)
		return nil
	}
	fmt.Println(found.Value)
	return nil
}

// runWatch handles the `watch` command.
func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupContext()
	defer cancel()

	paths, err := resolvePaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no env files to watch")
	}

	opts, err := buildOptions(cmd)
	if err != nil {
		return err
	}
	workers, _ := cmd.Flags().GetInt("workers")

	l := loader.New(fsio.NewOS(), workers)
	results, errs := l.ParseFiles(ctx, paths, opts)
	log.Info().
		Int("files", len(results)).
		Int("errors", len(errs)).
		Msg("Initial scan complete")

	w, err := watcher.New(paths, func(path string) {
		l.Invalidate(path)
		results, errs := l.ParseFiles(ctx, []string{path}, opts)
		if err, ok := errs[path]; ok {
			log.Error().Err(err).Str("path", path).Msg("Reload failed")
			return
		}
		log.Info().Str("path", path).Int("variables", len(results[path])).Msg("Reloaded")
	})
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	w.Start()
	defer w.Stop()

	log.Info().Int("files", len(paths)).Msg("Watching for changes, Ctrl-C to stop")
	<-ctx.Done()
	return nil
}

// runTypes handles the `types` command.
func runTypes(cmd *cobra.Command) error {
	opts, err := buildOptions(cmd)
	if err != nil {
		return err
	}

	p := parser.New(opts)
	for _, name := range p.TypeNames() {
		fmt.Println(name)
	}
	return nil
}

// buildOptions assembles parser options from the command flags.
// Flags a command does not define simply read as their zero values.
func buildOptions(cmd *cobra.Command) (parser.Options, error) {
	interpolate, _ := cmd.Flags().GetBool("interpolate")
	noTypes, _ := cmd.Flags().GetBool("no-types")
	disabled, _ := cmd.Flags().GetStringSlice("disable-type")
	typesFile, _ := cmd.Flags().GetString("types-file")

	opts := parser.Options{Interpolate: interpolate}

	if noTypes || len(disabled) > 0 {
		sel := &detect.Selection{DisableAll: noTypes}
		if len(disabled) > 0 {
			sel.Enabled = make(map[string]bool, len(disabled))
			for _, name := range disabled {
				sel.Enabled[name] = false
			}
		}
		opts.Types = sel
	}

	if typesFile != "" {
		custom, err := config.LoadTypesFile(typesFile)
		if err != nil {
			return parser.Options{}, fmt.Errorf("load custom types: %w", err)
		}
		opts.CustomTypes = custom
	}
	return opts, nil
}

// resolvePaths expands command arguments into absolute env file
// paths. Directory arguments contribute their env files in
// conventional order; no arguments means the current directory.
func resolvePaths(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	osFs := afero.NewOsFs()

	var paths []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", arg, err)
		}
		info, err := osFs.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(abs)
			continue
		}
		found, err := fsio.FindEnvFiles(osFs, abs)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			add(p)
		}
	}
	return paths, nil
}

func printResults(paths []string, results map[string]map[string]parser.Variable, errs map[string]error) {
	for _, path := range paths {
		if err, ok := errs[path]; ok {
			log.Error().Err(err).Str("path", path).Msg("Failed to load")
			continue
		}
		vars, ok := results[path]
		if !ok {
			continue
		}

		fmt.Printf("%s (%d variables)\n", path, len(vars))

		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := vars[k]
			line := fmt.Sprintf("  %-28s %-12s %s", v.Key, v.Type, textutil.Truncate(v.Value, 60))
			if v.Comment != "" {
				line += "  # " + v.Comment
			}
			fmt.Println(line)
		}
		fmt.Println()
	}
}

func printJSON(results map[string]map[string]parser.Variable, errs map[string]error) error {
	payload := struct {
		Results map[string]map[string]parser.Variable `json:"results"`
		Errors  map[string]string                      `json:"errors,omitempty"`
	}{Results: results}

	if len(errs) > 0 {
		payload.Errors = make(map[string]string, len(errs))
		for path, err := range errs {
			payload.Errors[path] = err.Error()
		}
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Warn().Msg("Received shutdown signal, cancelling...")
		cancel()
	}()

	return ctx, cancel
}
