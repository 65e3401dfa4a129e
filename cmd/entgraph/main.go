package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/entgraph/entgraph/internal/config"
	"github.com/entgraph/entgraph/internal/dataset"
	"github.com/entgraph/entgraph/internal/eventbus"
	"github.com/entgraph/entgraph/internal/executor"
	"github.com/entgraph/entgraph/internal/introspection"
	"github.com/entgraph/entgraph/internal/otel"
	"github.com/entgraph/entgraph/internal/resolver"
	"github.com/entgraph/entgraph/internal/schema"
	"github.com/entgraph/entgraph/internal/server"
	"github.com/entgraph/entgraph/internal/store"
)

const rootUsage = `entgraph — schema-typed entity store with a GraphQL query engine

USAGE:
  entgraph <command> [flags]

COMMANDS:
  serve            Run the HTTP GraphQL server over an entity store
  print-schema     Print the schema with its generated query surface
  validate         Validate a schema and its seed datasets
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -config <file>             YAML configuration file
  -schema <file>             Entity schema SDL file (required unless set in config)
  -data <file>               Seed dataset YAML file. Repeatable
  -server.addr <addr>        HTTP listen address (default: :8080)
  -server.pretty             Pretty-print JSON responses
  -server.timeout <duration> Per-request timeout, e.g. 10s (default: 10s)
  -server.cors <origin>      Allowed CORS origin. Repeatable
  -server.cache-size <n>     Result cache entries, 0 disables (default: 1024)
  -graphql.introspection     Enable GraphQL introspection (default: true)
  -otel.endpoint <addr>      OTLP collector endpoint
  -otel.service <name>       OpenTelemetry service name (default: entgraph)
  -watch                     Reload schema and datasets on file changes
`

const printSchemaUsage = `print-schema FLAGS:
  -schema <file>  Entity schema SDL file (required)
  -out <file>     Write rendered SDL to file (default: stdout)
`

const validateUsage = `validate FLAGS:
  -config <file>  YAML configuration file
  -schema <file>  Entity schema SDL file
  -data <file>    Seed dataset YAML file. Repeatable
  (Exits non-zero on schema or dataset errors)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("entgraph", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "print-schema":
		return cmdPrintSchema(cmdArgs)
	case "validate":
		return cmdValidate(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	case "print-schema":
		fmt.Print(printSchemaUsage)
	case "validate":
		fmt.Print(validateUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// loadServeConfig parses args twice: the first pass only finds -config, the
// second applies every flag over the loaded file so flags always win.
func loadServeConfig(args []string, usage string) (config.Config, bool, error) {
	parse := func(cfg config.Config) (config.Config, string, bool, error) {
		configPath := ""
		watch := false
		timeout := time.Duration(cfg.Server.Timeout)
		var datasets, cors stringListFlag

		fs := flag.NewFlagSet("serve", flag.ContinueOnError)
		fs.SetOutput(new(bytes.Buffer))
		fs.StringVar(&configPath, "config", "", "YAML configuration file")
		fs.StringVar(&cfg.Schema, "schema", cfg.Schema, "Entity schema SDL file")
		fs.Var(&datasets, "data", "Seed dataset YAML file")
		fs.StringVar(&cfg.Server.Addr, "server.addr", cfg.Server.Addr, "HTTP listen address")
		fs.BoolVar(&cfg.Server.Pretty, "server.pretty", cfg.Server.Pretty, "Pretty-print JSON responses")
		fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
		fs.Var(&cors, "server.cors", "Allowed CORS origin")
		fs.IntVar(&cfg.Server.CacheSize, "server.cache-size", cfg.Server.CacheSize, "Result cache entries")
		fs.BoolVar(&cfg.GraphQL.Introspection, "graphql.introspection", cfg.GraphQL.Introspection, "Enable GraphQL introspection")
		fs.StringVar(&cfg.Otel.Endpoint, "otel.endpoint", cfg.Otel.Endpoint, "OTLP collector endpoint")
		fs.StringVar(&cfg.Otel.Service, "otel.service", cfg.Otel.Service, "OpenTelemetry service name")
		fs.BoolVar(&watch, "watch", false, "Reload schema and datasets on file changes")
		if err := fs.Parse(args); err != nil {
			return cfg, "", false, err
		}
		cfg.Server.Timeout = config.Duration(timeout)
		cfg.Datasets = append(cfg.Datasets, datasets...)
		if len(cors) > 0 {
			cfg.Server.CORSOrigins = cors
		}
		return cfg, configPath, watch, nil
	}

	cfg, configPath, watch, err := parse(config.Default())
	if err != nil {
		fmt.Fprint(os.Stderr, usage)
		return cfg, false, err
	}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return cfg, false, err
		}
		cfg, _, watch, err = parse(loaded)
		if err != nil {
			fmt.Fprint(os.Stderr, usage)
			return cfg, false, err
		}
	}
	return cfg, watch, nil
}

func cmdServe(args []string) error {
	cfg, watch, err := loadServeConfig(args, serveUsage)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(cfg.Otel.Endpoint, cfg.Otel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	h, err := buildHandler(cfg)
	if err != nil {
		return err
	}
	var rh reloadingHandler
	rh.current.Store(h)

	if watch {
		stop, err := watchAndReload(cfg, &rh)
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		defer stop()
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", &rh)

	log.Printf("GraphQL server listening on %s", cfg.Server.Addr)
	return http.ListenAndServe(cfg.Server.Addr, mux)
}

// buildHandler loads the schema, seeds a fresh store and assembles the HTTP
// handler around them.
func buildHandler(cfg config.Config) (*server.Handler, error) {
	sdl, err := os.ReadFile(cfg.Schema)
	if err != nil {
		return nil, err
	}
	sch, err := schema.Load(filepath.Base(cfg.Schema), string(sdl))
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	st := store.New(sch)
	if err := dataset.Apply(context.Background(), st, cfg.Datasets); err != nil {
		return nil, err
	}

	var res executor.Resolver = resolver.New(st)
	if cfg.GraphQL.Introspection {
		w := introspection.Wrap(res, sch)
		res, sch = w.Resolver, w.Schema
	}

	opts := []server.Option{
		server.WithTimeout(time.Duration(cfg.Server.Timeout)),
		server.WithCacheSize(cfg.Server.CacheSize),
		server.WithGraphiQL(cfg.Server.GraphiQL),
	}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if cfg.Server.MaxBodyBytes > 0 {
		opts = append(opts, server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes))
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	return server.New(executor.New(res, sch), opts...)
}

// reloadingHandler swaps its inner handler atomically so watch-triggered
// rebuilds never drop in-flight requests.
type reloadingHandler struct {
	current atomic.Pointer[server.Handler]
}

func (h *reloadingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.current.Load().ServeHTTP(w, r)
}

// watchAndReload rebuilds the handler when the schema or a dataset file
// changes. Events are debounced because editors emit several per save; a
// rebuild failure keeps the previous handler serving.
func watchAndReload(cfg config.Config, rh *reloadingHandler) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	watched := map[string]bool{filepath.Clean(cfg.Schema): true}
	for _, ds := range cfg.Datasets {
		watched[filepath.Clean(ds)] = true
	}
	// Watch directories, not files: saves that replace the file would
	// otherwise drop the watch.
	dirs := map[string]bool{}
	for path := range watched {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	go func() {
		var timer *time.Timer
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !watched[filepath.Clean(ev.Name)] {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(200*time.Millisecond, func() {
					h, err := buildHandler(cfg)
					if err != nil {
						log.Printf("reload failed: %v", err)
						return
					}
					rh.current.Store(h)
					log.Printf("reloaded %s", cfg.Schema)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()
	return func() { watcher.Close() }, nil
}

func cmdPrintSchema(args []string) error {
	schemaPath := ""
	outFile := ""
	fs := flag.NewFlagSet("print-schema", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaPath, "schema", schemaPath, "Entity schema SDL file")
	fs.StringVar(&outFile, "out", outFile, "Write rendered SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, printSchemaUsage)
		return err
	}
	if schemaPath == "" {
		fmt.Fprint(os.Stderr, printSchemaUsage)
		return fmt.Errorf("-schema is required")
	}

	sdl, err := os.ReadFile(schemaPath)
	if err != nil {
		return err
	}
	sch, err := schema.Load(filepath.Base(schemaPath), string(sdl))
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	rendered := schema.Render(sch)
	if outFile == "" {
		fmt.Print(rendered)
		return nil
	}
	return os.WriteFile(outFile, []byte(rendered), 0o644)
}

func cmdValidate(args []string) error {
	configPath := ""
	schemaPath := ""
	var datasets stringListFlag
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&configPath, "config", configPath, "YAML configuration file")
	fs.StringVar(&schemaPath, "schema", schemaPath, "Entity schema SDL file")
	fs.Var(&datasets, "data", "Seed dataset YAML file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, validateUsage)
		return err
	}

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	}
	if schemaPath != "" {
		cfg.Schema = schemaPath
	}
	cfg.Datasets = append(cfg.Datasets, datasets...)
	if cfg.Schema == "" {
		fmt.Fprint(os.Stderr, validateUsage)
		return fmt.Errorf("-schema or -config is required")
	}

	sdl, err := os.ReadFile(cfg.Schema)
	if err != nil {
		return err
	}
	sch, err := schema.Load(filepath.Base(cfg.Schema), string(sdl))
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}

	st := store.New(sch)
	if err := dataset.Apply(context.Background(), st, cfg.Datasets); err != nil {
		return err
	}

	fmt.Printf("schema %s: %d entity types, %d interfaces, %d datasets OK\n",
		filepath.Base(cfg.Schema), len(sch.EntityTypes()), len(sch.InterfaceTypes()), len(cfg.Datasets))
	return nil
}
