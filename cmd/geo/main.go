package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-geoview/internal/catalog"
	"github.com/joeblew999/plat-geoview/internal/legend"
	"github.com/joeblew999/plat-geoview/internal/logging"
	"github.com/joeblew999/plat-geoview/internal/registry"
	"github.com/joeblew999/plat-geoview/internal/server"
	"github.com/joeblew999/plat-geoview/internal/style"
	"github.com/joeblew999/plat-geoview/internal/viewer"
	"github.com/joeblew999/plat-geoview/pkg/geoclient"
)

// Options defines all CLI flags and env vars for the geo server.
// Flags: --host, --port, --data-dir, --web-dir, --catalog, --fetch-concurrency, --verbose
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_WEB_DIR, SERVICE_CATALOG,
// SERVICE_FETCH_CONCURRENCY, SERVICE_VERBOSE
type Options struct {
	Host    string `doc:"Host to bind to" default:"0.0.0.0"`
	Port    int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir string `doc:"Directory for geo data files" default:".data"`
	WebDir  string `doc:"Path to web/ directory (optional template overrides)" default:""`
	Catalog string `doc:"Layer presentation table (.yaml or .toml); built-in when empty" default:""`
	Verbose bool   `doc:"Log at debug level" short:"v" default:"false"`

	FetchConcurrency int `doc:"Max simultaneous layer fetches per selection (0 = unlimited)" default:"4"`
}

func newLogger(opts *Options) *log.Logger {
	return logging.New(os.Stderr, logging.Level(opts.Verbose))
}

func newServer(opts *Options, logger *log.Logger) *server.Server {
	srv, err := server.New(server.Config{
		Host:    opts.Host,
		Port:    fmt.Sprintf("%d", opts.Port),
		DataDir: opts.DataDir,
		WebDir:  opts.WebDir,
		Catalog: opts.Catalog,
		Logger:  logger,

		FetchConcurrency: opts.FetchConcurrency,
	})
	if err != nil {
		logger.Fatal("server setup failed", "err", err)
	}
	return srv
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		logger := newLogger(opts)
		srv := newServer(opts, logger)
		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", opts.Host, opts.Port),
			Handler:           srv,
			ReadHeaderTimeout: 10 * time.Second,
		}
		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-geoview API server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Pages:   %s/viewer\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			go srv.SweepSessions(ctx, time.Minute)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server error", "err", err)
			}
		})

		hooks.OnStop(func() {
			cancel()
			shutdownCtx, release := context.WithTimeout(context.Background(), 10*time.Second)
			defer release()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown failed", "err", err)
				return
			}
			logger.Info("server stopped")
		})
	})

	cli.Root().Use = "geo"
	cli.Root().Short = "Layer styling and legend server for freight and energy maps"
	cli.Root().Version = "0.2.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := newServer(opts, newLogger(opts))
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// legend subcommand: build a legend locally from layers fetched over HTTP
	legendCmd := &cobra.Command{
		Use:   "legend",
		Short: "Fetch layers from a server and render their legend",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logger := newLogger(opts)
			serverURL, _ := cmd.Flags().GetString("server")
			layers, _ := cmd.Flags().GetStringArray("layer")
			format, _ := cmd.Flags().GetString("format")
			out, _ := cmd.Flags().GetString("out")

			if err := runLegend(cmd.Context(), logger, opts.Catalog, serverURL, opts.FetchConcurrency, layers, format, out); err != nil {
				logger.Error("legend failed", "err", err)
				os.Exit(1)
			}
		}),
	}
	legendCmd.Flags().String("server", "http://localhost:8086", "Server to fetch GeoJSON from")
	legendCmd.Flags().StringArrayP("layer", "l", nil, "Layer to include (repeatable)")
	legendCmd.Flags().StringP("format", "f", "term", "Output format: json, svg, png or term")
	legendCmd.Flags().StringP("out", "o", "", "Output file (stdout when empty)")
	cli.Root().AddCommand(legendCmd)

	cli.Run()
}

// runLegend selects layers in a local session backed by the HTTP client and
// writes the resulting legend.
func runLegend(ctx context.Context, logger *log.Logger, catalogPath, serverURL string, limit int, layers []string, format, out string) error {
	if len(layers) == 0 {
		return errors.New("at least one --layer is required")
	}

	c := catalog.Default()
	if catalogPath != "" {
		loaded, err := catalog.Load(catalogPath)
		if err != nil {
			return err
		}
		c = loaded
	}

	client := geoclient.New(serverURL)
	sess := viewer.NewSession("cli", client, c, style.DefaultRules(),
		registry.WithLogger(logger), registry.WithConcurrency(limit))

	progress := logging.Start(logger)
	res, err := sess.Apply(ctx, layers)
	if err != nil {
		return err
	}
	progress.Done("layers loaded", "loaded", len(res.Loaded), "failed", len(res.Failed))

	w := io.Writer(os.Stdout)
	if out != "" && out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return writeLegend(w, sess.Legend(), format)
}

func writeLegend(w io.Writer, lg legend.Legend, format string) error {
	switch format {
	case "json":
		return legend.WriteJSON(w, lg)
	case "svg":
		return legend.WriteSVG(w, lg)
	case "png":
		return legend.WritePNG(w, lg)
	case "term", "":
		_, err := fmt.Fprintln(w, legend.RenderTerminal(lg))
		return err
	default:
		return fmt.Errorf("unknown format %q (want json, svg, png or term)", format)
	}
}
