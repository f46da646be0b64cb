package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/scenemcp/internal/infrastructure/config"
	"github.com/GriffinCanCode/scenemcp/internal/infrastructure/logging"
	"github.com/GriffinCanCode/scenemcp/internal/infrastructure/server"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// flags override the environment when set on the command line
type flags struct {
	transport string
	host      string
	port      string
	cacheSize int
	logLevel  string
	logDev    bool
}

func (f *flags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.transport, "transport", config.TransportStdio, "transport: stdio or http")
	pf.StringVar(&f.host, "host", "127.0.0.1", "HTTP listen host")
	pf.StringVarP(&f.port, "port", "p", "5000", "HTTP listen port")
	pf.IntVar(&f.cacheSize, "cache-size", 10, "maximum open stages")
	pf.StringVar(&f.logLevel, "log-level", "info", "debug, info, warn or error")
	pf.BoolVar(&f.logDev, "log-dev", false, "human readable logs")
}

func (f *flags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("transport") {
		cfg.Server.Transport = f.transport
	}
	if changed("host") {
		cfg.Server.Host = f.host
	}
	if changed("port") {
		cfg.Server.Port = f.port
	}
	if changed("cache-size") {
		cfg.Stage.CacheSize = f.cacheSize
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if changed("log-dev") {
		cfg.Logging.Development = f.logDev
	}
}

func (f *flags) config(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	f.apply(cmd, cfg)
	return cfg, cfg.Validate()
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:           "scenemcp",
		Short:         "Scene stage tool server",
		Long:          "Serves scene stage tools over MCP (stdio or streamable HTTP), HTTP JSON and WebSocket.",
		Version:       server.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd, f)
		},
	}
	f.register(root)

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the server (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd, f)
		},
	})
	root.AddCommand(newToolsCmd(f))
	return root
}

func serve(cmd *cobra.Command, f *flags) error {
	cfg, err := f.config(cmd)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "invalid configuration:", err)
		return err
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "failed to create server:", err)
		return err
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "server error:", err)
		return err
	}
	return nil
}

func newToolsCmd(f *flags) *cobra.Command {
	var (
		asJSON   bool
		category string
	)
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalogue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.config(cmd)
			if err != nil {
				return err
			}
			srv, err := server.NewServer(cfg, server.WithLogger(logging.NewNop()))
			if err != nil {
				return err
			}
			defer srv.Close()

			catalogue := filterTools(srv.Dispatcher().Tools(), category)
			if asJSON {
				out, err := sonic.ConfigStd.MarshalIndent(catalogue, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return err
			}
			return printTools(cmd, catalogue)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().StringVar(&category, "category", "", "only this category")
	return cmd
}

func filterTools(all []types.Tool, category string) []types.Tool {
	out := make([]types.Tool, 0, len(all))
	for _, t := range all {
		if category == "" || string(t.Category) == category {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Category < out[j].Category
	})
	return out
}

func printTools(cmd *cobra.Command, catalogue []types.Tool) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCATEGORY\tFORM\tDESCRIPTION")
	for _, t := range catalogue {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name, t.Category, t.Form, t.Description)
	}
	return w.Flush()
}
