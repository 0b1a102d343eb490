package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kalambet/rootcause/internal/api"
	"github.com/kalambet/rootcause/internal/config"
	"github.com/kalambet/rootcause/internal/dataset"
	"github.com/kalambet/rootcause/internal/extract"
	"github.com/kalambet/rootcause/internal/pipeline"
	"github.com/kalambet/rootcause/internal/reasoning"
	"github.com/kalambet/rootcause/internal/storage"
)

// app is everything a shell needs after startup.
type app struct {
	assistant *pipeline.Assistant
	store     *storage.Store
}

// buildApp loads the snapshot, resolves the reasoning provider and fills the
// warehouse. A dataset failure is fatal; degraded documents and a missing
// credential are not.
func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	pdf, err := extract.NewPDFExtractor(cfg.Data.PDFExtractor, cfg.Data.PdfToTextPath)
	if err != nil {
		return nil, err
	}

	snap, err := pipeline.Bootstrap(ctx, pipeline.BootstrapConfig{
		CSVPath:       cfg.Data.CSVPath,
		AuditPDFPath:  cfg.Data.AuditPDFPath,
		OpsReportPath: cfg.Data.OpsReportPath,
		PDF:           pdf,
		Cache:         dataset.NewCache(),
	})
	if err != nil {
		return nil, err
	}

	svc := reasoning.New(ctx, cfg.Reasoning)

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, eris.Wrap(err, "opening storage")
	}
	if err := store.ReplaceRecords(ctx, snap.Dataset.Records()); err != nil {
		store.Close()
		return nil, eris.Wrap(err, "filling warehouse")
	}

	return &app{assistant: pipeline.NewAssistant(snap, svc), store: store}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		zap.L().Warn("closing storage", zap.Error(err))
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(cmd.Context(), withMCP)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP over stdio")
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func runServer(parent context.Context, withMCP bool) error {
	fmt.Fprintf(os.Stderr, "rootcause version %s\n", version)

	ctx, stop := signalContext(parent)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	sessions := api.NewSessions(a.assistant)
	handler := api.NewHandler(api.Deps{
		Sessions: sessions,
		Status:   a.assistant,
		Stats:    a.store,
		Records:  a.store,
		Token:    cfg.Server.Token,
	})
	if cfg.Server.Token == "" {
		printWarning("server.token is not set; /v1 is unauthenticated")
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := api.NewServer(addr, handler)

	if withMCP {
		go func() {
			if err := serveStdio(ctx, sessions, a); err != nil && !errors.Is(err, context.Canceled) {
				zap.L().Error("MCP stdio server error", zap.Error(err))
			}
		}()
		zap.L().Info("MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "rootcause listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return eris.Wrap(err, "server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMCP(parent context.Context) error {
	ctx, stop := signalContext(parent)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	err = serveStdio(ctx, api.NewSessions(a.assistant), a)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func serveStdio(ctx context.Context, sessions *api.Sessions, a *app) error {
	s := api.NewMCPServer(api.MCPDeps{
		Sessions: sessions,
		Status:   a.assistant,
		Stats:    a.store,
		Version:  version,
	})
	return server.NewStdioServer(s).Listen(ctx, os.Stdin, os.Stdout)
}
