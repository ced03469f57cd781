package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AI2HU/sqlite2pg/internal/api"
	"github.com/AI2HU/sqlite2pg/internal/logger"
	"github.com/AI2HU/sqlite2pg/internal/scheduler"
)

const shutdownTimeout = 15 * time.Second

var (
	servePort  int
	serveHost  string
	corsOrigin string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web control panel",
	Long: `Start the HTTP server with the operator page and JSON endpoints for:
- Connection settings (load, save, test)
- SQLite validation and migration (upload or server-local path)
- Backup download and restore
- Operation history, health and Prometheus metrics

Scheduled backups run in the same process when backup.schedule is set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides server.port)")
	serveCmd.Flags().StringVarP(&serveHost, "host", "H", "", "Host to bind to (overrides server.host)")
	serveCmd.Flags().StringVarP(&corsOrigin, "cors-origin", "c", "", "CORS origin to allow (overrides server.cors_origin, use '*' for all origins)")
}

func runServe(cmd *cobra.Command, args []string) error {
	host := settings.Server.Host
	if serveHost != "" {
		host = serveHost
	}
	port := settings.Server.Port
	if servePort != 0 {
		port = servePort
	}
	origin := settings.Server.CORSOrigin
	if corsOrigin != "" {
		origin = corsOrigin
	}
	address := net.JoinHostPort(host, strconv.Itoa(port))

	sched := scheduler.New(app.service, scheduler.Options{
		Schedule: settings.Backup.Schedule,
		Retain:   settings.Backup.Retain,
	})

	server := api.NewServer(app.service, api.Options{
		CORSOrigin:    origin,
		MaxUploadMB:   int(settings.Limits.MaxUploadMB),
		JobsPerMinute: settings.Limits.JobsPerMinute,
		Binaries:      app.binaries,
		Journal:       app.journal,
		Metrics:       app.metrics,
		Stats:         app.stats,
		NextBackup:    sched.Next,
	})

	httpServer := &http.Server{
		Addr:              address,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("%s\n", FormatHeader("🚀 Starting sqlite2pg"))
	fmt.Printf("%s\n", FormatDim("====================="))
	fmt.Println(FormatLabelValue("Address:", address))
	fmt.Println(FormatLabelValue("CORS Origin:", origin))
	fmt.Println(FormatLabelValue("Settings:", cfgFile))
	if sched.Enabled() {
		fmt.Println(FormatLabelValue("Backup schedule:", settings.Backup.Schedule))
	}
	fmt.Println()
	fmt.Println(FormatInfo("📚 Endpoints:"))
	fmt.Println("  GET  /                 - Operator page")
	fmt.Println("  GET  /config           - Saved connection")
	fmt.Println("  POST /save-config      - Save connection")
	fmt.Println("  POST /test-postgresql  - Test connection")
	fmt.Println("  POST /validate-sqlite  - Validate a SQLite upload")
	fmt.Println("  POST /migrate          - Migrate a SQLite upload")
	fmt.Println("  POST /migrate-server   - Migrate a server-local SQLite file")
	fmt.Println("  POST /backup           - Download a pg_dump backup")
	fmt.Println("  POST /restore          - Restore a SQL dump")
	fmt.Println("  GET  /operations       - Operation history")
	fmt.Println("  GET  /operations/:id   - One operation")
	fmt.Println("  GET  /stats            - Per-operation statistics")
	fmt.Println("  GET  /health           - Health check")
	fmt.Println("  GET  /metrics          - Prometheus metrics")
	fmt.Println()
	fmt.Println(FormatDim("Press Ctrl+C to stop the server"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Listening on %s", address)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := sched.Start(gctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		if next := sched.Next(); !next.IsZero() {
			logger.Info("Next scheduled backup at %s", next.Format(time.RFC3339))
		}
		<-gctx.Done()
		sched.Stop()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Println("\n🛑 Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
