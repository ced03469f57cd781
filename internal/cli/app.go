package cli

import (
	"context"
	"fmt"

	"github.com/AI2HU/sqlite2pg/internal/config"
	"github.com/AI2HU/sqlite2pg/internal/db/sqlite"
	"github.com/AI2HU/sqlite2pg/internal/logger"
	"github.com/AI2HU/sqlite2pg/internal/metrics"
	"github.com/AI2HU/sqlite2pg/internal/models"
	"github.com/AI2HU/sqlite2pg/internal/services"
	"github.com/AI2HU/sqlite2pg/internal/staging"
	"github.com/AI2HU/sqlite2pg/internal/stats"
	"github.com/AI2HU/sqlite2pg/internal/tools"
)

// application holds everything a command needs, built once from settings
type application struct {
	settings *config.Settings
	binaries tools.Binaries
	journal  *sqlite.SQLite
	metrics  *metrics.Metrics
	stats    *stats.Service
	service  *services.OperationService
}

func newApplication(ctx context.Context, s *config.Settings) (*application, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	area, err := staging.New(s.Paths.UploadDir)
	if err != nil {
		return nil, err
	}

	journal, err := sqlite.New(&models.Config{URI: s.Paths.Journal})
	if err != nil {
		return nil, fmt.Errorf("failed to create journal: %w", err)
	}
	if err := journal.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	bins := tools.Binaries{
		Pgloader: s.Tools.Pgloader,
		PgDump:   s.Tools.PgDump,
		Psql:     s.Tools.Psql,
	}
	m := metrics.New()
	runner := tools.NewRunner(s.Limits.MaxConcurrentJobs, m)

	svc := services.NewOperationService(services.Dependencies{
		Connections: config.NewConnectionStore(s.Paths.ConnectionFile),
		Staging:     area,
		Toolkit:     tools.NewToolkit(runner, bins, s.Tools.Timeout),
		Journal:     journal,
		Metrics:     m,
		ExportDir:   s.Paths.ExportDir,
	})

	return &application{
		settings: s,
		binaries: bins,
		journal:  journal,
		metrics:  m,
		stats:    stats.New(journal.GetDatabase()),
		service:  svc,
	}, nil
}

// Close releases the journal
func (a *application) Close(ctx context.Context) {
	if a.journal == nil {
		return
	}
	if err := a.journal.Disconnect(ctx); err != nil {
		logger.Warning("Failed to close journal: %v", err)
	}
}

// connection returns the saved record with flag overrides applied
func (a *application) connection(o connectionFlags) (config.Connection, error) {
	conn, err := a.service.Connection()
	if err != nil {
		return conn, err
	}
	return o.apply(conn), nil
}
