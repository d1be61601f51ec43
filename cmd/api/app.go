// AngelaMos | 2026
// app.go

package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/carterperez-dev/perumahan-api/internal/config"
	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/division"
	"github.com/carterperez-dev/perumahan-api/internal/identity"
	"github.com/carterperez-dev/perumahan-api/internal/permission"
	"github.com/carterperez-dev/perumahan-api/internal/provisioning"
	"github.com/carterperez-dev/perumahan-api/internal/user"
)

// app holds the dependencies shared by the serve and sync-users commands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer

	db       *core.Database
	identity *identity.Client

	permStore   permission.Store
	divRepo     division.Repository
	users       *user.Service
	provisioner *provisioning.Provisioner
}

func bootstrap(ctx context.Context, path string) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logger, logCloser := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	idClient := identity.NewClient(cfg.Identity, nil, logger)

	permStore := permission.NewStore(db.DB)
	divRepo := division.NewRepository(db.DB)

	provisioner := provisioning.NewProvisioner(
		permStore,
		divRepo,
		provisioning.NewPolicy(cfg.Authz.UserViewModules),
		logger,
	)

	users := user.NewService(user.NewRepository(db.DB), idClient, logger)
	users.SetRoleHook(provisioner)

	return &app{
		cfg:         cfg,
		logger:      logger,
		logCloser:   logCloser,
		db:          db,
		identity:    idClient,
		permStore:   permStore,
		divRepo:     divRepo,
		users:       users,
		provisioner: provisioner,
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("database close error", "error", err)
	}
	_ = a.logCloser.Close()
}
