// Package app provides application-level wiring for the console
// authorization service following hexagonal architecture.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/aws/dcv-access-console-sub000/internal/api"
	"github.com/aws/dcv-access-console-sub000/internal/broker"
	"github.com/aws/dcv-access-console-sub000/internal/config"
	"github.com/aws/dcv-access-console-sub000/internal/directory"
	"github.com/aws/dcv-access-console-sub000/internal/domain"
	"github.com/aws/dcv-access-console-sub000/internal/policy"
	"github.com/aws/dcv-access-console-sub000/internal/service"
	"github.com/aws/dcv-access-console-sub000/internal/source"
)

// Deps holds the external dependencies that main() must provide.
// These are things the app package cannot (or should not) create itself:
// database handles and config.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// App holds the fully-wired application: the decision engine, the HTTP
// handler over it, and the reload scheduler.
type App struct {
	Engine    *service.Engine
	Handler   *api.Handler
	Scheduler *service.ReloadScheduler

	Users     *directory.UserStore
	Groups    *directory.GroupStore
	Templates *directory.TemplateStore
}

// New wires the directory stores, external sources, and engine from the
// provided deps. The graph is empty until the caller runs LoadEntities.
func New(_ context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg

	users := directory.NewUserStore(deps.WriteDB, deps.ReadDB)
	groups := directory.NewGroupStore(deps.WriteDB, deps.ReadDB)
	templates := directory.NewTemplateStore(deps.WriteDB, deps.ReadDB)

	var policySource domain.PolicySource
	if cfg.HasPolicyS3() {
		policySource = source.NewS3PolicySource(source.S3Options{
			Bucket:    *cfg.PolicyS3Bucket,
			Key:       *cfg.PolicyS3Key,
			Region:    *cfg.PolicyS3Region,
			Endpoint:  cfg.PolicyS3Endpoint,
			AccessKey: cfg.PolicyS3AccessKey,
			SecretKey: cfg.PolicyS3SecretKey,
		})
		deps.Logger.Info("policy source", "kind", "s3", "bucket", *cfg.PolicyS3Bucket, "key", *cfg.PolicyS3Key)
	} else {
		policySource = source.NewFilePolicySource(cfg.PolicyFile)
		deps.Logger.Info("policy source", "kind", "file", "path", cfg.PolicyFile)
	}

	var sessions domain.SessionDirectory
	if cfg.Broker.URL != "" {
		client, err := broker.New(cfg.Broker, deps.Logger)
		if err != nil {
			return nil, fmt.Errorf("broker client: %w", err)
		}
		sessions = client
	} else {
		deps.Logger.Warn("no session broker configured; sessions load empty")
		sessions = noSessions{}
	}

	caseInsensitive := !cfg.CaseSensitiveUserIDs
	engine := service.NewEngine(service.Collaborators{
		Users:     users,
		Groups:    groups,
		Templates: templates,
		Sessions:  sessions,
		Policies:  policySource,
		Roles:     source.NewYAMLRoleSource(cfg.RolesFile),
	}, policy.NewEvaluator(caseInsensitive), service.Options{
		CaseInsensitiveIDs: caseInsensitive,
		DefaultRole:        cfg.DefaultRole,
		Logger:             deps.Logger,
	})

	return &App{
		Engine:    engine,
		Handler:   api.NewHandler(engine, users, groups, templates, deps.Logger),
		Scheduler: service.NewReloadScheduler(engine, deps.Logger),
		Users:     users,
		Groups:    groups,
		Templates: templates,
	}, nil
}

// noSessions satisfies the session directory when no broker is configured.
type noSessions struct{}

func (noSessions) DescribeSessions(context.Context, string) ([]domain.SessionRecord, string, error) {
	return nil, "", nil
}
