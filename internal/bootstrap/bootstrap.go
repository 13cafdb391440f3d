package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/osvaldoandrade/extrepo/internal/app/build"
	"github.com/osvaldoandrade/extrepo/internal/app/history"
	"github.com/osvaldoandrade/extrepo/internal/config"
	"github.com/osvaldoandrade/extrepo/internal/domain"
	"github.com/osvaldoandrade/extrepo/internal/infra/archive"
	"github.com/osvaldoandrade/extrepo/internal/infra/digest"
	"github.com/osvaldoandrade/extrepo/internal/infra/githubapi"
	"github.com/osvaldoandrade/extrepo/internal/infra/gitrepo"
	"github.com/osvaldoandrade/extrepo/internal/infra/ident"
	"github.com/osvaldoandrade/extrepo/internal/infra/indexjson"
	"github.com/osvaldoandrade/extrepo/internal/infra/jsonpatch"
	"github.com/osvaldoandrade/extrepo/internal/infra/manifestfs"
	"github.com/osvaldoandrade/extrepo/internal/infra/publishfs"
	"github.com/osvaldoandrade/extrepo/internal/infra/schema"
	"github.com/osvaldoandrade/extrepo/internal/infra/sqlitejournal"
	"github.com/osvaldoandrade/extrepo/internal/platform"
)

const UserAgent = "extrepo"

type Options struct {
	// VerifyCredentials checks the forge token once before returning when the
	// API strategy is selected.
	VerifyCredentials bool
	HTTPClient        *http.Client
	Clock             build.Clock
	IDGen             build.IDGenerator
}

// Runtime holds the services built from one configuration.
type Runtime struct {
	Config   config.Config
	Logger   *slog.Logger
	Strategy domain.Strategy
	Login    string
	Build    *build.Service
	History  *history.Service

	journal *sqlitejournal.Store
}

func Open(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:   cfg,
		Logger:   logger,
		Strategy: cfg.ResolvedStrategy(),
	}

	var (
		resolver   build.Resolver
		downloader build.Downloader
	)
	switch rt.Strategy {
	case domain.StrategyAPI:
		client, err := githubapi.NewClient(githubapi.ClientOptions{
			BaseURL:    cfg.APIURL,
			Username:   cfg.GitHub.Username,
			Token:      cfg.GitHub.Token,
			UserAgent:  UserAgent,
			HTTPClient: opts.HTTPClient,
		})
		if err != nil {
			return nil, err
		}
		if opts.VerifyCredentials {
			login, err := verify(ctx, githubapi.NewVerifier(client), cfg, logger)
			if err != nil {
				return nil, err
			}
			rt.Login = login
		}
		resolver = githubapi.NewResolver(client)
		downloader = githubapi.NewDownloader(client)
	default:
		resolver = gitrepo.NewResolver(gitrepo.ResolverOptions{
			BaseURL: cfg.GitURL,
			WorkDir: cfg.WorkDir,
			Credentials: gitrepo.Credentials{
				Username: cfg.GitHub.Username,
				Token:    cfg.GitHub.Token,
			},
			Logger: logger,
		})
	}

	validator, err := schema.LoadManifestValidator(ctx, cfg.ManifestSchema)
	if err != nil {
		if errors.Is(err, schema.ErrSchemaFileNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: manifest schema: %w", config.ErrInvalidConfig, err)
	}

	var (
		journal      build.Journal
		historyStore history.Store
	)
	if strings.TrimSpace(cfg.Journal) != "" {
		store, err := sqlitejournal.Open(cfg.Journal)
		if err != nil {
			return nil, fmt.Errorf("open build journal: %w", err)
		}
		rt.journal = store
		journal = store
		historyStore = store
	}

	clock := opts.Clock
	if clock == nil {
		clock = platform.RealClock{}
	}
	idGen := opts.IDGen
	if idGen == nil {
		idGen = ident.NewULIDGeneratorWithClock(clock.Now)
	}

	rt.Build = build.NewService(build.Deps{
		Catalog:    manifestfs.NewCatalog(validator),
		Resolver:   resolver,
		Downloader: downloader,
		Unpacker:   archive.NewUnpacker(),
		Publisher:  publishfs.NewStore(logger),
		Writer:     indexjson.NewWriter(),
		Differ:     jsonpatch.Differ{},
		Digester:   digest.Index{},
		Journal:    journal,
		Clock:      clock,
		IDGen:      idGen,
		Logger:     logger,
	})
	rt.History = history.NewService(historyStore)

	logger.Debug("runtime ready",
		"strategy", string(rt.Strategy),
		"public", cfg.PublicDir,
		"extensions", cfg.ExtensionsDir,
		"journal", cfg.Journal,
	)
	return rt, nil
}

// verify rejects bad credentials up front. Transport problems are left to
// the per-manifest classification of the pass.
func verify(ctx context.Context, verifier *githubapi.Verifier, cfg config.Config, logger *slog.Logger) (string, error) {
	verifyCtx, cancel := context.WithTimeout(ctx, cfg.NetworkTimeout)
	defer cancel()

	login, err := verifier.Verify(verifyCtx)
	switch {
	case err == nil:
		logger.Debug("forge credentials verified", "login", login)
		return login, nil
	case errors.Is(err, domain.ErrUnauthorized):
		return "", err
	case ctx.Err() != nil:
		return "", ctx.Err()
	default:
		logger.Warn("could not verify forge credentials", "err", err)
		return "", nil
	}
}

func (r *Runtime) BuildOptions() build.Options {
	return build.Options{
		PublicDir:     r.Config.PublicDir,
		ExtensionsDir: r.Config.ExtensionsDir,
		Record:        r.Config.RecordOptions(),
		Legacy:        r.Config.LegacyRule(),
		Concurrency:   r.Config.Concurrency,
		Timeout:       r.Config.NetworkTimeout,
	}
}

func (r *Runtime) Close() error {
	if r == nil || r.journal == nil {
		return nil
	}
	err := r.journal.Close()
	r.journal = nil
	return err
}
