package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"guardian/internal/admin"
	childhandler "guardian/internal/child/handler"
	childmetrics "guardian/internal/child/metrics"
	"guardian/internal/child/projection"
	projectionmemory "guardian/internal/child/projection/store/memory"
	projectionredis "guardian/internal/child/projection/store/redis"
	childservice "guardian/internal/child/service"
	childstore "guardian/internal/child/store"
	artifactmemory "guardian/internal/child/store/memory"
	artifactpostgres "guardian/internal/child/store/postgres"
	compliancehandler "guardian/internal/compliance/handler"
	complianceservice "guardian/internal/compliance/service"
	"guardian/internal/consent/channel"
	consenthandler "guardian/internal/consent/handler"
	consentmetrics "guardian/internal/consent/metrics"
	consentmodels "guardian/internal/consent/models"
	consentservice "guardian/internal/consent/service"
	consentmemory "guardian/internal/consent/store/memory"
	consentpostgres "guardian/internal/consent/store/postgres"
	consentredis "guardian/internal/consent/store/redis"
	"guardian/internal/eventlog"
	eventmetrics "guardian/internal/eventlog/metrics"
	"guardian/internal/eventlog/relay"
	eventmemory "guardian/internal/eventlog/store/memory"
	eventpostgres "guardian/internal/eventlog/store/postgres"
	jwttoken "guardian/internal/jwt_token"
	"guardian/internal/platform/config"
	platformmetrics "guardian/internal/platform/metrics"
	"guardian/internal/platform/postgres"
	redisclient "guardian/internal/platform/redis"
	"guardian/internal/policy"
	retentionmetrics "guardian/internal/retention/metrics"
	retentionservice "guardian/internal/retention/service"
	retentionmemory "guardian/internal/retention/store/memory"
	retentionpostgres "guardian/internal/retention/store/postgres"
	"guardian/internal/safety/analyzers"
	safetymetrics "guardian/internal/safety/metrics"
	safetymodels "guardian/internal/safety/models"
	safetyservice "guardian/internal/safety/service"
	httptransport "guardian/internal/transport/http"
	id "guardian/pkg/domain"
	"guardian/pkg/platform/audit"
	compliancepub "guardian/pkg/platform/audit/publishers/compliance"
	securitypub "guardian/pkg/platform/audit/publishers/security"
	auditmemory "guardian/pkg/platform/audit/store/memory"
	auditpostgres "guardian/pkg/platform/audit/store/postgres"
	"guardian/pkg/platform/circuit"
	"guardian/pkg/platform/tx"
)

// infra holds the optional backing services. A nil field means the
// in-memory implementation is used for that concern.
type infra struct {
	db      *sql.DB
	pool    *pgxpool.Pool
	redis   *redisclient.Client
	health  map[string]httptransport.HealthCheck
	closers []func()
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	inf := &infra{health: map[string]httptransport.HealthCheck{}}

	if cfg.Postgres.URL != "" {
		db, err := postgres.OpenSQL(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		inf.db = db
		inf.closers = append(inf.closers, func() { _ = db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			inf.Close()
			return nil, err
		}
		pool, err := postgres.OpenPool(ctx, cfg.Postgres)
		if err != nil {
			inf.Close()
			return nil, err
		}
		inf.pool = pool
		inf.closers = append(inf.closers, pool.Close)
		inf.health["postgres"] = db.PingContext
		log.Info("postgres configured")
	} else {
		log.Warn("DATABASE_URL not set; state is held in memory and lost on restart")
	}

	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		inf.Close()
		return nil, err
	}
	if rc != nil {
		inf.redis = rc
		inf.closers = append(inf.closers, func() { _ = rc.Close() })
		inf.health["redis"] = rc.Health
		log.Info("redis configured")
	}
	return inf, nil
}

// Close releases resources in reverse order of acquisition.
func (i *infra) Close() {
	for n := len(i.closers) - 1; n >= 0; n-- {
		i.closers[n]()
	}
	i.closers = nil
}

func (i *infra) checkpoints() relay.Checkpoints {
	if i.pool != nil {
		return eventpostgres.NewCheckpoints(i.pool)
	}
	return relay.NewMemoryCheckpoints()
}

type auditStore interface {
	audit.Store
	ListByChild(ctx context.Context, childID id.ChildID) ([]audit.Event, error)
}

// app is the assembled object graph.
type app struct {
	events       *eventlog.Log
	eventMetrics *eventmetrics.Metrics
	projector    *projection.Projector
	scheduler    *retentionservice.Scheduler
	security     *securitypub.Publisher
	handlers     httptransport.Handlers
	tokens       *jwttoken.Adapter
	health       map[string]httptransport.HealthCheck
}

func buildApp(cfg config.Config, inf *infra, reg *prometheus.Registry, log *slog.Logger) (*app, error) {
	a := &app{health: inf.health}

	// Event log and audit.
	var eventStore eventlog.Store = eventmemory.New()
	var audits auditStore = auditmemory.NewInMemoryStore()
	if inf.pool != nil {
		eventStore = eventpostgres.New(inf.pool)
		audits = auditpostgres.New(inf.db)
	}
	a.eventMetrics = eventmetrics.New(reg)
	a.events = eventlog.New(eventStore, eventlog.WithLogger(log), eventlog.WithMetrics(a.eventMetrics))

	compliance := compliancepub.New(audits,
		compliancepub.WithLogger(log),
		compliancepub.WithMetrics(compliancepub.NewMetrics(reg)),
	)
	a.security = securitypub.New(audits, securitypub.WithLogger(log))

	// Policy.
	pcfg := policy.DefaultConfig()
	pcfg.ProtectionAgeThreshold = cfg.Policy.ProtectionAgeThreshold
	pcfg.MinSupportedAge = cfg.Policy.MinSupportedAge
	pcfg.MaxSupportedAge = cfg.Policy.MaxSupportedAge
	pcfg.DeletionGraceDays = cfg.Retention.GraceDays
	days, err := policy.ParseRetentionOverrides(pcfg.RetentionDays, cfg.Policy.RetentionOverrides)
	if err != nil {
		return nil, fmt.Errorf("retention overrides: %w", err)
	}
	pcfg.RetentionDays = days
	engine, err := policy.New(pcfg)
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}

	// Consent.
	consent, err := buildConsent(cfg, inf, a.events, compliance, a.security, audits, reg, log)
	if err != nil {
		return nil, err
	}

	// Retention.
	var retentionStore retentionservice.Store = retentionmemory.New()
	if inf.db != nil {
		retentionStore = retentionpostgres.New(inf.db)
	}
	rm := retentionmetrics.New(reg)
	registrar, err := retentionservice.NewRegistrar(retentionStore, engine,
		retentionservice.WithRegistrarLogger(log),
		retentionservice.WithRegistrarMetrics(rm),
	)
	if err != nil {
		return nil, err
	}

	// Safety.
	pipeline, err := buildSafety(cfg, a.security, reg, log)
	if err != nil {
		return nil, err
	}

	// Child profiles.
	var artifacts childservice.ArtifactStore = artifactmemory.NewArtifactStore()
	if inf.db != nil {
		artifacts = artifactpostgres.NewArtifactStore(inf.db)
	}
	children, err := childservice.New(childservice.Deps{
		Profiles:      childstore.NewRepository(a.events),
		Consent:       consent,
		Relationships: consent,
		Retention:     registrar,
		Safety:        pipeline,
		Artifacts:     artifacts,
		Policy:        engine,
	},
		childservice.WithLogger(log),
		childservice.WithMetrics(childmetrics.New(reg)),
		childservice.WithAuditor(compliance),
	)
	if err != nil {
		return nil, err
	}

	a.scheduler, err = retentionservice.NewScheduler(retentionStore, children, engine.DeletionGrace(),
		retentionservice.WithLogger(log),
		retentionservice.WithMetrics(rm),
		retentionservice.WithSecurityAuditor(a.security),
		retentionservice.WithBatchSize(cfg.Retention.BatchSize),
		retentionservice.WithInterval(cfg.Retention.ScanInterval),
	)
	if err != nil {
		return nil, err
	}

	// Read model.
	var summaries projection.Store = projectionmemory.New()
	if inf.redis != nil {
		summaries = projectionredis.New(inf.redis.Client)
	}
	a.projector = projection.New(summaries, log)

	exports, err := complianceservice.New(consent, children, compliance, log)
	if err != nil {
		return nil, err
	}

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	a.tokens = jwttoken.NewAdapter(jwtService)
	a.handlers = httptransport.Handlers{
		Consent:    consenthandler.New(consent, log),
		Children:   childhandler.New(children, log).WithDevicePairing(jwtService, cfg.Auth.DeviceTokenTTL),
		Directory:  childhandler.NewDirectory(a.projector, log),
		Compliance: compliancehandler.New(exports, log),
		Admin:      admin.New(a.scheduler, log),
	}
	return a, nil
}

func buildConsent(
	cfg config.Config,
	inf *infra,
	events *eventlog.Log,
	compliance *compliancepub.Publisher,
	security *securitypub.Publisher,
	trail auditStore,
	reg prometheus.Registerer,
	log *slog.Logger,
) (*consentservice.Service, error) {
	var (
		consents      consentservice.ConsentStore      = consentmemory.NewConsentStore()
		relationships consentservice.RelationshipStore = consentmemory.NewRelationshipStore()
		codes         consentservice.CodeStore         = consentmemory.NewCodeStore()
		limiter       consentservice.RateLimiter       = consentmemory.NewWindowLimiter()
		runner        tx.Runner                        = tx.NewShardedRunner()
	)
	if inf.db != nil {
		consents = consentpostgres.NewConsentStore(inf.db)
		relationships = consentpostgres.NewRelationshipStore(inf.db)
		runner = tx.NewSQLRunner(inf.db)
	}
	if inf.redis != nil {
		codes = consentredis.NewCodeStore(inf.redis.Client)
		limiter = consentredis.NewWindowLimiter(inf.redis.Client)
	}

	return consentservice.New(consentservice.Deps{
		Consents:      consents,
		Relationships: relationships,
		Codes:         codes,
		Limiter:       limiter,
		Sender:        buildSender(cfg.Channels, log),
		Events:        events,
		Tx:            runner,
		Compliance:    compliance,
		Trail:         trail,
	},
		consentservice.WithLogger(log),
		consentservice.WithMetrics(consentmetrics.New(reg)),
		consentservice.WithSecurityAuditor(security),
		consentservice.WithConfig(consentservice.Config{
			CodeTTL:        cfg.Consent.CodeTTL,
			RequestTTL:     cfg.Consent.RequestTTL,
			Validity:       cfg.Consent.Validity,
			MaxAttempts:    cfg.Consent.MaxAttempts,
			SendsPerWindow: cfg.Consent.RateLimitPerWindow,
			SendWindow:     cfg.Consent.RateLimitWindow,
		}),
	)
}

// buildSender routes codes to the configured gateways. A method without a
// gateway records codes in memory, which only suits local development.
func buildSender(cfg config.Channels, log *slog.Logger) *channel.Router {
	gateways := map[consentmodels.Method]string{
		consentmodels.MethodEmail: cfg.EmailGatewayURL,
		consentmodels.MethodSMS:   cfg.SMSGatewayURL,
	}
	senders := make(map[consentmodels.Method]channel.Sender, len(gateways))
	for method, url := range gateways {
		if url == "" {
			log.Warn("no delivery gateway configured; codes are recorded, not sent", "method", method)
			senders[method] = channel.NewRecorder()
			continue
		}
		senders[method] = channel.NewGateway(method, url, cfg.APIKey,
			channel.WithLogger(log),
			channel.WithRate(cfg.SendsPerSecond, int(cfg.SendsPerSecond)+1),
		)
	}
	return channel.NewRouter(senders)
}

func buildSafety(cfg config.Config, security *securitypub.Publisher, reg prometheus.Registerer, log *slog.Logger) (*safetyservice.Pipeline, error) {
	pol, err := safetymodels.LoadPolicy(cfg.Safety.PolicyPath, cfg.Safety.PolicyJSON)
	if err != nil {
		return nil, fmt.Errorf("safety policy: %w", err)
	}
	if cfg.Safety.AnalyzerURL == "" {
		log.Warn("SAFETY_ANALYZER_URL not set; remote analyzers fail and every response is blocked")
	}

	list := make([]safetyservice.Analyzer, 0, len(safetymodels.Kinds))
	for _, kind := range safetymodels.Kinds {
		if kind == safetymodels.KindContextAppropriateness {
			list = append(list, analyzers.Context{})
			continue
		}
		list = append(list, analyzers.NewRemote(kind, cfg.Safety.AnalyzerURL, cfg.Safety.AnalyzerAPIKey, cfg.Safety.AnalyzerTimeout,
			analyzers.WithLogger(log),
			analyzers.WithBreaker(circuit.New("safety-"+string(kind))),
		))
	}

	return safetyservice.New(pol, list,
		safetyservice.WithLogger(log),
		safetyservice.WithMetrics(safetymetrics.New(reg)),
		safetyservice.WithNotifier(safetyservice.NewAuditNotifier(security, log)),
		safetyservice.WithAnalyzerTimeout(cfg.Safety.AnalyzerTimeout),
	)
}

// Router mounts every handler with authentication and operational endpoints.
func (a *app) Router(cfg config.Config, reg *prometheus.Registry) http.Handler {
	return httptransport.NewRouter(a.handlers, httptransport.Config{
		Tokens:     a.tokens,
		AdminToken: cfg.Auth.AdminToken,
		Metrics:    platformmetrics.Handler(reg),
		Health:     a.health,
		Logger:     slog.Default(),
	})
}

// Close flushes buffered security events.
func (a *app) Close() {
	if err := a.security.Close(); err != nil {
		slog.Default().Warn("flush security audit", "error", err)
	}
}
