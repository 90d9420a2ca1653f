// Package engine wires the reconciliation components into the two
// user-facing flows: generating scan reports from dated exports, and
// turning price edits into submitted change reports.
package engine

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/config"
	"github.com/sells-group/recon-cli/internal/directory"
	"github.com/sells-group/recon-cli/internal/fetcher"
	"github.com/sells-group/recon-cli/internal/pricechange"
	"github.com/sells-group/recon-cli/internal/pricing"
	"github.com/sells-group/recon-cli/internal/profile"
	"github.com/sells-group/recon-cli/internal/recon"
	"github.com/sells-group/recon-cli/internal/store"
)

var (
	// ErrConfirmationRequired is returned by Submit when validation produced
	// warnings and the caller has not confirmed them.
	ErrConfirmationRequired = eris.New("engine: confirmation required")
	// ErrInvalidChanges is returned by Submit when validation failed.
	ErrInvalidChanges = eris.New("engine: invalid price changes")
	// ErrNoSnapshot is returned when the price prefix holds no snapshot.
	ErrNoSnapshot = eris.New("engine: no price snapshot found")
	// ErrUnknownProfile is returned for an unregistered report type.
	ErrUnknownProfile = eris.New("engine: unknown profile")
)

// Service runs the scan and price-change flows against one bucket.
type Service struct {
	cfg       *config.Config
	transport fetcher.Transport
	store     store.Store
	profiles  *profile.Registry
	filter    *recon.Filter
	directory *directory.Cache
	sink      pricechange.Sink
	limits    pricechange.Limits
	mappings  []pricing.NameMapping
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSink overrides the report sink.
func WithSink(sink pricechange.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithProfiles overrides the profile registry.
func WithProfiles(r *profile.Registry) Option {
	return func(s *Service) { s.profiles = r }
}

// WithNameMappings sets the friendly item names applied to price models.
func WithNameMappings(m []pricing.NameMapping) Option {
	return func(s *Service) { s.mappings = m }
}

// New creates a Service. st may be nil, in which case submitted reports
// are uploaded but not recorded in the ledger.
func New(cfg *config.Config, t fetcher.Transport, st store.Store, opts ...Option) *Service {
	limits := pricechange.DefaultLimits()
	if cfg.Pricing.MaxPrice > 0 {
		limits.MaxPrice = cfg.Pricing.MaxPrice
	}
	if cfg.Pricing.LargeChangeThreshold > 0 {
		limits.LargeChange = cfg.Pricing.LargeChangeThreshold
	}

	defaults := cfg.Filter.DefaultDiscountIDs
	if len(defaults) == 0 {
		defaults = config.DefaultDiscountIDs
	}

	s := &Service{
		cfg:       cfg,
		transport: t,
		store:     st,
		profiles:  profile.NewRegistry(),
		filter:    recon.NewFilter(defaults),
		directory: directory.NewCache(directory.WithTTL(time.Duration(cfg.Directory.TTLMinutes) * time.Minute)),
		sink:      pricechange.NewHTTPSink(t, cfg.Bucket.URL, cfg.Bucket.ReportPrefix),
		limits:    limits,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewFromConfig builds the transport, registry and name mappings described
// by cfg.
func NewFromConfig(cfg *config.Config, st store.Store, opts ...Option) (*Service, error) {
	t, err := fetcher.New(cfg.Bucket.URL, fetcher.Options{
		HTTP: fetcher.HTTPOptions{
			UserAgent:  cfg.Fetch.UserAgent,
			Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Fetch.MaxRetries,
			RatePerSec: cfg.Fetch.RatePerSec,
		},
	})
	if err != nil {
		return nil, err
	}

	reg := profile.NewRegistry()
	if cfg.Profiles.Path != "" {
		if err := reg.LoadFile(cfg.Profiles.Path); err != nil {
			return nil, err
		}
	}
	all := append([]Option{WithProfiles(reg)}, opts...)

	if cfg.Pricing.NameMappingsPath != "" {
		f, err := os.Open(cfg.Pricing.NameMappingsPath)
		if err != nil {
			return nil, eris.Wrap(err, "engine: open name mappings")
		}
		defer f.Close() //nolint:errcheck
		m, err := pricing.LoadNameMappings(f)
		if err != nil {
			return nil, err
		}
		all = append(all, WithNameMappings(m))
	}

	return New(cfg, t, st, all...), nil
}

// Profiles returns the registered profile names.
func (s *Service) Profiles() []string {
	return s.profiles.Names()
}

func (s *Service) log() *zap.Logger {
	return zap.L().With(zap.String("component", "engine"))
}

func (s *Service) objectURL(key string) string {
	return fetcher.ObjectURL(s.cfg.Bucket.URL, key)
}

func (s *Service) download(ctx context.Context, key string) ([]byte, error) {
	body, err := s.transport.Download(ctx, s.objectURL(key))
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck
	return readAll(body)
}
