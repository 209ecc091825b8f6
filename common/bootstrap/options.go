package bootstrap

import (
	"github.com/qefaraki/lineage/common/config"
	"github.com/qefaraki/lineage/common/db"
	"github.com/qefaraki/lineage/common/logger"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipDB        bool
	skipQueue     bool
	skipCache     bool
	skipTelemetry bool
	customConfig  *config.Config
	customLogger  *logger.Logger
	dbInitHook    func(*db.DB) error
}

func defaultOptions() *options {
	return &options{}
}

// WithoutDB skips database initialization (for tools that don't need it)
func WithoutDB() Option {
	return func(o *options) { o.skipDB = true }
}

// WithoutQueue skips queue initialization
func WithoutQueue() Option {
	return func(o *options) { o.skipQueue = true }
}

// WithoutCache skips cache initialization
func WithoutCache() Option {
	return func(o *options) { o.skipCache = true }
}

// WithoutTelemetry skips telemetry initialization
func WithoutTelemetry() Option {
	return func(o *options) { o.skipTelemetry = true }
}

// WithConfig supplies a pre-built configuration instead of loading from env
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.customConfig = cfg }
}

// WithLogger supplies a pre-built logger
func WithLogger(log *logger.Logger) Option {
	return func(o *options) { o.customLogger = log }
}

// WithDBInitHook runs fn against the database right after connecting,
// before any service starts (schema checks, migrations).
func WithDBInitHook(fn func(*db.DB) error) Option {
	return func(o *options) { o.dbInitHook = fn }
}
