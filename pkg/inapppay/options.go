package inapppay

import (
	"inapppay/internal/adapter/backend"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Option overrides a collaborator the Client would otherwise build from config.
type Option func(*options)

type options struct {
	httpClient backend.HTTPClient
	transport  Transport
	keys       KeyStore
	store      TransactionStore
	registerer prometheus.Registerer
	logger     *zerolog.Logger
}

// WithHTTPClient sends backend requests through c instead of the logging client.
func WithHTTPClient(c backend.HTTPClient) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTransport replaces the HTTP transport entirely.
func WithTransport(t Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithKeyStore overrides store.key_driver.
func WithKeyStore(s KeyStore) Option {
	return func(o *options) { o.keys = s }
}

// WithTransactionStore overrides store.driver.
func WithTransactionStore(s TransactionStore) Option {
	return func(o *options) { o.store = s }
}

// WithMetrics registers the client collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.logger = &log }
}
