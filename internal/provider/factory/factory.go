package factory

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"scriptstudio/internal/catalog"
	"scriptstudio/internal/config"
	"scriptstudio/internal/provider"
	anthropicProvider "scriptstudio/internal/provider/anthropic"
	googleProvider "scriptstudio/internal/provider/google"
)

const (
	defaultHTTPTimeout     = 60 * time.Second
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// RegisterConfiguredProviders constructs adapters from configuration and
// stores them in the registry. OpenAI stays unregistered: it is a reserved
// provider identifier with no adapter today.
func RegisterConfiguredProviders(cfg config.Config, registry *provider.Registry) error {
	if registry == nil {
		return errors.New("registry must not be nil")
	}

	anthropic, err := anthropicProvider.New(cfg.Providers.Anthropic, newHTTPClient(defaultHTTPTimeout))
	if err != nil {
		return fmt.Errorf("initialise anthropic provider: %w", err)
	}
	if err := registry.Register(catalog.ProviderAnthropic, anthropic); err != nil {
		return fmt.Errorf("register anthropic provider: %w", err)
	}

	google, err := googleProvider.New(cfg.Providers.Google, newHTTPClient(defaultHTTPTimeout))
	if err != nil {
		return fmt.Errorf("initialise google provider: %w", err)
	}
	if err := registry.Register(catalog.ProviderGoogle, google); err != nil {
		return fmt.Errorf("register google provider: %w", err)
	}

	return nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
