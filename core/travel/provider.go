package travel

import (
	"context"
	"errors"

	"github.com/kilianp07/blockplan/core/factory"
	"github.com/kilianp07/blockplan/core/model"
)

// ErrProviderStatus is returned when a provider answers with a non-OK status.
var ErrProviderStatus = errors.New("travel: provider status not ok")

// StatusOK is the only provider status carrying a usable duration.
const StatusOK = "OK"

// Request asks a provider for the duration between two locations.
type Request struct {
	Origin      model.Location
	Destination model.Location
	Mode        model.TravelMode
	Language    string
}

// Response is a provider answer. DurationSeconds is meaningful only when
// Status is StatusOK.
type Response struct {
	Status          string
	DurationSeconds int
}

// Provider is an external distance service.
type Provider interface {
	Duration(ctx context.Context, req Request) (Response, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, req Request) (Response, error)

// Duration implements Provider.
func (f ProviderFunc) Duration(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

var providers = factory.NewRegistry[Provider]("distance provider")

// RegisterProvider adds a provider factory identified by name.
func RegisterProvider(name string, f factory.Factory[Provider]) error {
	return providers.Register(name, f)
}

// NewProvider builds the named provider. An empty name yields nil, which
// disables the provider tier.
func NewProvider(name string, conf map[string]any) (Provider, error) {
	if name == "" {
		return nil, nil
	}
	return providers.Create(factory.ModuleConfig{Type: name, Conf: conf})
}
