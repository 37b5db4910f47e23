package provider

import (
	"context"

	"github.com/ZaguanLabs/memotl"
)

// RemoteProvider is the placeholder for a hosted translation API.
// It never touches the network and always reports ErrNotImplemented.
type RemoteProvider struct{}

// NewRemoteProvider creates the remote placeholder.
func NewRemoteProvider() *RemoteProvider {
	return &RemoteProvider{}
}

// Name returns the backend name.
func (p *RemoteProvider) Name() string {
	return memotl.ServiceRemote.String()
}

// Translate returns the input text and ErrNotImplemented.
func (p *RemoteProvider) Translate(_ context.Context, req TranslateRequest) (string, error) {
	return req.Text, memotl.ErrNotImplemented
}

// PassthroughProvider is selected for unknown service names.
type PassthroughProvider struct{}

// NewPassthroughProvider creates the passthrough backend.
func NewPassthroughProvider() *PassthroughProvider {
	return &PassthroughProvider{}
}

// Name returns the backend name.
func (p *PassthroughProvider) Name() string {
	return memotl.ServicePassthrough.String()
}

// Translate returns the input text and ErrPassthrough.
func (p *PassthroughProvider) Translate(_ context.Context, req TranslateRequest) (string, error) {
	return req.Text, memotl.ErrPassthrough
}

var (
	_ Backend = (*RemoteProvider)(nil)
	_ Backend = (*PassthroughProvider)(nil)
)
