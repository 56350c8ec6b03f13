package azure

import (
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// CredentialFunc resolves the ambient identity used when no connection string is configured.
type CredentialFunc func() (azcore.TokenCredential, error)

type options struct {
	credential CredentialFunc
	transport  policy.Transporter
}

// Option overrides behavior of Backend.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) {
	f(o)
}

// WithCredential sets the ambient credential resolver.
func WithCredential(f CredentialFunc) Option {
	return optionFunc(func(o *options) {
		o.credential = f
	})
}

// WithTransport sets the HTTP transport used by the blob client.
func WithTransport(t policy.Transporter) Option {
	return optionFunc(func(o *options) {
		o.transport = t
	})
}

func defaultCredential() (azcore.TokenCredential, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}

	return cred, nil
}
