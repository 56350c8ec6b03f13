package test

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

// Credential is a TokenCredential returning a fixed token or error and counting its uses.
type Credential struct {
	Token string
	Err   error

	calls atomic.Int32
}

// GetToken implements azcore.TokenCredential.
func (c *Credential) GetToken(_ context.Context, _ policy.TokenRequestOptions) (azcore.AccessToken, error) {
	c.calls.Add(1)

	if c.Err != nil {
		return azcore.AccessToken{}, c.Err
	}

	return azcore.AccessToken{Token: c.Token, ExpiresOn: time.Now().Add(time.Hour)}, nil
}

// Calls returns how many tokens were requested.
func (c *Credential) Calls() int {
	return int(c.calls.Load())
}
