package azure

import (
	"context"
	"errors"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// Storage error codes reported when the service rejected the presented credential.
var authErrorCodes = map[string]struct{}{
	"AuthenticationFailed":        {},
	"InvalidAuthenticationInfo":   {},
	"NoAuthenticationInformation": {},
}

// Storage error codes reported when the account, container or blob address is unusable.
var connectionErrorCodes = map[string]struct{}{
	"ContainerNotFound":   {},
	"InvalidResourceName": {},
	"InvalidUri":          {},
}

type credentialError struct {
	err error
}

func (e *credentialError) Error() string { return "credential, " + e.err.Error() }

func (e *credentialError) Unwrap() error { return e.err }

type connectionError struct {
	err error
}

func (e *connectionError) Error() string { return "connection, " + e.err.Error() }

func (e *connectionError) Unwrap() error { return e.err }

// ambientCredential marks token acquisition failures so they can be told apart
// from transport failures once they surface through the pipeline.
type ambientCredential struct {
	cred azcore.TokenCredential
}

func (c ambientCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	tk, err := c.cred.GetToken(ctx, opts)
	if err != nil && ctx.Err() == nil {
		return tk, &credentialError{err: err}
	}

	return tk, err
}

// requestError tags failures that never produced a service response as connection errors.
func requestError(err error) error {
	var (
		credErr *credentialError
		respErr *azcore.ResponseError
	)

	switch {
	case errors.As(err, &credErr), errors.As(err, &respErr):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}

	return &connectionError{err: err}
}

// IsAuthError reports whether err means the credential material was rejected or could not be resolved.
func IsAuthError(err error) bool {
	var credErr *credentialError
	if errors.As(err, &credErr) {
		return true
	}

	var authErr *azidentity.AuthenticationFailedError
	if errors.As(err, &authErr) {
		return true
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		if respErr.StatusCode == http.StatusUnauthorized {
			return true
		}

		_, ok := authErrorCodes[respErr.ErrorCode]

		return ok
	}

	return false
}

// IsConnectionError reports whether err means the endpoint, container or blob could not be addressed.
func IsConnectionError(err error) bool {
	var connErr *connectionError
	if errors.As(err, &connErr) {
		return true
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		_, ok := connectionErrorCodes[respErr.ErrorCode]

		return ok
	}

	return false
}
