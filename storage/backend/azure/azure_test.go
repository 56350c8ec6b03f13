package azure

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/go-kit/kit/log"

	"github.com/meltwater/drone-manifest/test"
)

const (
	testContainer = "data"
	testBlob      = "manifest.json"
)

func credentialFrom(c azcore.TokenCredential) CredentialFunc {
	return func() (azcore.TokenCredential, error) { return c, nil }
}

func TestGetWithConnectionString(t *testing.T) {
	srv := test.NewBlobServer(false)
	defer srv.Close()

	srv.Put(testContainer, testBlob, []byte(`{"nodes":{}}`))

	cred := &test.Credential{Token: "ambient"}
	b, err := New(log.NewNopLogger(), Config{
		ConnectionString: srv.ConnectionString(),
		AccountURL:       "https://elsewhere.blob.core.windows.net",
		ContainerName:    testContainer,
	}, WithCredential(credentialFrom(cred)))
	test.Ok(t, err)

	var buf bytes.Buffer
	test.Ok(t, b.Get(context.Background(), testBlob, &buf))
	test.Equals(t, `{"nodes":{}}`, buf.String())
	test.Equals(t, 0, cred.Calls())
	test.Assert(t, strings.HasPrefix(srv.LastAuthorization(), "SharedKey "), "expected shared key auth, got %q", srv.LastAuthorization())
}

func TestGetWithAmbientCredential(t *testing.T) {
	srv := test.NewBlobServer(true)
	defer srv.Close()

	srv.Put(testContainer, testBlob, []byte(`{"sources":{}}`))

	cred := &test.Credential{Token: "ambient"}
	b, err := New(log.NewNopLogger(), Config{
		AccountURL:    srv.AccountURL(),
		ContainerName: testContainer,
	}, WithCredential(credentialFrom(cred)), WithTransport(srv.Client()))
	test.Ok(t, err)

	var buf bytes.Buffer
	test.Ok(t, b.Get(context.Background(), testBlob, &buf))
	test.Equals(t, `{"sources":{}}`, buf.String())
	test.Assert(t, cred.Calls() > 0, "ambient credential was not used")
	test.Equals(t, "Bearer ambient", srv.LastAuthorization())
}

func TestNewWithMalformedConnectionString(t *testing.T) {
	called := false
	_, err := New(log.NewNopLogger(), Config{
		ConnectionString: "not-a-connection-string",
		ContainerName:    testContainer,
	}, WithCredential(func() (azcore.TokenCredential, error) {
		called = true
		return &test.Credential{}, nil
	}))

	test.NotOk(t, err)
	test.Assert(t, IsAuthError(err), "expected auth error, got %v", err)
	test.Assert(t, !IsConnectionError(err), "auth error classified as connection error: %v", err)
	test.Assert(t, !called, "ambient credential resolved despite connection string")
}

func TestNewWithUnresolvableCredential(t *testing.T) {
	_, err := New(log.NewNopLogger(), Config{
		AccountURL:    "https://acct.blob.core.windows.net",
		ContainerName: testContainer,
	}, WithCredential(func() (azcore.TokenCredential, error) {
		return nil, errors.New("no identity available")
	}))

	test.NotOk(t, err)
	test.Assert(t, IsAuthError(err), "expected auth error, got %v", err)
}

func TestGetErrorClassification(t *testing.T) {
	for _, tc := range []struct {
		name       string
		status     int
		code       string
		auth, conn bool
	}{
		{name: "blob not found", status: http.StatusNotFound, code: "BlobNotFound"},
		{name: "permission mismatch", status: http.StatusForbidden, code: "AuthorizationPermissionMismatch"},
		{name: "shared key rejected", status: http.StatusForbidden, code: "AuthenticationFailed", auth: true},
		{name: "unauthorized", status: http.StatusUnauthorized, code: "InvalidAuthenticationInfo", auth: true},
		{name: "container not found", status: http.StatusNotFound, code: "ContainerNotFound", conn: true},
		{name: "invalid resource name", status: http.StatusBadRequest, code: "InvalidResourceName", conn: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv := test.NewBlobServer(false)
			defer srv.Close()

			srv.Fail(testContainer, testBlob, tc.status, tc.code)

			b, err := New(log.NewNopLogger(), Config{
				ConnectionString: srv.ConnectionString(),
				ContainerName:    testContainer,
				MaxRetryRequests: -1,
			})
			test.Ok(t, err)

			err = b.Get(context.Background(), testBlob, &bytes.Buffer{})
			test.NotOk(t, err)
			test.Equals(t, tc.auth, IsAuthError(err))
			test.Equals(t, tc.conn, IsConnectionError(err))
		})
	}
}

func TestGetUnreachableEndpoint(t *testing.T) {
	srv := test.NewBlobServer(false)
	cs := srv.ConnectionString()
	srv.Close()

	b, err := New(log.NewNopLogger(), Config{
		ConnectionString: cs,
		ContainerName:    testContainer,
		MaxRetryRequests: -1,
	})
	test.Ok(t, err)

	err = b.Get(context.Background(), testBlob, &bytes.Buffer{})
	test.NotOk(t, err)
	test.Assert(t, IsConnectionError(err), "expected connection error, got %v", err)
	test.Assert(t, !IsAuthError(err), "connection error classified as auth error: %v", err)
}

func TestGetTokenFailure(t *testing.T) {
	srv := test.NewBlobServer(true)
	defer srv.Close()

	srv.Put(testContainer, testBlob, []byte(`{}`))

	b, err := New(log.NewNopLogger(), Config{
		AccountURL:       srv.AccountURL(),
		ContainerName:    testContainer,
		MaxRetryRequests: -1,
	}, WithCredential(credentialFrom(&test.Credential{Err: errors.New("token endpoint unavailable")})), WithTransport(srv.Client()))
	test.Ok(t, err)

	err = b.Get(context.Background(), testBlob, &bytes.Buffer{})
	test.NotOk(t, err)
	test.Assert(t, IsAuthError(err), "expected auth error, got %v", err)
	test.Equals(t, 0, srv.Requests())
}

func TestGetTruncatedBody(t *testing.T) {
	srv := test.NewBlobServer(false)
	defer srv.Close()

	srv.Put(testContainer, testBlob, bytes.Repeat([]byte("x"), 64*1024))
	srv.Truncate(testContainer, testBlob)

	b, err := New(log.NewNopLogger(), Config{
		ConnectionString: srv.ConnectionString(),
		ContainerName:    testContainer,
		MaxRetryRequests: -1,
	})
	test.Ok(t, err)

	err = b.Get(context.Background(), testBlob, &bytes.Buffer{})
	test.NotOk(t, err)
	test.Assert(t, !IsAuthError(err) && !IsConnectionError(err), "truncated body misclassified: %v", err)
}
