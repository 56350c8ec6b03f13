package azure

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/dustin/go-humanize"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/meltwater/drone-manifest/internal"
)

// DefaultBlobMaxRetryRequests Default value for Azure Blob Storage Max Retry Requests.
const DefaultBlobMaxRetryRequests = 4

// Backend reads objects from a single Azure Blob Storage container.
type Backend struct {
	logger        log.Logger
	client        *azblob.Client
	containerName string
}

// New creates an AzureBlob backend. No request is sent until Get is called.
//
// A non-empty connection string is used exclusively; otherwise the client
// authenticates against AccountURL with the ambient credential chain.
func New(l log.Logger, c Config, opts ...Option) (*Backend, error) {
	o := options{credential: defaultCredential}
	for _, opt := range opts {
		opt.apply(&o)
	}

	if c.MaxRetryRequests == 0 {
		c.MaxRetryRequests = DefaultBlobMaxRetryRequests
	}

	clientOpts := &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: int32(c.MaxRetryRequests)},
		},
	}
	if o.transport != nil {
		clientOpts.Transport = o.transport
	}

	var (
		client *azblob.Client
		err    error
	)

	if c.ConnectionString != "" {
		level.Info(l).Log("msg", "using storage connection string authentication", "container", c.ContainerName)

		client, err = azblob.NewClientFromConnectionString(c.ConnectionString, clientOpts)
		if err != nil {
			return nil, fmt.Errorf("azure, failed to create client from connection string, %w", &credentialError{err: err})
		}
	} else {
		level.Info(l).Log("msg", "using default credential chain authentication", "url", c.AccountURL, "container", c.ContainerName)

		cred, credErr := o.credential()
		if credErr != nil {
			return nil, fmt.Errorf("azure, failed to create default credential, %w", &credentialError{err: credErr})
		}

		client, err = azblob.NewClient(c.AccountURL, ambientCredential{cred: cred}, clientOpts)
		if err != nil {
			return nil, fmt.Errorf("azure, failed to create client, %w", &connectionError{err: err})
		}
	}

	backend := &Backend{
		logger:        l,
		client:        client,
		containerName: c.ContainerName,
	}

	return backend, nil
}

// Get writes downloaded content to the given writer.
func (b *Backend) Get(ctx context.Context, p string, w io.Writer) error {
	level.Debug(b.logger).Log("msg", "downloading blob", "name", p, "container", b.containerName)

	resp, err := b.client.DownloadStream(ctx, b.containerName, p, nil)
	if err != nil {
		return fmt.Errorf("get the object, %w", requestError(err))
	}

	rc := resp.Body
	defer internal.CloseWithErrLogf(b.logger, rc, "response body, close defer")

	written, err := io.Copy(w, rc)
	if err != nil {
		return fmt.Errorf("copy the object, %w", err)
	}

	level.Debug(b.logger).Log("msg", "downloaded blob", "name", p, "size", humanize.Bytes(uint64(written)))

	return nil
}
