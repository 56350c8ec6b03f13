package manifest

// Config addresses one manifest object. It is read-only for the lifetime of a Fetcher.
type Config struct {
	AccountURL    string
	ContainerName string
	ObjectName    string

	// ConnectionString, when non-empty, is used exclusively for authentication.
	// Otherwise the ambient credential chain is used against AccountURL.
	ConnectionString string

	MaxRetryRequests int
}
