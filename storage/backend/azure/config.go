package azure

// Config is a structure to store Azure backend configuration.
type Config struct {
	// Authentication - storage connection string. When set it is used exclusively.
	ConnectionString string

	// Authentication - default credential chain, used against AccountURL
	// when no connection string is given.
	AccountURL string

	// Storage Configuration
	ContainerName    string
	MaxRetryRequests int
}
