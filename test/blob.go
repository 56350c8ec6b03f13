package test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

const (
	// BlobAccountName is the storage account the emulated endpoint serves, path-style like Azurite.
	BlobAccountName = "devstoreaccount1"
	// BlobAccountKey is the well-known Azurite development key.
	BlobAccountKey = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
)

type blobFailure struct {
	status int
	code   string
}

// BlobServer emulates the download path of the Azure Blob REST API.
type BlobServer struct {
	*httptest.Server

	mu        sync.Mutex
	blobs     map[string][]byte
	failures  map[string]blobFailure
	truncated map[string]bool
	requests  []*http.Request
}

// NewBlobServer starts an emulated Blob endpoint, served over TLS when tls is true.
func NewBlobServer(tls bool) *BlobServer {
	s := &BlobServer{
		blobs:     map[string][]byte{},
		failures:  map[string]blobFailure{},
		truncated: map[string]bool{},
	}

	if tls {
		s.Server = httptest.NewTLSServer(s)
	} else {
		s.Server = httptest.NewServer(s)
	}

	return s
}

// Put stores content under container/name.
func (s *BlobServer) Put(container, name string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[container+"/"+name] = content
}

// Fail makes every download of container/name answer with the given status and storage error code.
func (s *BlobServer) Fail(container, name string, status int, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[container+"/"+name] = blobFailure{status: status, code: code}
}

// Truncate makes downloads of container/name drop the connection halfway through the body.
func (s *BlobServer) Truncate(container, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.truncated[container+"/"+name] = true
}

// Requests returns the number of requests served so far.
func (s *BlobServer) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.requests)
}

// LastAuthorization returns the Authorization header of the last request.
func (s *BlobServer) LastAuthorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.requests) == 0 {
		return ""
	}

	return s.requests[len(s.requests)-1].Header.Get("Authorization")
}

// AccountURL returns the service URL of the emulated account.
func (s *BlobServer) AccountURL() string {
	return s.URL + "/" + BlobAccountName
}

// ConnectionString returns a shared key connection string pointing at the emulated account.
func (s *BlobServer) ConnectionString() string {
	protocol := "http"
	if strings.HasPrefix(s.URL, "https://") {
		protocol = "https"
	}

	return fmt.Sprintf("DefaultEndpointsProtocol=%s;AccountName=%s;AccountKey=%s;BlobEndpoint=%s;",
		protocol, BlobAccountName, BlobAccountKey, s.AccountURL())
}

// Redirect returns a transport delivering every request to the emulated endpoint, whatever its host.
func (s *BlobServer) Redirect() policy.Transporter {
	return redirectTransport{server: s}
}

type redirectTransport struct {
	server *BlobServer
}

func (t redirectTransport) Do(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = "http"
	if t.server.TLS != nil {
		req.URL.Scheme = "https"
	}
	req.URL.Host = t.server.Listener.Addr().String()
	req.Host = ""

	return t.server.Client().Do(req)
}

func (s *BlobServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Clone(r.Context()))
	key := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/"+BlobAccountName), "/")
	failure, failed := s.failures[key]
	content, found := s.blobs[key]
	truncated := s.truncated[key]
	s.mu.Unlock()

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if failed {
		w.Header().Set("x-ms-error-code", failure.code)
		w.WriteHeader(failure.status)

		return
	}

	if !found {
		w.Header().Set("x-ms-error-code", "BlobNotFound")
		w.WriteHeader(http.StatusNotFound)

		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)

	if truncated {
		_, _ = w.Write(content[:len(content)/2])
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		panic(http.ErrAbortHandler)
	}

	_, _ = w.Write(content)
}
