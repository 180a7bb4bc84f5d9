package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	goversion "github.com/hashicorp/go-version"
	"github.com/pipdock/backend/internal/core/ports"
	"github.com/pipdock/backend/internal/domain"
	"github.com/pipdock/backend/internal/infrastructure/logger"
)

// PyPIClient queries the package index JSON API
// (GET {base}/{name}/json) for package metadata.
type PyPIClient struct {
	baseURL string
	client  *http.Client
	logger  *logger.Logger
}

func NewPyPIClient(baseURL string, timeout time.Duration, log *logger.Logger) ports.RegistryClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PyPIClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  log,
	}
}

// indexResponse is the subset of the index payload we care about.
type indexResponse struct {
	Info struct {
		Version string `json:"version"`
		Summary string `json:"summary"`
	} `json:"info"`
	Releases map[string]json.RawMessage `json:"releases"`
}

func (c *PyPIClient) Lookup(ctx context.Context, name string) (*domain.RegistryInfo, error) {
	endpoint := fmt.Sprintf("%s/%s/json", c.baseURL, url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry: lookup %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Unknown packages are not an error, the index just has nothing.
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry: lookup %s: unexpected status %d", name, resp.StatusCode)
	}

	var payload indexResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("registry: lookup %s: %w", name, err)
	}

	return &domain.RegistryInfo{
		Version:  payload.Info.Version,
		Summary:  payload.Info.Summary,
		Releases: sortedReleases(payload.Releases),
	}, nil
}

// sortedReleases returns the release version strings newest first.
// Versions the parser cannot read sort after parseable ones, ordered
// lexically among themselves.
func sortedReleases(releases map[string]json.RawMessage) []string {
	out := make([]string, 0, len(releases))
	for v := range releases {
		out = append(out, v)
	}

	sort.Slice(out, func(i, j int) bool {
		vi, errI := goversion.NewVersion(domain.NormalizeVersion(out[i]))
		vj, errJ := goversion.NewVersion(domain.NormalizeVersion(out[j]))
		switch {
		case errI == nil && errJ == nil:
			return vi.GreaterThan(vj)
		case errI == nil:
			return true
		case errJ == nil:
			return false
		default:
			return out[i] > out[j]
		}
	})
	return out
}
