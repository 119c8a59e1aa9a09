package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// StaticProjectDirectory serves lead lookups from a fixed map. Useful in
// tests and in deployments where the main API is not reachable.
type StaticProjectDirectory struct {
	leads map[string]string
}

func NewStaticProjectDirectory(leads map[string]string) *StaticProjectDirectory {
	if leads == nil {
		leads = make(map[string]string)
	}
	return &StaticProjectDirectory{leads: leads}
}

func (d *StaticProjectDirectory) ProjectLead(_ context.Context, projectId string) (string, error) {
	return d.leads[projectId], nil
}

// HttpProjectDirectory asks the main TaskiFy API who leads a project.
type HttpProjectDirectory struct {
	baseURL string
	client  *http.Client
}

func NewHttpProjectDirectory(baseURL string) *HttpProjectDirectory {
	return &HttpProjectDirectory{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (d *HttpProjectDirectory) ProjectLead(ctx context.Context, projectId string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/projects/%s/lead", d.baseURL, url.PathEscape(projectId))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("project lead request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("project lead request: status %d", resp.StatusCode)
	}

	var body struct {
		LeadId string `json:"lead_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return body.LeadId, nil
}
