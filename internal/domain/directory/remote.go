package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RemoteClient talks to an employee-directory service over HTTP. Used
// when the directory runs as a separate deployment. Every call carries
// the client's timeout; transport and 5xx failures surface as
// ErrUnavailable so the retry/breaker layer can treat them as transient.
type RemoteClient struct {
	baseURL string
	http    *http.Client
}

func NewRemoteClient(baseURL string, timeout time.Duration) *RemoteClient {
	return &RemoteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type employeeEnvelope struct {
	Success bool      `json:"success"`
	Data    *Employee `json:"data"`
}

type employeeListEnvelope struct {
	Success bool       `json:"success"`
	Data    []Employee `json:"data"`
}

func (c *RemoteClient) EmployeeByID(ctx context.Context, id string) (*Employee, error) {
	var envelope employeeEnvelope
	if err := c.get(ctx, "/employees/"+url.PathEscape(id), &envelope); err != nil {
		return nil, err
	}
	if envelope.Data == nil {
		return nil, ErrNotFound
	}
	return envelope.Data, nil
}

func (c *RemoteClient) EmployeesByIDs(ctx context.Context, ids []string) (map[string]Employee, error) {
	out := make(map[string]Employee, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var envelope employeeListEnvelope
	path := "/employees?ids=" + url.QueryEscape(strings.Join(ids, ","))
	if err := c.get(ctx, path, &envelope); err != nil {
		return nil, err
	}
	for _, employee := range envelope.Data {
		out[employee.ID] = employee
	}
	return out, nil
}

func (c *RemoteClient) IsActive(ctx context.Context, id string) (bool, error) {
	employee, err := c.EmployeeByID(ctx, id)
	if err != nil {
		return false, err
	}
	return employee.Status == "active", nil
}

func (c *RemoteClient) DepartmentID(ctx context.Context, id string) (string, error) {
	employee, err := c.EmployeeByID(ctx, id)
	if err != nil {
		return "", err
	}
	return employee.DepartmentID, nil
}

func (c *RemoteClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: directory returned %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("directory returned unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}
	return nil
}
