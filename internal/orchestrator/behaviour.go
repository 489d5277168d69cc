package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const (
	projectsPath       = "/api/behaviour/projects"
	configurationsPath = "/api/behaviour/assemblyConfigurations"
	scenariosPath      = "/api/behaviour/scenarios"
	executionsPath     = "/api/behaviour/executions"
	jsonContentType    = "application/json"
)

func (c *Client) GetProject(ctx context.Context, id string) (Object, error) {
	var out Object
	err := c.decode(ctx, request{
		method: http.MethodGet,
		path:   projectsPath + "/" + url.PathEscape(id),
		expect: []int{http.StatusOK},
	}, &out)
	return out, err
}

func (c *Client) CreateProject(ctx context.Context, project Object) error {
	return c.create(ctx, projectsPath, project)
}

func (c *Client) UpdateProject(ctx context.Context, project Object) error {
	return c.update(ctx, projectsPath, project)
}

func (c *Client) ListConfigurations(ctx context.Context, projectID string) ([]Object, error) {
	return c.list(ctx, configurationsPath, projectID)
}

func (c *Client) CreateConfiguration(ctx context.Context, configuration Object) error {
	return c.create(ctx, configurationsPath, configuration)
}

func (c *Client) UpdateConfiguration(ctx context.Context, configuration Object) error {
	return c.update(ctx, configurationsPath, configuration)
}

func (c *Client) ListScenarios(ctx context.Context, projectID string) ([]Object, error) {
	return c.list(ctx, scenariosPath, projectID)
}

func (c *Client) CreateScenario(ctx context.Context, scenario Object) error {
	return c.create(ctx, scenariosPath, scenario)
}

func (c *Client) UpdateScenario(ctx context.Context, scenario Object) error {
	return c.update(ctx, scenariosPath, scenario)
}

func (c *Client) ExecuteScenario(ctx context.Context, scenarioID string) (string, error) {
	body, err := jsonBody(Object{"scenarioId": scenarioID})
	if err != nil {
		return "", err
	}
	resp, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        executionsPath,
		body:        body,
		contentType: jsonContentType,
		expect:      []int{http.StatusCreated},
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("execution of scenario %s returned no Location", scenarioID)
	}
	return location, nil
}

func (c *Client) GetExecution(ctx context.Context, id string) (Object, error) {
	var out Object
	err := c.decode(ctx, request{
		method: http.MethodGet,
		path:   executionsPath + "/" + url.PathEscape(id),
		expect: []int{http.StatusOK},
	}, &out)
	return out, err
}

func (c *Client) list(ctx context.Context, base, projectID string) ([]Object, error) {
	var out []Object
	err := c.decode(ctx, request{
		method: http.MethodGet,
		path:   base + "?projectId=" + url.QueryEscape(projectID),
		expect: []int{http.StatusOK},
	}, &out)
	return out, err
}

func (c *Client) create(ctx context.Context, base string, obj Object) error {
	body, err := jsonBody(obj)
	if err != nil {
		return err
	}
	return c.send(ctx, request{
		method:      http.MethodPost,
		path:        base,
		body:        body,
		contentType: jsonContentType,
		expect:      []int{http.StatusCreated},
	})
}

func (c *Client) update(ctx context.Context, base string, obj Object) error {
	id, _ := obj["id"].(string)
	if id == "" {
		return fmt.Errorf("cannot update %s without an id", base)
	}
	body, err := jsonBody(obj)
	if err != nil {
		return err
	}
	return c.send(ctx, request{
		method:      http.MethodPut,
		path:        base + "/" + url.PathEscape(id),
		body:        body,
		contentType: jsonContentType,
		expect:      []int{http.StatusOK},
	})
}
