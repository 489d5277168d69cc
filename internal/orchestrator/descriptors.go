package orchestrator

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

const (
	descriptorsPath = "/api/catalog/descriptors"
	templatesPath   = "/api/catalog/descriptorTemplates"
	yamlContentType = "application/yaml"
)

func (c *Client) GetDescriptor(ctx context.Context, name string) (string, error) {
	return c.getYAML(ctx, descriptorsPath, name)
}

func (c *Client) CreateDescriptor(ctx context.Context, content string) error {
	return c.createYAML(ctx, descriptorsPath, content)
}

func (c *Client) UpdateDescriptor(ctx context.Context, name, content string) error {
	return c.updateYAML(ctx, descriptorsPath, name, content)
}

func (c *Client) DeleteDescriptor(ctx context.Context, name string) error {
	return c.send(ctx, request{
		method: http.MethodDelete,
		path:   descriptorsPath + "/" + url.PathEscape(name),
		expect: []int{http.StatusNoContent},
	})
}

func (c *Client) GetDescriptorTemplate(ctx context.Context, name string) (string, error) {
	return c.getYAML(ctx, templatesPath, name)
}

func (c *Client) CreateDescriptorTemplate(ctx context.Context, content string) error {
	return c.createYAML(ctx, templatesPath, content)
}

func (c *Client) UpdateDescriptorTemplate(ctx context.Context, name, content string) error {
	return c.updateYAML(ctx, templatesPath, name, content)
}

func (c *Client) getYAML(ctx context.Context, base, name string) (string, error) {
	return c.text(ctx, request{
		method: http.MethodGet,
		path:   base + "/" + url.PathEscape(name),
		accept: yamlContentType,
		expect: []int{http.StatusOK},
	})
}

func (c *Client) createYAML(ctx context.Context, base, content string) error {
	return c.send(ctx, request{
		method:      http.MethodPost,
		path:        base,
		body:        strings.NewReader(content),
		contentType: yamlContentType,
		expect:      []int{http.StatusCreated},
	})
}

func (c *Client) updateYAML(ctx context.Context, base, name, content string) error {
	return c.send(ctx, request{
		method:      http.MethodPut,
		path:        base + "/" + url.PathEscape(name),
		body:        strings.NewReader(content),
		contentType: yamlContentType,
		expect:      []int{http.StatusOK},
	})
}
