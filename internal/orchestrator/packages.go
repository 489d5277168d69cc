package orchestrator

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

const resourcePackagesPath = "/api/resource-manager/resource-packages"

// OnboardPackage uploads a resource package as the multipart field "file".
// The body is streamed.
func (c *Client) OnboardPackage(ctx context.Context, fileName string, content io.Reader) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", fileName)
		if err == nil {
			_, err = io.Copy(part, content)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	err := c.send(ctx, request{
		method:      http.MethodPost,
		path:        resourcePackagesPath,
		body:        pr,
		contentType: mw.FormDataContentType(),
		expect:      []int{http.StatusCreated},
	})
	_ = pr.Close()
	return err
}

func (c *Client) DeletePackage(ctx context.Context, name string) error {
	return c.send(ctx, request{
		method: http.MethodDelete,
		path:   resourcePackagesPath + "/" + url.PathEscape(name),
		expect: []int{http.StatusNoContent},
	})
}
