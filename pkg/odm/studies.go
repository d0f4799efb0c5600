package odm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ErrNoDefaultTemplate is returned when the template list has no entry
// flagged as default.
var ErrNoDefaultTemplate = errors.New("no default template is configured on the server")

// Study verifies that the study with the given accession is readable.
func (c *Client) Study(ctx context.Context, accession string) error {
	return c.get(ctx, "/api/v1/studies/"+url.PathEscape(accession), nil)
}

// StudyGroups lists the group accessions of the given kind registered
// under a study.
func (c *Client) StudyGroups(ctx context.Context, study string, kind ImportKind) ([]string, error) {
	var resp struct {
		Groups []string `json:"groups"`
	}
	path := fmt.Sprintf("/api/v1/studies/%s/groups/%s", url.PathEscape(study), url.PathEscape(string(kind)))
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Groups, nil
}

// Templates lists the study templates known to the server.
func (c *Client) Templates(ctx context.Context) ([]Template, error) {
	var templates []Template
	if err := c.get(ctx, "/api/v1/templates", &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// DefaultTemplate returns the accession of the template flagged default.
func (c *Client) DefaultTemplate(ctx context.Context) (string, error) {
	templates, err := c.Templates(ctx)
	if err != nil {
		return "", err
	}
	for _, t := range templates {
		if t.Default {
			return t.Accession, nil
		}
	}
	return "", ErrNoDefaultTemplate
}

// MappingFile verifies that a mapping file with the given accession exists.
func (c *Client) MappingFile(ctx context.Context, accession string) error {
	return c.get(ctx, "/api/v1/mapping-files/"+url.PathEscape(accession), nil)
}

// UploadMappingFile imports a mapping file synchronously and returns its
// accession.
func (c *Client) UploadMappingFile(ctx context.Context, req MappingFileRequest) (string, error) {
	var resp struct {
		Accession string `json:"accession"`
	}
	if err := c.post(ctx, "/api/v1/mapping-files", req, &resp); err != nil {
		return "", err
	}
	if resp.Accession == "" {
		return "", fmt.Errorf("upload mapping file: response has no accession")
	}
	return resp.Accession, nil
}
