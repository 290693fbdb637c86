package openapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/pb33f/libopenapi"
	"github.com/pb33f/libopenapi/datamodel/high/base"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

// HTTPClient interface for making HTTP requests
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Parser loads an OpenAPI 3 API description and exposes its v3 model
type Parser struct {
	document   libopenapi.Document
	model      *libopenapi.DocumentModel[v3.Document]
	httpClient HTTPClient
	source     string
}

func NewParser() *Parser {
	return &Parser{
		httpClient: http.DefaultClient,
	}
}

func NewParserWithClient(client HTTPClient) *Parser {
	return &Parser{
		httpClient: client,
	}
}

// LoadFromURL fetches and parses the description. file:// URLs are read from disk,
// every other scheme goes through the HTTP client.
func (p *Parser) LoadFromURL(ctx context.Context, urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("parsing URL: %w", err)
	}

	if parsedURL.Scheme == "file" {
		filePath := parsedURL.Path

		// file://./api.yaml puts the leading segment in the host
		if parsedURL.Host != "" {
			filePath = parsedURL.Host + parsedURL.Path
		}

		if !filepath.IsAbs(filePath) {
			filePath, err = filepath.Abs(filePath)
			if err != nil {
				return fmt.Errorf("resolving absolute path: %w", err)
			}
		}
		if err := p.loadFromFile(filePath); err != nil {
			return err
		}
		p.source = urlStr
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.oai.openapi+json;version=3.0, application/json, application/yaml")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching API description: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if err := p.LoadFromBytes(body); err != nil {
		return err
	}
	p.source = urlStr
	return nil
}

// loadFromFile loads an OpenAPI description from a local file
func (p *Parser) loadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading file %s: %w", filePath, err)
	}

	return p.LoadFromBytes(data)
}

// LoadFromBytes parses a JSON or YAML OpenAPI 3 document
func (p *Parser) LoadFromBytes(data []byte) error {
	document, err := libopenapi.NewDocument(data)
	if err != nil {
		return fmt.Errorf("parsing OpenAPI document: %w", err)
	}

	model, errs := document.BuildV3Model()
	if len(errs) > 0 {
		return fmt.Errorf("building v3 model: %v", errs)
	}

	p.document = document
	p.model = model

	return nil
}

// Source returns the URL the description was loaded from
func (p *Parser) Source() string {
	return p.source
}

// Model returns the built v3 document
func (p *Parser) Model() (*v3.Document, error) {
	if p.model == nil {
		return nil, fmt.Errorf("no OpenAPI document loaded")
	}
	return &p.model.Model, nil
}

func (p *Parser) GetInfo() (*base.Info, error) {
	if p.model == nil {
		return nil, fmt.Errorf("no OpenAPI document loaded")
	}
	return p.model.Model.Info, nil
}

func (p *Parser) GetServers() ([]*v3.Server, error) {
	if p.model == nil {
		return nil, fmt.Errorf("no OpenAPI document loaded")
	}
	return p.model.Model.Servers, nil
}

// LookupParameter finds a parameter by exact name for a GET on the path item.
// The path-item list is searched first and shadows the operation list.
func LookupParameter(pathItem *v3.PathItem, name string) (*v3.Parameter, bool) {
	if pathItem == nil {
		return nil, false
	}
	for _, p := range pathItem.Parameters {
		if p != nil && p.Name == name {
			return p, true
		}
	}
	if pathItem.Get == nil {
		return nil, false
	}
	for _, p := range pathItem.Get.Parameters {
		if p != nil && p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// PathItem returns the path item declared for an exact path template
func (p *Parser) PathItem(template string) (*v3.PathItem, bool) {
	if p.model == nil || p.model.Model.Paths == nil || p.model.Model.Paths.PathItems == nil {
		return nil, false
	}
	return p.model.Model.Paths.PathItems.Get(template)
}
