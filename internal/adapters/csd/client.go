// Package csd implements the Care Services Discovery client used to look up and
// update OpenInfoMan directory entries.
package csd

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/jembi/datim-update-infoman/internal/config"
	"github.com/jembi/datim-update-infoman/internal/core/resource"
	"github.com/jembi/datim-update-infoman/internal/ports/secondary"
)

const (
	searchPath = "%s/csr/%s/careServicesRequest/urn:ihe:iti:csd:2014:stored-function:%s-search"
	updatePath = "%s/csr/%s/careServicesRequest/update/urn:openhie.org:openinfoman:%s_create"

	contentTypeXML = "text/xml"
)

// Client implements secondary.DirectoryClient over HTTP.
type Client struct {
	baseURL string
	http    *resty.Client
	logger  *zap.Logger
}

// NewClient creates a CSD client for the OpenInfoMan instance at baseURL.
// A zero timeout leaves requests unbounded.
func NewClient(baseURL string, timeout time.Duration, userAgent string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	rc := resty.New().
		SetLogger(logger.Sugar()).
		SetHeader("User-Agent", userAgent)
	if timeout > 0 {
		rc.SetTimeout(timeout)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
		logger:  logger,
	}
}

// SearchURL returns the stored-function search endpoint.
func (c *Client) SearchURL(resourceType config.ResourceType, directory string) string {
	return fmt.Sprintf(searchPath, c.baseURL, url.PathEscape(directory), resourceType)
}

// UpdateURL returns the create/update endpoint.
func (c *Client) UpdateURL(resourceType config.ResourceType, directory string) string {
	return fmt.Sprintf(updatePath, c.baseURL, url.PathEscape(directory), resourceType)
}

// Search looks up the entity with entityID in directory.
func (c *Client) Search(ctx context.Context, resourceType config.ResourceType, directory, entityID string) (*resource.Resource, error) {
	body, err := searchRequest(entityID)
	if err != nil {
		return nil, err
	}

	respBody, err := c.post(ctx, c.SearchURL(resourceType, directory), body)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(respBody)) == "" {
		return nil, &secondary.RequestError{
			StatusCode: http.StatusOK,
			Msg:        "Empty response from OpenInfoMan. Is a valid directory specified?",
		}
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromBytes(respBody); err != nil {
		return nil, &secondary.RequestError{
			StatusCode: http.StatusOK,
			Msg:        fmt.Sprintf("Invalid XML response from OpenInfoMan: %v", err),
		}
	}

	res := findResource(doc.Root(), resourceType)
	c.logger.Debug("csd search",
		zap.String("entity_id", entityID),
		zap.Bool("found", res != nil))
	return res, nil
}

// Update sends res to the create/update endpoint.
func (c *Client) Update(ctx context.Context, resourceType config.ResourceType, directory string, res *resource.Resource) error {
	body, err := updateRequest(res)
	if err != nil {
		return err
	}

	if _, err := c.post(ctx, c.UpdateURL(resourceType, directory), body); err != nil {
		return err
	}

	c.logger.Debug("csd update", zap.String("entity_id", res.EntityID()))
	return nil
}

// post sends an XML body and returns the response body of a 200 reply.
func (c *Client) post(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentTypeXML).
		SetBody(body).
		Post(endpoint)
	if err != nil {
		return nil, newTransportError(err)
	}

	c.logger.Debug("csd response",
		zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", resp.Time()))

	if resp.StatusCode() != http.StatusOK {
		return nil, &secondary.RequestError{
			StatusCode: resp.StatusCode(),
			Msg:        fmt.Sprintf("Request to OpenInfoMan responded with status %d: %s", resp.StatusCode(), resp.String()),
		}
	}
	return resp.Body(), nil
}

// findResource returns the first entry of the root's <{type}Directory> child.
// A matching directory without entries does not stop the scan.
func findResource(root *etree.Element, resourceType config.ResourceType) *resource.Resource {
	if root == nil {
		return nil
	}
	suffix := string(resourceType) + "Directory"
	for _, child := range root.ChildElements() {
		if !resource.HasLocalSuffix(child, suffix) {
			continue
		}
		if entries := child.ChildElements(); len(entries) > 0 {
			return resource.New(entries[0])
		}
	}
	return nil
}

func searchRequest(entityID string) ([]byte, error) {
	doc := etree.NewDocument()
	params := doc.CreateElement("requestParams")
	params.CreateAttr("xmlns", resource.Namespace)
	id := params.CreateElement("id")
	id.CreateAttr("entityID", entityID)

	body, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	return body, nil
}

func updateRequest(res *resource.Resource) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	params := doc.CreateElement("requestParams")
	params.CreateAttr("xmlns", resource.Namespace)
	params.AddChild(res.Element())

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to build update request: %w", err)
	}
	return buf.Bytes(), nil
}

// Ensure Client implements the interface.
var _ secondary.DirectoryClient = (*Client)(nil)
