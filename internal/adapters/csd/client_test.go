package csd_test

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jembi/datim-update-infoman/internal/adapters/csd"
	"github.com/jembi/datim-update-infoman/internal/config"
	"github.com/jembi/datim-update-infoman/internal/core/resource"
	"github.com/jembi/datim-update-infoman/internal/ports/secondary"
)

const orgSearchResponse = `<?xml version="1.0" encoding="UTF-8"?>
<CSD xmlns:csd="urn:ihe:iti:csd:2013" xmlns="urn:ihe:iti:csd:2013">
  <organizationDirectory>
    <organization entityID="PEP001">
      <primaryName>District Office</primaryName>
    </organization>
  </organizationDirectory>
  <facilityDirectory/>
</CSD>`

const prefixedFacilityResponse = `<csd:CSD xmlns:csd="urn:ihe:iti:csd:2013">
  <csd:organizationDirectory/>
  <csd:facilityDirectory>
    <csd:facility entityID="FAC9"><csd:primaryName>Clinic</csd:primaryName></csd:facility>
  </csd:facilityDirectory>
</csd:CSD>`

const emptyDirectoryResponse = `<CSD xmlns="urn:ihe:iti:csd:2013">
  <organizationDirectory/>
</CSD>`

type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        string
}

// newCSDServer returns a server answering every request with status and body,
// recording what it received.
func newCSDServer(t *testing.T, status int, body string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		reqs = append(reqs, recordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Body:        string(b),
		})
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func newClient(baseURL string) *csd.Client {
	return csd.NewClient(baseURL, 0, "datim-update-infoman/test", nil)
}

// closedURL returns the URL of a listener that has already been closed, so
// connecting to it is refused.
func closedURL(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return "http://" + addr + "/CSD"
}

func TestURLs(t *testing.T) {
	c := newClient("http://localhost:8984/CSD/")

	assert.Equal(t,
		"http://localhost:8984/CSD/csr/DATIM/careServicesRequest/urn:ihe:iti:csd:2014:stored-function:facility-search",
		c.SearchURL(config.Facility, "DATIM"))
	assert.Equal(t,
		"http://localhost:8984/CSD/csr/DATIM/careServicesRequest/update/urn:openhie.org:openinfoman:provider_create",
		c.UpdateURL(config.Provider, "DATIM"))
}

func TestSearch_Found(t *testing.T) {
	srv, reqs := newCSDServer(t, http.StatusOK, orgSearchResponse)

	res, err := newClient(srv.URL+"/CSD").Search(context.Background(), config.Organization, "DATIM", "PEP001")
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, "organization", res.Tag())
	assert.Equal(t, "PEP001", res.EntityID())

	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/CSD/csr/DATIM/careServicesRequest/urn:ihe:iti:csd:2014:stored-function:organization-search", req.Path)
	assert.Equal(t, "text/xml", req.ContentType)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(req.Body))
	assert.Equal(t, "requestParams", doc.Root().Tag)
	assert.Equal(t, resource.Namespace, doc.Root().SelectAttrValue("xmlns", ""))
	id := doc.Root().SelectElement("id")
	require.NotNil(t, id)
	assert.Equal(t, "PEP001", id.SelectAttrValue("entityID", ""))
}

func TestSearch_PrefixedNamespace(t *testing.T) {
	srv, _ := newCSDServer(t, http.StatusOK, prefixedFacilityResponse)

	res, err := newClient(srv.URL).Search(context.Background(), config.Facility, "DATIM", "FAC9")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "facility", res.Tag())
	assert.Equal(t, "FAC9", res.EntityID())
}

func TestSearch_EntityIDIsEscaped(t *testing.T) {
	srv, reqs := newCSDServer(t, http.StatusOK, emptyDirectoryResponse)

	_, err := newClient(srv.URL).Search(context.Background(), config.Organization, "DATIM", `a"b<c`)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString((*reqs)[0].Body))
	assert.Equal(t, `a"b<c`, doc.Root().SelectElement("id").SelectAttrValue("entityID", ""))
}

func TestSearch_EmptyDirectoryIsNotFound(t *testing.T) {
	srv, _ := newCSDServer(t, http.StatusOK, emptyDirectoryResponse)

	res, err := newClient(srv.URL).Search(context.Background(), config.Organization, "DATIM", "PEP404")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestSearch_OtherResourceTypeIsNotFound(t *testing.T) {
	srv, _ := newCSDServer(t, http.StatusOK, orgSearchResponse)

	res, err := newClient(srv.URL).Search(context.Background(), config.Facility, "DATIM", "PEP001")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestSearch_NonOKStatus(t *testing.T) {
	srv, _ := newCSDServer(t, http.StatusNotFound, "no such function")

	_, err := newClient(srv.URL).Search(context.Background(), config.Organization, "DATIM", "PEP001")
	require.Error(t, err)

	var reqErr *secondary.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusNotFound, reqErr.StatusCode)
	assert.Equal(t, "Request to OpenInfoMan responded with status 404: no such function", err.Error())

	var transportErr *secondary.TransportError
	assert.False(t, errors.As(err, &transportErr))
}

func TestSearch_EmptyBody(t *testing.T) {
	srv, _ := newCSDServer(t, http.StatusOK, "  \n")

	_, err := newClient(srv.URL).Search(context.Background(), config.Organization, "NOPE", "PEP001")

	var reqErr *secondary.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "Empty response from OpenInfoMan. Is a valid directory specified?", err.Error())
}

func TestSearch_MalformedXML(t *testing.T) {
	srv, _ := newCSDServer(t, http.StatusOK, "<CSD entityID=>")

	_, err := newClient(srv.URL).Search(context.Background(), config.Organization, "DATIM", "PEP001")

	var reqErr *secondary.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Contains(t, err.Error(), "Invalid XML response from OpenInfoMan")
}

func TestSearch_Latin1Response(t *testing.T) {
	body := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<CSD><organizationDirectory><organization entityID=\"PEP1\"><primaryName>S\xe3o Paulo</primaryName></organization></organizationDirectory></CSD>"
	srv, _ := newCSDServer(t, http.StatusOK, body)

	res, err := newClient(srv.URL).Search(context.Background(), config.Organization, "DATIM", "PEP1")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "São Paulo", res.Element().SelectElement("primaryName").Text())
}

func TestSearch_ConnectionRefused(t *testing.T) {
	_, err := newClient(closedURL(t)).Search(context.Background(), config.Organization, "DATIM", "PEP001")
	require.Error(t, err)

	var transportErr *secondary.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.True(t, strings.HasPrefix(err.Error(), "Failed to connect to OpenInfoMan host - "))
	assert.Contains(t, transportErr.Reason, "refused")

	var reqErr *secondary.RequestError
	assert.False(t, errors.As(err, &reqErr))
}

func TestUpdate_SendsEnvelope(t *testing.T) {
	srv, reqs := newCSDServer(t, http.StatusOK, "")

	src := etree.NewDocument()
	require.NoError(t, src.ReadFromString(prefixedFacilityResponse))
	fac := src.Root().SelectElement("csd:facilityDirectory").SelectElement("csd:facility")
	res := resource.New(fac).WithOtherID("LOC001", config.DefaultCodingSchema)

	err := newClient(srv.URL).Update(context.Background(), config.Facility, "DATIM", res)
	require.NoError(t, err)

	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, "/csr/DATIM/careServicesRequest/update/urn:openhie.org:openinfoman:facility_create", req.Path)
	assert.Equal(t, "text/xml", req.ContentType)
	assert.True(t, strings.HasPrefix(req.Body, `<?xml version="1.0" encoding="UTF-8"?>`))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(req.Body))
	root := doc.Root()
	assert.Equal(t, "requestParams", root.Tag)
	assert.Equal(t, resource.Namespace, root.SelectAttrValue("xmlns", ""))

	facility := root.SelectElement("facility")
	require.NotNil(t, facility)
	assert.Equal(t, "FAC9", facility.SelectAttrValue("entityID", ""))
	other := facility.SelectElement("otherID")
	require.NotNil(t, other)
	assert.Equal(t, "LOC001", other.SelectAttrValue("code", ""))
	assert.Equal(t, config.DefaultCodingSchema, other.SelectAttrValue("codingSchema", ""))
}

func TestUpdate_PreservesForeignNamespaces(t *testing.T) {
	const reply = `<csd:CSD xmlns:csd="urn:ihe:iti:csd:2013" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:ext="urn:x">
  <csd:organizationDirectory>
    <csd:organization entityID="ID1" xsi:type="csd:organization"><ext:custom>v</ext:custom></csd:organization>
  </csd:organizationDirectory>
</csd:CSD>`
	srv, reqs := newCSDServer(t, http.StatusOK, reply)
	client := newClient(srv.URL)

	res, err := client.Search(context.Background(), config.Organization, "DATIM", "ID1")
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NoError(t, client.Update(context.Background(), config.Organization, "DATIM", res.WithOtherID("LOC1", config.DefaultCodingSchema)))

	require.Len(t, *reqs, 2)
	body := (*reqs)[1].Body

	spaces := make(map[string]string)
	dec := xml.NewDecoder(strings.NewReader(body))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if start, ok := tok.(xml.StartElement); ok {
			spaces[start.Name.Local] = start.Name.Space
			for _, a := range start.Attr {
				if a.Name.Local == "type" {
					spaces["@type"] = a.Name.Space
				}
			}
		}
	}

	assert.Equal(t, resource.Namespace, spaces["organization"])
	assert.Equal(t, resource.Namespace, spaces["otherID"])
	assert.Equal(t, "urn:x", spaces["custom"])
	assert.Equal(t, "http://www.w3.org/2001/XMLSchema-instance", spaces["@type"])
	assert.Contains(t, body, `xmlns:csd="urn:ihe:iti:csd:2013"`)
}

func TestUpdate_NonOKStatus(t *testing.T) {
	srv, _ := newCSDServer(t, http.StatusInternalServerError, "boom")

	res := resource.New(etree.NewElement("organization"))
	err := newClient(srv.URL).Update(context.Background(), config.Organization, "DATIM", res)

	var reqErr *secondary.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "Request to OpenInfoMan responded with status 500: boom", err.Error())
}

func TestUpdate_ConnectionRefused(t *testing.T) {
	res := resource.New(etree.NewElement("organization"))
	err := newClient(closedURL(t)).Update(context.Background(), config.Organization, "DATIM", res)

	var transportErr *secondary.TransportError
	require.ErrorAs(t, err, &transportErr)
}
