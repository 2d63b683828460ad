// Package sheetsvc stores reports in the two spreadsheet web apps, one per report kind.
// The web apps answer GET with every row as a JSON array and append the POSTed record as a new row.
package sheetsvc

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/skmethodistpj/laporan/core"
	"github.com/skmethodistpj/laporan/core/appstate"
	"github.com/skmethodistpj/laporan/core/report"
)

var (
	ErrUnexpectedResponse = errors.New("sheets: unexpected response")
	ErrNoEndpoint         = errors.New("sheets: no endpoint for report kind")
)

type Client struct {
	urls map[report.Kind]string
	http *rest.Client
}

var _ appstate.Store = (*Client)(nil)

func NewClient(conf core.SheetsConfig) *Client {
	return &Client{
		urls: map[report.Kind]string{
			report.KindAssembly: conf.AssemblyURL,
			report.KindCaring:   conf.CaringURL,
		},
		http: &rest.Client{HTTPClient: &http.Client{Timeout: conf.Timeout}},
	}
}

func (c *Client) endpoint(kind report.Kind) (string, error) {
	url, ok := c.urls[kind]
	if !ok || url == "" {
		return "", errors.Wrapf(ErrNoEndpoint, "%q", kind)
	}
	return url, nil
}

// Fetch returns every row of kind, duplicates included.
func (c *Client) Fetch(ctx context.Context, kind report.Kind) ([]report.Record, error) {
	url, err := c.endpoint(kind)
	if err != nil {
		return nil, err
	}

	res, err := c.http.SendWithContext(ctx, rest.Request{Method: rest.Get, BaseURL: url})
	if err != nil {
		return nil, errors.Wrapf(err, "sheets: fetching %s", kind)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, errors.Wrapf(ErrUnexpectedResponse, "fetching %s: status %d", kind, res.StatusCode)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal([]byte(res.Body), &rows); err != nil || rows == nil {
		return nil, errors.Wrapf(ErrUnexpectedResponse, "fetching %s: body is not an array", kind)
	}
	recs, err := report.DecodeList(kind, []byte(res.Body))
	if err != nil {
		return nil, errors.Wrapf(ErrUnexpectedResponse, "fetching %s: %v", kind, err)
	}
	return recs, nil
}

// Append posts rec as a new row. The response body is not read; any status below 400 is a success.
// The JSON is sent as text/plain so the web app accepts it without a preflight.
func (c *Client) Append(ctx context.Context, rec report.Record) error {
	url, err := c.endpoint(rec.Kind())
	if err != nil {
		return err
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "sheets: encoding record")
	}

	res, err := c.http.SendWithContext(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: url,
		Headers: map[string]string{"Content-Type": "text/plain;charset=utf-8"},
		Body:    body,
	})
	if err != nil {
		return errors.Wrapf(err, "sheets: appending %s %s", rec.Kind(), rec.RecordID())
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Wrapf(ErrUnexpectedResponse, "appending %s %s: status %d", rec.Kind(), rec.RecordID(), res.StatusCode)
	}
	return nil
}
