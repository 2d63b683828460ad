// Package genaisvc talks to the Gemini generateContent REST endpoint.
package genaisvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/skmethodistpj/laporan/core"
	"github.com/skmethodistpj/laporan/core/assist"
)

var ErrEmptyResponse = errors.New("genai: response holds no text")

type (
	part struct {
		Text string `json:"text"`
	}

	content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}

	generateRequest struct {
		Contents []content `json:"contents"`
	}

	generateResponse struct {
		Candidates []struct {
			Content      content `json:"content"`
			FinishReason string  `json:"finishReason"`
		} `json:"candidates"`
		Error *apiError `json:"error"`
	}

	apiError struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	}
)

// Client is an assist.Generator backed by the Gemini API.
type Client struct {
	key     string
	model   string
	baseURL string
	http    *rest.Client
}

var _ assist.Generator = (*Client)(nil)

func NewClient(conf core.GenAIConfig) *Client {
	return &Client{
		key:     conf.APIKey,
		model:   conf.Model,
		baseURL: strings.TrimSuffix(conf.BaseURL, "/"),
		http:    &rest.Client{HTTPClient: &http.Client{Timeout: conf.Timeout}},
	}
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.key == "" {
		return "", assist.ErrMissingCredential
	}

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", errors.Wrap(err, "genai: encoding request")
	}
	req := rest.Request{
		Method:      rest.Post,
		BaseURL:     fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model),
		Headers:     map[string]string{"Content-Type": "application/json"},
		QueryParams: map[string]string{"key": c.key},
		Body:        body,
	}

	res, err := c.http.SendWithContext(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "genai: sending request")
	}

	var out generateResponse
	if err := json.Unmarshal([]byte(res.Body), &out); err != nil && res.StatusCode < http.StatusBadRequest {
		return "", errors.Wrap(err, "genai: decoding response")
	}
	if res.StatusCode >= http.StatusBadRequest {
		if out.Error != nil {
			return "", errors.Errorf("genai: %d %s: %s", out.Error.Code, out.Error.Status, out.Error.Message)
		}
		return "", errors.Errorf("genai: unexpected status %d", res.StatusCode)
	}

	for _, cand := range out.Candidates {
		var sb strings.Builder
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			return text, nil
		}
	}
	return "", ErrEmptyResponse
}
