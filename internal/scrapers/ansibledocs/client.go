package ansibledocs

import (
	"ansible-matrix/lib/restyutil"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("ansible-matrix.scrapers.ansibledocs")

const DefaultUrl = "https://docs.ansible.com/ansible/latest/reference_appendices/release_and_maintenance.html"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

var ErrUnexpectedStatus = errors.New("unexpected response status")

type ClientOptions struct {
	// defaults to DefaultUrl
	Url string
	// defaults to 30 seconds
	Timeout time.Duration
	// wraps the transport with cloudflare-bp-go
	BypassCloudflare bool
	// receives full request/response dumps when debug logging is on, can be nil
	Output restyutil.InstrumentOutput
}

type Client struct {
	url  string
	http *resty.Client
}

func NewClient(opts ClientOptions) (*Client, error) {
	link := opts.Url
	if link == "" {
		link = DefaultUrl
	}
	parsed, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("parse url: unsupported scheme %q", parsed.Scheme)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second * 30
	}

	client := resty.New()
	if opts.BypassCloudflare {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	client.SetHeader("user-agent", userAgent)
	client.SetTimeout(timeout)

	restyutil.InstrumentClient(client, otel.Tracer("ansible-matrix.scrapers.ansibledocs.http"), opts.Output)

	return &Client{
		url:  parsed.String(),
		http: client,
	}, nil
}

func (c *Client) Url() string {
	return c.url
}

// FetchPage performs a single GET on the documentation page and returns its body.
func (c *Client) FetchPage(ctx context.Context) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "FetchPage")
	defer span.End()

	span.SetAttributes(attribute.String("url", c.url))

	res, err := c.http.R().
		SetContext(ctx).
		Get(c.url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch page")
		return nil, fmt.Errorf("fetch %s: %w", c.url, err)
	}
	if !res.IsSuccess() {
		err := fmt.Errorf("fetch %s: %w: %s", c.url, ErrUnexpectedStatus, res.Status())
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected status")
		return nil, err
	}

	return res.Body(), nil
}

// FetchDocument is FetchPage followed by parsing the body as html.
func (c *Client) FetchDocument(ctx context.Context) (*goquery.Document, error) {
	body, err := c.FetchPage(ctx)
	if err != nil {
		return nil, err
	}
	return ParseDocument(body)
}

func ParseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}
