package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrMissingCredentials is returned when the bucket or credentials are not configured
var ErrMissingCredentials = errors.New("s3 bucket and credentials are required")

// S3Options configures an S3Client
type S3Options struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string

	// Endpoint defaults to https://{bucket}.s3.{region}.amazonaws.com
	Endpoint string

	HTTPClient *http.Client
	Timeout    time.Duration
	Now        func() time.Time
}

// S3Response is the status and body of an S3 call. Non-2xx responses are
// returned as values, not errors.
type S3Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status
func (r *S3Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// S3Client issues signed PUT and GET object requests against one bucket
type S3Client struct {
	bucket    string
	region    string
	accessKey string
	secretKey string
	endpoint  *url.URL

	httpClient *http.Client
	now        func() time.Time
}

// NewS3Client validates the options and returns a client
func NewS3Client(opts S3Options) (*S3Client, error) {
	if opts.Bucket == "" || opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, ErrMissingCredentials
	}

	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	rawEndpoint := opts.Endpoint
	if rawEndpoint == "" {
		rawEndpoint = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, region)
	}
	endpoint, err := url.Parse(strings.TrimSuffix(rawEndpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid s3 endpoint: %w", err)
	}
	if endpoint.Scheme != "https" || endpoint.Host == "" {
		return nil, fmt.Errorf("s3 endpoint must be an https URL, got %q", rawEndpoint)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &S3Client{
		bucket:     opts.Bucket,
		region:     region,
		accessKey:  opts.AccessKey,
		secretKey:  opts.SecretKey,
		endpoint:   endpoint,
		httpClient: httpClient,
		now:        now,
	}, nil
}

// Bucket returns the configured bucket name
func (c *S3Client) Bucket() string {
	return c.bucket
}

// PutObject uploads body under key
func (c *S3Client) PutObject(ctx context.Context, key string, body []byte) (*S3Response, error) {
	req, err := c.newSignedRequest(ctx, http.MethodPut, key, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	req.ContentLength = int64(len(body))

	return c.do(req)
}

// GetObject downloads the object stored under key
func (c *S3Client) GetObject(ctx context.Context, key string) (*S3Response, error) {
	req, err := c.newSignedRequest(ctx, http.MethodGet, key, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *S3Client) newSignedRequest(ctx context.Context, method, key string, body []byte) (*http.Request, error) {
	canonicalPath := CanonicalPath(key)

	reqURL, err := url.Parse(c.endpoint.String() + canonicalPath)
	if err != nil {
		return nil, fmt.Errorf("invalid object key %q: %w", key, err)
	}

	var reader io.Reader
	payloadHash := UnsignedPayload
	if method == http.MethodPut {
		reader = bytes.NewReader(body)
		payloadHash = PayloadHash(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	ts := c.now().UTC()
	signed := Sign(SigningContext{
		Method:        method,
		CanonicalPath: c.endpointPath() + canonicalPath,
		Host:          req.URL.Host,
		Timestamp:     ts.Format(AmzDateFormat),
		Datestamp:     ts.Format(AmzDateShort),
		PayloadHash:   payloadHash,
		Region:        c.region,
		Bucket:        c.bucket,
		AccessKey:     c.accessKey,
		SecretKey:     c.secretKey,
	})

	req.Header.Set("Authorization", signed.Authorization)
	req.Header.Set("X-Amz-Content-Sha256", signed.ContentSHA256)
	req.Header.Set("X-Amz-Date", signed.Date)
	return req, nil
}

// endpointPath is the path prefix of a path-style endpoint such as
// https://minio.local/bucket
func (c *S3Client) endpointPath() string {
	return strings.TrimSuffix(c.endpoint.EscapedPath(), "/")
}

func (c *S3Client) do(req *http.Request) (*S3Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &S3Response{StatusCode: resp.StatusCode, Body: body}, nil
}
