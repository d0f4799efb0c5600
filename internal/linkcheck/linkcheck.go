// Package linkcheck verifies that every link of an import is reachable
// before any job is submitted.
package linkcheck

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/me/odmimport/pkg/model"
)

// S3API is the part of the S3 client used to probe objects.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Config configures the S3 client. Credentials come from the default AWS
// chain (environment, shared config, instance role).
type Config struct {
	Region    string
	Endpoint  string
	PathStyle bool
	Timeout   time.Duration
}

// Checker probes http(s) links with HEAD and s3 links with HeadObject.
// Other schemes are skipped.
type Checker struct {
	cfg    Config
	client *http.Client
	s3     S3API
	logger *slog.Logger
}

// New creates a Checker. The S3 client is created on first use.
func New(cfg Config, logger *slog.Logger) *Checker {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Checker{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "linkcheck"),
	}
}

// WithS3 sets the S3 client, replacing the default one.
func (c *Checker) WithS3(api S3API) *Checker {
	c.s3 = api
	return c
}

func (c *Checker) s3Client(ctx context.Context) (S3API, error) {
	if c.s3 != nil {
		return c.s3, nil
	}
	var opts []func(*config.LoadOptions) error
	if c.cfg.Region != "" {
		opts = append(opts, config.WithRegion(c.cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}
	c.s3 = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = c.cfg.PathStyle
		if c.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.cfg.Endpoint)
		}
	})
	return c.s3, nil
}

// Check probes every link and returns a *model.ValidationError naming
// each unreachable one.
func (c *Checker) Check(ctx context.Context, links []string) error {
	var failed []string
	seen := make(map[string]bool)
	for _, link := range links {
		if seen[link] {
			continue
		}
		seen[link] = true

		if err := c.checkOne(ctx, link); err != nil {
			c.logger.Debug("link unreachable", "link", link, "error", err)
			failed = append(failed, fmt.Sprintf("%s: %v", link, err))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &model.ValidationError{
		Pass:    "links",
		Message: "unreachable links:\n  " + strings.Join(failed, "\n  "),
	}
}

func (c *Checker) checkOne(ctx context.Context, link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return err
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return c.checkHTTP(ctx, link)
	case "s3":
		return c.checkS3(ctx, u)
	}
	c.logger.Debug("link check skipped", "link", link, "scheme", u.Scheme)
	return nil
}

func (c *Checker) checkHTTP(ctx context.Context, link string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

func (c *Checker) checkS3(ctx context.Context, u *url.URL) error {
	bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return fmt.Errorf("s3 link needs a bucket and a key")
	}
	api, err := c.s3Client(ctx)
	if err != nil {
		return err
	}
	_, err = api.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	return err
}
