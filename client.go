// Client initialization and configuration.
package s3tool

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/s3tool/s3tool/errors"
	"github.com/s3tool/s3tool/internal/keystore"
	"github.com/s3tool/s3tool/internal/retry"
	"github.com/s3tool/s3tool/internal/s3api"
	"github.com/s3tool/s3tool/internal/transfer"
	"github.com/s3tool/s3tool/internal/validation"
	"github.com/s3tool/s3tool/s3types"
)

// Client is the entry point for all transfer operations. It is safe for
// concurrent use; all transfers share the client's HTTP and task pools.
type Client struct {
	// env carries the shared transfer machinery
	env *transfer.Env

	// rawClient holds the actual AWS S3 client when one was built
	rawClient *s3.Client

	// config holds the AWS configuration
	config aws.Config

	// httpClient is the caller-supplied HTTP client, when one was given
	httpClient *http.Client

	// log is the client-wide logger
	log *logrus.Logger
}

// New creates a new client with the provided options. AWS credentials are
// loaded through the default credential chain unless a custom configuration
// is supplied.
//
// Example:
//
//	client, err := s3tool.New(
//	    s3tool.WithRegion("us-west-2"),
//	    s3tool.WithMaxRetries(5),
//	    s3tool.WithKeyDir("/etc/s3tool/keys"),
//	)
func New(opts ...s3types.Option) (*Client, error) {
	clientCfg := defaultClientConfig()
	for _, opt := range opts {
		opt(clientCfg)
	}

	if err := validation.ValidateRetryCount(clientCfg.MaxRetries); err != nil {
		return nil, err
	}
	if err := validation.ValidateACL(clientCfg.DefaultACL); err != nil {
		return nil, err
	}

	var cfg aws.Config
	var err error
	if clientCfg.CustomAWSConfig != nil {
		cfg = *clientCfg.CustomAWSConfig
	} else {
		cfg, err = config.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, errors.NewError("client initialization", err)
		}
	}

	if clientCfg.Region != "" {
		cfg.Region = clientCfg.Region
	} else if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	var s3Opts []func(*s3.Options)
	if clientCfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(clientCfg.Endpoint)
		})
	}
	if clientCfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	if clientCfg.CustomHTTPClient != nil {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = clientCfg.CustomHTTPClient
		})
	}

	s3Client := s3.NewFromConfig(cfg, s3Opts...)

	client, err := newWithAPI(s3Client, clientCfg)
	if err != nil {
		return nil, err
	}
	client.rawClient = s3Client
	client.config = cfg
	return client, nil
}

// NewWithClient creates a client over a custom S3API implementation.
// This is primarily used for testing with mocked clients.
func NewWithClient(api s3api.S3API, opts ...s3types.Option) (*Client, error) {
	clientCfg := defaultClientConfig()
	for _, opt := range opts {
		opt(clientCfg)
	}
	return newWithAPI(api, clientCfg)
}

func newWithAPI(api s3api.S3API, clientCfg *s3types.ClientConfig) (*Client, error) {
	log := clientCfg.Logger
	if log == nil {
		log = logrus.New()
	}

	keys, err := keystore.NewDirProvider(clientCfg.KeyDir)
	if err != nil {
		return nil, errors.NewError("client initialization", err)
	}

	env := transfer.NewEnv(transfer.Env{
		API: api,
		Retry: &retry.Executor{
			MaxAttempts:       clientCfg.MaxRetries,
			RetryClientErrors: clientCfg.RetryClientErrors,
			Log:               log,
		},
		Keys:       keys,
		ChunkSize:  clientCfg.ChunkSize,
		DefaultACL: clientCfg.DefaultACL,
		HTTPSem:    make(chan struct{}, clientCfg.HTTPConcurrency),
		TaskSem:    make(chan struct{}, clientCfg.TaskConcurrency),
		Log:        log,
	})

	return &Client{env: env, httpClient: clientCfg.CustomHTTPClient, log: log}, nil
}

func defaultClientConfig() *s3types.ClientConfig {
	return &s3types.ClientConfig{
		MaxRetries:      retry.DefaultMaxAttempts,
		ChunkSize:       DefaultChunkSize,
		HTTPConcurrency: transfer.DefaultHTTPConcurrency,
		TaskConcurrency: transfer.DefaultTaskConcurrency,
		DefaultACL:      s3types.ACLOwnerFullControl,
	}
}

// Close waits for in-flight transfers to release the client's pools and
// releases idle connections. The context bounds how long the drain may take;
// a cancelled context abandons the wait but still releases what it can.
func (c *Client) Close(ctx context.Context) error {
	drainErr := c.env.Drain(ctx)

	if c.rawClient != nil {
		if hc, ok := c.config.HTTPClient.(interface{ CloseIdleConnections() }); ok {
			hc.CloseIdleConnections()
		}
	}
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}

	if drainErr != nil {
		return fmt.Errorf("draining transfer pools: %w", drainErr)
	}
	return nil
}
