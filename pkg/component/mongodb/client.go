// Package mongodb provides the MongoDB connection component.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kart-io/docbench/pkg/component/storage"
	options "github.com/kart-io/docbench/pkg/options/mongodb"
)

// Client wraps mongo.Client with storage.Client interface implementation.
// It exposes the resolved database and the underlying driver client.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	info     *ConnInfo
	opts     *options.Options
}

// Compile-time check that Client implements storage.Client.
var _ storage.Client = (*Client)(nil)

// New connects with the configured pool settings and timeouts and verifies
// the connection with a ping.
//
// An unusable connection string yields an error in the config category;
// anything else that fails is wrapped in storage.ErrConnectionFailed.
func New(ctx context.Context, opts *options.Options) (*Client, error) {
	if opts == nil {
		return nil, storage.ErrInvalidConfig.WithMessage("mongodb options cannot be nil")
	}

	info, err := ParseURL(opts.URL)
	if err != nil {
		return nil, err
	}

	clientOpts := mongoopts.Client().ApplyURI(info.URL)
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(opts.MinPoolSize)
	}
	if opts.MaxConnIdleTime > 0 {
		clientOpts.SetMaxConnIdleTime(opts.MaxConnIdleTime)
	}
	if opts.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(opts.ConnectTimeout)
	}
	if opts.SocketTimeout > 0 {
		clientOpts.SetSocketTimeout(opts.SocketTimeout)
	}
	if opts.ServerSelectionTimeout > 0 {
		clientOpts.SetServerSelectionTimeout(opts.ServerSelectionTimeout)
	}
	if opts.Direct {
		clientOpts.SetDirect(true)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, storage.ErrConnectionFailed.WithCause(err).WithMessage("connect to mongodb")
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, storage.ErrConnectionFailed.WithCause(err).WithMessage("ping mongodb")
	}

	return &Client{
		client:   client,
		database: client.Database(info.Database),
		info:     info,
		opts:     opts,
	}, nil
}

// Name returns the storage type identifier.
func (c *Client) Name() string {
	return "mongodb"
}

// Ping checks if the connection to MongoDB is alive.
func (c *Client) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("client is nil")
	}
	return c.client.Ping(ctx, nil)
}

// Close disconnects, waiting up to ten seconds for in-flight operations.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.Disconnect(ctx)
}

// Disconnect closes the connection under the caller's context.
func (c *Client) Disconnect(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	err := c.client.Disconnect(ctx)
	if err == mongo.ErrClientDisconnected {
		return nil
	}
	return err
}

// Health returns a HealthChecker function for MongoDB health monitoring.
func (c *Client) Health() storage.HealthChecker {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return c.Ping(ctx)
	}
}

// Database returns the database selected by the connection string.
func (c *Client) Database() *mongo.Database {
	return c.database
}

// Info returns the resolved connection details.
func (c *Client) Info() *ConnInfo {
	return c.info
}

// Raw returns the underlying mongo.Client.
func (c *Client) Raw() *mongo.Client {
	return c.client
}
