// Package store provides the time-series backend client.
package store

import (
	"context"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"stream-analytics-service/internal/model"
)

// Client executes Flux queries and accepts point writes. Implementations
// must be safe for concurrent use: one long-lived client is shared by all
// in-flight analytics calls, each of which issues its own independent query.
type Client interface {
	// Query runs a Flux query and returns one map of named values per
	// result row. Failures are reported as *BackendError.
	Query(ctx context.Context, flux string) ([]map[string]any, error)

	// WritePoints persists points in one batch. The batch either commits
	// as a whole or fails as a whole; there is no per-point status.
	WritePoints(ctx context.Context, points []model.Point) error

	Close()
}

type influxClient struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	writeAPI api.WriteAPIBlocking
}

// NewInfluxClient builds a Client talking to an InfluxDB 2.x server. The
// returned client holds a connection pool and must be closed by the owner.
func NewInfluxClient(url, token, org, bucket string) Client {
	client := influxdb2.NewClient(url, token)
	return &influxClient{
		client:   client,
		queryAPI: client.QueryAPI(org),
		writeAPI: client.WriteAPIBlocking(org, bucket),
	}
}

func (c *influxClient) Query(ctx context.Context, flux string) ([]map[string]any, error) {
	result, err := c.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, &BackendError{Op: "query", Err: err}
	}

	var rows []map[string]any
	for result.Next() {
		rows = append(rows, result.Record().Values())
	}
	if err := result.Err(); err != nil {
		return nil, &BackendError{Op: "query", Err: err}
	}
	return rows, nil
}

func (c *influxClient) WritePoints(ctx context.Context, points []model.Point) error {
	if len(points) == 0 {
		return nil
	}

	records := make([]*write.Point, 0, len(points))
	for _, p := range points {
		if err := p.Validate(); err != nil {
			return err
		}
		records = append(records, write.NewPoint(p.Measurement, p.Tags, p.Fields, p.Time))
	}

	if err := c.writeAPI.WritePoint(ctx, records...); err != nil {
		return &BackendError{Op: "write", Err: err}
	}
	return nil
}

func (c *influxClient) Close() {
	c.client.Close()
}
