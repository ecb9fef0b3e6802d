package aws

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricPublisher writes count metrics to a CloudWatch namespace.
type MetricPublisher struct {
	client    CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

// NewMetricPublisher returns a publisher for namespace.
func NewMetricPublisher(client CloudWatchAPI, namespace string) *MetricPublisher {
	return &MetricPublisher{
		client:    client,
		namespace: namespace,
		nowFunc:   time.Now,
	}
}

// PublishCounts puts one Count datum per entry in counts, each tagged with dims.
func (m *MetricPublisher) PublishCounts(ctx context.Context, counts map[string]float64, dims map[string]string) error {
	if len(counts) == 0 {
		return nil
	}

	dimensions := make([]cwtypes.Dimension, 0, len(dims))
	for k, v := range dims {
		dimensions = append(dimensions, cwtypes.Dimension{Name: awsString(k), Value: awsString(v)})
	}
	sort.Slice(dimensions, func(i, j int) bool { return *dimensions[i].Name < *dimensions[j].Name })

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	now := m.nowFunc()
	data := make([]cwtypes.MetricDatum, 0, len(counts))
	for _, name := range names {
		value := counts[name]
		data = append(data, cwtypes.MetricDatum{
			MetricName: awsString(name),
			Value:      &value,
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  &now,
			Dimensions: dimensions,
		})
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  &m.namespace,
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}
