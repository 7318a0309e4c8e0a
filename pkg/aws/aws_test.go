package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	return &sns.PublishOutput{}, f.err
}

func TestSNSClient_Publish(t *testing.T) {
	fake := &fakeSNS{}
	c := &SNSClient{client: fake}

	require.NoError(t, c.Publish(context.Background(), "arn:aws:sns:us-east-1:000000000000:orders", []byte(`{"a":1}`)))
	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:orders", *fake.input.TopicArn)
	assert.Equal(t, `{"a":1}`, *fake.input.Message)

	assert.Error(t, c.Publish(context.Background(), "", []byte("x")))

	fake.err = errors.New("throttled")
	assert.ErrorContains(t, c.Publish(context.Background(), "arn:x", []byte("x")), "throttled")
}

type fakeSecrets struct {
	calls int
	value *string
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, _ *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	return &secretsmanager.GetSecretValueOutput{SecretString: f.value}, nil
}

func TestSecretsClient_CachesValues(t *testing.T) {
	v := "sk_test_123"
	fake := &fakeSecrets{value: &v}
	c := &SecretsClient{client: fake, cache: map[string]string{}}

	for i := 0; i < 3; i++ {
		got, err := c.GetSecret(context.Background(), "storefront/STRIPE_SECRET_KEY")
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	assert.Equal(t, 1, fake.calls)
}

func TestSecretsClient_MissingString(t *testing.T) {
	c := &SecretsClient{client: &fakeSecrets{}, cache: map[string]string{}}
	_, err := c.GetSecret(context.Background(), "empty")
	assert.Error(t, err)
}

type fakeCloudWatch struct {
	input *cloudwatch.PutMetricDataInput
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.input = in
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestMetricsClient_RecordCount(t *testing.T) {
	fake := &fakeCloudWatch{}
	m := &MetricsClient{client: fake, namespace: "Storefront"}

	require.NoError(t, m.RecordCount(context.Background(), MetricOrdersSynced, map[string]string{"Path": "webhook"}))
	require.Len(t, fake.input.MetricData, 1)
	assert.Equal(t, "Storefront", *fake.input.Namespace)
	assert.Equal(t, MetricOrdersSynced, *fake.input.MetricData[0].MetricName)
	assert.Equal(t, float64(1), *fake.input.MetricData[0].Value)
	require.Len(t, fake.input.MetricData[0].Dimensions, 1)
	assert.Equal(t, "Path", *fake.input.MetricData[0].Dimensions[0].Name)
}
