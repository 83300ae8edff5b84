package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSPublisher_Publish(t *testing.T) {
	client := &fakeSQS{}
	p := &SQSPublisher{client: client, queueURL: "https://sqs.example/queue"}

	err := p.Publish(context.Background(), TypeAutoPurchaseRequested, map[string]interface{}{"user_id": 7})
	require.NoError(t, err)
	require.Len(t, client.inputs, 1)
	assert.Equal(t, "https://sqs.example/queue", aws.ToString(client.inputs[0].QueueUrl))

	var env struct {
		Type       string                 `json:"type"`
		OccurredAt string                 `json:"occurred_at"`
		Data       map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(client.inputs[0].MessageBody)), &env))
	assert.Equal(t, TypeAutoPurchaseRequested, env.Type)
	assert.NotEmpty(t, env.OccurredAt)
	assert.Equal(t, float64(7), env.Data["user_id"])
}

func TestSQSPublisher_PublishError(t *testing.T) {
	p := &SQSPublisher{client: &fakeSQS{err: errors.New("throttled")}, queueURL: "q"}

	err := p.Publish(context.Background(), TypeTopupFinalized, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}
