package events

import (
	"context"
)

type snsClient interface {
	Publish(ctx context.Context, topicArn string, message []byte, attributes map[string]string) error
}

// SNSPublisher sends events to an SNS topic with the event type as a
// message attribute
type SNSPublisher struct {
	client   snsClient
	topicArn string
}

func NewSNSPublisher(client snsClient, topicArn string) *SNSPublisher {
	return &SNSPublisher{client: client, topicArn: topicArn}
}

func (p *SNSPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := ev.Marshal()
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.topicArn, data, map[string]string{"eventType": ev.Type})
}

func (p *SNSPublisher) Close() error { return nil }
