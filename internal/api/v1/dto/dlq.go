package dto

// PubSubPushRequest is the body Pub/Sub posts to a push endpoint.
type PubSubPushRequest struct {
	Message         PubSubMessage `json:"message"`
	Subscription    string        `json:"subscription"`
	DeliveryAttempt *int          `json:"deliveryAttempt,omitempty"`
}

type PubSubMessage struct {
	Data        string            `json:"data"` // base64
	MessageID   string            `json:"messageId"`
	PublishTime string            `json:"publishTime,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}
