package mqtt

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Caller publishes service-call requests on the request topic. It is the
// counterpart of the Listener, used by the CLI.
type Caller struct {
	cli   pahoClient
	topic string
	qos   byte
}

// NewCaller connects to the broker and returns a Caller.
func NewCaller(cfg Config) (*Caller, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	qos := byte(0)
	if q, ok := cfg.QoS["request"]; ok {
		qos = q
	}
	return &Caller{cli: c, topic: cfg.RequestTopic, qos: qos}, nil
}

// Call publishes one service call and returns its call id.
func (c *Caller) Call(service string, data map[string]any) (string, error) {
	req := callRequest{ID: uuid.NewString(), Service: service, Data: data}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	token := c.cli.Publish(c.topic, c.qos, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return "", err
	}
	return req.ID, nil
}

// Disconnect gracefully closes the MQTT connection.
func (c *Caller) Disconnect() {
	if c.cli != nil && c.cli.IsConnected() {
		c.cli.Disconnect(250)
	}
}
