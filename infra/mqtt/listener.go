// Package mqtt carries service calls over the platform MQTT bus. The listener
// consumes JSON call requests, feeds them through the dispatcher and reports
// per-call results on the result topic.
package mqtt

import (
	"context"
	"encoding/json"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/hmctl/hmdispatch/core/model"
	"github.com/hmctl/hmdispatch/infra/logger"
)

// pahoClient is the subset of the Paho client the listener needs. It exists
// so tests can substitute a fake.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Dispatcher validates and executes one service call.
type Dispatcher interface {
	Dispatch(ctx context.Context, call model.ServiceCall) error
}

// callRequest is the wire format of one service call.
type callRequest struct {
	ID      string         `json:"id,omitempty"`
	Service string         `json:"service"`
	Data    map[string]any `json:"data"`
}

// callResult reports the fate of one call back on the result topic. Silent
// drops report ok; only schema rejections and backend failures carry errors.
type callResult struct {
	ID      string `json:"id"`
	Service string `json:"service"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// Listener subscribes to the request topic and dispatches incoming calls.
type Listener struct {
	cli          pahoClient
	dispatcher   Dispatcher
	log          logger.Logger
	requestTopic string
	resultTopic  string
	qos          map[string]byte
	maxRetries   int
	backoff      time.Duration
}

// NewListener connects to the broker and subscribes to the request topic.
func NewListener(cfg Config, d Dispatcher) (*Listener, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_listener")
	l := &Listener{
		dispatcher:   d,
		log:          log,
		requestTopic: cfg.RequestTopic,
		resultTopic:  cfg.ResultTopic,
		qos:          cfg.QoS,
		maxRetries:   cfg.MaxRetries,
		backoff:      time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(l.requestTopic, l.qosFor("request"), l.onCall); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	l.cli = c
	return l, nil
}

func (l *Listener) qosFor(kind string) byte {
	if q, ok := l.qos[kind]; ok {
		return q
	}
	return 0
}

func (l *Listener) onCall(_ paho.Client, msg paho.Message) {
	var req callRequest
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		l.log.Errorf("failed to decode call request: %v", err)
		return
	}
	if req.Service == "" {
		l.log.Errorf("call request without service name")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	call := model.ServiceCall{ID: req.ID, Name: req.Service, Data: req.Data}
	err := l.dispatcher.Dispatch(context.Background(), call)
	if err != nil {
		l.log.Warnf("call %s failed: %v", req.Service, err)
	}

	if l.resultTopic == "" {
		return
	}
	res := callResult{ID: req.ID, Service: req.Service, OK: err == nil}
	if err != nil {
		res.Error = err.Error()
	}
	l.publishResult(res)
}

func (l *Listener) publishResult(res callResult) {
	payload, err := json.Marshal(res)
	if err != nil {
		l.log.Errorf("encode result: %v", err)
		return
	}
	retries := l.maxRetries
	if retries <= 0 {
		retries = 3
	}
	backoff := l.backoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	for attempt := 0; attempt <= retries; attempt++ {
		token := l.cli.Publish(l.resultTopic, l.qosFor("result"), false, payload)
		token.Wait()
		if token.Error() == nil {
			return
		}
		l.log.Errorf("result publish attempt %d failed: %v", attempt+1, token.Error())
		time.Sleep(backoff * time.Duration(1<<attempt))
	}
}

// Disconnect gracefully closes the MQTT connection.
func (l *Listener) Disconnect() {
	if l.cli != nil && l.cli.IsConnected() {
		l.cli.Disconnect(250)
	}
}
