package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/hmctl/hmdispatch/core/model"
)

type recordDispatcher struct {
	calls []model.ServiceCall
	err   error
}

func (r *recordDispatcher) Dispatch(_ context.Context, call model.ServiceCall) error {
	r.calls = append(r.calls, call)
	return r.err
}

func withMockClient(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() {
		newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
	})
}

func TestListenerDispatchesCall(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)

	d := &recordDispatcher{}
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id"}
	l, err := NewListener(cfg, d)
	if err != nil {
		t.Fatalf("listener: %v", err)
	}
	if len(mc.subscribed) != 1 || mc.subscribed[0].topic != "hmdispatch/call" {
		t.Fatalf("expected subscription on request topic, got %+v", mc.subscribed)
	}

	payload := []byte(`{"service":"set_device_value","data":{"device_id":"dev1","parameter":"LEVEL","value":0.5}}`)
	l.onCall(nil, mockMessage{p: payload})

	if len(d.calls) != 1 {
		t.Fatalf("expected 1 dispatched call, got %d", len(d.calls))
	}
	call := d.calls[0]
	if call.Name != "set_device_value" {
		t.Fatalf("unexpected service %q", call.Name)
	}
	if call.ID == "" {
		t.Fatalf("expected a generated call id")
	}
	if call.Data["device_id"] != "dev1" {
		t.Fatalf("unexpected data %+v", call.Data)
	}

	if len(mc.published) != 1 || mc.published[0].topic != "hmdispatch/result" {
		t.Fatalf("expected result publish, got %+v", mc.published)
	}
	var res callResult
	if err := json.Unmarshal(mc.published[0].payload, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !res.OK || res.ID != call.ID || res.Service != "set_device_value" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestListenerReportsDispatchError(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)

	d := &recordDispatcher{err: fmt.Errorf("schema rejected")}
	l, err := NewListener(Config{Broker: "tcp://localhost:1883", ClientID: "id"}, d)
	if err != nil {
		t.Fatalf("listener: %v", err)
	}

	l.onCall(nil, mockMessage{p: []byte(`{"id":"c1","service":"set_install_mode","data":{}}`)})

	if len(mc.published) != 1 {
		t.Fatalf("expected result publish, got %d", len(mc.published))
	}
	var res callResult
	if err := json.Unmarshal(mc.published[0].payload, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.OK || res.Error != "schema rejected" || res.ID != "c1" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestListenerIgnoresMalformedRequests(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)

	d := &recordDispatcher{}
	l, err := NewListener(Config{Broker: "tcp://localhost:1883", ClientID: "id"}, d)
	if err != nil {
		t.Fatalf("listener: %v", err)
	}

	l.onCall(nil, mockMessage{p: []byte(`not json`)})
	l.onCall(nil, mockMessage{p: []byte(`{"data":{}}`)})

	if len(d.calls) != 0 {
		t.Fatalf("expected no dispatches, got %d", len(d.calls))
	}
	if len(mc.published) != 0 {
		t.Fatalf("expected no results, got %d", len(mc.published))
	}
}

func TestListenerResultPublishRetries(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	withMockClient(t, mc)

	d := &recordDispatcher{}
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 2, BackoffMS: 1}
	l, err := NewListener(cfg, d)
	if err != nil {
		t.Fatalf("listener: %v", err)
	}

	l.onCall(nil, mockMessage{p: []byte(`{"id":"c2","service":"disable_away_mode","data":{"entity_id":"all"}}`)})

	if len(mc.published) != 2 {
		t.Fatalf("expected retry publish, got %d", len(mc.published))
	}
}

func TestCallerPublishesRequest(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)

	c, err := NewCaller(Config{Broker: "tcp://localhost:1883", ClientID: "id"})
	if err != nil {
		t.Fatalf("caller: %v", err)
	}
	id, err := c.Call("set_variable_value", map[string]any{"entity_id": "ccu2", "name": "Presence", "value": "1"})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if id == "" {
		t.Fatalf("expected a call id")
	}
	if len(mc.published) != 1 || mc.published[0].topic != "hmdispatch/call" {
		t.Fatalf("expected request publish, got %+v", mc.published)
	}
	var req callRequest
	if err := json.Unmarshal(mc.published[0].payload, &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if req.ID != id || req.Service != "set_variable_value" {
		t.Fatalf("unexpected request %+v", req)
	}
}

// mockClient implements pahoClient for tests.
type mockClient struct {
	opts       *paho.ClientOptions
	subscribed []struct {
		topic string
		qos   byte
	}
	published []struct {
		topic   string
		qos     byte
		payload []byte
	}
	publishErrs []error
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(m)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {}
func (m *mockClient) Publish(topic string, qos byte, _ bool, payload interface{}) paho.Token {
	p, _ := payload.([]byte)
	m.published = append(m.published, struct {
		topic   string
		qos     byte
		payload []byte
	}{topic, qos, p})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}
func (m *mockClient) Subscribe(topic string, qos byte, _ paho.MessageHandler) paho.Token {
	m.subscribed = append(m.subscribed, struct {
		topic string
		qos   byte
	}{topic, qos})
	return &dummyToken{}
}
func (m *mockClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &dummyToken{}
}
func (m *mockClient) Unsubscribe(...string) paho.Token        { return &dummyToken{} }
func (m *mockClient) AddRoute(string, paho.MessageHandler)    {}
func (m *mockClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }
func (m *mockClient) IsConnectionOpen() bool                  { return true }

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

type mockMessage struct{ p []byte }

func (m mockMessage) Duplicate() bool   { return false }
func (m mockMessage) Qos() byte         { return 0 }
func (m mockMessage) Retained() bool    { return false }
func (m mockMessage) Topic() string     { return "" }
func (m mockMessage) MessageID() uint16 { return 0 }
func (m mockMessage) Payload() []byte   { return m.p }
func (m mockMessage) Ack()              {}
