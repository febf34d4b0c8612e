// Package rabbitmqtest provides an in-memory MQTT client for tests.
package rabbitmqtest

import (
	"errors"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Token is an already completed mqtt.Token.
type Token struct{ Err error }

func (t Token) Wait() bool                     { return true }
func (t Token) WaitTimeout(time.Duration) bool { return true }
func (t Token) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t Token) Error() error { return t.Err }

// Message is a static mqtt.Message.
type Message struct {
	TopicName string
	Body      []byte
	QoSLevel  byte
	Dup       bool
	ID        uint16
}

func (m Message) Duplicate() bool   { return m.Dup }
func (m Message) Qos() byte         { return m.QoSLevel }
func (m Message) Retained() bool    { return false }
func (m Message) Topic() string     { return m.TopicName }
func (m Message) MessageID() uint16 { return m.ID }
func (m Message) Payload() []byte   { return m.Body }
func (m Message) Ack()              {}

// Published is one recorded Publish call.
type Published struct {
	Topic   string
	QoS     byte
	Payload []byte
}

// Client routes published messages to matching subscriptions synchronously.
type Client struct {
	mu        sync.Mutex
	subs      map[string]mqtt.MessageHandler
	published []Published

	// SubscribeErr, when set, fails every Subscribe.
	SubscribeErr error
}

var _ mqtt.Client = (*Client)(nil)

func NewClient() *Client { return &Client{subs: map[string]mqtt.MessageHandler{}} }

func (c *Client) IsConnected() bool      { return true }
func (c *Client) IsConnectionOpen() bool { return true }
func (c *Client) Connect() mqtt.Token    { return Token{} }
func (c *Client) Disconnect(uint)        {}

func (c *Client) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	var body []byte
	switch p := payload.(type) {
	case []byte:
		body = p
	case string:
		body = []byte(p)
	default:
		return Token{Err: errors.New("unsupported payload type")}
	}
	c.mu.Lock()
	c.published = append(c.published, Published{Topic: topic, QoS: qos, Payload: body})
	c.mu.Unlock()
	c.Deliver(Message{TopicName: topic, Body: body, QoSLevel: qos})
	return Token{}
}

func (c *Client) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	if c.SubscribeErr != nil {
		return Token{Err: c.SubscribeErr}
	}
	c.mu.Lock()
	c.subs[topic] = cb
	c.mu.Unlock()
	return Token{}
}

func (c *Client) SubscribeMultiple(filters map[string]byte, cb mqtt.MessageHandler) mqtt.Token {
	for topic, qos := range filters {
		if tok := c.Subscribe(topic, qos, cb); tok.Error() != nil {
			return tok
		}
	}
	return Token{}
}

func (c *Client) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	for _, t := range topics {
		delete(c.subs, t)
	}
	c.mu.Unlock()
	return Token{}
}

func (c *Client) AddRoute(topic string, cb mqtt.MessageHandler) { c.Subscribe(topic, 0, cb) }

func (c *Client) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

// Subscribed lists the active topic filters.
func (c *Client) Subscribed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.subs))
	for t := range c.subs {
		out = append(out, t)
	}
	return out
}

func (c *Client) Published() []Published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Published(nil), c.published...)
}

// Deliver hands msg to every subscription whose filter matches its topic.
func (c *Client) Deliver(msg Message) {
	c.mu.Lock()
	var targets []mqtt.MessageHandler
	for filter, cb := range c.subs {
		if Match(filter, msg.TopicName) {
			targets = append(targets, cb)
		}
	}
	c.mu.Unlock()
	for _, cb := range targets {
		cb(c, msg)
	}
}

// Match implements MQTT topic filter matching with + and #.
func Match(filter, topic string) bool {
	fp := strings.Split(filter, "/")
	tp := strings.Split(topic, "/")
	for i, f := range fp {
		if f == "#" {
			return true
		}
		if i >= len(tp) {
			return false
		}
		if f != "+" && f != tp[i] {
			return false
		}
	}
	return len(fp) == len(tp)
}
