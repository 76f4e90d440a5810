package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

type natsSubscription interface {
	Unsubscribe() error
}

type natsConnection interface {
	Publish(string, []byte) error
	Subscribe(string, nats.MsgHandler) (natsSubscription, error)
	Close() error
}

// Outbound is the payload published for every line the agent says.
type Outbound struct {
	From string    `json:"from"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

// NATS is a transport over two NATS subjects. Inbound payloads are Message
// JSON, or plain "name: text" lines.
type NATS struct {
	conn     natsConnection
	inbound  string
	outbound string
	bot      string
}

// NATSOptions configures a NATS transport.
type NATSOptions struct {
	URL      string
	Inbound  string
	Outbound string
	Name     string // connection and speaker name
}

// DialNATS connects to a NATS server.
func DialNATS(opts NATSOptions) (*NATS, error) {
	url := opts.URL
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url, nats.Name(opts.Name))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newNATS(&natsConnectionAdapter{conn}, opts), nil
}

func newNATS(conn natsConnection, opts NATSOptions) *NATS {
	return &NATS{conn: conn, inbound: opts.Inbound, outbound: opts.Outbound, bot: opts.Name}
}

// Receive implements Transport.
func (n *NATS) Receive(ctx context.Context) (<-chan Message, error) {
	if n == nil || n.conn == nil {
		return nil, fmt.Errorf("nats transport is nil")
	}

	out := make(chan Message, 32)
	var stopped int32
	var mu sync.RWMutex
	var once sync.Once
	var sub natsSubscription

	unsubscribe := func() {
		once.Do(func() {
			atomic.StoreInt32(&stopped, 1)
			if sub != nil {
				_ = sub.Unsubscribe()
			}
			mu.Lock()
			defer mu.Unlock()
			close(out)
		})
	}

	sub, err := n.conn.Subscribe(n.inbound, func(msg *nats.Msg) {
		if atomic.LoadInt32(&stopped) == 1 {
			return
		}
		m, ok := decodeMessage(msg.Data)
		if !ok {
			return
		}
		mu.RLock()
		defer mu.RUnlock()
		if atomic.LoadInt32(&stopped) == 1 {
			return
		}
		select {
		case out <- m:
		default:
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", n.inbound, err)
	}

	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return out, nil
}

// Send implements Transport.
func (n *NATS) Send(ctx context.Context, text string) error {
	raw, err := json.Marshal(Outbound{From: n.bot, Text: text, Time: time.Now()})
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.conn.Publish(n.outbound, raw)
}

// Close implements Transport.
func (n *NATS) Close() error {
	if n == nil || n.conn == nil {
		return nil
	}
	return n.conn.Close()
}

func decodeMessage(data []byte) (Message, bool) {
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return Message{}, false
	}
	var m Message
	if strings.HasPrefix(raw, "{") {
		if err := json.Unmarshal([]byte(raw), &m); err != nil || m.Text == "" {
			return Message{}, false
		}
	} else {
		m = ParseLine(raw, "")
	}
	if m.From == "" {
		return Message{}, false
	}
	if m.Time.IsZero() {
		m.Time = time.Now()
	}
	return m, true
}

type natsConnectionAdapter struct {
	*nats.Conn
}

func (a *natsConnectionAdapter) Subscribe(subject string, handler nats.MsgHandler) (natsSubscription, error) {
	sub, err := a.Conn.Subscribe(subject, handler)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (a *natsConnectionAdapter) Close() error {
	if err := a.Conn.Drain(); err != nil {
		a.Conn.Close()
	}
	return nil
}
