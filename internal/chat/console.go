package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Console is a line-oriented transport over a reader and a writer, usually
// stdin and stdout. Inbound lines are "name: text"; lines without a name
// come from User.
type Console struct {
	User string

	in  io.Reader
	mu  sync.Mutex
	out io.Writer
	bot string
}

// NewConsole creates a console transport. botName prefixes outbound lines.
func NewConsole(in io.Reader, out io.Writer, user, botName string) *Console {
	return &Console{User: user, in: in, out: out, bot: botName}
}

// Receive implements Transport.
func (c *Console) Receive(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message, 16)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			msg := ParseLine(scanner.Text(), c.User)
			if msg.Text == "" {
				continue
			}
			msg.Time = time.Now()
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Send implements Transport.
func (c *Console) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "<%s> %s\n", c.bot, text)
	return err
}

// Close implements Transport. The reader is owned by the caller.
func (c *Console) Close() error { return nil }
