package protocol

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/creativeprojects/imapfetch/lib"
)

type result struct {
	body string
	err  error
}

// pendingCommand is a command waiting for its tagged reply. The one slot
// channel is its completion: it is filled exactly once.
type pendingCommand struct {
	tag       string
	text      string
	multiline bool
	collected []string
	done      chan result
}

func newPendingCommand(tag, text string, multiline bool) *pendingCommand {
	return &pendingCommand{
		tag:       tag,
		text:      text,
		multiline: multiline,
		done:      make(chan result, 1),
	}
}

func (c *pendingCommand) complete(body string, err error) {
	select {
	case c.done <- result{body: body, err: err}:
	default:
	}
}

// pipeline serializes commands onto the connection: at most one command is
// in flight, the others wait in submission order. The server answers
// commands in the order received, so every line read from the connection
// belongs to the current command until its tagged reply arrives.
type pipeline struct {
	mutex     sync.Mutex
	tags      tagAllocator
	conn      io.Writer
	log       lib.Logger
	connected bool
	current   *pendingCommand
	queue     []*pendingCommand
}

func newPipeline(conn io.Writer, log lib.Logger) *pipeline {
	if log == nil {
		log = &lib.NoLog{}
	}
	return &pipeline{
		conn:      conn,
		log:       log,
		connected: true,
	}
}

// submit sends the command, or queues it when another one is in flight.
// The returned channel delivers the joined untagged lines of the reply,
// or the error the command failed with.
func (p *pipeline) submit(text string, multiline bool) (<-chan result, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.connected {
		return nil, ErrNotConnected
	}
	cmd := newPendingCommand(p.tags.next(), text, multiline)
	if p.current == nil {
		p.dispatch(cmd)
	} else {
		p.queue = append(p.queue, cmd)
	}
	return cmd.done, nil
}

// execute submits the command and blocks until its reply arrived.
func (p *pipeline) execute(text string, multiline bool) (string, error) {
	done, err := p.submit(text, multiline)
	if err != nil {
		return "", err
	}
	reply := <-done
	return reply.body, reply.err
}

// dispatch makes cmd the current command and writes its line. A write
// failure rejects this command only and moves on to the next one.
func (p *pipeline) dispatch(cmd *pendingCommand) {
	p.current = cmd
	p.log.Printf("> %s %s", cmd.tag, cmd.text)
	_, err := p.conn.Write([]byte(cmd.tag + " " + cmd.text + "\r\n"))
	if err != nil {
		p.current = nil
		cmd.complete("", fmt.Errorf("cannot send command: %w", err))
		p.advance()
	}
}

// advance activates the next queued command, if any.
func (p *pipeline) advance() {
	if len(p.queue) == 0 {
		return
	}
	next := p.queue[0]
	p.queue = p.queue[1:]
	p.dispatch(next)
}

// receive routes one complete line from the server. A line starting with
// the current command's tag completes it: status OK resolves with the
// collected lines joined by newline, anything else rejects with the full
// line. Every other line is collected onto the current command. With no
// command in flight the line is dropped: this absorbs the server greeting
// and any unsolicited data.
func (p *pipeline) receive(line string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.log.Printf("< %s", line)
	cmd := p.current
	if cmd == nil {
		return
	}
	if !strings.HasPrefix(line, cmd.tag+" ") {
		cmd.collected = append(cmd.collected, line)
		return
	}
	p.current = nil
	if statusToken(line, cmd.tag) == "OK" {
		cmd.complete(strings.Join(cmd.collected, "\n"), nil)
	} else {
		cmd.complete("", fmt.Errorf("%w: %s", ErrCommandFailed, line))
	}
	p.advance()
}

// closed rejects the current and all queued commands: the connection is
// gone and no reply will ever arrive for them.
func (p *pipeline) closed() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.connected = false
	if p.current != nil {
		p.current.complete("", ErrConnectionClosed)
		p.current = nil
	}
	for _, cmd := range p.queue {
		cmd.complete("", ErrConnectionClosed)
	}
	p.queue = nil
}

// statusToken returns the token immediately following the tag.
func statusToken(line, tag string) string {
	rest := line[len(tag)+1:]
	if index := strings.IndexByte(rest, ' '); index >= 0 {
		return rest[:index]
	}
	return rest
}
