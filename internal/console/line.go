package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

type lineResult struct {
	line string
	err  error
}

// LineConsole reads newline-terminated input without a terminal. A single
// goroutine owns the reader, so an Ask abandoned by its context does not
// lose or reorder later lines.
type LineConsole struct {
	out io.Writer

	once  sync.Once
	in    *bufio.Reader
	lines chan lineResult
	mu    sync.Mutex
}

// NewLineConsole reads from in and writes prompts to out.
func NewLineConsole(in io.Reader, out io.Writer) *LineConsole {
	return &LineConsole{
		out:   out,
		in:    bufio.NewReader(in),
		lines: make(chan lineResult),
	}
}

func (c *LineConsole) start() {
	c.once.Do(func() {
		go func() {
			for {
				line, err := c.in.ReadString('\n')
				if err != nil && line == "" {
					c.lines <- lineResult{err: err}
					close(c.lines)
					return
				}
				c.lines <- lineResult{line: strings.TrimRight(line, "\r\n")}
			}
		}()
	})
}

// ReadLine writes prompt and waits for the next line or ctx.
func (c *LineConsole) ReadLine(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.start()
	fmt.Fprint(c.out, prompt)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return res.line, res.err
	}
}

// Ask is ReadLine for the confirmation prompt.
func (c *LineConsole) Ask(ctx context.Context, prompt string) (string, error) {
	return c.ReadLine(ctx, prompt)
}

// Writer returns the output writer.
func (c *LineConsole) Writer() io.Writer {
	return c.out
}

// Close is a no-op; the caller owns the underlying reader.
func (c *LineConsole) Close() error {
	return nil
}

var (
	_ Interactive = (*Console)(nil)
	_ Interactive = (*LineConsole)(nil)
)
