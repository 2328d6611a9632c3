// Package console is an interactive prompt for driving the connection
// registry directly, useful for poking at TCP services without an MCP
// client in the loop.
package console

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"

	"github.com/kvasudev/tcpsock/internal/codec"
	"github.com/kvasudev/tcpsock/internal/config"
	"github.com/kvasudev/tcpsock/internal/registry"
	"github.com/kvasudev/tcpsock/internal/trigger"
)

const prompt = "tcpsock> "

var commands = []string{
	"connect", "connect-send", "send", "read", "clear", "info",
	"trigger-set", "trigger-remove", "list", "disconnect", "help", "quit",
}

// Run starts the REPL. It requires a terminal on stdin.
func Run(ctx context.Context, reg *registry.Registry, cfg *config.Config) error {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return fmt.Errorf("interactive mode requires a terminal")
	}

	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(prefix string) (out []string) {
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, strings.ToLower(prefix)) {
				out = append(out, cmd)
			}
		}
		return out
	})

	if cfg.HistoryFile != "" {
		loadHistory(line, cfg.HistoryFile)
		defer saveHistory(line, cfg.HistoryFile)
	}

	c := &console{reg: reg, ctx: ctx}
	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			// Ctrl-C / Ctrl-D ends the session.
			fmt.Println()
			return nil
		}

		args := splitArgs(input)
		if len(args) == 0 {
			continue
		}
		line.AppendHistory(input)

		if done := c.dispatch(args); done {
			return nil
		}
	}
}

type console struct {
	reg *registry.Registry
	ctx context.Context
}

// dispatch runs one command, returning true when the session ends.
func (c *console) dispatch(args []string) bool {
	cmd, rest := strings.ToLower(args[0]), args[1:]

	var err error
	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		printHelp()
	case "connect":
		err = c.connect(rest)
	case "connect-send":
		err = c.connectSend(rest)
	case "send":
		err = c.send(rest)
	case "read":
		err = c.read(rest)
	case "clear":
		err = c.clear(rest)
	case "info":
		err = c.info(rest)
	case "trigger-set":
		err = c.triggerSet(rest)
	case "trigger-remove":
		err = c.triggerRemove(rest)
	case "list":
		c.list()
	case "disconnect":
		err = c.disconnect(rest)
	default:
		fmt.Printf("unknown command %q, try help\n", cmd)
	}

	if err != nil {
		fmt.Printf("error: %v\n", err)
	}
	return false
}

func (c *console) connect(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: connect <host> <port> [id]")
	}
	port, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid port %q", args[1])
	}
	id := ""
	if len(args) > 2 {
		id = args[2]
	}

	conn, applied, err := c.reg.Create(c.ctx, args[0], port, id)
	if err != nil {
		return err
	}
	fmt.Printf("connected: %s (%s)\n", conn.ID, conn.Status())
	if len(applied) > 0 {
		fmt.Printf("applied pre-registered triggers: %s\n", strings.Join(applied, ", "))
	}
	return nil
}

func (c *console) connectSend(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: connect-send <host> <port> <data> [encoding] [terminator]")
	}
	port, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid port %q", args[1])
	}

	payload, err := encodePayload(args[2], optArg(args, 3), optArg(args, 4))
	if err != nil {
		return err
	}

	conn, _, n, err := c.reg.CreateAndSend(c.ctx, args[0], port, "", payload)
	if err != nil {
		return err
	}
	fmt.Printf("connected: %s, sent %d bytes\n", conn.ID, n)
	return nil
}

func (c *console) send(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: send <id> <data> [encoding] [terminator]")
	}

	payload, err := encodePayload(args[1], optArg(args, 2), optArg(args, 3))
	if err != nil {
		return err
	}

	conn, err := c.reg.Get(args[0])
	if err != nil {
		return err
	}

	n, err := conn.Send(payload)
	if err != nil {
		return err
	}
	fmt.Printf("sent %d bytes\n", n)
	return nil
}

func (c *console) read(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: read <id> [format]")
	}

	conn, err := c.reg.Get(args[0])
	if err != nil {
		return err
	}

	format, err := codec.ParseEncoding(optArg(args, 1))
	if err != nil {
		return err
	}

	chunks := conn.ReadBuffer(nil, nil, format)
	if len(chunks) == 0 {
		fmt.Println("(buffer empty)")
		return nil
	}
	for i, chunk := range chunks {
		fmt.Printf("[%d] %s\n", i, chunk)
	}
	return nil
}

func (c *console) clear(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: clear <id>")
	}
	conn, err := c.reg.Get(args[0])
	if err != nil {
		return err
	}
	conn.ClearBuffer()
	fmt.Println("buffer cleared")
	return nil
}

func (c *console) info(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: info <id>")
	}
	conn, err := c.reg.Get(args[0])
	if err != nil {
		return err
	}

	d := conn.Detail()
	fmt.Printf("%s %s:%d status=%s created=%s\n", d.ConnectionID, d.Host, d.Port, d.Status, d.CreatedAt.Format("15:04:05"))
	fmt.Printf("buffer: %d chunk(s), %d bytes; sent=%d received=%d\n",
		d.Buffer.Chunks, d.Buffer.TotalSize, d.Buffer.BytesSent, d.Buffer.BytesReceived)
	for _, t := range d.Triggers {
		fmt.Printf("trigger %s: /%s/ -> %d byte response (%s)\n", t.TriggerID, t.Pattern, t.ResponseSize, t.ResponseEncoding)
	}
	return nil
}

func (c *console) triggerSet(args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("usage: trigger-set <id> <trigger-id> <pattern> <response> [encoding] [terminator]")
	}

	t, err := trigger.New(args[1], args[2], args[3], optArg(args, 4), optArg(args, 5))
	if err != nil {
		return err
	}

	placement := c.reg.RegisterTrigger(args[0], t)
	fmt.Printf("trigger %s: %s\n", args[1], placement)
	return nil
}

func (c *console) triggerRemove(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: trigger-remove <id> <trigger-id>")
	}
	placement, err := c.reg.RemoveTrigger(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("trigger %s: %s\n", args[1], placement)
	return nil
}

func (c *console) list() {
	summaries := c.reg.List()
	if len(summaries) == 0 {
		fmt.Println("(no connections)")
		return
	}
	for _, s := range summaries {
		fmt.Printf("%s %s:%d status=%s sent=%d received=%d chunks=%d triggers=%d\n",
			s.ConnectionID, s.Host, s.Port, s.Status, s.BytesSent, s.BytesReceived, s.BufferChunks, s.Triggers)
	}
}

func (c *console) disconnect(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: disconnect <id>")
	}
	if err := c.reg.Remove(args[0]); err != nil {
		return err
	}
	fmt.Println("disconnected")
	return nil
}

func encodePayload(data, encoding, terminator string) ([]byte, error) {
	enc, err := codec.ParseEncoding(encoding)
	if err != nil {
		return nil, err
	}
	payload, err := codec.Encode(data, enc)
	if err != nil {
		return nil, err
	}
	return codec.WithTerminator(payload, terminator)
}

func optArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func printHelp() {
	fmt.Print(`commands:
  connect <host> <port> [id]
  connect-send <host> <port> <data> [encoding] [terminator]
  send <id> <data> [encoding] [terminator]
  read <id> [format]            formats: utf-8, hex, base64
  clear <id>
  info <id>
  trigger-set <id> <trigger-id> <pattern> <response> [encoding] [terminator]
  trigger-remove <id> <trigger-id>
  list
  disconnect <id>
  quit
`)
}

// splitArgs splits a command line on whitespace, honoring double
// quotes so payloads can contain spaces.
func splitArgs(input string) []string {
	var (
		args     []string
		current  strings.Builder
		inQuotes bool
		started  bool
	)

	for _, r := range input {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			started = true
		case !inQuotes && (r == ' ' || r == '\t'):
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if started {
		args = append(args, current.String())
	}
	return args
}

func loadHistory(line *liner.State, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = line.ReadHistory(f)
}

func saveHistory(line *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = line.WriteHistory(f)
}
