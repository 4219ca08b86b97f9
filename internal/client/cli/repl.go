package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

var errUnknownCommand = errors.New("unknown command")

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Execute(ctx context.Context, cmd string, args []string) error
}

// runREPL reads a line from the scanner, splits it into a command and its
// arguments, and hands them to a.Execute. The loop exits on scanner EOF or
// when the user types "exit" or "quit".
//
// Errors returned by Execute are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("s3k %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}

		err := a.Execute(ctx, cmd, args)
		switch {
		case err == nil:
		case errors.Is(err, errUnknownCommand):
			printlnFn("Unknown command:", cmd)
		default:
			printlnFn("Error:", err)
		}
	}
}
