package cli

import (
	"context"
	"fmt"
	"strings"
)

// printlnFn and printFn are test seams for REPL output. In tests, replace
// them with stubs.
var (
	printlnFn = fmt.Println
	printFn   = fmt.Print
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Add(ctx context.Context, paths []string) error
	List(ctx context.Context) error
	Search(ctx context.Context, query string) error
	Info(ctx context.Context, id string) error
	Download(ctx context.Context, id string) error
	Preview(ctx context.Context, id string) error
	ClosePreview(ctx context.Context, id string) error
	Delete(ctx context.Context, id string, confirmed bool) error
	Clear(ctx context.Context, confirmed bool) error
	Stats(ctx context.Context) error
}

const helpText = `Available commands:
  add [path ...]        add one or more files
  list | ls             list files, newest first
  search <text>         list files whose name contains text
  info <id>             show file metadata
  download <id>         save a file to the download directory
  preview <id>          get a temporary link to an image
  close [id]            release preview links (all when no id)
  delete [-y] <id>      delete a file
  clear [-y]            delete every file
  stats                 show file count and space used
  exit | quit           leave the program`

// runREPL starts a simple read–eval–print loop over lines.
//
// The first token of each line is the command; the rest are its arguments.
// The loop exits when lines is closed, ctx is done, or the user types
// "exit" or "quit". Command errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, lines <-chan string) {
	for {
		printFn("drive> ")

		var line string
		select {
		case <-ctx.Done():
			printlnFn()
			return
		case l, ok := <-lines:
			if !ok {
				printlnFn()
				return
			}
			line = l
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(helpText)

		case "add":
			err = a.Add(ctx, args)

		case "l", "ls", "list":
			err = a.List(ctx)

		case "search":
			err = a.Search(ctx, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), cmd)))

		case "info", "download", "preview":
			if len(args) != 1 {
				printlnFn(fmt.Sprintf("Usage: %s <id>", cmd))
				continue
			}
			switch cmd {
			case "info":
				err = a.Info(ctx, args[0])
			case "download":
				err = a.Download(ctx, args[0])
			default:
				err = a.Preview(ctx, args[0])
			}

		case "close":
			id := ""
			if len(args) > 0 {
				id = args[0]
			}
			err = a.ClosePreview(ctx, id)

		case "delete", "rm":
			yes, rest := splitYes(args)
			if len(rest) != 1 {
				printlnFn("Usage: delete [-y] <id>")
				continue
			}
			err = a.Delete(ctx, rest[0], yes)

		case "clear":
			yes, _ := splitYes(args)
			err = a.Clear(ctx, yes)

		case "stats":
			err = a.Stats(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}

func splitYes(args []string) (bool, []string) {
	yes := false
	rest := make([]string, 0, len(args))
	for _, a := range args {
		if a == "-y" || a == "--yes" {
			yes = true
			continue
		}
		rest = append(rest, a)
	}
	return yes, rest
}
