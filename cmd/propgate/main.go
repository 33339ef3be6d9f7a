// propgate: planning gate for property packages
//
// An MCP server and command-line tool that turns a property package
// request into a build plan, or into an explicit Blocked state that lists
// every unresolved item.
//
// Usage:
//
//	propgate serve                 # Start MCP server (stdio transport)
//	propgate plan request.yaml     # Plan one request and print the report
//	propgate ledger import p.csv   # Import parameter records
//	propgate ledger export         # Print the live ledger as CSV
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/propgate/internal/ledger"
	"github.com/HendryAvila/propgate/internal/pipeline"
	pgserver "github.com/HendryAvila/propgate/internal/server"
)

// exitBlocked is the exit status of a plan that ended Blocked.
const exitBlocked = 2

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = serve()
	case "plan":
		err = plan(os.Args[2:])
	case "ledger":
		err = ledgerCmd(os.Args[2:])
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("propgate v%s\n", pgserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	var blocked *blockedError
	if errors.As(err, &blocked) {
		os.Exit(exitBlocked)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serve() error {
	s, cleanup, err := pgserver.New()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()
	return server.ServeStdio(s)
}

// blockedError signals a completed run that did not reach Ready. The
// report has already been printed.
type blockedError struct{ reason string }

func (e *blockedError) Error() string { return "run blocked: " + e.reason }

func plan(args []string) error {
	var path string
	asJSON := false
	for _, a := range args {
		switch a {
		case "--json":
			asJSON = true
		default:
			if path != "" {
				return fmt.Errorf("plan takes one request file, got %q and %q", path, a)
			}
			path = a
		}
	}
	if path == "" {
		return errors.New("usage: propgate plan [--json] <request.yaml|request.json>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := pgserver.Open()
	if err != nil {
		return err
	}
	defer app.Close()

	run, err := app.Engine.PlanDocument(ctx, data)
	if err != nil {
		return err
	}

	if asJSON {
		out, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling run: %w", err)
		}
		fmt.Println(string(out))
	} else {
		text, err := pipeline.RenderReport(ctx, app.Renderer, run, app.Ledger)
		if err != nil {
			return err
		}
		fmt.Print(text)
	}

	if !run.Ready() {
		return &blockedError{reason: string(run.Outcome.Reason)}
	}
	return nil
}

func ledgerCmd(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: propgate ledger import <file.csv> | propgate ledger export")
	}

	app, err := pgserver.Open()
	if err != nil {
		return err
	}
	defer app.Close()
	ctx := context.Background()

	switch args[0] {
	case "import":
		if len(args) != 2 {
			return errors.New("usage: propgate ledger import <file.csv>")
		}
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		res, err := ledger.ImportCSV(ctx, app.Ledger, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Imported %d record(s).\n", res.Imported)
		for _, r := range res.Rejected {
			fmt.Fprintf(os.Stderr, "  rejected %s\n", r.Error())
		}
		if len(res.Rejected) > 0 {
			return fmt.Errorf("%d row(s) rejected", len(res.Rejected))
		}
		return nil
	case "export":
		return ledger.ExportCSV(ctx, app.Ledger, os.Stdout)
	default:
		return fmt.Errorf("unknown ledger command %q", args[0])
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `propgate v%s: planning gate for property packages

Usage:
  propgate serve                         Start the MCP server (stdio transport)
  propgate plan [--json] <request>       Plan a request and print the report
  propgate ledger import <file.csv>      Import parameter records
  propgate ledger export                 Print the live ledger as CSV
  propgate version                       Print the version

A plan that ends Blocked exits with status %d.

Configuration:
  $PROPGATE_CONFIG or ~/.propgate/config.yaml, e.g.

    max_repair_iterations: 3
    policy: placeholder
    collaborators:
      - {name: sheets, kind: file, scope: documentation, dir: ./sheets}

  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "propgate": {
        "command": "propgate",
        "args": ["serve"]
      }
    }
  }
`, pgserver.Version, exitBlocked)
}
