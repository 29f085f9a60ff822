// Command prodosort repairs, sorts, and compacts ProDOS directories,
// wiring its CLI flag surface to a traversal.Driver run.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/bobbimanners/prodosort/bitmap"
	"github.com/bobbimanners/prodosort/blockio"
	prodoserrors "github.com/bobbimanners/prodosort/errors"
	"github.com/bobbimanners/prodosort/geometry"
	"github.com/bobbimanners/prodosort/prodos"
	"github.com/bobbimanners/prodosort/traversal"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "prodosort",
		Usage:     "repair, sort, and compact ProDOS directories",
		ArgsUsage: "DEVICE_IMAGE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "s", Usage: "up to 4 sort keys, e.g. \"n\" or \"dN\""},
			&cli.StringFlag{Name: "n", Usage: "name-case transform: l|u|i|c"},
			&cli.StringFlag{Name: "d", Usage: "date-format target: n|o"},
			&cli.StringFlag{Name: "f", Value: "-", Usage: "fix mode: -=ask, y=always, n=never"},
			&cli.BoolFlag{Name: "r", Usage: "recurse into subtree"},
			&cli.BoolFlag{Name: "D", Usage: "whole disk (implies -r)"},
			&cli.BoolFlag{Name: "w", Usage: "enable writes"},
			&cli.BoolFlag{Name: "z", Usage: "zero free blocks (implies -D)"},
			&cli.IntFlag{Name: "start", Value: 2, Usage: "starting directory key block"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		var fatal *prodoserrors.FatalError
		if errors.As(err, &fatal) {
			log.Print(fatal.Error())
			os.Exit(fatal.Kind.ExitCode())
		}
		log.Fatalf("fatal error: %s", err)
	}
}

func run(c *cli.Context) error {
	path := c.Args().Get(0)
	if path == "" {
		return prodoserrors.NewFatalError(prodoserrors.BadArgument, fmt.Errorf("missing DEVICE_IMAGE argument"))
	}

	opts, err := parseOptions(c)
	if err != nil {
		return prodoserrors.NewFatalError(prodoserrors.BadArgument, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return prodoserrors.NewFatalError(prodoserrors.IOOrStructuralFailure, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return prodoserrors.NewFatalError(prodoserrors.IOOrStructuralFailure, err)
	}
	totalBlocks := uint(info.Size()) / prodos.BlockSize

	device := blockio.New(file, totalBlocks)
	reachable := bitmap.New(totalBlocks)
	freeList := bitmap.New(totalBlocks)

	out := prodos.StdReporter{Out: os.Stdout}
	if opts.Scope == prodos.ScopeVolume {
		out.Status("volume looks like: " + geometry.Describe(totalBlocks))
	}

	session := &prodos.Session{
		TotalBlocks: totalBlocks,
		Options:     opts,
		Prompt:      stdinPrompt,
		Out:         out,
	}

	driver := traversal.NewDriver(device, session, reachable, freeList)
	startBlock := prodos.BlockNumber(c.Int("start"))
	return driver.Run(startBlock)
}

// parseOptions translates the CLI flag surface into a prodos.RunOptions,
// enforcing the implication chain directly rather than leaving it to
// documentation: -D implies -r, -z implies -D.
func parseOptions(c *cli.Context) (prodos.RunOptions, error) {
	opts := prodos.RunOptions{
		Write:    c.Bool("w"),
		ZeroFree: c.Bool("z"),
	}

	wholeDisk := c.Bool("D") || opts.ZeroFree
	recurse := c.Bool("r") || wholeDisk

	switch {
	case wholeDisk:
		opts.Scope = prodos.ScopeVolume
	case recurse:
		opts.Scope = prodos.ScopeSubtree
	default:
		opts.Scope = prodos.ScopeDirectory
	}

	if keys := c.String("s"); keys != "" {
		if len(keys) > 4 {
			return opts, fmt.Errorf("-s accepts at most 4 sort keys, got %d", len(keys))
		}
		opts.SortKeys = []byte(keys)
	}

	switch c.String("n") {
	case "":
		opts.NameCase = prodos.NameCaseNone
	case "l":
		opts.NameCase = prodos.NameCaseLower
	case "u":
		opts.NameCase = prodos.NameCaseUpper
	case "i":
		opts.NameCase = prodos.NameCaseInitial
	case "c":
		opts.NameCase = prodos.NameCaseCamel
	default:
		return opts, fmt.Errorf("-n must be one of l|u|i|c, got %q", c.String("n"))
	}

	switch c.String("d") {
	case "":
		opts.DateFormat = prodos.DateFormatUnchanged
	case "n":
		opts.DateFormat = prodos.DateFormatNew
	case "o":
		opts.DateFormat = prodos.DateFormatLegacy
	default:
		return opts, fmt.Errorf("-d must be one of n|o, got %q", c.String("d"))
	}

	switch c.String("f") {
	case "-":
		opts.FixMode = prodos.FixAsk
	case "y":
		opts.FixMode = prodos.FixAlways
	case "n":
		opts.FixMode = prodos.FixNever
	default:
		return opts, fmt.Errorf("-f must be one of -|y|n, got %q", c.String("f"))
	}

	return opts, nil
}

// stdinPrompt reads a single line from stdin and treats anything but a
// leading 'y'/'Y' as "no", matching askfix's single-keystroke default-to-no
// behaviour.
func stdinPrompt(description string) bool {
	fmt.Printf("%s -- fix (y/n)? ", description)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	line = strings.TrimSpace(line)
	return len(line) > 0 && (line[0] == 'y' || line[0] == 'Y')
}
