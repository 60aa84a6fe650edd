package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	rad "github.com/radscript/rad"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "rad",
		Usage:   "expand macro invocations in a text stream",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "behavior", Value: "strict", Usage: "strict|lenient|purge|assert"},
			&cli.StringFlag{Name: "hygiene", Value: "none", Usage: "none|aseptic|input"},
			&cli.StringFlag{Name: "newline", Value: "unix", Usage: "unix|platform"},
			&cli.StringFlag{Name: "comment", Value: "none", Usage: "none|start|any"},
			&cli.StringFlag{Name: "fin", Value: "open", Usage: "restricted|warn|open (file-in)"},
			&cli.StringFlag{Name: "fout", Value: "open", Usage: "restricted|warn|open (file-out)"},
			&cli.StringFlag{Name: "env", Value: "open", Usage: "restricted|warn|open (environment access)"},
			&cli.StringFlag{Name: "cmd", Value: "open", Usage: "restricted|warn|open (shell exec)"},
			&cli.BoolFlag{Name: "pipe-input", Usage: "read source from stdin instead of a file argument"},
			&cli.StringFlag{Name: "freeze", Usage: "write a frozen image to this path after processing"},
			&cli.StringFlag{Name: "melt", Usage: "restore a frozen image from this path before processing"},
			&cli.StringFlag{Name: "diff", Value: "off", Usage: "off|changed|all (accepted, not rendered — see DESIGN.md)"},
			&cli.BoolFlag{Name: "signature", Usage: "print the registered macro signatures as JSON and exit"},
			&cli.IntFlag{Name: "max-depth", Value: 256, Usage: "maximum recursion depth"},
			&cli.BoolFlag{Name: "debug", Usage: "enable trace/debug logging"},
			&cli.StringFlag{Name: "out", Usage: "write output to this path instead of stdout"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	if _, ok := err.(*rad.RadError); ok {
		return 1
	}
	return 1
}

func run(c *cli.Context) error {
	behavior, err := parseBehavior(c.String("behavior"))
	if err != nil {
		return err
	}
	hygiene, err := parseHygiene(c.String("hygiene"))
	if err != nil {
		return err
	}
	newline, err := parseNewline(c.String("newline"))
	if err != nil {
		return err
	}
	comment, err := parseComment(c.String("comment"))
	if err != nil {
		return err
	}
	fin, err := parseAuthFlag(c.String("fin"))
	if err != nil {
		return err
	}
	fout, err := parseAuthFlag(c.String("fout"))
	if err != nil {
		return err
	}
	envFlag, err := parseAuthFlag(c.String("env"))
	if err != nil {
		return err
	}
	cmdFlag, err := parseAuthFlag(c.String("cmd"))
	if err != nil {
		return err
	}
	if err := validateDiff(c.String("diff")); err != nil {
		return err
	}

	cfg := &rad.Config{
		Behavior:      behavior,
		Hygiene:       hygiene,
		Newline:       newline,
		CommentPolicy: comment,
		MaxDepth:      c.Int("max-depth"),
		FileIn:        fin,
		FileOut:       fout,
		Env:           envFlag,
		Cmd:           cmdFlag,
		Debug:         c.Bool("debug"),
	}

	out := os.Stdout
	if path := c.String("out"); path != "" {
		f, ferr := os.Create(path)
		if ferr != nil {
			return ferr
		}
		defer f.Close()
		out = f
	}

	proc := rad.New(cfg, &writerSink{w: out})

	if c.Bool("signature") {
		data, serr := proc.ExportSignatures()
		if serr != nil {
			return serr
		}
		_, werr := out.Write(data)
		return werr
	}

	var body string
	if meltPath := c.String("melt"); meltPath != "" {
		b, merr := proc.Melt(meltPath)
		if merr != nil {
			return merr
		}
		body = b
	} else if c.Bool("pipe-input") {
		data, rerr := io.ReadAll(os.Stdin)
		if rerr != nil {
			return rerr
		}
		body = string(data)
	} else if c.Args().Len() > 0 {
		data, rerr := os.ReadFile(c.Args().First())
		if rerr != nil {
			return rerr
		}
		body = string(data)
	} else {
		data, rerr := io.ReadAll(os.Stdin)
		if rerr != nil {
			return rerr
		}
		body = string(data)
	}

	name := c.Args().First()
	if c.Bool("pipe-input") || name == "" {
		name = "<stdin>"
	}
	if err := proc.ExecuteNamed(body, name); err != nil {
		if proc.State().Behavior == rad.BehaviorStrict || proc.State().Behavior == rad.BehaviorAssert {
			return err
		}
	}

	if pass, fail := proc.Logger().AssertSummary(); pass+fail > 0 {
		proc.Logger().PrintAssertSummary()
		if fail > 0 {
			os.Exit(1)
		}
	}

	if freezePath := c.String("freeze"); freezePath != "" {
		if err := proc.Freeze(freezePath, body); err != nil {
			return err
		}
	}

	return nil
}

type writerSink struct{ w io.Writer }

func (s *writerSink) WriteString(str string) (int, error) { return io.WriteString(s.w, str) }

func parseBehavior(s string) (rad.Behavior, error) {
	switch s {
	case "strict":
		return rad.BehaviorStrict, nil
	case "lenient":
		return rad.BehaviorLenient, nil
	case "purge":
		return rad.BehaviorPurge, nil
	case "assert":
		return rad.BehaviorAssert, nil
	default:
		return 0, fmt.Errorf("invalid --behavior %q", s)
	}
}

func parseHygiene(s string) (rad.HygieneMode, error) {
	switch s {
	case "none":
		return rad.HygieneNone, nil
	case "aseptic":
		return rad.HygieneAseptic, nil
	case "input":
		return rad.HygieneInput, nil
	default:
		return 0, fmt.Errorf("invalid --hygiene %q", s)
	}
}

func parseNewline(s string) (rad.Newline, error) {
	switch s {
	case "unix":
		return rad.NewlineUnix, nil
	case "platform":
		return rad.NewlinePlatform, nil
	default:
		return 0, fmt.Errorf("invalid --newline %q", s)
	}
}

func parseComment(s string) (rad.CommentPolicy, error) {
	switch s {
	case "none":
		return rad.CommentNone, nil
	case "start":
		return rad.CommentStart, nil
	case "any":
		return rad.CommentAny, nil
	default:
		return 0, fmt.Errorf("invalid --comment %q", s)
	}
}

// validateDiff accepts off/changed/all per spec §6's CLI surface but
// never changes behavior — debugger/diff presentation is out of core
// (spec §1), so this only guards against a typo'd value.
func validateDiff(s string) error {
	switch s {
	case "off", "changed", "all":
		return nil
	default:
		return fmt.Errorf("invalid --diff %q", s)
	}
}

func parseAuthFlag(s string) (rad.AuthFlag, error) {
	switch s {
	case "restricted":
		return rad.AuthRestricted, nil
	case "warn":
		return rad.AuthWarn, nil
	case "open":
		return rad.AuthOpen, nil
	default:
		return 0, fmt.Errorf("invalid auth flag %q", s)
	}
}
