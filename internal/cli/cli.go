// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/jeranaias/assist-tui/internal/api"
	"github.com/jeranaias/assist-tui/internal/config"
	"github.com/jeranaias/assist-tui/internal/logging"
	"github.com/jeranaias/assist-tui/internal/session"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdLogout
	CmdRegister
	CmdWhoami
	CmdAssistants
	CmdFiles
	CmdCollection
	CmdSearch
	CmdChat
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

var commandNames = map[Command]string{
	CmdTUI:        "tui",
	CmdLogin:      "login",
	CmdLogout:     "logout",
	CmdRegister:   "register",
	CmdWhoami:     "whoami",
	CmdAssistants: "assistants",
	CmdFiles:      "files",
	CmdCollection: "collection",
	CmdSearch:     "search",
	CmdChat:       "chat",
	CmdConfig:     "config",
	CmdVersion:    "version",
	CmdHelp:       "help",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	JSON    bool
	Verbose bool
	Quiet   bool
	APIURL  string

	// Name is the command word as typed.
	Name string

	// Raw holds the arguments after the command word.
	Raw []string
}

const usageText = `assist - terminal client for help assistants

Usage:
  assist                              Start the TUI (default)
  assist login [--email E]            Log in; the password is read without echo
  assist logout                       Log out and forget the stored session
  assist register --email E --name N  Create an account
  assist whoami                       Show the logged-in user

Assistants:
  assist assistants list              List your assistants
  assist assistants show ID           Show one assistant
  assist assistants create --name N --url U --mission M --operator O
        [--description D] [--tone T] [--model M] [--pic URL] [--auth A,B]
  assist assistants update ID [same flags as create]
  assist assistants delete ID [--yes] Delete an assistant and its files
  assist assistants tones             List the available tones
  assist assistants models            List the available models

Knowledge base:
  assist files ID [list]              List an assistant's documents
  assist files ID upload PATH         Upload a .pdf, .md or .txt document
  assist files ID delete FILE_ID [--yes]
  assist files ID download FILE_ID [--out PATH|-]
  assist files ID url FILE_ID         Print a direct download link (contains your token)
  assist collection ID                Show the knowledge-base collection
  assist search ID QUERY...           Search an assistant's knowledge base

Chat:
  assist chat ID                      Open the chat screen for an assistant
  assist chat ID --plain              Line-based chat in the terminal

Configuration:
  assist config [show]                Print the effective configuration
  assist config get KEY               Print one value (dot notation, e.g. api.base_url)
  assist config set KEY VALUE         Change and save one value
  assist config keys                  List every key
  assist config path                  Print the config file location

Global flags:
  --json          Machine-readable output
  --verbose, -v   Log to stderr at debug level
  --quiet, -q     Only print errors
  --api URL       Override api.base_url for this run

Environment:
  ASSIST_API_URL, ASSIST_LOG_LEVEL, ASSIST_TIMEOUT, ASSIST_STORE_PATH, ASSIST_THEME

Exit codes:
  0 success, 1 error, 2 usage, 3 config, 4 auth/session expired,
  5 network, 7 not found, 8 timeout
`

// =============================================================================
// PARSING
// =============================================================================

// Parse splits argv (without the program name) into the command and its
// arguments. Global flags are accepted anywhere.
func Parse(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)
	if len(remaining) == 0 {
		return CmdTUI, args
	}

	args.Name = remaining[0]
	args.Raw = remaining[1:]

	switch strings.ToLower(remaining[0]) {
	case "login":
		return CmdLogin, args
	case "logout":
		return CmdLogout, args
	case "register", "signup":
		return CmdRegister, args
	case "whoami", "me":
		return CmdWhoami, args
	case "assistants", "assistant", "a":
		return CmdAssistants, args
	case "files", "file":
		return CmdFiles, args
	case "collection":
		return CmdCollection, args
	case "search":
		return CmdSearch, args
	case "chat":
		return CmdChat, args
	case "config":
		return CmdConfig, args
	case "version", "--version":
		return CmdVersion, args
	case "help", "-h", "--help":
		return CmdHelp, args
	case "tui":
		return CmdTUI, args
	default:
		return CmdUnknown, args
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var remaining []string
	var args Args

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "--json":
			args.JSON = true
		case arg == "-v" || arg == "--verbose":
			args.Verbose = true
		case arg == "-q" || arg == "--quiet":
			args.Quiet = true
		case arg == "--api" && i+1 < len(argv):
			i++
			args.APIURL = argv[i]
		case strings.HasPrefix(arg, "--api="):
			args.APIURL = strings.TrimPrefix(arg, "--api=")
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, args
}

// ChatTarget extracts the assistant id and --plain from chat arguments.
func ChatTarget(args Args) (int64, bool, error) {
	p := NewArgParser(args.Raw, "plain")
	id, err := ParseID(p.Positional(0), "assistant id", "assist chat 3")
	return id, p.BoolFlag("plain"), err
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

// Env carries what commands need. main builds it once; tests build it
// with buffers and a fake backend.
type Env struct {
	Out io.Writer
	Err io.Writer
	In  io.Reader

	Config  *config.Config
	Session *session.Store
	Client  *api.Client
	Log     *logging.Logger

	// ReadPassword reads a secret without echo.
	ReadPassword func(prompt string) (string, error)

	// Interactive enables prompts, line editing and the reveal animation.
	Interactive bool

	// RevealInterval paces the reply animation in chat --plain.
	RevealInterval time.Duration

	in *bufio.Reader
}

// reader returns one buffered reader over In shared by every prompt.
func (e *Env) reader() *bufio.Reader {
	if e.in == nil {
		e.in = bufio.NewReader(e.In)
	}
	return e.in
}

// NewEnv returns an Env bound to the process's standard streams.
func NewEnv(cfg *config.Config, store *session.Store, client *api.Client, log *logging.Logger) *Env {
	return &Env{
		Out:            os.Stdout,
		Err:            os.Stderr,
		In:             os.Stdin,
		Config:         cfg,
		Session:        store,
		Client:         client,
		Log:            log,
		ReadPassword:   ReadPasswordTerminal,
		Interactive:    IsTTY(),
		RevealInterval: cfg.RevealInterval(),
	}
}

func (e *Env) logger() *logging.Logger {
	if e.Log == nil {
		return logging.Nop()
	}
	return e.Log
}

// emit prints data as a JSON response, or runs human unless --quiet.
func (e *Env) emit(args Args, command string, data interface{}, human func(w io.Writer)) error {
	if args.JSON {
		return NewJSONResponse(command, data).Print(e.Out)
	}
	if !args.Quiet {
		human(e.Out)
	}
	return nil
}

// =============================================================================
// DISPATCH
// =============================================================================

// Run executes cmd. Errors are returned, not printed; see Main.
func Run(ctx context.Context, env *Env, cmd Command, args Args) error {
	switch cmd {
	case CmdLogin:
		return HandleLogin(ctx, env, args)
	case CmdLogout:
		return HandleLogout(ctx, env, args)
	case CmdRegister:
		return HandleRegister(ctx, env, args)
	case CmdWhoami:
		return HandleWhoami(ctx, env, args)
	case CmdAssistants:
		return HandleAssistants(ctx, env, args)
	case CmdFiles:
		return HandleFiles(ctx, env, args)
	case CmdCollection:
		return HandleCollection(ctx, env, args)
	case CmdSearch:
		return HandleSearch(ctx, env, args)
	case CmdChat:
		return HandleChat(ctx, env, args)
	case CmdConfig:
		return HandleConfig(env, args)
	case CmdVersion:
		return HandleVersion(env, args)
	case CmdHelp:
		fmt.Fprint(env.Out, usageText)
		return nil
	default:
		return &ValidationError{Field: "command", Value: args.Name, Reason: "unknown command", Example: "assist help"}
	}
}

// Main runs cmd, reports any error in the selected output mode and returns
// the process exit code.
func Main(ctx context.Context, env *Env, cmd Command, args Args) int {
	err := Run(ctx, env, cmd, args)
	if err == nil {
		return ExitSuccess
	}
	env.logger().Debug().Err(err).Str("command", cmd.String()).Msg("command failed")
	if api.IsSessionExpired(err) && env.Session != nil {
		// The next command must ask for a fresh login.
		if cerr := env.Session.Clear(); cerr != nil {
			env.logger().Warn().Err(cerr).Msg("clear expired session")
		}
	}
	if args.JSON {
		DisplayError(env.Out, cmd.String(), err, true)
	} else {
		DisplayError(env.Err, cmd.String(), err, false)
	}
	return GetExitCode(err)
}

// PrintUsage prints the help text to stdout.
func PrintUsage() {
	fmt.Print(usageText)
}

// HandleVersion prints version information.
func HandleVersion(env *Env, args Args) error {
	data := VersionData{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
	return env.emit(args, "version", data, func(w io.Writer) {
		fmt.Fprintf(w, "assist %s (%s, built %s, %s)\n", data.Version, data.GitCommit, data.BuildDate, data.GoVersion)
	})
}
