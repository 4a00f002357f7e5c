package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs. The real App
// satisfies it; tests provide a recording stub.
type execIface interface {
	isLoggedIn() bool
	holdsCredential() bool
	isAdmin() bool

	Signup(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Verify(ctx context.Context, args []string) error
	Resend(ctx context.Context, args []string) error
	Forgot(ctx context.Context, args []string) error
	Reset(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error
	Whoami(ctx context.Context, args []string) error
	Refresh(ctx context.Context, args []string) error
	DeleteAccount(ctx context.Context, args []string) error
	Profile(ctx context.Context, args []string) error
	Photo(ctx context.Context, args []string) error
	User(ctx context.Context, args []string) error
	Mine(ctx context.Context, args []string) error
	Chat(ctx context.Context, args []string) error

	List(ctx context.Context, args []string) error
	Select(ctx context.Context, args []string) error
	Watch(ctx context.Context, args []string) error
	Unwatch(ctx context.Context, args []string) error
	Upload(ctx context.Context, args []string) error
	UploadMany(ctx context.Context, args []string) error
	Rename(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error

	Theme(ctx context.Context, args []string) error
	Stats(ctx context.Context, args []string) error
}

// command gates: needCredential admits a session whose identity is still
// loading, needAuth requires a loaded identity, admin an admin one.
type command struct {
	run            func(execIface, context.Context, []string) error
	needCredential bool
	needAuth       bool
	admin          bool
}

var commands = map[string]command{
	"signup":        {run: execIface.Signup},
	"login":         {run: execIface.Login},
	"verify":        {run: execIface.Verify},
	"resend":        {run: execIface.Resend},
	"forgot":        {run: execIface.Forgot},
	"reset":         {run: execIface.Reset},
	"theme":         {run: execIface.Theme},
	"stats":         {run: execIface.Stats},
	"logout":        {run: execIface.Logout, needCredential: true},
	"refresh":       {run: execIface.Refresh, needCredential: true},
	"whoami":        {run: execIface.Whoami, needAuth: true},
	"deleteaccount": {run: execIface.DeleteAccount, needAuth: true},
	"profile":       {run: execIface.Profile, needAuth: true},
	"photo":         {run: execIface.Photo, needAuth: true},
	"user":          {run: execIface.User, needAuth: true},
	"mine":          {run: execIface.Mine, needAuth: true},
	"chat":          {run: execIface.Chat, needAuth: true},
	"list":          {run: execIface.List, needAuth: true},
	"l":             {run: execIface.List, needAuth: true},
	"select":        {run: execIface.Select, needAuth: true},
	"watch":         {run: execIface.Watch, needAuth: true},
	"unwatch":       {run: execIface.Unwatch, needAuth: true},
	"upload":        {run: execIface.Upload, needAuth: true, admin: true},
	"uploadmany":    {run: execIface.UploadMany, needAuth: true, admin: true},
	"rename":        {run: execIface.Rename, needAuth: true, admin: true},
	"delete":        {run: execIface.Delete, needAuth: true, admin: true},
}

const accountHelp = "whoami, profile [edit], photo <path>, user <id>, mine, chat <message>|reset, refresh, theme [light|dark], stats, deleteaccount, logout [--all], exit"

func helpText(loggedIn, signingIn, admin bool) string {
	switch {
	case admin:
		return "Available commands: (l)ist, select <id>, watch, unwatch, upload <path> <title>, uploadmany <path>..., rename <id> <title>, delete <id>, " + accountHelp
	case loggedIn:
		return "Available commands: (l)ist, select <id>, watch, unwatch, " + accountHelp
	case signingIn:
		return "Your account could not be loaded yet. Available commands: refresh, logout [--all], theme [light|dark], stats, exit"
	default:
		return "Available commands: signup, login, verify, resend, forgot, reset <token>, theme [light|dark], stats, exit"
	}
}

// runREPL reads commands line by line and dispatches them to a. The first
// token is the command, the rest are its arguments. Commands that need a
// session are refused while signed out, and media management commands are
// refused for non-admin accounts. Prompts issued by handlers read from the
// same reader. Handler errors are printed and the loop continues. It
// returns on end of input or on "exit"/"quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("mediax %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		switch name {
		case "help":
			printlnFn(helpText(a.isLoggedIn(), a.holdsCredential(), a.isAdmin()))
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		cmd, ok := commands[name]
		if !ok {
			printlnFn("Unknown command:", name)
			continue
		}
		if cmd.needCredential && !a.holdsCredential() {
			printlnFn("Please log in first")
			continue
		}
		if cmd.needAuth && !a.isLoggedIn() {
			printlnFn("Please log in first")
			continue
		}
		if cmd.admin && !a.isAdmin() {
			printlnFn("This command is available to admins only")
			continue
		}
		if err := cmd.run(a, ctx, args); err != nil {
			printlnFn("error:", err)
		}
	}
}
