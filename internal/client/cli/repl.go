package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isAuthenticated() bool
	SignIn(ctx context.Context) error
	SignUp(ctx context.Context) error
	Link(ctx context.Context) error
	SignOut(ctx context.Context) error
	Programs(ctx context.Context) error
	AddProgram(ctx context.Context) error
	DeleteProgram(ctx context.Context) error
	UseProgram(ctx context.Context) error
	Courses(ctx context.Context) error
	AddCourse(ctx context.Context) error
	DeleteCourse(ctx context.Context) error
	UseCourse(ctx context.Context) error
	Sessions(ctx context.Context) error
	AddSession(ctx context.Context) error
	DeleteSession(ctx context.Context) error
	Open(ctx context.Context) error
	Upgrade(ctx context.Context) error
	Verify(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the Clarifio CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Always:
//	  - help                     — show available commands
//	  - signin | signup | signout
//	  - link                     — attach a credential to the guest identity
//	  - programs | addprogram | delprogram | use
//	  - courses | addcourse | delcourse | usecourse
//	  - sessions | addsession | delsession
//	  - open                     — open a note session (nested view)
//	  - upgrade | verify         — paid subscription flow
//	  - exit | quit              — leave the program
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("clarifio %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isAuthenticated() {
				printlnFn("Available commands: programs, addprogram, delprogram, use, courses, addcourse, delcourse, usecourse, sessions, addsession, delsession, open, upgrade, verify, link, signout, exit")
			} else {
				printlnFn("Available commands: signin, signup, link, programs, addprogram, use, courses, addcourse, usecourse, sessions, addsession, open, upgrade, verify, exit")
			}

		case "signin":
			_ = a.SignIn(ctx)

		case "signup":
			_ = a.SignUp(ctx)

		case "link":
			_ = a.Link(ctx)

		case "signout":
			_ = a.SignOut(ctx)

		case "p", "programs":
			_ = a.Programs(ctx)

		case "addprogram":
			_ = a.AddProgram(ctx)

		case "delprogram":
			_ = a.DeleteProgram(ctx)

		case "use":
			_ = a.UseProgram(ctx)

		case "c", "courses":
			_ = a.Courses(ctx)

		case "addcourse":
			_ = a.AddCourse(ctx)

		case "delcourse":
			_ = a.DeleteCourse(ctx)

		case "usecourse":
			_ = a.UseCourse(ctx)

		case "s", "sessions":
			_ = a.Sessions(ctx)

		case "addsession":
			_ = a.AddSession(ctx)

		case "delsession":
			_ = a.DeleteSession(ctx)

		case "open":
			_ = a.Open(ctx)

		case "upgrade":
			_ = a.Upgrade(ctx)

		case "verify":
			_ = a.Verify(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
