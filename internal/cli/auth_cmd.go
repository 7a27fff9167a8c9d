// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// promptLine reads one line from env.In after writing prompt to env.Err.
func promptLine(env *Env, prompt string) (string, error) {
	if !env.Interactive {
		return "", &TTYRequiredError{Operation: "prompt for " + strings.TrimSuffix(strings.ToLower(prompt), ": ")}
	}
	fmt.Fprint(env.Err, prompt)
	line, err := env.reader().ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (e *Env) sessionData() SessionData {
	data := SessionData{Subject: e.Session.Subject()}
	if exp, ok := e.Session.ExpiresAt(); ok {
		data.ExpiresAt = &exp
	}
	return data
}

// HandleLogin handles "assist login [--email E]".
func HandleLogin(ctx context.Context, env *Env, args Args) error {
	p := NewArgParser(args.Raw)
	email := strings.TrimSpace(p.Flag("email"))
	if email == "" {
		email = strings.TrimSpace(p.Positional(0))
	}
	if email == "" {
		var err error
		if email, err = promptLine(env, "Email: "); err != nil {
			return err
		}
	}
	if email == "" {
		return ErrMissingArgument("email", "assist login --email you@example.com")
	}

	password, err := env.ReadPassword("Password: ")
	if err != nil {
		return err
	}

	sess, err := env.Session.Login(ctx, email, password)
	if err != nil {
		return err
	}
	env.logger().Info().Str("subject", sess.Subject).Msg("logged in")

	data := env.sessionData()
	return env.emit(args, "login", data, func(w io.Writer) {
		fmt.Fprintf(w, "%s Logged in as %s\n", SuccessStyle.Render("[OK]"), sess.Subject)
		if data.ExpiresAt != nil {
			fmt.Fprintln(w, DimStyle.Render("Session expires "+humanize.Time(*data.ExpiresAt)))
		}
	})
}

// HandleLogout handles "assist logout". The local session is always
// cleared; a failed server call is reported as a warning.
func HandleLogout(ctx context.Context, env *Env, args Args) error {
	if !env.Session.IsAuthenticated() {
		return env.emit(args, "logout", map[string]bool{"was_logged_in": false}, func(w io.Writer) {
			fmt.Fprintln(w, "Not logged in.")
		})
	}

	subject := env.Session.Subject()
	err := env.Session.Logout(ctx)
	if err != nil {
		env.logger().Warn().Err(err).Msg("remote logout failed")
		if !args.JSON {
			fmt.Fprintf(env.Err, "%s could not reach the server; the session was forgotten locally (%s)\n",
				WarningStyle.Render("[WARN]"), UserMessage(err))
		}
	}
	return env.emit(args, "logout", map[string]interface{}{
		"was_logged_in": true,
		"subject":       subject,
		"remote":        err == nil,
	}, func(w io.Writer) {
		fmt.Fprintf(w, "%s Logged out %s\n", SuccessStyle.Render("[OK]"), subject)
	})
}

// HandleRegister handles "assist register --email E --name N".
func HandleRegister(ctx context.Context, env *Env, args Args) error {
	p := NewArgParser(args.Raw)
	email := strings.TrimSpace(p.Flag("email"))
	name := strings.TrimSpace(p.Flag("name"))
	var err error
	if email == "" {
		if email, err = promptLine(env, "Email: "); err != nil {
			return err
		}
	}
	if name == "" {
		if name, err = promptLine(env, "Full name: "); err != nil {
			return err
		}
	}

	password, err := env.ReadPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := env.ReadPassword("Confirm password: ")
	if err != nil {
		return err
	}

	user, err := env.Session.Register(ctx, email, name, password, confirm)
	if err != nil {
		return err
	}
	return env.emit(args, "register", user, func(w io.Writer) {
		fmt.Fprintf(w, "%s Account created for %s. Run 'assist login' to sign in.\n", SuccessStyle.Render("[OK]"), user.Email)
	})
}

// HandleWhoami handles "assist whoami".
func HandleWhoami(ctx context.Context, env *Env, args Args) error {
	user, err := env.Client.Me(ctx)
	if err != nil {
		return err
	}
	data := WhoamiData{User: user, Session: env.sessionData()}
	return env.emit(args, "whoami", data, func(w io.Writer) {
		fmt.Fprintln(w, RenderField("Name", user.FullName))
		fmt.Fprintln(w, RenderField("Email", user.Email))
		fmt.Fprintln(w, RenderField("User ID", fmt.Sprint(user.ID)))
		fmt.Fprintln(w, RenderField("Active", fmt.Sprint(user.IsActive)))
		if data.Session.ExpiresAt != nil {
			fmt.Fprintln(w, RenderField("Session expires", data.Session.ExpiresAt.Local().Format(time.RFC1123)+
				" ("+humanize.Time(*data.Session.ExpiresAt)+")"))
		}
	})
}
