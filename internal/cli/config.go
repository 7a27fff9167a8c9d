// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/assist-tui/internal/config"
)

const configUsage = "assist config [show|get KEY|set KEY VALUE|keys|path]"

// HandleConfig handles "assist config".
func HandleConfig(env *Env, args Args) error {
	p := NewArgParser(args.Raw)

	switch sub := strings.ToLower(p.Subcommand()); sub {
	case "", "show":
		return env.emit(args, "config show", env.Config, func(w io.Writer) {
			for _, key := range config.Keys() {
				v, _ := env.Config.Get(key)
				fmt.Fprintln(w, RenderField(key, fmt.Sprint(v)))
			}
		})
	case "get":
		key := p.Positional(1)
		if key == "" {
			return ErrMissingArgument("key", "assist config get api.base_url")
		}
		v, err := env.Config.Get(key)
		if err != nil {
			return &ValidationError{Field: "key", Value: key, Reason: err.Error(), Example: "assist config keys"}
		}
		return env.emit(args, "config get", ConfigValue{Key: key, Value: v}, func(w io.Writer) {
			fmt.Fprintln(w, v)
		})
	case "set":
		key, value := p.Positional(1), p.Positional(2)
		if key == "" || p.PositionalCount() < 3 {
			return ErrMissingArgument("key and value", "assist config set ui.theme dark")
		}
		return setConfig(env, args, key, value)
	case "keys":
		keys := config.Keys()
		return env.emit(args, "config keys", keys, func(w io.Writer) {
			fmt.Fprintln(w, strings.Join(keys, "\n"))
		})
	case "path":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		return env.emit(args, "config path", map[string]string{"path": path}, func(w io.Writer) {
			fmt.Fprintln(w, path)
		})
	default:
		return ErrUnknownSubcommand("config", sub, configUsage)
	}
}

// setConfig edits the file on disk. Environment overrides are not
// written back, so the file is loaded on its own.
func setConfig(env *Env, args Args, key, value string) error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	cfg := config.Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return err
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return statErr
	}

	if err := cfg.Set(key, value); err != nil {
		return &ValidationError{Field: "key", Value: key, Reason: err.Error(), Example: "assist config keys"}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}

	v, _ := cfg.Get(key)
	env.logger().Info().Str("key", key).Msg("config updated")
	return env.emit(args, "config set", ConfigValue{Key: key, Value: v}, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s = %v\n", SuccessStyle.Render("[OK]"), key, v)
	})
}
