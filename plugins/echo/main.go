// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Command echo is a sample plugin program. Install it with echo.yaml to
// define the $echo, $whoami and $profile plugin calls.
package main

import (
	"context"
	"strings"

	"github.com/holomush/plugincall/pkg/pluginsdk"
)

func main() {
	pluginsdk.Serve(handlers())
}

func handlers() pluginsdk.Handlers {
	return pluginsdk.Handlers{
		"echo":    echo,
		"whoami":  whoami,
		"profile": profile,
	}
}

func echo(_ context.Context, call *pluginsdk.Call) (string, error) {
	return strings.Join(call.Args, " "), nil
}

func whoami(ctx context.Context, call *pluginsdk.Call) (string, error) {
	if call.Client == nil {
		return "", pluginsdk.Errorf("no gateway available")
	}
	name, err := call.Client.GetCallerName(ctx)
	if err != nil {
		return "", err
	}
	tz, err := call.Client.GetCallerTimezone(ctx)
	if err != nil {
		return "", err
	}
	return name + " (" + tz + ")", nil
}

// profile sends the named player's roles to the caller as a record and
// returns nothing.
func profile(ctx context.Context, call *pluginsdk.Call) (string, error) {
	if call.Client == nil {
		return "", pluginsdk.Errorf("no gateway available")
	}
	if len(call.Args) != 1 {
		return "", pluginsdk.Errorf("Usage: $profile <player>")
	}
	roles, err := call.Client.GetRoles(ctx, call.Args[0])
	if err != nil {
		if pluginsdk.IsNotFound(err) {
			return "", pluginsdk.Errorf("%s", pluginsdk.ErrorMessage(err))
		}
		return "", err
	}
	err = call.Client.SendMessageToCaller(ctx, pluginsdk.Message{
		Header: "Profile",
		Record: &pluginsdk.Record{
			Keys:   []string{"Player", "Roles"},
			Values: []string{call.Args[0], strings.Join(roles, ", ")},
		},
	})
	return "", err
}
