// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"regexp"
	"strings"

	"github.com/samber/oops"
)

// Unquoted words, or runs of text inside double or single quotes.
// Escaped quotes are not recognized.
var tokenPattern = regexp.MustCompile(`[^\s"'][^\s]*|"([^"]*)"|'([^']*)'`)

// Tokenize splits a command line into arguments. Text surrounded by single or
// double quotes is kept together as one argument, without the quotes.
func Tokenize(line string) []string {
	matches := tokenPattern.FindAllStringSubmatchIndex(line, -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		switch {
		case m[2] >= 0:
			tokens = append(tokens, line[m[2]:m[3]])
		case m[4] >= 0:
			tokens = append(tokens, line[m[4]:m[5]])
		default:
			tokens = append(tokens, line[m[0]:m[1]])
		}
	}
	return tokens
}

// Parse tokenizes a command line, rejecting input with no command.
func Parse(line string) ([]string, error) {
	if strings.TrimSpace(line) == "" {
		return nil, oops.Code(CodeEmptyCommand).Errorf("no command provided")
	}
	return Tokenize(line), nil
}
