package shell

import (
	"strings"

	"github.com/anmitsu/go-shlex"
)

// BackgroundMarker is the trailing token that runs a command in the
// background.
const BackgroundMarker = "&"

// metaTokens are stripped from builtin arguments.
var metaTokens = map[string]bool{
	">":  true,
	"<":  true,
	"<<": true,
	">>": true,
	"|":  true,
	"&":  true,
}

// Tokenize splits a command line into arguments. A background marker glued
// to the last word ("sleep 5&") is split off into its own token.
func Tokenize(line string) ([]string, error) {
	line = strings.TrimSpace(line)

	background := false
	if strings.HasSuffix(line, BackgroundMarker) && !strings.HasSuffix(line, `\`+BackgroundMarker) {
		background = true
		line = strings.TrimSpace(strings.TrimSuffix(line, BackgroundMarker))
	}

	tokens, err := shlex.Split(line, true)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	if background {
		tokens = append(tokens, BackgroundMarker)
	}
	return tokens, nil
}

// stripMetaTokens removes redirection, pipe and background tokens keeping
// the order of the rest.
func stripMetaTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !metaTokens[tok] {
			out = append(out, tok)
		}
	}
	return out
}
