// SPDX-License-Identifier: MPL-2.0

package shellengine

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/interp"

	"github.com/factoriotools/modloader/pkg/propertytree"
)

const (
	exitUsage    = 2
	exitNotFound = 127
)

var numberPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?([eE][-+]?[0-9]+)?$`)

// builtin is a command implemented by the engine rather than an external
// program.
type builtin func(e *Engine, hc interp.HandlerContext, args []string) error

var builtins = map[string]builtin{
	"data-extend": (*Engine).dataExtend,
	"data-get":    (*Engine).dataGet,
}

// execHandler runs engine builtins. External programs are never started.
func (e *Engine) execHandler(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		if len(args) == 0 {
			return next(ctx, args)
		}
		hc := interp.HandlerCtx(ctx)
		fn, ok := builtins[args[0]]
		if !ok {
			fmt.Fprintf(hc.Stderr, "%s: command not found\n", args[0])
			return interp.NewExitStatus(exitNotFound)
		}
		return fn(e, hc, args[1:])
	}
}

// dataExtend implements "data-extend TYPE NAME [key=value...]". Extending an
// existing prototype replaces it.
func (e *Engine) dataExtend(hc interp.HandlerContext, args []string) error {
	if len(args) < 2 || args[0] == "" || args[1] == "" {
		fmt.Fprintln(hc.Stderr, "usage: data-extend TYPE NAME [key=value...]")
		return interp.NewExitStatus(exitUsage)
	}
	typ, name := args[0], args[1]

	proto := propertytree.NewDict()
	proto.Set("type", propertytree.String(typ))
	proto.Set("name", propertytree.String(name))
	for _, field := range args[2:] {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			fmt.Fprintf(hc.Stderr, "data-extend: malformed field %q\n", field)
			return interp.NewExitStatus(exitUsage)
		}
		if key == "type" || key == "name" {
			continue
		}
		proto.Set(key, parseField(value))
	}

	byType, ok := e.raw.Get(typ)
	if !ok {
		byType = propertytree.Dictionary(nil)
		e.raw.Set(typ, byType)
	}
	byType.Dict().Set(name, propertytree.Dictionary(proto))
	return nil
}

// dataGet implements "data-get TYPE NAME [FIELD]". Without FIELD the whole
// prototype is printed as JSON.
func (e *Engine) dataGet(hc interp.HandlerContext, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		fmt.Fprintln(hc.Stderr, "usage: data-get TYPE NAME [FIELD]")
		return interp.NewExitStatus(exitUsage)
	}
	byType, _ := e.raw.Get(args[0])
	proto, ok := byType.Get(args[1])
	if !ok {
		fmt.Fprintf(hc.Stderr, "data-get: no %s named %q\n", args[0], args[1])
		return interp.NewExitStatus(1)
	}
	if len(args) == 3 {
		if proto, ok = proto.Get(args[2]); !ok {
			return interp.NewExitStatus(1)
		}
	}
	text, err := shellText(proto)
	if err != nil {
		return err
	}
	fmt.Fprintln(hc.Stdout, text)
	return nil
}

// parseField reads a field value as a number or boolean when it looks like
// one.
func parseField(s string) propertytree.Value {
	switch s {
	case "true":
		return propertytree.Bool(true)
	case "false":
		return propertytree.Bool(false)
	}
	if numberPattern.MatchString(s) {
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return propertytree.Number(n)
		}
	}
	return propertytree.String(s)
}

// shellText renders a value the way scripts see it in a variable.
func shellText(v propertytree.Value) (string, error) {
	switch v.Kind() {
	case propertytree.KindNone:
		return "", nil
	case propertytree.KindBool:
		b, _ := v.AsBool()
		return strconv.FormatBool(b), nil
	case propertytree.KindNumber:
		n, _ := v.AsNumber()
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	case propertytree.KindString:
		s, _ := v.AsString()
		return s, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
