// SPDX-License-Identifier: MPL-2.0

package shellengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/factoriotools/modloader/pkg/modpack"
	"github.com/factoriotools/modloader/pkg/pipeline"
	"github.com/factoriotools/modloader/pkg/propertytree"
)

const (
	// DefaultCacheSize bounds the number of sourced files kept in memory.
	DefaultCacheSize = 256
	devNull          = "/dev/null"
)

var (
	// ErrInvalidGlobalName is returned by SetGlobal for names that are not
	// shell identifiers.
	ErrInvalidGlobalName = errors.New("invalid global name")

	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

type (
	// ModFiles returns the files of an enabled mod.
	ModFiles func(name string) (modpack.Source, bool)

	// Option configures an Engine.
	Option func(*Engine)

	// Engine is a shell session implementing pipeline.Engine. It is not safe
	// for concurrent use.
	Engine struct {
		runner    *interp.Runner
		parser    *syntax.Parser
		mods      ModFiles
		logger    *log.Logger
		cacheSize int
		cache     *lru.Cache[string, []byte]
		id        pipeline.Identity
		raw       *propertytree.Dict
		// sourced lists the files sourced since the last ResetTransientState.
		sourced []string
		stdout  bytes.Buffer
		stderr  bytes.Buffer
	}
)

var _ pipeline.Engine = (*Engine)(nil)

// WithModFiles lets source reach "__modname__/" paths.
func WithModFiles(fn ModFiles) Option {
	return func(e *Engine) {
		e.mods = fn
	}
}

// WithLogger receives script output.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithCacheSize bounds the sourced-file cache.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		e.cacheSize = n
	}
}

// New creates a shell session with an empty environment.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		parser:    syntax.NewParser(),
		mods:      func(string) (modpack.Source, bool) { return nil, false },
		logger:    log.NewWithOptions(io.Discard, log.Options{}),
		cacheSize: DefaultCacheSize,
		raw:       propertytree.NewDict(),
	}
	for _, opt := range opts {
		opt(e)
	}

	cache, err := lru.New[string, []byte](e.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create source cache: %w", err)
	}
	e.cache = cache

	runner, err := interp.New(
		interp.Env(expand.ListEnviron()),
		interp.Params("-e"),
		interp.StdIO(nil, &e.stdout, &e.stderr),
		interp.ExecHandlers(e.execHandler),
		interp.OpenHandler(e.openHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create interpreter: %w", err)
	}
	e.runner = runner
	return e, nil
}

// SetGlobal exports name. Strings, numbers and booleans are exported as
// text; lists and dictionaries as JSON.
func (e *Engine) SetGlobal(name string, value propertytree.Value) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidGlobalName, name)
	}
	text, err := shellText(value)
	if err != nil {
		return fmt.Errorf("global %s: %w", name, err)
	}
	return e.export(name, text)
}

// Bind implements pipeline.Engine. The identity is exported as MOD_NAME,
// MOD_DIR and CURRENT_FILE.
func (e *Engine) Bind(id pipeline.Identity) error {
	e.id = id
	for _, kv := range [][2]string{
		{"MOD_NAME", id.ModName},
		{"MOD_DIR", id.ModDir},
		{"CURRENT_FILE", id.CurrentFile},
	} {
		if err := e.export(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

// Execute implements pipeline.Engine. A non-zero exit status is an error
// carrying the script's standard error.
func (e *Engine) Execute(ctx context.Context, chunkName string, source []byte) error {
	file, err := e.parser.Parse(bytes.NewReader(source), chunkName)
	if err != nil {
		return fmt.Errorf("failed to parse script: %w", err)
	}

	e.stdout.Reset()
	e.stderr.Reset()
	// Each script runs in a subshell so its functions and exit status stay
	// with it; exported globals are inherited.
	err = e.runner.Subshell().Run(ctx, file)
	e.flushOutput()
	if err != nil {
		if msg := strings.TrimSpace(e.stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", chunkName, err, msg)
		}
		return fmt.Errorf("%s: %w", chunkName, err)
	}
	return nil
}

// InvalidateModuleCache purges the sourced-file cache.
func (e *Engine) InvalidateModuleCache() error {
	e.cache.Purge()
	return nil
}

// ResetTransientState clears the list of files sourced by the last mod.
func (e *Engine) ResetTransientState() error {
	if len(e.sourced) > 0 {
		e.logger.Debug("sourced files", "mod", e.id.ModName, "files", strings.Join(e.sourced, ", "))
	}
	e.sourced = nil
	return nil
}

// Sourced returns the files sourced since the last ResetTransientState.
func (e *Engine) Sourced() []string {
	return slices.Clone(e.sourced)
}

// CachedFiles reports how many sourced files are cached.
func (e *Engine) CachedFiles() int {
	return e.cache.Len()
}

// Document returns the prototypes added with data-extend, keyed by type
// then name.
func (e *Engine) Document() (propertytree.Value, error) {
	return propertytree.Dictionary(e.raw), nil
}

// Close implements pipeline.Engine.
func (e *Engine) Close() error {
	e.cache.Purge()
	return nil
}

func (e *Engine) export(name, value string) error {
	quoted, err := syntax.Quote(value, syntax.LangBash)
	if err != nil {
		return fmt.Errorf("failed to quote %s: %w", name, err)
	}
	file, err := e.parser.Parse(strings.NewReader("export "+name+"="+quoted), "export")
	if err != nil {
		return fmt.Errorf("failed to parse export of %s: %w", name, err)
	}
	return e.runner.Run(context.Background(), file)
}

func (e *Engine) flushOutput() {
	for line := range strings.Lines(e.stdout.String()) {
		e.logger.Info(strings.TrimRight(line, "\n"), "mod", e.id.ModName)
	}
}

// openHandler serves reads from mod sources. Writes are refused except to
// /dev/null.
func (e *Engine) openHandler(ctx context.Context, name string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if name == devNull {
		return interp.DefaultOpenHandler()(ctx, name, flag, perm)
	}
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}

	rel := name
	if dir := interp.HandlerCtx(ctx).Dir; filepath.IsAbs(name) && dir != "" {
		if r, err := filepath.Rel(dir, name); err == nil && !strings.HasPrefix(r, "..") {
			rel = filepath.ToSlash(r)
		}
	}

	data, err := e.readSource(rel)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return readOnlyFile{bytes.NewReader(data)}, nil
}

// readSource resolves a sourced path through the cache.
func (e *Engine) readSource(name string) ([]byte, error) {
	files, rel, key := e.resolve(name)
	if data, ok := e.cache.Get(key); ok {
		return data, nil
	}
	if files == nil {
		return nil, &modpack.FileNotFoundError{Path: key}
	}
	data, err := files.ReadFile(rel)
	if err != nil {
		return nil, err
	}
	e.cache.Add(key, data)
	e.sourced = append(e.sourced, key)
	return data, nil
}

// resolve maps a path to the mod source holding it and the cache key
// "__mod__/path".
func (e *Engine) resolve(name string) (modpack.Source, string, string) {
	name = path.Clean(strings.TrimPrefix(name, "./"))
	if rest, ok := strings.CutPrefix(name, "__"); ok {
		if mod, rel, found := strings.Cut(rest, "__/"); found {
			files, ok := e.mods(mod)
			if !ok {
				files = nil
			}
			return files, rel, "__" + mod + "__/" + rel
		}
	}
	return e.id.Files, name, "__" + e.id.ModName + "__/" + name
}

type readOnlyFile struct {
	*bytes.Reader
}

func (readOnlyFile) Write([]byte) (int, error) { return 0, fs.ErrPermission }

func (readOnlyFile) Close() error { return nil }
