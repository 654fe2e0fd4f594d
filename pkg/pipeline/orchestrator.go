// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/factoriotools/modloader/pkg/modpack"
	"github.com/factoriotools/modloader/pkg/propertytree"
)

const (
	// SettingsGlobal holds the decoded mod-settings.dat tree.
	SettingsGlobal = "settings"
	// ModsGlobal maps every enabled mod to its version string.
	ModsGlobal = "mods"
)

type (
	// Unit is one executed stage script.
	Unit struct {
		Stage Stage
		Mod   string
		File  string
		// Index is the mod's position in the load order.
		Index int
	}

	// Observer is called after each unit completes successfully.
	Observer func(Unit)

	// Progress reports where the orchestrator is.
	Progress struct {
		Stage Stage
		// ModIndex is the position in the load order of the mod being (or
		// last) processed.
		ModIndex int
		Done     bool
	}

	// Option configures an Orchestrator.
	Option func(*Orchestrator)

	// Orchestrator runs stage scripts in load order. It holds no state beyond
	// the current stage and mod index.
	Orchestrator struct {
		engine    Engine
		mods      ModSet
		order     modpack.LoadOrder
		scriptExt string
		logger    *log.Logger
		observers []Observer

		stage    Stage
		modIndex int
		done     bool
	}
)

// WithLogger sets the logger units are reported to.
func WithLogger(logger *log.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithObserver registers fn to be called after each unit.
func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) {
		o.observers = append(o.observers, fn)
	}
}

// WithScriptExt sets the extension used to name stage scripts (default ".lua").
func WithScriptExt(ext string) Option {
	return func(o *Orchestrator) {
		o.scriptExt = ext
	}
}

// New creates an orchestrator over engine. order is normally
// modpack.Resolution.Order.
func New(engine Engine, mods ModSet, order modpack.LoadOrder, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:    engine,
		mods:      mods,
		order:     order,
		scriptExt: modpack.DefaultScriptExt,
		logger:    log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Prepare binds the initial engine state: the settings tree (an empty
// dictionary when settings is None) and the versions of every enabled mod.
func (o *Orchestrator) Prepare(settings propertytree.Value) error {
	if settings.IsNone() {
		settings = propertytree.Dictionary(nil)
	}
	if err := o.engine.SetGlobal(SettingsGlobal, settings); err != nil {
		return fmt.Errorf("set %s global: %w", SettingsGlobal, err)
	}

	mods, err := propertytree.FromNative(o.mods.Versions())
	if err != nil {
		return fmt.Errorf("set %s global: %w", ModsGlobal, err)
	}
	if err := o.engine.SetGlobal(ModsGlobal, mods); err != nil {
		return fmt.Errorf("set %s global: %w", ModsGlobal, err)
	}
	return nil
}

// Run executes every stage. For each stage, every mod in load order that has
// a script for it is bound, executed, and followed by a module cache
// invalidation and a transient state reset. Mods without a script are skipped
// without touching the engine. The context is checked between units only.
func (o *Orchestrator) Run(ctx context.Context) error {
	for _, stage := range Stages() {
		o.stage = stage
		o.logger.Info("running stage", "stage", stage.Identifier())

		for i, name := range o.order {
			o.modIndex = i

			select {
			case <-ctx.Done():
				return fmt.Errorf("%s stage canceled before %s: %w", stage, name, ctx.Err())
			default:
			}

			m, ok := o.mods.Lookup(name)
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownMod, name)
			}
			source, ok := m.Script(stage.Identifier())
			if !ok {
				continue
			}

			unit := Unit{Stage: stage, Mod: name, File: stage.ScriptName(o.scriptExt), Index: i}
			if err := o.runUnit(ctx, m, unit, source); err != nil {
				return &EngineExecutionError{Stage: stage, Mod: name, File: unit.File, Cause: err}
			}
			for _, fn := range o.observers {
				fn(unit)
			}
		}
	}
	o.done = true
	return nil
}

func (o *Orchestrator) runUnit(ctx context.Context, m *modpack.Mod, unit Unit, source []byte) error {
	o.logger.Debug("executing", "stage", unit.Stage.Identifier(), "mod", unit.Mod, "file", unit.File)

	id := Identity{
		ModName:     m.Name,
		ModDir:      m.Location,
		CurrentFile: filepath.Join(m.Location, unit.File),
		Files:       m.Files,
	}
	if err := o.engine.Bind(id); err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	if err := o.engine.Execute(ctx, ChunkName(m.Name, unit.File), source); err != nil {
		return err
	}
	if err := o.engine.InvalidateModuleCache(); err != nil {
		return fmt.Errorf("invalidate module cache: %w", err)
	}
	if err := o.engine.ResetTransientState(); err != nil {
		return fmt.Errorf("reset transient state: %w", err)
	}
	return nil
}

// Progress returns the current stage and mod index.
func (o *Orchestrator) Progress() Progress {
	return Progress{Stage: o.stage, ModIndex: o.modIndex, Done: o.done}
}

// ChunkName names a mod file the way the game reports it, e.g.
// "__base__/data.lua".
func ChunkName(mod, file string) string {
	return "__" + mod + "__/" + file
}
