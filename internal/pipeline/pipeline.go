package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
)

// Core stage names, in execution order.
const (
	StagePreProcess    = "pre-process"
	StageDiffDetection = "diff-detection"
	StagePreparation   = "preparation"
	StageChunking      = "chunking"
	StageTranslation   = "translation"
	StageConsensus     = "consensus"
	StageValidation    = "validation"
	StagePostProcess   = "post-process"
	StageOutput        = "output"
)

// CoreStages returns the fixed core stage ordering.
func CoreStages() []string {
	return []string{
		StagePreProcess,
		StageDiffDetection,
		StagePreparation,
		StageChunking,
		StageTranslation,
		StageConsensus,
		StageValidation,
		StagePostProcess,
		StageOutput,
	}
}

// ErrUnknownStage is returned when a handler or custom stage references a
// stage name the engine does not know. This is a configuration error and
// surfaces before any run starts.
var ErrUnknownStage = errors.New("unknown stage")

// Next forwards control to the remaining handlers of the current stage.
// A handler that does not call it short-circuits the stage.
type Next func(ctx context.Context, rc *Context) error

// Handler is a unit of work attached to exactly one stage. Middleware
// handlers call next; terminal handlers simply ignore it.
type Handler interface {
	Name() string
	Handle(ctx context.Context, rc *Context, next Next) error
}

// HandlerFunc adapts a plain function into a named Handler.
type HandlerFunc struct {
	HandlerName string
	Fn          func(ctx context.Context, rc *Context, next Next) error
}

func (h HandlerFunc) Name() string { return h.HandlerName }

func (h HandlerFunc) Handle(ctx context.Context, rc *Context, next Next) error {
	return h.Fn(ctx, rc, next)
}

// Terminator runs after the full stage sequence, success or failure. runErr
// is the error that stopped the run, nil on success, context.Canceled (or a
// deadline error) on cancellation.
type Terminator func(ctx context.Context, rc *Context, runErr error) error

type handlerReg struct {
	handler  Handler
	priority int
	seq      int
}

type terminatorReg struct {
	fn       Terminator
	priority int
	seq      int
}

// Engine owns the authoritative stage list, the per-stage handler chains,
// named services, terminators and the event bus.
type Engine struct {
	stages      []string
	handlers    map[string][]handlerReg
	services    map[string]Handler
	terminators []terminatorReg
	bus         *Bus
	seq         int
}

// New creates an engine with the fixed core stage ordering and no handlers.
func New() *Engine {
	return &Engine{
		stages:   CoreStages(),
		handlers: make(map[string][]handlerReg),
		services: make(map[string]Handler),
		bus:      NewBus(),
	}
}

// Bus exposes the engine's event bus for observers.
func (e *Engine) Bus() *Bus {
	return e.bus
}

// Stages returns the current stage ordering, core plus custom.
func (e *Engine) Stages() []string {
	return append([]string(nil), e.stages...)
}

func (e *Engine) stageIndex(name string) int {
	for i, s := range e.stages {
		if s == name {
			return i
		}
	}
	return -1
}

// AddStageBefore inserts a custom stage immediately before anchor.
func (e *Engine) AddStageBefore(anchor, name string) error {
	return e.insertStage(anchor, name, 0)
}

// AddStageAfter inserts a custom stage immediately after anchor.
func (e *Engine) AddStageAfter(anchor, name string) error {
	return e.insertStage(anchor, name, 1)
}

func (e *Engine) insertStage(anchor, name string, offset int) error {
	if e.stageIndex(name) >= 0 {
		return fmt.Errorf("stage %q already registered", name)
	}
	idx := e.stageIndex(anchor)
	if idx < 0 {
		return fmt.Errorf("%w: anchor %q", ErrUnknownStage, anchor)
	}
	at := idx + offset
	e.stages = append(e.stages, "")
	copy(e.stages[at+1:], e.stages[at:])
	e.stages[at] = name
	return nil
}

// RegisterStage attaches a handler to the named stage. Handlers execute in
// descending priority; ties keep registration order.
func (e *Engine) RegisterStage(stage string, h Handler, priority int) error {
	if e.stageIndex(stage) < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}
	e.seq++
	regs := append(e.handlers[stage], handlerReg{handler: h, priority: priority, seq: e.seq})
	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].priority != regs[j].priority {
			return regs[i].priority > regs[j].priority
		}
		return regs[i].seq < regs[j].seq
	})
	e.handlers[stage] = regs
	return nil
}

// RegisterService makes a named capability discoverable by other handlers.
// At most one handler per name; the last registration wins.
func (e *Engine) RegisterService(name string, h Handler) {
	if prev, ok := e.services[name]; ok {
		fmt.Fprintf(os.Stderr, "service %q already registered by %s, overwriting with %s\n",
			name, prev.Name(), h.Name())
	}
	e.services[name] = h
}

// Service returns the handler registered under name.
func (e *Engine) Service(name string) (Handler, bool) {
	h, ok := e.services[name]
	return h, ok
}

// RegisterTerminator adds a cleanup/merge step invoked after the full stage
// sequence, in descending priority order, regardless of run outcome.
func (e *Engine) RegisterTerminator(fn Terminator, priority int) {
	e.seq++
	e.terminators = append(e.terminators, terminatorReg{fn: fn, priority: priority, seq: e.seq})
}

// chain right-folds a stage's handlers over a no-op terminal, so handler 1
// wraps handler 2 wraps … wraps the terminal. Built once per stage per run.
func (e *Engine) chain(stage string) Next {
	next := Next(func(ctx context.Context, rc *Context) error { return nil })
	regs := e.handlers[stage]
	for i := len(regs) - 1; i >= 0; i-- {
		h := regs[i].handler
		inner := next
		next = func(ctx context.Context, rc *Context) error {
			return h.Handle(ctx, rc, inner)
		}
	}
	return next
}

// Run executes all stages in order, then terminators unconditionally.
//
// A handler error publishes translation.failed, runs terminators and is
// returned; translations already accumulated stay on the context. A
// cancelled ctx is treated as an abort between stages, not a handler error:
// terminators still run and the context error is returned.
func (e *Engine) Run(ctx context.Context, rc *Context) error {
	e.bus.Publish(Event{Name: EventTranslationStarted, Context: rc})

	var runErr error
	for _, stage := range e.stages {
		if err := ctx.Err(); err != nil {
			rc.Abort()
			runErr = err
			break
		}

		rc.setStage(stage)
		e.bus.Publish(Event{Name: StageStartedEvent(stage), Context: rc})

		if err := e.chain(stage)(ctx, rc); err != nil {
			runErr = fmt.Errorf("stage %s: %w", stage, err)
			rc.AddError(runErr.Error())
			e.bus.Publish(Event{Name: EventTranslationFailed, Context: rc, Err: runErr})
			break
		}

		e.bus.Publish(Event{Name: StageCompletedEvent(stage), Context: rc})

		if rc.Aborted() {
			break
		}
	}

	e.runTerminators(ctx, rc, runErr)

	if runErr != nil {
		return runErr
	}

	rc.Complete()
	e.bus.Publish(Event{Name: EventTranslationCompleted, Context: rc})
	return nil
}

func (e *Engine) runTerminators(ctx context.Context, rc *Context, runErr error) {
	regs := append([]terminatorReg(nil), e.terminators...)
	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].priority != regs[j].priority {
			return regs[i].priority > regs[j].priority
		}
		return regs[i].seq < regs[j].seq
	})
	for _, reg := range regs {
		if err := reg.fn(ctx, rc, runErr); err != nil {
			rc.AddWarning(fmt.Sprintf("terminator failed: %v", err))
		}
	}
}
