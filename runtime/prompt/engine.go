// Package prompt gives every item of a matched definition its final value.
// Replies bound from the command line are validated; required items without
// one are prompted for, with a bounded number of retries.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/opal-lang/acd/core/acderr"
	"github.com/opal-lang/acd/core/invariant"
	"github.com/opal-lang/acd/core/model"
	"github.com/opal-lang/acd/core/vocab"
	"github.com/opal-lang/acd/runtime/expr"
	"github.com/opal-lang/acd/runtime/valuetype"
)

// Engine runs the value phase over one definition.
type Engine struct {
	config  *EngineConfig
	def     *model.Definition
	prompts int
}

// New returns an engine over def.
func New(def *model.Definition, opts ...EngineOpt) *Engine {
	invariant.NotNil(def, "definition")
	c := &EngineConfig{
		out:     io.Discard,
		retries: DefaultRetries,
		vocab:   vocab.Standard(),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = valuetype.NewRegistry(c.vocab)
	}
	if c.resolver == nil {
		c.resolver = expr.NewResolver(def, expr.WithSink(c.sink), expr.WithVocabulary(c.vocab))
	}
	return &Engine{config: c, def: def}
}

// Prompts returns the number of prompts shown so far.
func (e *Engine) Prompts() int { return e.prompts }

// Run resolves every variable, qualifier and parameter in declaration
// order. It stops at the first item that cannot be resolved; later items
// stay NotStarted.
func (e *Engine) Run(ctx context.Context) error {
	for _, it := range e.def.Items {
		if err := ctx.Err(); err != nil {
			return interrupted(e.def.Program, it, err)
		}
		switch {
		case it.Kind == model.KindVariable:
			v := e.config.resolver.Attr(it, "default")
			it.SetValue(v, v, nil, false)
		case it.IsQualifier():
			if err := e.resolve(ctx, it); err != nil {
				it.State = model.Failed
				return err
			}
			invariant.Invariant(it.State == model.Resolved, "item %q left in state %s", it.Name, it.State)
			e.config.logger.Debug("resolved",
				"item", it.Name,
				"value", it.ValueString,
				"user", it.UserDefined)
		}
	}
	return nil
}

func (e *Engine) resolve(ctx context.Context, it *model.Item) error {
	vt, ok := e.config.registry.Lookup(it.Type)
	if !ok {
		return acderr.Semantic(e.def.File, it.Line, "no value type registered for %q", it.Type)
	}
	it.State = model.AwaitingDefault
	attr := e.attrs(it)

	required := expr.IsTrue(attr("standard")) ||
		it.Kind == model.KindParameter ||
		(e.config.options && expr.IsTrue(attr("additional")))

	if it.Replied {
		res, err := vt.Set(it, it.Reply, attr)
		if err == nil {
			it.SetValue(res.Value, res.Canonical, res.Calc, true)
			return nil
		}
		if e.config.auto || !required || e.config.reader == nil {
			return acderr.CommandLine(e.def.Program, "bad value for -%s: %v", it.Name, err).WithHint(e.help(it, attr))
		}
		fmt.Fprintf(e.config.out, "Error: bad value for -%s: %v\n", it.Name, err)
	}

	def := e.defaultReply(it, attr)
	if !it.Replied && (!required || e.config.auto) {
		if def == "" && !required {
			it.SetValue("", "", nil, false)
			return nil
		}
		res, err := vt.Set(it, def, attr)
		if err != nil {
			return acderr.Validation(e.def.Program, "-%s: default %q is not valid: %v", it.Name, def, err)
		}
		it.SetValue(res.Value, res.Canonical, res.Calc, false)
		return nil
	}

	return e.ask(ctx, it, vt, attr, def)
}

// ask prompts until a reply is accepted or the retries run out. A reply of
// "?" shows the help text without using a retry.
func (e *Engine) ask(ctx context.Context, it *model.Item, vt valuetype.ValueType, attr valuetype.AttrFunc, def string) error {
	if e.config.reader == nil {
		return acderr.Validation(e.def.Program, "-%s: a value is required", it.Name)
	}
	it.State = model.Prompting

	if m, ok := vt.(valuetype.Menu); ok {
		for _, line := range m.Menu(it, attr) {
			fmt.Fprintln(e.config.out, line)
		}
	}
	text := e.promptText(it, vt, attr)

	var last error
	for attempt := 0; attempt < e.config.retries; {
		if err := ctx.Err(); err != nil {
			return interrupted(e.def.Program, it, err)
		}
		e.prompts++
		line, err := readLine(ctx, e.config.reader, fmt.Sprintf("%s [%s]: ", text, def))
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return interrupted(e.def.Program, it, err)
		}
		if errors.Is(err, io.EOF) {
			return acderr.Wrap(acderr.KindValidation, err, "-%s: no reply", it.Name).For(e.def.Program)
		}
		if err != nil {
			return acderr.Wrap(acderr.KindValidation, err, "-%s: cannot read reply", it.Name).For(e.def.Program)
		}

		reply := strings.TrimSpace(line)
		if reply == "?" {
			fmt.Fprintln(e.config.out, e.help(it, attr))
			continue
		}
		if reply == "" {
			reply = def
		}
		attempt++

		res, err := vt.Set(it, reply, attr)
		if err == nil {
			it.SetValue(res.Value, res.Canonical, res.Calc, true)
			return nil
		}
		last = err
		e.config.logger.Debug("reply rejected", "item", it.Name, "attempt", attempt, "error", err)
		fmt.Fprintf(e.config.out, "Error: %v\n", err)
	}
	return acderr.Validation(e.def.Program, "-%s: no valid reply after %d attempts: %v", it.Name, e.config.retries, last)
}

// readLine waits for one reply or for ctx to end. A read still blocked when
// ctx ends is abandoned.
func readLine(ctx context.Context, r LineReader, prompt string) (string, error) {
	type reply struct {
		line string
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		line, err := r.ReadLine(prompt)
		done <- reply{line, err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case rep := <-done:
		return rep.line, rep.err
	}
}

// interrupted reports a cancelled run as a validation failure of it.
func interrupted(program string, it *model.Item, cause error) error {
	return acderr.Wrap(acderr.KindValidation, cause, "-%s: interrupted", it.Name).For(program)
}

// defaultReply is the resolved default attribute, else the type's fallback.
func (e *Engine) defaultReply(it *model.Item, attr valuetype.AttrFunc) string {
	if def := attr("default"); def != "" {
		return def
	}
	if typ, ok := e.config.vocab.Type(it.Type); ok {
		return typ.Fallback
	}
	return ""
}

// attrs resolves attributes of it, falling back to the defaults of its
// type's attribute table.
func (e *Engine) attrs(it *model.Item) valuetype.AttrFunc {
	typ, _ := e.config.vocab.Type(it.Type)
	return func(name string) string {
		if _, ok := it.Attr(name); ok {
			return e.config.resolver.Attr(it, name)
		}
		if typ != nil {
			if a, ok := typ.Attribute(name); ok {
				return e.config.resolver.Resolve(a.Default)
			}
		}
		if a, ok := e.config.vocab.GenericAttribute(name); ok {
			return e.config.resolver.Resolve(a.Default)
		}
		return ""
	}
}

func (e *Engine) promptText(it *model.Item, vt valuetype.ValueType, attr valuetype.AttrFunc) string {
	for _, name := range []string{"prompt", "information"} {
		if s := attr(name); s != "" {
			return s
		}
	}
	return vt.PromptText(it, attr)
}

func (e *Engine) help(it *model.Item, attr valuetype.AttrFunc) string {
	for _, name := range []string{"help", "information", "prompt"} {
		if s := attr(name); s != "" {
			return s
		}
	}
	return fmt.Sprintf("-%s is of type %s", it.Name, it.Type)
}
