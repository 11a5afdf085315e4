package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
	"github.com/GriffinCanCode/uibuilder/internal/domain/preview"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/monitoring"
)

// ErrElementNotFound is returned when a selector matches nothing.
var ErrElementNotFound = errors.New("element not found")

const (
	maxTimerRuns  = 200
	timerHorizon  = 10 * time.Second
	maxClicks     = 25
	clickableSpec = "button, a[href], [onclick], input[type=button], input[type=submit]"
)

const prelude = `(function (w) {
  w.queueMicrotask = function (fn) { Promise.resolve().then(fn); };
  w.fetch = function () { return Promise.reject(new TypeError('Failed to fetch')); };
  w.requestAnimationFrame = function (fn) { return w.setTimeout(function () { fn(Date.now()); }, 16); };
  w.cancelAnimationFrame = function (id) { w.clearTimeout(id); };
  w.matchMedia = function (query) {
    var noop = function () {};
    return { matches: false, media: String(query), addListener: noop, removeListener: noop,
      addEventListener: noop, removeEventListener: noop };
  };
})(this);`

// LogEntry is one console call made by a document.
type LogEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Harness loads composed documents into pooled goja runtimes.
type Harness struct {
	pool    *Pool
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// New creates a harness with size runtimes and a per-entry timeout.
func New(size int, timeout time.Duration, logger *zap.Logger) *Harness {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harness{
		pool:   NewPool(size, timeout),
		logger: logger.Named("sandbox"),
	}
}

// WithMetrics records every captured diagnostic.
func (h *Harness) WithMetrics(m *monitoring.Metrics) *Harness {
	h.metrics = m
	return h
}

// Stats reports runtime pool occupancy.
func (h *Harness) Stats() map[string]interface{} {
	return h.pool.Stats()
}

// Close releases the pool.
func (h *Harness) Close() {
	h.pool.Close()
}

// Load parses document, runs its classic scripts in order, fires
// DOMContentLoaded and load, and drains pending timers. The returned
// session must be closed.
func (h *Harness) Load(ctx context.Context, document string) (*Session, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	rt, err := h.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	s := &Session{
		harness:   h,
		rt:        rt,
		doc:       doc,
		windowFns: make(map[string][]goja.Value),
		timers:    make(map[int64]*timer),
		compiled:  make(map[string]goja.Value),
	}
	s.install()

	if err := rt.run(ctx, s.start); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Report summarizes one verification run.
type Report struct {
	Diagnostics []preview.ScriptError `json:"diagnostics"`
	Console     []LogEntry            `json:"console"`
	Alerts      []string              `json:"alerts,omitempty"`
	Clicked     int                   `json:"clicked"`
	TimedOut    bool                  `json:"timed_out"`
	Duration    time.Duration         `json:"duration"`
}

// OK reports whether the run produced no diagnostics.
func (r Report) OK() bool {
	return len(r.Diagnostics) == 0 && !r.TimedOut
}

// Verify composes p, loads it and clicks each clickable element once.
func (h *Harness) Verify(ctx context.Context, p payload.CodePayload) (Report, error) {
	return h.VerifyDocument(ctx, preview.Compose(p).Source)
}

// VerifyDocument is Verify for an already composed document.
func (h *Harness) VerifyDocument(ctx context.Context, document string) (Report, error) {
	start := time.Now()

	s, err := h.Load(ctx, document)
	if errors.Is(err, ErrTimeout) {
		return Report{TimedOut: true, Duration: time.Since(start)}, nil
	}
	if err != nil {
		return Report{}, err
	}
	defer s.Close()

	report := Report{}
	for _, n := range s.doc.Find(clickableSpec).Nodes {
		if report.Clicked >= maxClicks {
			break
		}
		if !attached(n) {
			continue
		}
		err := s.clickNode(ctx, n)
		if errors.Is(err, ErrTimeout) {
			report.TimedOut = true
			break
		}
		if err != nil {
			return Report{}, err
		}
		report.Clicked++
	}

	report.Diagnostics = s.Diagnostics()
	report.Console = s.Console()
	report.Alerts = s.Alerts()
	report.Duration = time.Since(start)

	h.logger.Debug("Verified document",
		zap.Int("diagnostics", len(report.Diagnostics)),
		zap.Int("clicked", report.Clicked),
		zap.Bool("timed_out", report.TimedOut),
		zap.Duration("duration", report.Duration))
	return report, nil
}

type timer struct {
	id    int64
	fn    goja.Value
	args  []goja.Value
	due   time.Duration
	every time.Duration
	seq   int64
}

// Session is one loaded document. It is safe for use by one goroutine
// at a time; methods serialize on an internal lock.
type Session struct {
	harness *Harness
	rt      *Runtime
	doc     *goquery.Document
	dom     *dom

	mu        sync.Mutex
	closed    bool
	window    *goja.Object
	windowFns map[string][]goja.Value
	compiled  map[string]goja.Value
	rejected  []*goja.Promise

	timers  map[int64]*timer
	nextID  int64
	nextSeq int64
	clock   time.Duration

	diagnostics []preview.ScriptError
	console     []LogEntry
	alerts      []string
	messages    []interface{}
}

func (s *Session) vm() *goja.Runtime { return s.rt.vm }

// install wires window, document and the host hooks into a fresh VM.
func (s *Session) install() {
	vm := s.vm()
	s.dom = newDOM(vm, s.doc)
	s.dom.invoke = s.invoke
	s.dom.compile = s.compileHandler
	s.dom.windowDispatch = s.dispatchWindow

	w := vm.GlobalObject()
	s.window = w
	_ = vm.Set("window", w)
	_ = vm.Set("self", w)
	_ = vm.Set("document", s.dom.document)
	_ = vm.Set("innerWidth", 1024)
	_ = vm.Set("innerHeight", 768)

	console := vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		level := level
		_ = console.Set(level, func(call goja.FunctionCall) goja.Value {
			parts := make([]string, 0, len(call.Arguments))
			for _, a := range call.Arguments {
				parts = append(parts, a.String())
			}
			s.log(level, strings.Join(parts, " "))
			return goja.Undefined()
		})
	}
	_ = vm.Set("console", console)

	parent := vm.NewObject()
	_ = parent.Set("postMessage", func(call goja.FunctionCall) goja.Value {
		s.receive(call.Argument(0).Export())
		return goja.Undefined()
	})
	_ = vm.Set("parent", parent)
	_ = vm.Set("top", parent)

	location := vm.NewObject()
	_ = location.Set("href", "about:srcdoc")
	_ = location.Set("pathname", "srcdoc")
	_ = location.Set("hash", "")
	_ = location.Set("search", "")
	_ = vm.Set("location", location)

	navigator := vm.NewObject()
	_ = navigator.Set("userAgent", "uibuilder-sandbox")
	_ = navigator.Set("language", "en-US")
	_ = vm.Set("navigator", navigator)

	for _, name := range []string{"localStorage", "sessionStorage"} {
		name := name
		getter := vm.ToValue(func(goja.FunctionCall) goja.Value {
			panic(vm.NewGoError(fmt.Errorf("SecurityError: Failed to read the '%s' property from 'Window': "+
				"The document is sandboxed and lacks the 'allow-same-origin' flag.", name)))
		})
		_ = w.DefineAccessorProperty(name, getter, nil, goja.FLAG_TRUE, goja.FLAG_TRUE)
	}

	_ = vm.Set("alert", func(call goja.FunctionCall) goja.Value {
		s.alerts = append(s.alerts, call.Argument(0).String())
		return goja.Undefined()
	})
	_ = vm.Set("confirm", func(goja.FunctionCall) goja.Value { return vm.ToValue(false) })
	_ = vm.Set("prompt", func(goja.FunctionCall) goja.Value { return goja.Null() })
	_ = vm.Set("getComputedStyle", func(call goja.FunctionCall) goja.Value {
		n := s.dom.nodeOf(call.Argument(0))
		if n == nil || n.Type != html.ElementNode {
			panic(vm.NewTypeError("parameter 1 is not of type 'Element'"))
		}
		return s.dom.style(n)
	})

	_ = vm.Set("addEventListener", func(call goja.FunctionCall) goja.Value {
		fn := call.Argument(1)
		if _, ok := goja.AssertFunction(fn); ok {
			evType := call.Argument(0).String()
			s.windowFns[evType] = append(s.windowFns[evType], fn)
		}
		return goja.Undefined()
	})
	_ = vm.Set("removeEventListener", func(call goja.FunctionCall) goja.Value {
		evType := call.Argument(0).String()
		if fns, ok := s.windowFns[evType]; ok {
			s.windowFns[evType] = without(fns, call.Argument(1))
		}
		return goja.Undefined()
	})

	_ = vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(s.schedule(call, false))
	})
	_ = vm.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(s.schedule(call, true))
	})
	cancel := func(call goja.FunctionCall) goja.Value {
		delete(s.timers, call.Argument(0).ToInteger())
		return goja.Undefined()
	}
	_ = vm.Set("clearTimeout", cancel)
	_ = vm.Set("clearInterval", cancel)

	vm.SetPromiseRejectionTracker(func(p *goja.Promise, op goja.PromiseRejectionOperation) {
		switch op {
		case goja.PromiseRejectionReject:
			s.rejected = append(s.rejected, p)
		case goja.PromiseRejectionHandle:
			for i, r := range s.rejected {
				if r == p {
					s.rejected = append(s.rejected[:i], s.rejected[i+1:]...)
					break
				}
			}
		}
	})

	if _, err := vm.RunString(prelude); err != nil {
		s.harness.logger.Error("Sandbox prelude failed", zap.Error(err))
	}
}

// start runs the document's scripts and lifecycle events.
func (s *Session) start() error {
	for i, n := range s.doc.Find("script").Nodes {
		if !executable(n) {
			continue
		}
		_, err := s.vm().RunScript(fmt.Sprintf("inline-script-%d", i), textOf(n))
		if err != nil {
			if err := s.uncaught(err); err != nil {
				return err
			}
		}
		if err := s.flushRejections(); err != nil {
			return err
		}
	}

	s.dom.readyState = "interactive"
	if err := s.dom.dispatch(s.dom.root(), "DOMContentLoaded", nil); err != nil {
		return err
	}
	s.dom.readyState = "complete"
	if err := s.dispatchWindow(s.dom.newEvent("load", s.window, nil)); err != nil {
		return err
	}
	return s.drainTimers()
}

func executable(n *html.Node) bool {
	if _, ok := attr(n, "src"); ok {
		return false
	}
	typ, _ := attr(n, "type")
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "text/javascript", "application/javascript":
		return true
	}
	return false
}

// invoke calls fn and routes anything it throws to window error
// listeners. Only interrupts come back as errors.
func (s *Session) invoke(fn goja.Value, this goja.Value, args ...goja.Value) error {
	callable, ok := goja.AssertFunction(fn)
	if !ok {
		return nil
	}
	if _, err := callable(this, args...); err != nil {
		return s.uncaught(err)
	}
	return s.flushRejections()
}

// compileHandler turns inline attribute source into a function with this
// bound by the caller. Syntax errors are reported and yield nil.
func (s *Session) compileHandler(code string) (goja.Value, error) {
	if fn, ok := s.compiled[code]; ok {
		return fn, nil
	}
	fn, err := s.vm().RunString("(function (event) {\n" + code + "\n})")
	if err != nil {
		return nil, s.uncaught(err)
	}
	s.compiled[code] = fn
	return fn, nil
}

// uncaught delivers err as a window error event, the way a browser treats
// an exception escaping a script or handler.
func (s *Session) uncaught(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return err
	}

	var value goja.Value
	var exception *goja.Exception
	if errors.As(err, &exception) {
		value = exception.Value()
	} else {
		value = s.vm().NewGoError(err)
	}
	message := messageOf(value)

	ev := s.dom.newEvent("error", s.window, map[string]interface{}{
		"error":   value,
		"message": message,
	})
	handlers := append([]goja.Value(nil), s.windowFns["error"]...)
	if len(handlers) == 0 {
		s.record(preview.KindRuntime, message)
		s.log("error", "Uncaught "+message)
		return nil
	}
	for _, fn := range handlers {
		callable, ok := goja.AssertFunction(fn)
		if !ok {
			continue
		}
		if _, herr := callable(s.window, ev.obj); herr != nil {
			if errors.As(herr, &interrupted) {
				return herr
			}
			s.record(preview.KindRuntime, errorMessage(herr))
		}
	}
	if !ev.prevented {
		s.log("error", "Uncaught "+message)
	}
	return nil
}

// flushRejections fires unhandledrejection for promises rejected without
// a handler since the last flush.
func (s *Session) flushRejections() error {
	for len(s.rejected) > 0 {
		pending := s.rejected
		s.rejected = nil

		for _, p := range pending {
			reason := p.Result()
			handlers := append([]goja.Value(nil), s.windowFns["unhandledrejection"]...)
			if len(handlers) == 0 {
				s.record(preview.KindPromise, messageOf(reason))
				continue
			}
			ev := s.dom.newEvent("unhandledrejection", s.window, map[string]interface{}{"reason": reason})
			for _, fn := range handlers {
				callable, ok := goja.AssertFunction(fn)
				if !ok {
					continue
				}
				if _, err := callable(s.window, ev.obj); err != nil {
					if err := s.uncaught(err); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// dispatchWindow delivers ev to window listeners.
func (s *Session) dispatchWindow(ev *event) error {
	typ := ev.obj.Get("type").String()
	_ = ev.obj.Set("currentTarget", s.window)
	for _, fn := range append([]goja.Value(nil), s.windowFns[typ]...) {
		if err := s.invoke(fn, s.window, ev.obj); err != nil {
			return err
		}
		if ev.immediate {
			break
		}
	}
	return nil
}

func (s *Session) schedule(call goja.FunctionCall, repeat bool) int64 {
	fn := call.Argument(0)
	if _, ok := goja.AssertFunction(fn); !ok {
		return 0
	}
	delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
	if delay < 0 {
		delay = 0
	}

	s.nextID++
	s.nextSeq++
	t := &timer{id: s.nextID, fn: fn, due: s.clock + delay, seq: s.nextSeq}
	if len(call.Arguments) > 2 {
		t.args = append([]goja.Value(nil), call.Arguments[2:]...)
	}
	if repeat {
		t.every = delay
		if t.every < time.Millisecond {
			t.every = time.Millisecond
		}
	}
	s.timers[t.id] = t
	return t.id
}

// drainTimers runs due timers on a virtual clock, bounded in count and in
// virtual time so intervals cannot spin forever.
func (s *Session) drainTimers() error {
	horizon := s.clock + timerHorizon
	for runs := 0; runs < maxTimerRuns; runs++ {
		var next *timer
		for _, t := range s.timers {
			if next == nil || t.due < next.due || (t.due == next.due && t.seq < next.seq) {
				next = t
			}
		}
		if next == nil || next.due > horizon {
			return nil
		}

		s.clock = next.due
		if next.every > 0 {
			s.nextSeq++
			next.due += next.every
			next.seq = s.nextSeq
		} else {
			delete(s.timers, next.id)
		}
		if err := s.invoke(next.fn, s.window, next.args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) receive(msg interface{}) {
	s.messages = append(s.messages, msg)

	m, ok := msg.(map[string]interface{})
	if !ok || m["channel"] != preview.Channel || m["type"] != "script-error" {
		return
	}
	kind, _ := m["kind"].(string)
	message, _ := m["message"].(string)
	s.record(kind, message)
}

func (s *Session) record(kind, message string) {
	if !preview.ValidKind(kind) {
		kind = preview.KindRuntime
	}
	s.diagnostics = append(s.diagnostics, preview.ScriptError{
		Kind:    kind,
		Message: message,
		Origin:  preview.OriginHarness,
		At:      time.Now(),
	})
	if s.harness.metrics != nil {
		s.harness.metrics.RecordScriptError(kind, preview.OriginHarness)
	}
}

func (s *Session) log(level, message string) {
	s.console = append(s.console, LogEntry{Level: level, Message: message, Time: time.Now()})
}

// Click dispatches a click on the first element matching selector, then
// runs any timers it scheduled.
func (s *Session) Click(ctx context.Context, selector string) error {
	s.mu.Lock()
	sel := s.doc.Find(selector)
	s.mu.Unlock()
	if sel.Length() == 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return s.clickNode(ctx, sel.Nodes[0])
}

func (s *Session) clickNode(ctx context.Context, n *html.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rt.run(ctx, func() error {
		if err := s.dom.dispatch(n, "click", nil); err != nil {
			return err
		}
		return s.drainTimers()
	})
}

// Input sets the value of the first element matching selector and fires
// input and change.
func (s *Session) Input(ctx context.Context, selector, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel := s.doc.Find(selector)
	if sel.Length() == 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	n := sel.Nodes[0]
	s.dom.values[n] = value

	return s.rt.run(ctx, func() error {
		for _, evType := range []string{"input", "change"} {
			if err := s.dom.dispatch(n, evType, nil); err != nil {
				return err
			}
		}
		return s.drainTimers()
	})
}

// Eval runs src at global scope and exports its result.
func (s *Session) Eval(ctx context.Context, src string) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out interface{}
	err := s.rt.run(ctx, func() error {
		v, err := s.vm().RunString(src)
		if err != nil {
			return err
		}
		out = v.Export()
		return nil
	})
	return out, err
}

// Exists reports whether selector matches an element.
func (s *Session) Exists(selector string) bool {
	return s.Count(selector) > 0
}

// Count returns the number of elements matching selector.
func (s *Session) Count(selector string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Find(selector).Length()
}

// Text returns the text of the first element matching selector.
func (s *Session) Text(selector string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Find(selector).First().Text()
}

// Value returns the current value of a form control.
func (s *Session) Value(selector string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel := s.doc.Find(selector)
	if sel.Length() == 0 {
		return ""
	}
	n := sel.Nodes[0]
	if v, ok := s.dom.values[n]; ok {
		return v
	}
	v, _ := attr(n, "value")
	return v
}

// Diagnostics returns the script errors captured so far.
func (s *Session) Diagnostics() []preview.ScriptError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]preview.ScriptError(nil), s.diagnostics...)
}

// Console returns every console call made so far.
func (s *Session) Console() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LogEntry(nil), s.console...)
}

// Alerts returns the messages passed to alert.
func (s *Session) Alerts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.alerts...)
}

// Messages returns everything posted to the parent window.
func (s *Session) Messages() []interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]interface{}(nil), s.messages...)
}

// Close returns the runtime to the pool. It is safe to call twice.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.harness.pool.Release(s.rt)
}

func attached(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.DocumentNode {
			return true
		}
	}
	return false
}

func messageOf(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return fmt.Sprint(v)
	}
	if obj, ok := v.(*goja.Object); ok {
		if m := obj.Get("message"); m != nil && !goja.IsUndefined(m) {
			return m.String()
		}
	}
	return v.String()
}

func errorMessage(err error) string {
	var exception *goja.Exception
	if errors.As(err, &exception) {
		return messageOf(exception.Value())
	}
	return err.Error()
}
