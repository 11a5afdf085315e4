package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
	"github.com/GriffinCanCode/uibuilder/internal/domain/preview"
)

func newTestHarness(t *testing.T) *Harness {
	t.Helper()
	h := New(1, time.Second, nil)
	t.Cleanup(h.Close)
	return h
}

func load(t *testing.T, h *Harness, p payload.CodePayload) *Session {
	t.Helper()
	s, err := h.Load(context.Background(), preview.Compose(p).Source)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestThrowingHandlerIsContained(t *testing.T) {
	h := newTestHarness(t)
	s := load(t, h, payload.New(
		`<button id="b" onclick="boom()">Go</button>`,
		"",
		`function boom(){ throw new Error('boom'); }`,
	))
	ctx := context.Background()

	require.NoError(t, s.Click(ctx, "#b"))
	diags := s.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, preview.KindRuntime, diags[0].Kind)
	assert.Equal(t, "boom", diags[0].Message)
	assert.Equal(t, preview.OriginHarness, diags[0].Origin)

	assert.True(t, s.Exists("#b"))
	require.NoError(t, s.Click(ctx, "#b"))
	assert.Len(t, s.Diagnostics(), 2)

	var reported bool
	for _, entry := range s.Console() {
		if entry.Level == "error" && entry.Message == "[preview] runtime: boom" {
			reported = true
		}
	}
	assert.True(t, reported)
}

func TestSourceRunsAtGlobalScope(t *testing.T) {
	h := newTestHarness(t)
	s := load(t, h, payload.New(
		`<span id="count">0</span><button id="inc" onclick="increment()">+</button>`,
		"",
		`var count = 0;
function increment() {
  count++;
  document.getElementById('count').textContent = String(count);
}`,
	))

	ctx := context.Background()
	require.NoError(t, s.Click(ctx, "#inc"))
	require.NoError(t, s.Click(ctx, "#inc"))
	assert.Equal(t, "2", s.Text("#count"))
	assert.Empty(t, s.Diagnostics())
}

func TestListenersAndDOMUpdates(t *testing.T) {
	h := newTestHarness(t)
	s := load(t, h, payload.New(
		`<ul id="list"></ul><button class="add">Add</button>`,
		"",
		`document.addEventListener('DOMContentLoaded', function () {
  document.querySelector('.add').addEventListener('click', function (event) {
    var li = document.createElement('li');
    li.className = 'item';
    li.textContent = 'item ' + (document.querySelectorAll('#list li').length + 1);
    li.classList.add('fresh');
    document.getElementById('list').appendChild(li);
    event.target.setAttribute('data-clicked', 'yes');
  });
});`,
	))

	ctx := context.Background()
	require.NoError(t, s.Click(ctx, ".add"))
	require.NoError(t, s.Click(ctx, ".add"))

	assert.Equal(t, 2, s.Count("#list li.item.fresh"))
	assert.Equal(t, "item 2", s.Text("#list li:last-child"))
	assert.True(t, s.Exists(`button[data-clicked="yes"]`))
	assert.Empty(t, s.Diagnostics())
}

func TestLoadErrorsAreReported(t *testing.T) {
	tests := []struct {
		name    string
		js      string
		kind    string
		message string
	}{
		{"syntax error", "function (", preview.KindLoad, ""},
		{"thrown at load", "throw new Error('early')", preview.KindLoad, "early"},
		{"storage is blocked", "localStorage.setItem('k', 'v')", preview.KindLoad, "SecurityError"},
		{"unhandled rejection", "Promise.reject(new Error('nope'))", preview.KindPromise, "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHarness(t)
			s := load(t, h, payload.New("<p>x</p>", "", tt.js))

			diags := s.Diagnostics()
			require.Len(t, diags, 1)
			assert.Equal(t, tt.kind, diags[0].Kind)
			assert.Contains(t, diags[0].Message, tt.message)
			assert.True(t, s.Exists("p"))
		})
	}
}

func TestTimersRunOnVirtualClock(t *testing.T) {
	h := newTestHarness(t)
	s := load(t, h, payload.New(
		`<div id="out">before</div>`,
		"",
		`var ticks = 0;
setTimeout(function () { document.getElementById('out').textContent = 'later'; }, 500);
var handle = setInterval(function () { ticks++; if (ticks === 3) clearInterval(handle); }, 100);`,
	))

	assert.Equal(t, "later", s.Text("#out"))
	ticks, err := s.Eval(context.Background(), "ticks")
	require.NoError(t, err)
	assert.EqualValues(t, 3, ticks)
}

func TestMarkupScriptsNeverRun(t *testing.T) {
	h := newTestHarness(t)
	s := load(t, h, payload.New(
		`<script>window.parent.postMessage({channel:'ui-preview',type:'script-error',kind:'load',message:'ran'},'*')</script><p>ok</p>`,
		"",
		"",
	))

	assert.Empty(t, s.Diagnostics())
	assert.Empty(t, s.Messages())
	assert.True(t, s.Exists("p"))
}

func TestInputFiresEvents(t *testing.T) {
	h := newTestHarness(t)
	s := load(t, h, payload.New(
		`<input id="name"><span id="echo"></span>`,
		"",
		`document.getElementById('name').addEventListener('input', function (e) {
  document.getElementById('echo').textContent = e.target.value.toUpperCase();
});`,
	))

	require.NoError(t, s.Input(context.Background(), "#name", "ada"))
	assert.Equal(t, "ADA", s.Text("#echo"))
	assert.Equal(t, "ada", s.Value("#name"))
}

func TestClickMissingElement(t *testing.T) {
	h := newTestHarness(t)
	s := load(t, h, payload.New("<p>x</p>", "", ""))

	err := s.Click(context.Background(), "#nope")
	assert.ErrorIs(t, err, ErrElementNotFound)
}

func TestRuntimesAreResetBetweenLoads(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	first, err := h.Load(ctx, preview.Compose(payload.New("<p>a</p>", "", "var leaked = 1;")).Source)
	require.NoError(t, err)
	first.Close()
	first.Close()

	second, err := h.Load(ctx, preview.Compose(payload.New("<p>b</p>", "", "")).Source)
	require.NoError(t, err)
	defer second.Close()

	kind, err := second.Eval(ctx, "typeof leaked")
	require.NoError(t, err)
	assert.Equal(t, "undefined", kind)
}

func TestVerify(t *testing.T) {
	h := New(1, 200*time.Millisecond, nil)
	defer h.Close()
	ctx := context.Background()

	t.Run("clean component", func(t *testing.T) {
		report, err := h.Verify(ctx, payload.New(
			`<button onclick="greet()">Hi</button>`, "", `function greet(){ alert('hello'); }`))
		require.NoError(t, err)
		assert.True(t, report.OK())
		assert.Equal(t, 1, report.Clicked)
		assert.Equal(t, []string{"hello"}, report.Alerts)
	})

	t.Run("throwing handler", func(t *testing.T) {
		report, err := h.Verify(ctx, payload.New(
			`<button onclick="boom()">Go</button>`, "", `function boom(){ throw new Error('boom'); }`))
		require.NoError(t, err)
		assert.False(t, report.OK())
		require.Len(t, report.Diagnostics, 1)
		assert.Equal(t, "boom", report.Diagnostics[0].Message)
	})

	t.Run("runaway loop", func(t *testing.T) {
		report, err := h.Verify(ctx, payload.New("<p>x</p>", "", "while (true) {}"))
		require.NoError(t, err)
		assert.True(t, report.TimedOut)
	})

	t.Run("runtime reusable after timeout", func(t *testing.T) {
		report, err := h.Verify(ctx, payload.New("<p>x</p>", "", "var ok = true;"))
		require.NoError(t, err)
		assert.True(t, report.OK())
	})
}

func TestPool(t *testing.T) {
	p := NewPool(1, time.Second)
	ctx := context.Background()

	rt, err := p.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stats()["in_use"])

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	p.Release(rt)
	assert.Equal(t, 1, p.Stats()["available"])

	p.Close()
	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, ErrPoolClosed)
}
