package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithReturnsCopies(t *testing.T) {
	original := New("<div>Hi</div>", "div{}", "")

	edited := original.WithHTML("<p>Bye</p>").WithJS("x()")

	assert.Equal(t, "<div>Hi</div>", original.HTML)
	assert.Equal(t, "", original.JS)
	assert.Equal(t, "<p>Bye</p>", edited.HTML)
	assert.Equal(t, "div{}", edited.CSS)
	assert.Equal(t, "x()", edited.JS)
}

func TestHashStable(t *testing.T) {
	a := New("<b>x</b>", "b{}", "")
	b := New("<b>x</b>", "b{}", "")
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Len(t, a.Hash(), 64)
}

func TestHashFieldBoundaries(t *testing.T) {
	a := New("ab", "c", "")
	b := New("a", "bc", "")
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestDecodeDefaults(t *testing.T) {
	tests := []struct {
		name string
		data string
		want CodePayload
	}{
		{"all fields", `{"html":"<a></a>","css":"a{}","js":"go()"}`, New("<a></a>", "a{}", "go()")},
		{"null js", `{"html":"<a></a>","css":"a{}","js":null}`, New("<a></a>", "a{}", "")},
		{"missing js", `{"html":"<a></a>","css":"a{}"}`, New("<a></a>", "a{}", "")},
		{"numeric css", `{"html":"<a></a>","css":12}`, New("<a></a>", "", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeRejectsNonObject(t *testing.T) {
	_, err := Decode([]byte(`[1,2]`))
	assert.Error(t, err)

	_, err = Decode([]byte(`null`))
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	p := New("<div class=\"a\">\n</div>", "div{color:red}", "console.log('x')")

	data, err := p.Encode()
	require.NoError(t, err)

	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, p, back)
}

func TestUnwrap(t *testing.T) {
	t.Run("flat", func(t *testing.T) {
		p, err := Unwrap([]byte(`{"html":"<i></i>","css":"i{}"}`))
		require.NoError(t, err)
		assert.Equal(t, New("<i></i>", "i{}", ""), p)
	})

	t.Run("wrapped", func(t *testing.T) {
		p, err := Unwrap([]byte(`{"success":true,"data":{"html":"<i></i>","css":"i{}","js":"f()"}}`))
		require.NoError(t, err)
		assert.Equal(t, New("<i></i>", "i{}", "f()"), p)
	})

	t.Run("wrapped failure", func(t *testing.T) {
		_, err := Unwrap([]byte(`{"success":false,"error":"model offline"}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEnvelopeFailed)
		assert.Contains(t, err.Error(), "model offline")
	})

	t.Run("neither shape", func(t *testing.T) {
		_, err := Unwrap([]byte(`{"foo":"bar"}`))
		assert.Error(t, err)
	})
}
