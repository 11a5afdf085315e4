package sandbox

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// handledEvents are the on<event> properties exposed on elements.
var handledEvents = []string{
	"click", "dblclick", "input", "change", "submit", "keydown", "keyup",
	"mouseover", "mouseout", "mouseenter", "mouseleave", "focus", "blur",
}

// dom binds an html.Node tree to JS objects. Each node gets exactly one
// proxy so identity comparisons in scripts behave.
type dom struct {
	vm  *goja.Runtime
	doc *goquery.Document

	document *goja.Object
	proxies  map[*html.Node]*goja.Object
	nodes    map[*goja.Object]*html.Node

	listeners map[*html.Node]map[string][]goja.Value
	props     map[*html.Node]map[string]goja.Value
	values    map[*html.Node]string
	checked   map[*html.Node]bool
	styles    map[*html.Node]*goja.Object

	readyState string

	// invoke runs a listener and reports anything it throws.
	invoke func(fn goja.Value, this goja.Value, args ...goja.Value) error
	// compile turns inline handler source into a function.
	compile func(code string) (goja.Value, error)
	// windowDispatch delivers a bubbled event to window listeners.
	windowDispatch func(ev *event) error
}

func newDOM(vm *goja.Runtime, doc *goquery.Document) *dom {
	d := &dom{
		vm:         vm,
		doc:        doc,
		proxies:    make(map[*html.Node]*goja.Object),
		nodes:      make(map[*goja.Object]*html.Node),
		listeners:  make(map[*html.Node]map[string][]goja.Value),
		props:      make(map[*html.Node]map[string]goja.Value),
		values:     make(map[*html.Node]string),
		checked:    make(map[*html.Node]bool),
		styles:     make(map[*html.Node]*goja.Object),
		readyState: "loading",
	}
	d.document = d.buildDocument()
	return d
}

func (d *dom) root() *html.Node {
	return d.doc.Nodes[0]
}

// wrap returns the proxy for n, creating it on first use.
func (d *dom) wrap(n *html.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	if n == d.root() {
		return d.document
	}
	if obj, ok := d.proxies[n]; ok {
		return obj
	}

	obj := d.vm.NewObject()
	d.proxies[n] = obj
	d.nodes[obj] = n

	switch n.Type {
	case html.ElementNode:
		d.bindElement(obj, n)
	case html.DocumentNode:
		// fragments
		_ = obj.Set("nodeType", 11)
		d.bindContainer(obj, n)
	default:
		_ = obj.Set("nodeType", 3)
		d.accessor(obj, "textContent", func() goja.Value {
			return d.vm.ToValue(n.Data)
		}, func(v goja.Value) {
			n.Data = v.String()
		})
		d.accessor(obj, "nodeValue", func() goja.Value {
			return d.vm.ToValue(n.Data)
		}, nil)
		d.bindNode(obj, n)
	}
	return obj
}

func (d *dom) wrapAll(nodes []*html.Node) goja.Value {
	items := make([]interface{}, 0, len(nodes))
	for _, n := range nodes {
		items = append(items, d.wrap(n))
	}
	return d.vm.NewArray(items...)
}

// nodeOf maps a proxy back to its node.
func (d *dom) nodeOf(v goja.Value) *html.Node {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	if obj == d.document {
		return d.root()
	}
	return d.nodes[obj]
}

func (d *dom) accessor(obj *goja.Object, name string, get func() goja.Value, set func(goja.Value)) {
	getter := d.vm.ToValue(func(goja.FunctionCall) goja.Value { return get() })
	var setter goja.Value
	if set != nil {
		setter = d.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			set(call.Argument(0))
			return goja.Undefined()
		})
	}
	_ = obj.DefineAccessorProperty(name, getter, setter, goja.FLAG_TRUE, goja.FLAG_TRUE)
}

func (d *dom) method(obj *goja.Object, name string, fn func(call goja.FunctionCall) goja.Value) {
	_ = obj.Set(name, fn)
}

func (d *dom) buildDocument() *goja.Object {
	doc := d.vm.NewObject()
	root := d.root()

	_ = doc.Set("nodeType", 9)
	d.accessor(doc, "readyState", func() goja.Value { return d.vm.ToValue(d.readyState) }, nil)
	d.accessor(doc, "body", func() goja.Value { return d.wrap(findTag(root, atom.Body)) }, nil)
	d.accessor(doc, "head", func() goja.Value { return d.wrap(findTag(root, atom.Head)) }, nil)
	d.accessor(doc, "documentElement", func() goja.Value { return d.wrap(findTag(root, atom.Html)) }, nil)
	d.accessor(doc, "title", func() goja.Value {
		return d.vm.ToValue(strings.TrimSpace(textOf(findTag(root, atom.Title))))
	}, nil)

	d.method(doc, "getElementById", func(call goja.FunctionCall) goja.Value {
		return d.wrap(findByID(root, call.Argument(0).String()))
	})
	d.method(doc, "createElement", func(call goja.FunctionCall) goja.Value {
		tag := strings.ToLower(call.Argument(0).String())
		return d.wrap(&html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))})
	})
	d.method(doc, "createTextNode", func(call goja.FunctionCall) goja.Value {
		return d.wrap(&html.Node{Type: html.TextNode, Data: call.Argument(0).String()})
	})
	d.method(doc, "createDocumentFragment", func(goja.FunctionCall) goja.Value {
		return d.wrap(&html.Node{Type: html.DocumentNode})
	})
	d.method(doc, "write", func(goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})

	d.bindQueries(doc, root)
	d.bindListeners(doc, root)
	return doc
}

// bindNode installs tree navigation shared by every node type.
func (d *dom) bindNode(obj *goja.Object, n *html.Node) {
	d.accessor(obj, "parentNode", func() goja.Value { return d.wrap(n.Parent) }, nil)
	d.accessor(obj, "parentElement", func() goja.Value {
		if n.Parent == nil || n.Parent.Type != html.ElementNode {
			return goja.Null()
		}
		return d.wrap(n.Parent)
	}, nil)
	d.accessor(obj, "nextSibling", func() goja.Value { return d.wrap(n.NextSibling) }, nil)
	d.accessor(obj, "previousSibling", func() goja.Value { return d.wrap(n.PrevSibling) }, nil)
	d.method(obj, "remove", func(goja.FunctionCall) goja.Value {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		return goja.Undefined()
	})
}

// bindContainer installs child manipulation for elements and fragments.
func (d *dom) bindContainer(obj *goja.Object, n *html.Node) {
	d.accessor(obj, "childNodes", func() goja.Value { return d.wrapAll(childNodes(n, false)) }, nil)
	d.accessor(obj, "children", func() goja.Value { return d.wrapAll(childNodes(n, true)) }, nil)
	d.accessor(obj, "firstChild", func() goja.Value { return d.wrap(n.FirstChild) }, nil)
	d.accessor(obj, "lastChild", func() goja.Value { return d.wrap(n.LastChild) }, nil)
	d.accessor(obj, "firstElementChild", func() goja.Value {
		kids := childNodes(n, true)
		if len(kids) == 0 {
			return goja.Null()
		}
		return d.wrap(kids[0])
	}, nil)
	d.accessor(obj, "childElementCount", func() goja.Value {
		return d.vm.ToValue(len(childNodes(n, true)))
	}, nil)

	d.method(obj, "appendChild", func(call goja.FunctionCall) goja.Value {
		child := d.mustNode(call.Argument(0))
		d.insert(n, child, nil)
		return call.Argument(0)
	})
	d.method(obj, "insertBefore", func(call goja.FunctionCall) goja.Value {
		child := d.mustNode(call.Argument(0))
		ref := d.nodeOf(call.Argument(1))
		if ref != nil && ref.Parent != n {
			ref = nil
		}
		d.insert(n, child, ref)
		return call.Argument(0)
	})
	d.method(obj, "removeChild", func(call goja.FunctionCall) goja.Value {
		child := d.mustNode(call.Argument(0))
		if child.Parent != n {
			panic(d.vm.NewTypeError("The node to be removed is not a child of this node."))
		}
		n.RemoveChild(child)
		return call.Argument(0)
	})
	appendNodes := func(call goja.FunctionCall, before *html.Node) {
		for _, arg := range call.Arguments {
			child := d.nodeOf(arg)
			if child == nil {
				child = &html.Node{Type: html.TextNode, Data: arg.String()}
			}
			d.insert(n, child, before)
		}
	}
	d.method(obj, "append", func(call goja.FunctionCall) goja.Value {
		appendNodes(call, nil)
		return goja.Undefined()
	})
	d.method(obj, "prepend", func(call goja.FunctionCall) goja.Value {
		appendNodes(call, n.FirstChild)
		return goja.Undefined()
	})
	d.method(obj, "replaceChildren", func(call goja.FunctionCall) goja.Value {
		clearChildren(n)
		appendNodes(call, nil)
		return goja.Undefined()
	})

	d.bindQueries(obj, n)
}

func (d *dom) bindElement(obj *goja.Object, n *html.Node) {
	_ = obj.Set("nodeType", 1)
	d.bindNode(obj, n)
	d.bindContainer(obj, n)
	d.bindListeners(obj, n)

	tag := strings.ToUpper(n.Data)
	_ = obj.Set("tagName", tag)
	_ = obj.Set("nodeName", tag)

	d.attrAccessor(obj, n, "id", "id")
	d.attrAccessor(obj, n, "className", "class")
	d.attrAccessor(obj, n, "href", "href")
	d.attrAccessor(obj, n, "src", "src")
	d.attrAccessor(obj, n, "type", "type")
	d.attrAccessor(obj, n, "name", "name")
	d.attrAccessor(obj, n, "placeholder", "placeholder")
	d.boolAttrAccessor(obj, n, "disabled")
	d.boolAttrAccessor(obj, n, "hidden")

	d.accessor(obj, "nextElementSibling", func() goja.Value {
		for s := n.NextSibling; s != nil; s = s.NextSibling {
			if s.Type == html.ElementNode {
				return d.wrap(s)
			}
		}
		return goja.Null()
	}, nil)
	d.accessor(obj, "previousElementSibling", func() goja.Value {
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.ElementNode {
				return d.wrap(s)
			}
		}
		return goja.Null()
	}, nil)

	text := func() goja.Value { return d.vm.ToValue(textOf(n)) }
	setText := func(v goja.Value) {
		clearChildren(n)
		n.AppendChild(&html.Node{Type: html.TextNode, Data: v.String()})
	}
	d.accessor(obj, "textContent", text, setText)
	d.accessor(obj, "innerText", text, setText)

	d.accessor(obj, "innerHTML", func() goja.Value {
		return d.vm.ToValue(renderChildren(n))
	}, func(v goja.Value) {
		nodes, err := html.ParseFragment(strings.NewReader(v.String()), n)
		if err != nil {
			panic(d.vm.NewGoError(err))
		}
		clearChildren(n)
		for _, c := range nodes {
			n.AppendChild(c)
		}
	})
	d.accessor(obj, "outerHTML", func() goja.Value {
		var buf bytes.Buffer
		_ = html.Render(&buf, n)
		return d.vm.ToValue(buf.String())
	}, nil)

	d.accessor(obj, "value", func() goja.Value {
		if v, ok := d.values[n]; ok {
			return d.vm.ToValue(v)
		}
		if n.DataAtom == atom.Textarea {
			return d.vm.ToValue(textOf(n))
		}
		v, _ := attr(n, "value")
		return d.vm.ToValue(v)
	}, func(v goja.Value) {
		d.values[n] = v.String()
	})
	d.accessor(obj, "checked", func() goja.Value {
		if v, ok := d.checked[n]; ok {
			return d.vm.ToValue(v)
		}
		_, has := attr(n, "checked")
		return d.vm.ToValue(has)
	}, func(v goja.Value) {
		d.checked[n] = v.ToBoolean()
	})

	d.accessor(obj, "style", func() goja.Value { return d.style(n) }, nil)
	d.accessor(obj, "dataset", func() goja.Value {
		ds := d.vm.NewObject()
		for _, a := range n.Attr {
			if strings.HasPrefix(a.Key, "data-") {
				_ = ds.Set(camel(strings.TrimPrefix(a.Key, "data-")), a.Val)
			}
		}
		return ds
	}, nil)
	d.accessor(obj, "classList", func() goja.Value { return d.classList(n) }, nil)

	d.method(obj, "getAttribute", func(call goja.FunctionCall) goja.Value {
		if v, ok := attr(n, strings.ToLower(call.Argument(0).String())); ok {
			return d.vm.ToValue(v)
		}
		return goja.Null()
	})
	d.method(obj, "setAttribute", func(call goja.FunctionCall) goja.Value {
		setAttr(n, strings.ToLower(call.Argument(0).String()), call.Argument(1).String())
		return goja.Undefined()
	})
	d.method(obj, "removeAttribute", func(call goja.FunctionCall) goja.Value {
		removeAttr(n, strings.ToLower(call.Argument(0).String()))
		return goja.Undefined()
	})
	d.method(obj, "hasAttribute", func(call goja.FunctionCall) goja.Value {
		_, ok := attr(n, strings.ToLower(call.Argument(0).String()))
		return d.vm.ToValue(ok)
	})
	d.method(obj, "matches", func(call goja.FunctionCall) goja.Value {
		return d.vm.ToValue(selectionOf(n).Is(call.Argument(0).String()))
	})
	d.method(obj, "closest", func(call goja.FunctionCall) goja.Value {
		sel := call.Argument(0).String()
		for p := n; p != nil && p.Type == html.ElementNode; p = p.Parent {
			if selectionOf(p).Is(sel) {
				return d.wrap(p)
			}
		}
		return goja.Null()
	})
	d.method(obj, "click", func(goja.FunctionCall) goja.Value {
		if err := d.dispatch(n, "click", nil); err != nil {
			panic(err)
		}
		return goja.Undefined()
	})
	d.method(obj, "getBoundingClientRect", func(goja.FunctionCall) goja.Value {
		rect := d.vm.NewObject()
		for _, k := range []string{"x", "y", "top", "left", "right", "bottom", "width", "height"} {
			_ = rect.Set(k, 0)
		}
		return rect
	})
	for _, name := range []string{"focus", "blur", "scrollIntoView", "select"} {
		d.method(obj, name, func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	}

	for _, evType := range handledEvents {
		evType := evType
		d.accessor(obj, "on"+evType, func() goja.Value {
			if fn, ok := d.props[n][evType]; ok {
				return fn
			}
			return goja.Null()
		}, func(v goja.Value) {
			if d.props[n] == nil {
				d.props[n] = make(map[string]goja.Value)
			}
			if _, ok := goja.AssertFunction(v); !ok {
				delete(d.props[n], evType)
				return
			}
			d.props[n][evType] = v
		})
	}
}

func (d *dom) bindQueries(obj *goja.Object, n *html.Node) {
	d.method(obj, "querySelector", func(call goja.FunctionCall) goja.Value {
		found := selectionOf(n).Find(call.Argument(0).String())
		if found.Length() == 0 {
			return goja.Null()
		}
		return d.wrap(found.Nodes[0])
	})
	d.method(obj, "querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return d.wrapAll(selectionOf(n).Find(call.Argument(0).String()).Nodes)
	})
	d.method(obj, "getElementsByClassName", func(call goja.FunctionCall) goja.Value {
		classes := strings.Fields(call.Argument(0).String())
		if len(classes) == 0 {
			return d.vm.NewArray()
		}
		return d.wrapAll(selectionOf(n).Find("." + strings.Join(classes, ".")).Nodes)
	})
	d.method(obj, "getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		return d.wrapAll(selectionOf(n).Find(call.Argument(0).String()).Nodes)
	})
}

func (d *dom) bindListeners(obj *goja.Object, n *html.Node) {
	d.method(obj, "addEventListener", func(call goja.FunctionCall) goja.Value {
		evType := call.Argument(0).String()
		fn := call.Argument(1)
		if _, ok := goja.AssertFunction(fn); !ok {
			return goja.Undefined()
		}
		if d.listeners[n] == nil {
			d.listeners[n] = make(map[string][]goja.Value)
		}
		d.listeners[n][evType] = append(d.listeners[n][evType], fn)
		return goja.Undefined()
	})
	d.method(obj, "removeEventListener", func(call goja.FunctionCall) goja.Value {
		evType := call.Argument(0).String()
		if fns, ok := d.listeners[n][evType]; ok {
			d.listeners[n][evType] = without(fns, call.Argument(1))
		}
		return goja.Undefined()
	})
	d.method(obj, "dispatchEvent", func(call goja.FunctionCall) goja.Value {
		evType := call.Argument(0).ToObject(d.vm).Get("type")
		if evType == nil {
			return d.vm.ToValue(true)
		}
		if err := d.dispatch(n, evType.String(), nil); err != nil {
			panic(err)
		}
		return d.vm.ToValue(true)
	})
}

// style returns the element's style object. Writes are kept on the object
// and not reflected into the style attribute.
func (d *dom) style(n *html.Node) *goja.Object {
	if s, ok := d.styles[n]; ok {
		return s
	}
	s := d.vm.NewObject()
	if raw, ok := attr(n, "style"); ok {
		for _, decl := range strings.Split(raw, ";") {
			k, v, found := strings.Cut(decl, ":")
			if !found {
				continue
			}
			_ = s.Set(camel(strings.TrimSpace(k)), strings.TrimSpace(v))
		}
	}
	d.method(s, "setProperty", func(call goja.FunctionCall) goja.Value {
		_ = s.Set(camel(call.Argument(0).String()), call.Argument(1).String())
		return goja.Undefined()
	})
	d.method(s, "getPropertyValue", func(call goja.FunctionCall) goja.Value {
		v := s.Get(camel(call.Argument(0).String()))
		if v == nil || goja.IsUndefined(v) {
			return d.vm.ToValue("")
		}
		return v
	})
	d.styles[n] = s
	return s
}

func (d *dom) classList(n *html.Node) *goja.Object {
	list := d.vm.NewObject()
	classes := func() []string {
		v, _ := attr(n, "class")
		return strings.Fields(v)
	}
	write := func(cs []string) { setAttr(n, "class", strings.Join(cs, " ")) }
	has := func(name string) bool {
		for _, c := range classes() {
			if c == name {
				return true
			}
		}
		return false
	}
	add := func(name string) {
		if !has(name) {
			write(append(classes(), name))
		}
	}
	remove := func(name string) {
		kept := classes()[:0]
		for _, c := range classes() {
			if c != name {
				kept = append(kept, c)
			}
		}
		write(kept)
	}

	d.method(list, "add", func(call goja.FunctionCall) goja.Value {
		for _, a := range call.Arguments {
			add(a.String())
		}
		return goja.Undefined()
	})
	d.method(list, "remove", func(call goja.FunctionCall) goja.Value {
		for _, a := range call.Arguments {
			remove(a.String())
		}
		return goja.Undefined()
	})
	d.method(list, "toggle", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		on := !has(name)
		if force := call.Argument(1); !goja.IsUndefined(force) {
			on = force.ToBoolean()
		}
		if on {
			add(name)
		} else {
			remove(name)
		}
		return d.vm.ToValue(on)
	})
	d.method(list, "contains", func(call goja.FunctionCall) goja.Value {
		return d.vm.ToValue(has(call.Argument(0).String()))
	})
	d.accessor(list, "length", func() goja.Value { return d.vm.ToValue(len(classes())) }, nil)
	return list
}

func (d *dom) attrAccessor(obj *goja.Object, n *html.Node, prop, name string) {
	d.accessor(obj, prop, func() goja.Value {
		v, _ := attr(n, name)
		return d.vm.ToValue(v)
	}, func(v goja.Value) {
		setAttr(n, name, v.String())
	})
}

func (d *dom) boolAttrAccessor(obj *goja.Object, n *html.Node, name string) {
	d.accessor(obj, name, func() goja.Value {
		_, ok := attr(n, name)
		return d.vm.ToValue(ok)
	}, func(v goja.Value) {
		if v.ToBoolean() {
			setAttr(n, name, "")
		} else {
			removeAttr(n, name)
		}
	})
}

func (d *dom) mustNode(v goja.Value) *html.Node {
	n := d.nodeOf(v)
	if n == nil {
		panic(d.vm.NewTypeError("parameter is not of type 'Node'"))
	}
	return n
}

// insert moves child under parent before ref. Fragments are emptied into
// parent.
func (d *dom) insert(parent, child, ref *html.Node) {
	if child.Type == html.DocumentNode {
		for c := child.FirstChild; c != nil; {
			next := c.NextSibling
			child.RemoveChild(c)
			parent.InsertBefore(c, ref)
			c = next
		}
		return
	}
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	parent.InsertBefore(child, ref)
}

// event is a dispatched DOM event and its propagation flags.
type event struct {
	obj       *goja.Object
	stopped   bool
	immediate bool
	prevented bool
}

func (d *dom) newEvent(evType string, target goja.Value, extra map[string]interface{}) *event {
	ev := &event{obj: d.vm.NewObject()}
	o := ev.obj
	_ = o.Set("type", evType)
	_ = o.Set("target", target)
	_ = o.Set("currentTarget", target)
	_ = o.Set("bubbles", true)
	_ = o.Set("cancelable", true)
	_ = o.Set("defaultPrevented", false)
	_ = o.Set("preventDefault", func(goja.FunctionCall) goja.Value {
		ev.prevented = true
		_ = o.Set("defaultPrevented", true)
		return goja.Undefined()
	})
	_ = o.Set("stopPropagation", func(goja.FunctionCall) goja.Value {
		ev.stopped = true
		return goja.Undefined()
	})
	_ = o.Set("stopImmediatePropagation", func(goja.FunctionCall) goja.Value {
		ev.stopped = true
		ev.immediate = true
		return goja.Undefined()
	})
	for k, v := range extra {
		_ = o.Set(k, v)
	}
	return ev
}

// dispatch fires evType at target and bubbles it to the document and
// window. Only interrupts are returned; handler exceptions are reported
// through invoke.
func (d *dom) dispatch(target *html.Node, evType string, extra map[string]interface{}) error {
	ev := d.newEvent(evType, d.wrap(target), extra)

	for n := target; n != nil; n = n.Parent {
		this := d.wrap(n)
		_ = ev.obj.Set("currentTarget", this)

		if n.Type == html.ElementNode {
			if code, ok := attr(n, "on"+evType); ok && strings.TrimSpace(code) != "" {
				fn, err := d.compile(code)
				if err != nil {
					return err
				}
				if fn != nil {
					if err := d.invoke(fn, this, ev.obj); err != nil {
						return err
					}
				}
			}
			if fn, ok := d.props[n][evType]; ok {
				if err := d.invoke(fn, this, ev.obj); err != nil {
					return err
				}
			}
		}

		handlers := append([]goja.Value(nil), d.listeners[n][evType]...)
		for _, fn := range handlers {
			if err := d.invoke(fn, this, ev.obj); err != nil {
				return err
			}
			if ev.immediate {
				break
			}
		}
		if ev.stopped {
			return nil
		}
	}
	if d.windowDispatch != nil {
		return d.windowDispatch(ev)
	}
	return nil
}

func selectionOf(n *html.Node) *goquery.Selection {
	return goquery.NewDocumentFromNode(n).Selection
}

func findTag(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findTag(c, a); found != nil {
			return found
		}
	}
	return nil
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		if v, ok := attr(n, "id"); ok && v == id {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func childNodes(n *html.Node, elementsOnly bool) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if elementsOnly && c.Type != html.ElementNode {
			continue
		}
		out = append(out, c)
	}
	return out
}

func clearChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
}

func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.CommentNode {
			continue
		}
		b.WriteString(textOf(c))
	}
	return b.String()
}

func renderChildren(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

func without(fns []goja.Value, fn goja.Value) []goja.Value {
	out := fns[:0]
	for _, f := range fns {
		if f.SameAs(fn) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// camel converts background-color and data-user-id style names.
func camel(s string) string {
	parts := strings.Split(s, "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
