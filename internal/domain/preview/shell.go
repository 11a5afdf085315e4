package preview

import "html/template"

// ShellTemplateName is the name the host shell is registered under.
const ShellTemplateName = "preview-shell"

// DeviceOption is one preset button in the shell.
type DeviceOption struct {
	Device Device
	Width  string
	Active bool
}

// ShellData feeds the host shell template.
type ShellData struct {
	Generation uint64
	Document   string
	Width      string
	Devices    []DeviceOption
	StreamPath string
}

// NewShellData prepares the shell for the given frame and device.
func NewShellData(frame Frame, device Device, bp Breakpoints) ShellData {
	options := make([]DeviceOption, 0, len(Devices))
	for _, d := range Devices {
		options = append(options, DeviceOption{Device: d, Width: bp.Width(d), Active: d == device})
	}
	return ShellData{
		Generation: frame.Generation,
		Document:   frame.Document.Source,
		Width:      bp.Width(device),
		Devices:    options,
		StreamPath: "/stream",
	}
}

// ShellTemplate parses the host shell. The iframe is sandboxed with
// allow-scripts only: no same-origin access, no top navigation, no forms.
func ShellTemplate() *template.Template {
	return template.Must(template.New(ShellTemplateName).Parse(shellHTML))
}

const shellHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Live Preview</title>
<style>
  body { margin: 0; font-family: system-ui, sans-serif; background: #f3f4f6; }
  .toolbar { display: flex; gap: 8px; padding: 12px 16px; background: #111827; }
  .toolbar button { border: 0; border-radius: 4px; padding: 6px 12px; cursor: pointer; }
  .toolbar button.active { background: #3b82f6; color: #fff; }
  .stage { display: flex; justify-content: center; padding: 16px; }
  .container { transition: width 0.2s; max-width: 100%; background: #fff; box-shadow: 0 2px 10px rgba(0, 0, 0, 0.1); }
  iframe { display: block; width: 100%; height: 70vh; border: 0; }
  .diagnostics { margin: 0 16px 16px; padding: 8px 12px 8px 32px; color: #b91c1c; font-family: monospace; }
  .diagnostics:empty { display: none; }
</style>
</head>
<body>
<div class="toolbar">
  {{- range .Devices}}
  <button type="button" data-device="{{.Device}}" data-width="{{.Width}}"{{if .Active}} class="active"{{end}}>{{.Device}}</button>
  {{- end}}
</div>
<div class="stage">
  <div class="container" id="preview-container" style="width: {{.Width}}">
    <iframe id="preview-frame" title="Component preview" sandbox="allow-scripts" referrerpolicy="no-referrer"
      data-generation="{{.Generation}}" data-stream="{{.StreamPath}}" srcdoc="{{.Document}}"></iframe>
  </div>
</div>
<ol class="diagnostics" id="diagnostics"></ol>
<script>
(function () {
  var frame = document.getElementById('preview-frame');
  var container = document.getElementById('preview-container');
  var log = document.getElementById('diagnostics');
  var generation = Number(frame.dataset.generation || 0);

  function post(path, body) {
    fetch(path, {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(body)
    }).catch(function () {});
  }

  frame.addEventListener('load', function () {
    if (generation > 0) post('/api/v1/preview/rendered', { generation: generation });
  });

  window.addEventListener('message', function (event) {
    if (event.source !== frame.contentWindow) return;
    var data = event.data || {};
    if (data.channel !== 'ui-preview' || data.type !== 'script-error') return;
    var item = document.createElement('li');
    item.textContent = data.kind + ': ' + data.message;
    log.appendChild(item);
    post('/api/v1/preview/diagnostics', { generation: generation, kind: data.kind, message: data.message });
  });

  document.querySelectorAll('[data-device]').forEach(function (button) {
    button.addEventListener('click', function () {
      document.querySelectorAll('[data-device]').forEach(function (b) { b.classList.remove('active'); });
      button.classList.add('active');
      container.style.width = button.dataset.width;
    });
  });

  var scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
  var socket = new WebSocket(scheme + location.host + frame.dataset.stream);
  socket.addEventListener('message', function (event) {
    var msg = JSON.parse(event.data);
    if (msg.type !== 'frame' || !msg.data || msg.data.generation <= generation) return;
    generation = msg.data.generation;
    log.textContent = '';
    frame.srcdoc = msg.data.document;
  });
})();
</script>
</body>
</html>
`
