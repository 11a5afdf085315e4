package preview

// Channel tags every message the preview posts to its parent.
const Channel = "ui-preview"

// Diagnostic kinds reported by the guard.
const (
	KindLoad    = "load"
	KindRuntime = "runtime"
	KindPromise = "promise"
)

// SourceElementID is the id of the inert element holding the js.
const SourceElementID = "preview-source"

// guardScript evaluates the inert source at global scope so function
// declarations stay reachable from inline handlers. Errors thrown while
// loading, from handlers or from rejected promises are reported to the
// console and the parent window, never past the frame.
const guardScript = `(function () {
  function report(kind, error) {
    var message = error && error.message ? error.message : String(error);
    console.error('[preview] ' + kind + ': ' + message);
    try {
      window.parent.postMessage({ channel: 'ui-preview', type: 'script-error', kind: kind, message: message }, '*');
    } catch (ignored) {}
  }
  window.addEventListener('error', function (event) {
    report('runtime', event.error || event.message);
    event.preventDefault();
  });
  window.addEventListener('unhandledrejection', function (event) {
    report('promise', event.reason);
  });
  var node = document.getElementById('preview-source');
  if (!node) return;
  var src = node.textContent.replace(/<\\/g, '<');
  try {
    (0, eval)(src);
  } catch (error) {
    report('load', error);
  }
})();`

// GuardScript returns the loader embedded in every composed document.
func GuardScript() string {
	return guardScript
}
