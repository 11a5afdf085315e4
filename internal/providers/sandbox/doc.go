// Package sandbox executes composed preview documents headlessly.
//
// A document is parsed with goquery and bound into a goja runtime through
// window and document proxies. Scripts run in document order, inline on*
// handlers and listeners fire on simulated clicks, and everything the
// document reports (console output, parent.postMessage diagnostics,
// uncaught errors) is captured on the Session.
//
// Runtimes come from a fixed-size pool and are reset on release, so no
// state leaks between documents. Every entry into the VM is bounded by a
// timeout enforced with vm.Interrupt.
package sandbox
