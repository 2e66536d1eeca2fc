// Package preflight provides readiness checks for the services and paths
// tfsrelay depends on.
//
// The CLI "tfsrelay check" command runs RunAll and renders the results, and
// "serve" logs any failing check at startup without refusing to start: TFS may
// come up after the relay does.
package preflight
