// Package bridge turns inbound HTTP requests into script executions.
//
// For each request it resolves the URI to a script file under the app root,
// compiles it through the engine, injects the raw request head and host
// functions, runs the program, and writes the output (or a handled failure)
// back to the response. The handled boolean returned to the transport is
// false only when the script file itself is missing, letting the transport
// apply its own not-found handling.
//
// The pipeline is strictly sequential per request, with no retries and no
// state shared between requests.
package bridge
