// Package wisp serves interpreter scripts over HTTP from a WebAssembly
// sandbox.
//
// # Overview
//
// wisp maps HTTP requests to script files under a web root, compiles each
// script on demand, runs it in an isolated WASI module, and returns the
// script's output as the response body. Scripts have no default
// capabilities; host functions such as the key-value store and outbound
// HTTP must be enabled explicitly.
//
// # Basic Usage
//
//	rt, _ := interp.New(ctx, interpreterBinary)
//	eng, _ := engine.New(rt, "/var/www/html", "/admin")
//	defer eng.Close(ctx)
//
//	resolver, _ := bridge.NewResolver("/var/www/html", "/admin")
//	handler := bridge.NewHandler(eng, resolver)
//
//	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
//	    if !handler.ServeScript(w, r) {
//	        http.NotFound(w, r)
//	    }
//	})
//
// # Host Functions
//
//	table := hostfunc.NewTable()
//	table.Register("server_time", hostfunc.ServerTime)
//
//	kv := hostfunc.NewKVStore()
//	table.Register("kv_get", kv.Get)
//	table.Register("kv_set", kv.Set)
//
//	eng, _ := engine.New(rt, webRoot, webHome, engine.WithTable(table))
//
// See the [engine], [bridge], [interp], and [hostfunc] packages for
// detailed API documentation.
package wisp
