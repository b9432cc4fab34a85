// Package app composes the bridge process.
//
// # Architecture Role
//
// The app package wires the layers below it into a running application and
// owns their lifecycle. It holds no request logic of its own.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring and lifecycle
//	├── health.go           # /health handler
//	├── documents/          # Document type, schema and MVC controller
//	├── dictionary/         # Read-only view of the namespace registry
//	└── system/             # Lifecycle manager
//
// # Request Path
//
//	HTTP ──► mux root router ──► webscript.Container ──► dispatch.Adapter
//	                                                          │
//	                                                          ▼
//	                                              mvc.Dispatcher (chi)
//	                                                          │
//	                                                          ▼
//	                                        controllers ──► repository.Template
//
// Controllers are registered as beans of the application context. Each
// enabled script gets one adapter subscribed to that context; refreshing the
// context on Start binds a fresh dispatcher to every adapter.
//
// # Dependency Direction
//
//	cmd/bridge/
//	      │
//	      ▼
//	internal/app/ (composition)
//	      │
//	      ├──► internal/dispatch ──► internal/mvc ──► internal/appctx
//	      ├──► internal/webscript
//	      ├──► internal/mapper ──► internal/namespace, internal/naming
//	      └──► internal/repository (memory, postgres)
package app
