// Package pkg provides the core libraries of the AmpFlux diagram engine.
//
// # Overview
//
// AmpFlux keeps a circuit diagram as typed components and wires on a
// pannable, zoomable canvas. The pkg directory is organized by concern:
//
//   - [geom] - coordinate spaces and the zoom/pan transform
//   - [schematic] - the diagram graph model and its snapshot codec
//   - [catalog] - placeable component kinds
//   - [access] - roles and permission flags
//   - [editor] - the interaction state machine and persistence adapter
//   - [cache] - local snapshot mirror backends (memory, file, redis)
//   - [store] - the versioned save store (memory, mongo)
//   - [sim] - the simulation service client
//   - [render] - DOT and SVG export
//
// # Architecture
//
// The typical data flow through an editing session:
//
//	pointer events → editor.Session → schematic.Graph
//	                      ↓ (after each mutation)
//	              cache-backed mirror
//	                      ↓ (on explicit save)
//	              store.VersionStore (append-only versions)
//
// The editor session is single-goroutine; stores and caches are safe for
// concurrent use so the HTTP layer can share them across requests.
package pkg
