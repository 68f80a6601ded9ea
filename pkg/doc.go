// Package pkg provides the core libraries for cadastral parcel generation.
//
// # Overview
//
// Cadastral derives land-parcel boundaries from a road centerline network and
// building locations. The pkg directory is organized around the pipeline:
//
//  1. [layer] - Vector layer model, GeoJSON import/export, named-layer registry
//  2. [crs] - Coordinate reference system resolution and reprojection
//  3. [kernel] - Geometry-kernel operations (buffer, tessellation, overlay)
//  4. [pipeline] - Stage functions and the two-mode orchestrator
//  5. [progress] - Stage progress events and cancellation polling
//  6. [writer] - Durable GeoJSON output
//  7. [errors] - Structured error codes shared by the CLI and HTTP server
//
// # Architecture
//
// The typical data flow through a generation run:
//
//	GeoJSON inputs (roads, building points)
//	         ↓
//	    [layer] package (decode + registry lookup)
//	         ↓
//	    [crs] package (reproject to the metric working CRS)
//	         ↓
//	    [pipeline] package (buffer → tessellate → subtract → clamp → filter,
//	                        each stage backed by [kernel])
//	         ↓
//	    GeoJSON output with per-parcel area properties
//
// The CLI (internal/cli) and the HTTP job API (internal/server) are thin
// shells over [pipeline.Run]; both observe progress and cancellation through
// the [progress.Observer] interface.
package pkg
