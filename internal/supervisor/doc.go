// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

// Package supervisor runs the serve process as a suture supervisor tree.
//
// The tree has two layers so that a crashing trigger cannot take the API
// down with it:
//
//	filingsync (root)
//	├── pipeline-layer   startup freshness check, interval trigger
//	└── api-layer        HTTP server
//
// Service wrappers live in the services subpackage. Supervisor events are
// logged through sutureslog into the zerolog logger.
package supervisor
