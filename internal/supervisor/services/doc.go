// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

// Package services adapts filingsync components to suture.Service.
//
//   - HTTPServerService runs the trigger API.
//   - IntervalService calls a job on a fixed period.
//   - OnceService runs a job a single time at startup.
//
// Job errors never escape IntervalService: a failed sync is logged and the
// next tick tries again. Only a broken service returns from Serve early.
package services
