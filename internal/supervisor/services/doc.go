// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

// Package services provides suture.Service wrappers for components whose
// lifecycle is not already context-driven.
//
// The reaper, the NATS relay and the directory cache janitor implement
// Serve(ctx) error themselves and are added to the tree directly. The HTTP
// server blocks in ListenAndServe and stops through Shutdown, so it needs
// HTTPServerService to translate between the two.
package services
