// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kiosk App Authors

// Package client implements the client application runtime.
//
// It wires the local store, the remote API, connectivity monitoring and the
// sync engine into a single process lifecycle. A UI layer reaches the record
// services and the queue views through [App.Services].
package client
