// Package server runs the local HTTP API of the kiosk.
//
// A [Server] binds its address up front with Listen so a busy port is
// reported during startup, then serves from Start until Stop. It is managed
// as one of the client workers.
package server
