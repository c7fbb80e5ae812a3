// Package http implements the local HTTP API of the kiosk.
//
// The browser front-end reads and mutates records through it and drives the
// sync queue views: pending and failed requests, retries and manual runs.
// Every mutation goes through the record services, so the local API behaves
// the same online and offline.
package http
