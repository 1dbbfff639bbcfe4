// Package uaclient implements bridge.Client on top of github.com/gopcua/opcua.
//
// The library's own reconnect handling is disabled; the session engine drives reconnects.
// Connection state changes of the library client are sampled by a watcher task and reported
// as bridge.ServerStatus events. Writes run on their own goroutine and report their outcome
// through EventHandler.WriteComplete.
package uaclient
