// Package uci implements the text side of the engine protocol: the option
// declarations read during the handshake, the static evaluation dump, search
// info lines, and the closed set of commands the driver writes.
//
// Everything here is pure parsing and formatting. Process and goroutine
// handling live in package engine.
package uci
