// Package testutil contains helper builders and utilities used across tests
// to reduce boilerplate when constructing chunks, completions and scripted
// completion sources. These helpers are intentionally minimal and not
// intended for production usage.
package testutil
