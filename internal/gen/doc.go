// Package gen generates static xrecord descriptor tables for the structs of
// a Go package.
//
// Inspect turns a *types.Struct into a Struct description, Render turns a
// File into gofmt'ed source built on the xrecord builder API (NewTable, Col,
// NullCol), and Load runs both over packages found by go/packages.
package gen
