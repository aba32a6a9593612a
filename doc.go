// Package aisdk defines the vendor-neutral language-model call contract:
// conversation messages and parts, tool definitions, sampling options,
// generate results and the typed stream parts emitted while streaming.
//
// Provider adapters (see package adapter and its subpackages) translate this
// contract to and from a concrete wire format.
package aisdk
