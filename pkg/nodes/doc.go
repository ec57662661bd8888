// Package nodes is the standard runtime node library.
//
// Each node is a struct whose port-typed fields are addressed by the compiler and
// whose `option` fields are filled from the authoring node's options. Register
// wires every node into a registry together with the literal and reflection
// fallback factories the compiler needs.
package nodes
