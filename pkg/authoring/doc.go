/*
Package authoring defines the editable node-and-wire graph consumed by the compiler.

An authoring graph is a list of typed nodes, each exposing named ports, plus a list
of connections between ports. Ports that a connection mentions but the node does not
declare are inferred, so most graphs only spell out ports carrying defaults.

Graphs can be written in YAML, JSON or HCL:

	graph "counter" {
	  variable "total" {
	    type    = "int"
	    default = 0
	  }
	  node "start" { type = "OnStart" }
	  node "log" {
	    type = "Log"
	    port "Message" { default = "hello" }
	  }
	  connect {
	    from = "start.Exit"
	    to   = "log.Enter"
	  }
	}
*/
package authoring
