/*
Package dsl provides a fluent Go builder for authoring graphs.

It is the programmatic counterpart of the YAML, JSON and HCL formats and is
mostly used by tests and by hosts that generate graphs at runtime.

Example usage:

	b := dsl.New("greeter")
	b.Variable("greeting", "string", "hello")

	b.Add("start", "OnStart").Then("Out", "log.Enter")
	b.Add("get", "GetVariable").Option("variable", "greeting")
	b.Add("log", "Log").Option("message", "greeted")
	b.Connect("get.Value", "log.Value")

	g, err := b.Build()
	// ... compile g with weft.Engine.Compile
*/
package dsl
