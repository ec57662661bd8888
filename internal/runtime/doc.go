// Package runtime executes compiled graph definitions.
//
// A GraphInstance is one live execution of a GraphDefinition for an entity. It is
// single-threaded and frame-stepped: the host advances the clock, resumes the
// standard, coroutine and end-of-frame phases in order, then finishes the frame.
// Host drives many instances that way and is the only goroutine-safe entry point
// through Post.
package runtime
