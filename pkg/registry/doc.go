/*
Package registry maps authoring model types to runtime node factories.

The table is built once at process start through explicit Register calls. A model
may register variants keyed by a specialization discriminator; Lookup falls back to
the unspecialized entry. Host members exposed with RegisterMember or RegisterFunc
back the reflection-fallback nodes the compiler emits for unmapped models.
*/
package registry
