/*
Package value defines the fixed-size tagged union that flows through compiled graphs.

A Value is a 16-byte payload plus a kind tag. Vectors, quaternions, colors and enums
are stored inline; structs and arbitrary host objects are boxed behind a reference
counted Handle owned by whoever holds the value (a data slot, a literal node).

# Coercion

Numeric kinds widen in one direction only:

	Int -> Float -> Float2 -> Float3 -> Float4

Scalars broadcast into every vector component; shorter vectors are padded with zeros.
Reading a value under a kind it cannot widen to is a programming error and panics
with a *KindError.
*/
package value
