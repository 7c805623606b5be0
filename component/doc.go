/*
Package component implements the Component Model linking and instance
layer: component registration, a dependency graph with topological
instantiation order, import resolution, the ComponentInstance execution
state machine, and the StartFunctionValidator.

Byte decoding of the actual component binary format is out of scope (see
the Decoder collaborator); this package only consumes the parsed
export/import/value-type shape a real decoder would produce. Import
resolution is flat and first-registered-wins; instantiation order is the
reverse post-order of a three-color depth-first traversal over the
dependency graph.
*/
package component
