/*
Package memresource implements the resource and memory model:
per-instance linear memories with page-granular growth and
alignment-checked typed access, and the ResourceTable that indexes
heterogeneous host-owned resources behind strong/weak handles.

Linear memory is little-endian with a fixed 65536-byte page; every typed
access is alignment- and bounds-checked, and bulk operations are bounded
by both source and destination. The ResourceTable hands out u32 handles
starting at 1; Borrow produces weak handles that never outlive the last
strong handle to the same resource.
*/
package memresource
