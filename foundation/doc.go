/*
Package foundation supplies the bounded-memory base every other wrtgo
package builds on: capacity-checked containers, a fuel/operation counter,
and the verification-level policy that scales both.

# Architecture

	┌──────────────────────────────────────────────────────────┐
	│                     MemoryProvider                        │
	│   capacity (bytes) · used (bytes) · VerificationLevel      │
	└───────────────────────────┬────────────────────────────────┘
	                            │ Reserve/Release
	           ┌────────────────┼────────────────┐
	           ▼                ▼                ▼
	    BoundedVec[T]     BoundedMap[K,V]   BoundedString
	   (checksum roll-up on every mutation; re-verified on read
	    once the owning provider's level is Standard or above)

Every mutation anywhere in this package that changes container contents
also calls Counter.Record, so the fuel ledger and the operation tallies
stay in lock-step with actual work done; there is no code path that
mutates a bounded container without charging fuel for it.

# Fuel accounting

Base costs are a closed table (see OpType/BaseCost); the charged fuel for
an operation at verification level L is:

	round_half_up(base_cost(op) * multiplier(L) / 100)

computed in pure integer arithmetic, no floats. Counter is safe for
concurrent use from multiple goroutines without external locking.

A bounded container reaching capacity fails with wrterr.LimitExceeded,
the same kind LinearMemory.Grow uses for its page bound in package
memresource, so every "fixed bound reached" condition maps to one error
kind.
*/
package foundation
