/*
Package async implements the single-threaded-per-executor cooperative
scheduler, the priority-inheritance protocol, bounded backpressured
channels, and per-instance async resource cleanup.

Tasks are fuel-metered state machines: each poll runs until the task
yields at an explicit suspension point (channel send on full, channel
receive on empty, timer wait, mutex contention, explicit yield) or its
fuel quantum runs out. The scheduler selects the highest effective
priority among Ready tasks, breaking ties by earliest deadline and then
by longest wait; preemption is honored only at poll boundaries, and only
for tasks that declared themselves preemptible.
*/
package async
