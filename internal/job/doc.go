// Package job manages repair jobs: the vehicle being worked on, the
// parts drawn from the workshop's inventory and the workers assigned.
//
// A job belongs to the workshop that owns the vehicle's customer. Parts
// added to a job are taken from that workshop's stock in the same
// transaction that records them, and returned when they are removed or
// the job is deleted. Workers must belong to the job's workshop.
package job
