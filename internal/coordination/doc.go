// Package coordination serializes bookings per room and caches day
// availability. Each concern has an in-process implementation and a Redis
// implementation for deployments running several replicas.
package coordination
