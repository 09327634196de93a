// Package pool provides reusable byte buffers for streaming copies,
// content sniffing, and multipart part staging.
//
// Buffers come in three fixed tiers so that hot transfer paths reuse
// allocations instead of growing the heap per object.
package pool
