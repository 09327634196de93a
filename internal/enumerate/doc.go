// Package enumerate captures complete store listings ahead of planning.
//
// A snapshot drains every listing page before any comparison happens, so
// a plan reflects a single point-in-time view of each store. Page fetches
// retry on transient failures; terminal errors abort the snapshot.
package enumerate
