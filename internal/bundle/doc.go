// Package bundle packs small objects into a single tar archive during
// transfers.
//
// Snowball-family devices ingest one archive faster than thousands of
// tiny objects, and the snowball-auto-extract metadata flag makes the
// service unpack the archive back into individual keys on import. Entry
// names are full destination keys, so extraction lands each member where
// a plain copy would have put it.
package bundle
