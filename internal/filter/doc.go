// Package filter implements ordered include/exclude rule evaluation for
// object keys. Patterns follow the AWS CLI wildcard semantics where `*`
// crosses path separators.
package filter
