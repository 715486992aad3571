// Package datasets registers every known input shape with the core
// registry. Import it for side effects.
package datasets
