// Package config loads, normalizes, and validates subforge configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SUBFORGE_LLM_API_KEY. The Config type centralizes every knob the scheduler
// and one item's pipeline need: artifact directories, retry budgets, service
// endpoints, and language targets.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
