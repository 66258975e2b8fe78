// Package validation wraps go-playground/validator for configuration and
// request structs, reporting failures as typed AppErrors keyed by config
// field path.
package validation
