package router

import (
	"strconv"

	"github.com/google/uuid"
)

// Params holds the path-parameter values extracted for one matched request.
// Values are stored as the matched substrings; typed accessors convert on
// demand and substitute a caller-supplied fallback instead of failing.
type Params map[string]string

// Get returns the raw matched substring for name, or the empty string.
func (p Params) Get(name string) string {
	return p[name]
}

// Has reports whether a value was captured for name.
func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// Int returns the value for name parsed as an integer, or fallback when the
// value is absent or does not parse.
func (p Params) Int(name string, fallback int) int {
	v, ok := p[name]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// GUID returns the value for name parsed as a UUID, or fallback when the
// value is absent or does not parse.
func (p Params) GUID(name string, fallback uuid.UUID) uuid.UUID {
	v, ok := p[name]
	if !ok {
		return fallback
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return fallback
	}
	return id
}
