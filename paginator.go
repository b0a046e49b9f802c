package fhirstore

import (
	"regexp"
	"strconv"

	"github.com/fhirstack/fhirstore/query"
	"github.com/fhirstack/fhirstore/storage"
)

const (
	// DefaultPageSize applies when _count is absent or malformed.
	DefaultPageSize = 10
	// MaxPageSize caps _count regardless of input.
	MaxPageSize = 1000

	firstPage = 1
)

// Only strictly positive integers without a leading zero are accepted;
// anything else falls back to the default silently.
var positiveInteger = regexp.MustCompile(`^[1-9][0-9]*$`)

func toPositiveInteger(value string, fallback int64) int64 {
	if !positiveInteger.MatchString(value) {
		return fallback
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// PageWindow converts the _count and page parameters into a bounded
// skip/limit window. _count defaults to 10 and is capped at 1000 to guard
// against abusive requests; page defaults to 1.
func PageWindow(params query.Params) storage.Window {
	size := toPositiveInteger(params.Get("_count"), DefaultPageSize)
	if size > MaxPageSize {
		size = MaxPageSize
	}

	var skip int64
	if page := toPositiveInteger(params.Get("page"), firstPage); page > firstPage {
		skip = (page - firstPage) * size
	}

	return storage.Window{Skip: skip, Limit: size}
}
