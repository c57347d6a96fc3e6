package services

import "errors"

var (
	// ErrEmptyInput means the submitted text contained nothing parseable.
	ErrEmptyInput = errors.New("no valid items found in input")

	// ErrNoResolvableItems means parsing succeeded but no name mapped to a
	// catalog type.
	ErrNoResolvableItems = errors.New("could not resolve any item names")

	// ErrNotFound covers both a genuinely missing appraisal and a private
	// one fetched with the wrong token, so the response never reveals
	// whether the id exists.
	ErrNotFound = errors.New("appraisal not found")

	// ErrForbidden means the requester is neither the owner nor privileged.
	ErrForbidden = errors.New("not allowed to delete this appraisal")

	// ErrUnknownMarket means the market key has no configuration.
	ErrUnknownMarket = errors.New("unknown market")
)
