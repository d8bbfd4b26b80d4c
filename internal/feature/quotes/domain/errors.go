// Package domain defines domain-level errors for the quotes feature.
package domain

import "errors"

// ErrStateNotFound indicates that no dashboard state exists for the requested symbol.
var ErrStateNotFound = errors.New("dashboard state not found")
