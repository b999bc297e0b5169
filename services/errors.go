// services/errors.go
package services

import "errors"

var (
	// ErrNotFound is returned when an order, request or wallet does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrValidation covers bad amounts, cross-company carts and similar
	// caller mistakes. No state is changed when it is returned.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientBalance is returned when an approval would drive a
	// wallet negative. Checked at decision time, not request time.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")

	// ErrAlreadyProcessed is returned when a request has already left the
	// pending state. Requests are immutable after one admin decision.
	ErrAlreadyProcessed = errors.New("request already processed")

	// ErrAuthenticity is returned when a provider callback fails its
	// signature check. Security relevant: rejected at the boundary with no
	// ledger effect.
	ErrAuthenticity = errors.New("callback signature verification failed")
)

// Classification helpers used by HTTP handlers to pick a status code.

func IsNotFound(err error) bool            { return errors.Is(err, ErrNotFound) }
func IsValidation(err error) bool          { return errors.Is(err, ErrValidation) }
func IsInsufficientBalance(err error) bool { return errors.Is(err, ErrInsufficientBalance) }
func IsAlreadyProcessed(err error) bool    { return errors.Is(err, ErrAlreadyProcessed) }
func IsAuthenticity(err error) bool        { return errors.Is(err, ErrAuthenticity) }
