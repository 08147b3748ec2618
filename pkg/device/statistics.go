// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"fmt"
	"time"

	"github.com/Thermoquad/glucid/pkg/lucid"
)

// Statistics counts requests and how their attempts ended
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	Requests   uint64
	Attempts   uint64
	Replies    uint64
	Timeouts   uint64
	Malformed  uint64
	Rejected   uint64
	Flagged    uint64
	Mismatches uint64
	Failures   uint64

	// Rates (calculated)
	RequestRate float64 // requests/sec
	ErrorRate   float64 // failed attempts/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// recordAttempt counts one attempt and how it ended
func (s *Statistics) recordAttempt(reply *lucid.ResponseFrame, err error) {
	s.Attempts++
	s.LastUpdateTime = time.Now()

	if reply != nil && reply.Valid() {
		s.Replies++
		if reply.Flagged() {
			s.Flagged++
		}
	}

	switch {
	case err == nil:
	case lucid.IsTimeout(err):
		s.Timeouts++
	case lucid.IsConnection(err, lucid.ReasonDeviceMismatch):
		s.Mismatches++
	case lucid.IsProtocol(err, lucid.ReasonNotAcknowledged):
		s.Rejected++
	case lucid.IsProtocol(err):
		s.Malformed++
	}
}

// recordRequest counts one request and whether it failed
func (s *Statistics) recordRequest(err error) {
	s.Requests++
	if err != nil {
		s.Failures++
	}
	s.LastUpdateTime = time.Now()
}

// CalculateRates calculates request and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.RequestRate = float64(s.Requests) / elapsed
		s.ErrorRate = float64(s.failedAttempts()) / elapsed
	}
}

func (s *Statistics) failedAttempts() uint64 {
	return s.Timeouts + s.Malformed + s.Rejected + s.Mismatches
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var okPercent float64
	if s.Attempts > 0 {
		okPercent = float64(s.Attempts-s.failedAttempts()) * 100.0 / float64(s.Attempts)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Requests:        %8d (%d failed)\n", s.Requests, s.Failures)
	result += fmt.Sprintf("Attempts:        %8d (%.1f%% ok)\n", s.Attempts, okPercent)

	if s.Timeouts > 0 {
		result += fmt.Sprintf("Timeouts:        %8d\n", s.Timeouts)
	}
	if s.Malformed > 0 {
		result += fmt.Sprintf("Malformed:       %8d\n", s.Malformed)
	}
	if s.Rejected > 0 {
		result += fmt.Sprintf("Rejected:        %8d\n", s.Rejected)
	}
	if s.Flagged > 0 {
		result += fmt.Sprintf("Flagged Replies: %8d\n", s.Flagged)
	}
	if s.Mismatches > 0 {
		result += fmt.Sprintf("Mismatches:      %8d\n", s.Mismatches)
	}

	result += fmt.Sprintf("Request Rate:    %8.1f req/sec\n", s.RequestRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
