package constants

import "time"

// Test Constants
//
// IMPORTANT: These constants are for testing only. DO NOT use in production code.

// Integration Test Timeout Constants
const (
	// TestReadTimeout bounds every blocking read in connection tests
	TestReadTimeout = 2 * time.Second
)

// Concurrency Test Constants
const (
	// TestConcurrentLogins is the number of goroutines racing for one account
	TestConcurrentLogins = 16
)

// Test Fixture Constants
const (
	// TestRealmName is the realm used by handler and listener fixtures
	TestRealmName = "Aurora"

	// TestTransportKey is the client transport key used in connection tests
	TestTransportKey = "DR654dt34trg4UI6"

	// TestRealmKey is the realm channel key used in listener tests
	TestRealmKey = "realm-shared-key"
)
