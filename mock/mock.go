// Package mock provides test doubles for concierge interfaces using function
// fields.
package mock
