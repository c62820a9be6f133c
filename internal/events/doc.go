// Package events defines the closed set of orchestrator events and the
// in-process Hub that fans them out to subscribers.
//
// Delivery is best effort and at most once per subscriber: a subscriber
// whose buffer is full misses the event and the drop is counted. Events for
// one job reach every subscriber in the order they were published.
package events
