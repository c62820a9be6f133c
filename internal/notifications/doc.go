// Package notifications pushes job outcomes to ntfy.
//
// Subscriber follows the event hub and sends one notification per terminal
// job event the config enables. Without a topic the service is a no-op.
package notifications
