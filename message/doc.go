// Package message provides the payload types routed by dispatchers: CAN
// frames, keyed by their 29-bit identifier, and event reports, keyed by their
// 64-bit event ID.
package message
