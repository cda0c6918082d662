// Package sampler detects button presses by polling a digital input line on a
// fixed period and reporting LOW-to-HIGH transitions between consecutive
// polls. Holding the button across many polls reports exactly one press.
package sampler
