// Package buffer provides the fixed-capacity conversation slot that holds the
// most recently received peer reply. The slot never grows: writers truncate
// oversize payloads on a UTF-8 rune boundary, preserving the memory-bounded
// design of the device.
package buffer
