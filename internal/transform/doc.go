// Package transform runs the external transform executables (ffmpeg, magick,
// soffice, rembg) for one item at a time.
//
// Each invocation runs in its own process group under a per-item deadline.
// When the deadline passes the whole group is killed, so helpers a tool
// forks (soffice spawns oosplash and soffice.bin) do not outlive the item.
// Combined stdout/stderr is scanned line by line and the tail is kept for
// failure reports.
package transform
