// Package probe verifies that a transform produced a usable artifact, beyond
// the exit-code and non-empty checks the engine always performs.
//
// Raster outputs Go can decode (jpg, png, gif, bmp, tiff) are opened with
// disintegration/imaging and their dimensions recorded. Video and audio
// outputs are inspected with ffprobe and must expose at least one stream.
// Other formats pass through unverified.
package probe
