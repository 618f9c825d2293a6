// Package media is the static registry of transformation categories, format
// families, media types, and service type ids.
//
// Everything here is a lookup table consulted once per request; nothing holds
// state. Category values are a closed set and Direction classifies the
// gif and document transitions so the strategy resolver never branches on
// raw strings.
package media
