// Package sources turns batch source locations into local files the
// transform tools can read.
//
// Plain paths are used in place. Locations of the form s3://bucket/key are
// downloaded into the item's scratch directory through the AWS SDK before
// the tool runs. Either way the localized file must exist and be non-empty.
package sources
