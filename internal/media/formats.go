package media

import (
	"path/filepath"
	"strings"
)

// Family groups formats that share a transformation toolchain.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyRaster
	FamilyVideo
	FamilyAudio
	FamilyAnimated
	FamilyOffice
	FamilyPDF
)

func (f Family) String() string {
	switch f {
	case FamilyRaster:
		return "raster"
	case FamilyVideo:
		return "video"
	case FamilyAudio:
		return "audio"
	case FamilyAnimated:
		return "animated"
	case FamilyOffice:
		return "office"
	case FamilyPDF:
		return "pdf"
	default:
		return "unknown"
	}
}

type formatInfo struct {
	family    Family
	mediaType string
}

var formats = map[string]formatInfo{
	"jpg":  {FamilyRaster, "image/jpeg"},
	"jpeg": {FamilyRaster, "image/jpeg"},
	"png":  {FamilyRaster, "image/png"},
	"webp": {FamilyRaster, "image/webp"},
	"avif": {FamilyRaster, "image/avif"},
	"bmp":  {FamilyRaster, "image/bmp"},
	"tiff": {FamilyRaster, "image/tiff"},
	"tif":  {FamilyRaster, "image/tiff"},
	"ico":  {FamilyRaster, "image/x-icon"},
	"heic": {FamilyRaster, "image/heic"},
	"gif":  {FamilyAnimated, "image/gif"},
	"mp4":  {FamilyVideo, "video/mp4"},
	"mkv":  {FamilyVideo, "video/x-matroska"},
	"webm": {FamilyVideo, "video/webm"},
	"avi":  {FamilyVideo, "video/x-msvideo"},
	"mov":  {FamilyVideo, "video/quicktime"},
	"mp3":  {FamilyAudio, "audio/mpeg"},
	"wav":  {FamilyAudio, "audio/wav"},
	"flac": {FamilyAudio, "audio/flac"},
	"ogg":  {FamilyAudio, "audio/ogg"},
	"aac":  {FamilyAudio, "audio/aac"},
	"m4a":  {FamilyAudio, "audio/mp4"},
	"opus": {FamilyAudio, "audio/opus"},
	"pdf":  {FamilyPDF, "application/pdf"},
	"doc":  {FamilyOffice, "application/msword"},
	"docx": {FamilyOffice, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	"odt":  {FamilyOffice, "application/vnd.oasis.opendocument.text"},
	"rtf":  {FamilyOffice, "application/rtf"},
	"txt":  {FamilyOffice, "text/plain"},
	"xls":  {FamilyOffice, "application/vnd.ms-excel"},
	"xlsx": {FamilyOffice, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	"ods":  {FamilyOffice, "application/vnd.oasis.opendocument.spreadsheet"},
	"ppt":  {FamilyOffice, "application/vnd.ms-powerpoint"},
	"pptx": {FamilyOffice, "application/vnd.openxmlformats-officedocument.presentationml.presentation"},
	"odp":  {FamilyOffice, "application/vnd.oasis.opendocument.presentation"},
	"zip":  {FamilyUnknown, "application/zip"},
}

// DefaultMediaType is returned for formats missing from the table.
const DefaultMediaType = "application/octet-stream"

// NormalizeFormat lower-cases a format label and strips a leading dot.
// "jpeg" and "tif" fold to "jpg" and "tiff".
func NormalizeFormat(format string) string {
	f := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
	switch f {
	case "jpeg":
		return "jpg"
	case "tif":
		return "tiff"
	}
	return f
}

// FormatOf derives the normalized format label from a path or object key.
func FormatOf(path string) string {
	return NormalizeFormat(filepath.Ext(path))
}

// FamilyOf returns the toolchain family for a format label.
func FamilyOf(format string) Family {
	if info, ok := formats[NormalizeFormat(format)]; ok {
		return info.family
	}
	return FamilyUnknown
}

// MediaType looks up the response media type for a format label.
func MediaType(format string) string {
	if info, ok := formats[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))]; ok {
		return info.mediaType
	}
	return DefaultMediaType
}
