package media

// Direction classifies a gif or document transition.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionImageToGif
	DirectionGifToImage
	DirectionGifToVideo
	DirectionVideoToGif
	DirectionOfficeToPDF
	DirectionPDFToOffice
)

func (d Direction) String() string {
	switch d {
	case DirectionImageToGif:
		return "image_to_gif"
	case DirectionGifToImage:
		return "gif_to_image"
	case DirectionGifToVideo:
		return "gif_to_video"
	case DirectionVideoToGif:
		return "video_to_gif"
	case DirectionOfficeToPDF:
		return "office_to_pdf"
	case DirectionPDFToOffice:
		return "pdf_to_office"
	default:
		return "none"
	}
}

type transition struct {
	in, out Family
}

var gifDirections = map[transition]Direction{
	{FamilyRaster, FamilyAnimated}: DirectionImageToGif,
	{FamilyAnimated, FamilyRaster}: DirectionGifToImage,
	{FamilyAnimated, FamilyVideo}:  DirectionGifToVideo,
	{FamilyVideo, FamilyAnimated}:  DirectionVideoToGif,
}

var documentDirections = map[transition]Direction{
	{FamilyOffice, FamilyPDF}: DirectionOfficeToPDF,
	{FamilyPDF, FamilyOffice}: DirectionPDFToOffice,
}

// Classify resolves the direction of a gif or document transition. Other
// categories, and unknown pairs, yield DirectionNone.
func Classify(category Category, inputFormat, outputFormat string) Direction {
	key := transition{FamilyOf(inputFormat), FamilyOf(outputFormat)}
	switch category {
	case CategoryGif:
		return gifDirections[key]
	case CategoryDocument:
		return documentDirections[key]
	default:
		return DirectionNone
	}
}
