package strategy

import "converto/internal/media"

var pdfExportFilters = map[string]string{
	"doc":  "writer_pdf_Export",
	"docx": "writer_pdf_Export",
	"odt":  "writer_pdf_Export",
	"rtf":  "writer_pdf_Export",
	"txt":  "writer_pdf_Export",
	"xls":  "calc_pdf_Export",
	"xlsx": "calc_pdf_Export",
	"ods":  "calc_pdf_Export",
	"ppt":  "impress_pdf_Export",
	"pptx": "impress_pdf_Export",
	"odp":  "impress_pdf_Export",
}

// officeImportFilters pins the writer export filter for each target when the
// source is a PDF; soffice otherwise opens PDFs in Draw and cannot save them.
var officeImportFilters = map[string]string{
	"docx": "MS Word 2007 XML",
	"doc":  "MS Word 97",
	"odt":  "writer8",
	"rtf":  "Rich Text Format",
	"txt":  "Text",
}

func sofficeArgs(convertTo string, extra ...string) []string {
	args := []string{
		"--headless",
		"--norestore",
		"-env:UserInstallation=file://" + placeholderWorkDir + "/lo-profile",
	}
	args = append(args, extra...)
	return append(args, "--convert-to", convertTo, "--outdir", placeholderOutDir, placeholderInput)
}

func resolveDocument(in, out string) (Strategy, error) {
	direction := media.Classify(media.CategoryDocument, in, out)
	s := Strategy{
		Category:     media.CategoryDocument,
		Direction:    direction,
		InputFormat:  in,
		OutputFormat: out,
		Tool:         ToolSoffice,
	}
	switch direction {
	case media.DirectionOfficeToPDF:
		filter, ok := pdfExportFilters[in]
		if !ok {
			return Strategy{}, unsupported(media.CategoryDocument, in, out)
		}
		s.Args = sofficeArgs("pdf:" + filter)
	case media.DirectionPDFToOffice:
		filter, ok := officeImportFilters[out]
		if !ok {
			return Strategy{}, unsupported(media.CategoryDocument, in, out)
		}
		s.Args = sofficeArgs(out+":"+filter, "--infilter=writer_pdf_import")
	default:
		return Strategy{}, unsupported(media.CategoryDocument, in, out)
	}
	return s, nil
}
