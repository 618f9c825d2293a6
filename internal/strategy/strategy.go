package strategy

import (
	"fmt"
	"strings"

	"converto/internal/media"
	"converto/internal/services"
)

// Tool names the external executable family a strategy invokes.
type Tool string

const (
	ToolFFmpeg  Tool = "ffmpeg"
	ToolMagick  Tool = "magick"
	ToolSoffice Tool = "soffice"
	ToolRembg   Tool = "rembg"
)

const (
	placeholderInput   = "{input}"
	placeholderOutput  = "{output}"
	placeholderOutDir  = "{outdir}"
	placeholderWorkDir = "{workdir}"
)

// Params carries the caller-supplied knobs for a transformation.
type Params struct {
	OutputFormat string
	Quality      int
	Bitrate      string
	Level        string
	ReduceColors bool
}

// Strategy is the resolved invocation for one input format.
type Strategy struct {
	Category     media.Category
	Direction    media.Direction
	InputFormat  string
	OutputFormat string
	Tool         Tool
	Args         []string
	// Quality is the effective image quality after clamping, or 0.
	Quality int
	// Preset is the effective low|medium|high tier for ffmpeg strategies.
	Preset string
	// Level is the compression level recorded in history, if any.
	Level string
}

// Command expands the argument template for one item. workdir is a private
// directory the tool may use for profiles or temporary state.
func (s Strategy) Command(input, output, outdir, workdir string) []string {
	replacer := strings.NewReplacer(
		placeholderInput, input,
		placeholderOutput, output,
		placeholderOutDir, outdir,
		placeholderWorkDir, workdir,
	)
	args := make([]string, len(s.Args))
	for i, arg := range s.Args {
		args[i] = replacer.Replace(arg)
	}
	return args
}

// UnsupportedCombinationError reports an input/output pair no strategy covers.
type UnsupportedCombinationError struct {
	Category media.Category
	Input    string
	Output   string
}

func (e *UnsupportedCombinationError) Error() string {
	return fmt.Sprintf("unsupported %s conversion: %s -> %s", e.Category, labelOrUnknown(e.Input), labelOrUnknown(e.Output))
}

// Is lets errors.Is(err, services.ErrValidation) classify the error as a client error.
func (e *UnsupportedCombinationError) Is(target error) bool {
	return target == services.ErrValidation
}

func labelOrUnknown(v string) string {
	if v == "" {
		return "(none)"
	}
	return v
}

func unsupported(category media.Category, in, out string) error {
	return &UnsupportedCombinationError{Category: category, Input: in, Output: out}
}

// Resolve maps a category, an input format, and params to a Strategy.
func Resolve(category media.Category, inputFormat string, params Params) (Strategy, error) {
	in := media.NormalizeFormat(inputFormat)
	out := media.NormalizeFormat(params.OutputFormat)
	switch category {
	case media.CategoryImage:
		return resolveImage(in, out, params)
	case media.CategoryVideoAudio:
		return resolveVideoAudio(in, out, params)
	case media.CategoryGif:
		return resolveGif(in, out, params)
	case media.CategoryDocument:
		return resolveDocument(in, out)
	case media.CategoryBackgroundRemoval:
		return resolveBackground(in)
	case media.CategoryCompression:
		return resolveCompression(in, params)
	default:
		return Strategy{}, unsupported(category, in, out)
	}
}

// ResolveAll resolves one strategy per distinct input format. The first
// unsupported combination aborts resolution.
func ResolveAll(category media.Category, inputFormats []string, params Params) (map[string]Strategy, error) {
	resolved := make(map[string]Strategy, len(inputFormats))
	for _, format := range inputFormats {
		key := media.NormalizeFormat(format)
		if _, ok := resolved[key]; ok {
			continue
		}
		s, err := Resolve(category, key, params)
		if err != nil {
			return nil, err
		}
		resolved[key] = s
	}
	return resolved, nil
}
