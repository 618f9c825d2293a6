// Package strategy resolves a category plus input/output formats into the
// concrete tool invocation used to transform one item.
//
// Resolution is pure: it inspects format labels and parameters only and never
// touches the filesystem. The only error it returns is
// *UnsupportedCombinationError.
//
// Argument templates use the placeholders {input}, {output}, {outdir}, and
// {workdir}; Strategy.Command expands them for a concrete item.
package strategy
