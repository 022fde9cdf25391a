// Package plotting renders the pipeline's charts with gonum/plot.
//
// A Chart describes one panel: its series, labels, axis ranges and tick
// policy. Renderer.Render writes a single panel, Renderer.RenderStacked
// writes two panels sharing the x axis. The output format follows the file
// extension (png, pdf, svg). Files are written to a temporary sibling and
// renamed into place, so readers never see a half-written image.
//
// Missing samples (NaN) break a series into separate segments instead of
// being drawn as zero.
package plotting
