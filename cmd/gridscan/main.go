// Command gridscan runs importance analysis on a screenshot file and
// reports the highest-scoring cells and clusters.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"context-magnifier/internal/capture"
	"context-magnifier/internal/cluster"
	"context-magnifier/internal/grid"
	"context-magnifier/internal/log"
	"context-magnifier/internal/ocr"
	"context-magnifier/internal/settings"
	"context-magnifier/internal/visual"
	"context-magnifier/pkg/geometry"
)

func main() {
	imagePath := flag.String("image", "", "Path to a screenshot (PNG or JPEG)")
	refX := flag.Float64("x", -1, "Reference X for clustering and the focus query (defaults to image center)")
	refY := flag.Float64("y", -1, "Reference Y")
	radius := flag.Float64("radius", 200, "Focus query radius in pixels")
	threshold := flag.Float64("threshold", 0.7, "Focus query threshold, relative to the local max")
	top := flag.Int("top", 5, "Number of top cells to print")
	overlayOut := flag.String("overlay", "", "Write a colormap overlay PNG to this path")
	chartOut := flag.String("chart", "", "Write an HTML heatmap chart to this path")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*logLevel)

	if *imagePath == "" {
		fmt.Println("Usage: gridscan -image <path> [-x N -y N] [-overlay out.png] [-chart out.html]")
		os.Exit(1)
	}

	f, err := os.Open(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open image: %v\n", err)
		os.Exit(1)
	}
	img, format, err := image.Decode(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to decode image: %v\n", err)
		os.Exit(1)
	}

	bounds := img.Bounds()
	fmt.Printf("Loaded %s image: %dx%d pixels\n", format, bounds.Dx(), bounds.Dy())

	ocrEngine, err := ocr.NewEngine()
	if err != nil {
		fmt.Fprintf(os.Stderr, "OCR setup failed: %v\n", err)
		os.Exit(1)
	}
	defer ocrEngine.Close()

	engine, err := grid.NewEngine(settings.Load().GridConfig(), ocrEngine, grid.NewCannyDetector())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Engine setup failed: %v\n", err)
		os.Exit(1)
	}

	snap, err := engine.Compute(img)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Analysis failed: %v\n", err)
		os.Exit(1)
	}

	ref := geometry.Point2D{X: *refX, Y: *refY}
	if ref.X < 0 || ref.Y < 0 {
		ref = geometry.Point2D{X: float64(bounds.Dx()) / 2, Y: float64(bounds.Dy()) / 2}
	}

	fmt.Printf("\nTop %d cells:\n", *top)
	fmt.Printf("%-6s %-6s %10s\n", "Col", "Row", "Score")
	for _, cell := range snap.TopCells(*top) {
		fmt.Printf("%-6d %-6d %10.2f\n", cell.Col, cell.Row, cell.Importance)
	}

	focus := snap.QueryImportantPoint(ref.X, ref.Y, *radius, *threshold)
	fmt.Printf("\nFocus from (%.0f, %.0f): (%.1f, %.1f)\n", ref.X, ref.Y, focus.X, focus.Y)

	clusters := cluster.Find(snap, ref, cluster.DefaultOptions())
	fmt.Printf("\n%d clusters near reference:\n", len(clusters))
	for i, cl := range clusters {
		fmt.Printf("  #%d: %d cells, mean %.2f, center (%.0f, %.0f), nearest %.1f cells away\n",
			i+1, len(cl.Members), cl.MeanImportance, cl.Center.X, cl.Center.Y, cl.MinDistance)
	}

	if *overlayOut != "" {
		overlay, err := visual.Overlay(img, snap)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Overlay failed: %v\n", err)
			os.Exit(1)
		}
		if err := capture.SavePNG(overlay, *overlayOut); err != nil {
			fmt.Fprintf(os.Stderr, "Overlay write failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote overlay to %s\n", *overlayOut)
	}

	if *chartOut != "" {
		out, err := os.Create(*chartOut)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Chart write failed: %v\n", err)
			os.Exit(1)
		}
		err = visual.RenderChart(out, snap)
		out.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Chart render failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote chart to %s\n", *chartOut)
	}
}
