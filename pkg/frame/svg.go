package frame

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-graphviz"
)

// RenderSVG lays out a DOT frame with the circo engine and renders it to
// SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.CIRCO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteSVGs renders every frame into dir as frame_0000.svg, frame_0001.svg
// and so on. It returns the paths written. dir is created if missing.
// rendered, if not nil, is called after each frame is written.
func WriteSVGs(ctx context.Context, dir string, frames []Frame, rendered func()) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	paths := make([]string, 0, len(frames))
	for i, f := range frames {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		svg, err := RenderSVG(ctx, f.DOT)
		if err != nil {
			return paths, fmt.Errorf("frame %d: %w", i, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("frame_%04d.svg", i))
		if err := os.WriteFile(path, svg, 0644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
		if rendered != nil {
			rendered()
		}
	}
	return paths, nil
}
