package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOpenSCAD writes a shell script standing in for the OpenSCAD binary.
// The script receives "-o <stl> <scad>" just like the real thing.
func fakeOpenSCAD(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "openscad")
	full := "#!/bin/sh\n" + script + "\n"
	require.NoError(t, os.WriteFile(path, []byte(full), 0o755))
	return path
}

func writeScad(t *testing.T, code string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ScadFileName)
	require.NoError(t, os.WriteFile(path, []byte(code), 0o644))
	return path
}

func TestRenderSCADSuccess(t *testing.T) {
	exe := fakeOpenSCAD(t, `echo "solid" > "$2"`)
	scad := writeScad(t, "cube(1);")

	result := RenderSCAD(context.Background(), scad, exe, time.Minute)

	assert.True(t, result.Success)
	assert.Empty(t, result.ErrorMessage)
	assert.Greater(t, result.RenderTime, time.Duration(0))
	assert.FileExists(t, result.STLPath)
}

func TestRenderSCADExitZeroWithoutSTL(t *testing.T) {
	exe := fakeOpenSCAD(t, "exit 0")
	scad := writeScad(t, "cube(1);")

	result := RenderSCAD(context.Background(), scad, exe, time.Minute)

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "no STL file")
	assert.Empty(t, result.STLPath)
}

func TestRenderSCADStderrMessage(t *testing.T) {
	exe := fakeOpenSCAD(t, `echo "ERROR: Parser error" >&2; exit 1`)
	scad := writeScad(t, "cube(;")

	result := RenderSCAD(context.Background(), scad, exe, time.Minute)

	assert.False(t, result.Success)
	assert.Equal(t, "ERROR: Parser error", result.ErrorMessage)
}

func TestRenderSCADStdoutFallback(t *testing.T) {
	exe := fakeOpenSCAD(t, `echo "warning on stdout"; exit 1`)
	scad := writeScad(t, "cube(1);")

	result := RenderSCAD(context.Background(), scad, exe, time.Minute)

	assert.False(t, result.Success)
	assert.Equal(t, "warning on stdout", result.ErrorMessage)
}

func TestRenderSCADSilentFailure(t *testing.T) {
	exe := fakeOpenSCAD(t, "exit 3")
	scad := writeScad(t, "cube(1);")

	result := RenderSCAD(context.Background(), scad, exe, time.Minute)

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "exited with code 3")
}

func TestRenderSCADTimeout(t *testing.T) {
	exe := fakeOpenSCAD(t, "sleep 5")
	scad := writeScad(t, "cube(1);")

	result := RenderSCAD(context.Background(), scad, exe, 100*time.Millisecond)

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "timed out")
	assert.Empty(t, result.STLPath)
}

func TestRenderSCADMissingBinary(t *testing.T) {
	scad := writeScad(t, "cube(1);")

	result := RenderSCAD(context.Background(), scad, "openscad-definitely-not-installed", time.Minute)

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "not found")
}
