package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/terrain/geometry"
	"github.com/Faultbox/midgard-terrain/internal/terrain/heightfield"
)

const smallConfig = `terrain:
  grid_size: 31
  levels: 3
  patch_size: 17
heightmap:
  width: 129
  height: 129
  height_scale: 50
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "terrain.yaml")
	if err := os.WriteFile(path, []byte(smallConfig), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunUnknownCommand(t *testing.T) {
	var stderr bytes.Buffer
	if code := run("bogus", nil, io.Discard, &stderr); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "Unknown command: bogus") {
		t.Errorf("stderr = %q", stderr.String())
	}

	var stdout bytes.Buffer
	if code := run("help", nil, &stdout, io.Discard); code != 0 {
		t.Errorf("help exit code = %d", code)
	}
	for _, c := range commands {
		if !strings.Contains(stdout.String(), c.name) {
			t.Errorf("usage does not mention %q", c.name)
		}
	}
}

func TestTopology(t *testing.T) {
	var out bytes.Buffer
	if err := cmdTopology([]string{"-grid", "31", "-patch", "5"}, &out, io.Discard); err != nil {
		t.Fatalf("topology: %v", err)
	}
	for _, want := range []string{"Clipmap N=31 M=8", "Mipmap P=5 tiers=3", "ring blocks"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}

	err := cmdTopology([]string{"-grid", "100"}, io.Discard, io.Discard)
	if !errors.Is(err, geometry.ErrGridSize) {
		t.Errorf("grid 100: err = %v, want ErrGridSize", err)
	}
	err = cmdTopology([]string{"-patch", "6"}, io.Discard, io.Discard)
	if !errors.Is(err, geometry.ErrPatchSize) {
		t.Errorf("patch 6: err = %v, want ErrPatchSize", err)
	}
}

func TestSimulate(t *testing.T) {
	path := writeConfig(t)
	for _, mode := range []string{config.ModeClipmap, config.ModeMipmap} {
		t.Run(mode, func(t *testing.T) {
			var out bytes.Buffer
			args := []string{"-config", path, "-mode", mode, "-frames", "20", "-every", "10"}
			if err := cmdSimulate(args, &out, io.Discard); err != nil {
				t.Fatalf("simulate: %v", err)
			}
			s := out.String()
			if !strings.Contains(s, mode+": 20 frames") {
				t.Errorf("summary missing:\n%s", s)
			}
			if n := strings.Count(s, "  pos ("); n != 2 {
				t.Errorf("printed %d frame lines, want 2:\n%s", n, s)
			}
		})
	}
}

func TestSimulateRejectsBadInput(t *testing.T) {
	path := writeConfig(t)
	if err := cmdSimulate([]string{"-config", path, "-frames", "0"}, io.Discard, io.Discard); err == nil {
		t.Error("expected error for zero frames")
	}
	err := cmdSimulate([]string{"-config", path, "-mode", "quadtree"}, io.Discard, io.Discard)
	if !errors.Is(err, config.ErrUnknownMode) {
		t.Errorf("err = %v, want ErrUnknownMode", err)
	}
}

func TestHeightMap(t *testing.T) {
	path := writeConfig(t)
	out := filepath.Join(t.TempDir(), "map.png")

	var stdout bytes.Buffer
	if err := cmdHeightMap([]string{"-config", path, "-seed", "3", "-out", out}, &stdout, io.Discard); err != nil {
		t.Fatalf("heightmap: %v", err)
	}
	if !strings.Contains(stdout.String(), "129x129") {
		t.Errorf("stdout = %q", stdout.String())
	}

	f, err := heightfield.LoadFile(out, heightfield.LoadOptions{Scale: 1})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if f.Width() != 129 || f.Height() != 129 {
		t.Errorf("reloaded %dx%d", f.Width(), f.Height())
	}

	if err := cmdHeightMap([]string{"-config", path}, io.Discard, io.Discard); err == nil {
		t.Error("expected error without -out")
	}
}

func TestConfigWrite(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "terrain.yaml")
	if err := cmdConfig([]string{"-out", out}, io.Discard, io.Discard); err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg, err := config.LoadFile(out)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	def := config.Default()
	if cfg.Terrain != def.Terrain || cfg.Graphics != def.Graphics || cfg.Camera != def.Camera {
		t.Errorf("round trip changed config: %+v", cfg)
	}

	var stdout bytes.Buffer
	if err := cmdConfig(nil, &stdout, io.Discard); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout.String(), "grid_size: 255") {
		t.Errorf("yaml output:\n%s", stdout.String())
	}
}
