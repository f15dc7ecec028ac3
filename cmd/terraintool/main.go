// terraintool is a headless CLI for inspecting terrain topology, height maps and level of
// detail behaviour without a window.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

type command struct {
	name  string
	usage string
	run   func(args []string, stdout, stderr io.Writer) error
}

var commands = []command{
	{"topology", "topology [-grid N] [-patch P]           Show clipmap and mipmap index buffer sizes", cmdTopology},
	{"simulate", "simulate [-config file] [-frames N] ...  Fly a camera over the terrain and print LOD stats", cmdSimulate},
	{"heightmap", "heightmap [-config file] -out file.png  Generate or convert a height map to 16-bit PNG", cmdHeightMap},
	{"config", "config [-config file] [-out file]        Print or write the effective configuration", cmdConfig},
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}
	os.Exit(run(os.Args[1], os.Args[2:], os.Stdout, os.Stderr))
}

func run(name string, args []string, stdout, stderr io.Writer) int {
	switch name {
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	}
	for _, c := range commands {
		if c.name != name {
			continue
		}
		if err := c.run(args, stdout, stderr); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return 0
			}
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}
	fmt.Fprintf(stderr, "Unknown command: %s\n", name)
	printUsage(stderr)
	return 1
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `terraintool - terrain level of detail utility

Usage:
  terraintool <command> [options]

Commands:`)
	for _, c := range commands {
		fmt.Fprintf(w, "  %s\n", c.usage)
	}
	fmt.Fprintln(w, `
Examples:
  terraintool topology -grid 255 -patch 33
  terraintool simulate -mode mipmap -frames 600
  terraintool heightmap -seed 7 -out island.png
  terraintool config -out terrain.yaml`)
}
