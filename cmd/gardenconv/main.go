// gardenconv converts legacy XML garden definitions to the YAML row form.
package main

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/smartmower/mower/internal/data"
	"gopkg.in/yaml.v3"
)

type xmlXY struct {
	X int `xml:"x,attr"`
	Y int `xml:"y,attr"`
}

type xmlTile struct {
	X    int    `xml:"x,attr"`
	Y    int    `xml:"y,attr"`
	Type string `xml:"type,attr"`
}

type xmlGarden struct {
	XMLName         xml.Name  `xml:"Garden"`
	Width           int       `xml:"width,attr"`
	Height          int       `xml:"height,attr"`
	MowerStart      *xmlXY    `xml:"MowerStartPosition"`
	Tiles           []xmlTile `xml:"Tiles>Tile"`
	MovingObstacles []xmlTile `xml:"MovingObstacles>MovingObstacle"`
}

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: gardenconv <garden.xml> <output.yaml>")
		os.Exit(1)
	}

	inFile, err := os.Open(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer inFile.Close()

	name := strings.TrimSuffix(filepath.Base(os.Args[1]), filepath.Ext(os.Args[1]))
	out, err := convert(inFile, name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}

	header := fmt.Sprintf("# Converted from %s by gardenconv\n", filepath.Base(os.Args[1]))
	if err := os.WriteFile(os.Args[2], append([]byte(header), out...), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote garden %s to %s\n", name, os.Args[2])
}

// convert reads an XML garden, validates it and renders the YAML row form.
func convert(r io.Reader, name string) ([]byte, error) {
	var x xmlGarden
	if err := xml.NewDecoder(r).Decode(&x); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	if x.MowerStart == nil {
		return nil, fmt.Errorf("%w: missing MowerStartPosition", data.ErrInvalidGarden)
	}

	f := data.GardenFile{
		Name:       name,
		Width:      x.Width,
		Height:     x.Height,
		MowerStart: data.XY{X: x.MowerStart.X, Y: x.MowerStart.Y},
	}
	for _, t := range x.Tiles {
		f.Tiles = append(f.Tiles, data.TileEntry{X: t.X, Y: t.Y, Type: data.NormalizeTileType(t.Type)})
	}
	for _, o := range x.MovingObstacles {
		f.MovingObstacles = append(f.MovingObstacles, data.ObstacleEntry{X: o.X, Y: o.Y, Type: strings.ToLower(o.Type)})
	}

	layout, err := f.Layout()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(data.NewGardenFile(name, layout))
}
