package pointcloud

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

const offDefaultChannel = 120

// offGreyReplacement is the color given to points whose channels are all equal,
// so uncolored scans remain visible against a grey background.
var offGreyReplacement = Color{R: 50, G: 100, B: 0}

// NewFromOFFFile reads a plain text "x y z [r g b]" file, one point per line.
func NewFromOFFFile(fn string) (*PointCloud, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open file %q", fn)
	}
	defer func() {
		//nolint:errcheck
		f.Close()
	}()
	return ReadOFF(f)
}

// ReadOFF parses points until the first line that does not start with three numbers.
// Missing color channels default to 120 and grey colors are replaced by a fixed green.
func ReadOFF(in io.Reader) (*PointCloud, error) {
	cloud := New()
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		p, c, ok := parseOFFLine(scanner.Text())
		if !ok {
			break
		}
		cloud.Add(p, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cloud, nil
}

func parseOFFLine(line string) (r3.Vector, Color, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return r3.Vector{}, Color{}, false
	}
	var xyz [3]float64
	for i := range xyz {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return r3.Vector{}, Color{}, false
		}
		xyz[i] = v
	}

	rgb := [3]int{offDefaultChannel, offDefaultChannel, offDefaultChannel}
	for i, field := range fields[3:] {
		if i >= len(rgb) {
			break
		}
		v, err := strconv.Atoi(field)
		if err != nil {
			break
		}
		rgb[i] = v
	}
	c := Color{R: uint8(rgb[0]), G: uint8(rgb[1]), B: uint8(rgb[2])}
	if c.R == c.G && c.G == c.B {
		c = offGreyReplacement
	}
	return r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}, c, true
}
