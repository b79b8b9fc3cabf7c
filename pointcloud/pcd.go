package pointcloud

import (
	"fmt"
	"io"
)

// colorToPCDInt packs a color into the PCD "rgb" integer field.
func colorToPCDInt(c Color) int {
	x := 0
	x |= int(c.R) << 16
	x |= int(c.G) << 8
	x |= int(c.B) << 0
	return x
}

// ToPCD writes the cloud as an unorganized ascii PCD with an rgb field. Positions stay in meters.
func ToPCD(cloud *PointCloud, out io.Writer) error {
	_, err := fmt.Fprintf(out, "VERSION .7\n"+
		"FIELDS x y z rgb\n"+
		"SIZE 4 4 4 4\n"+
		"TYPE F F F I\n"+
		"COUNT 1 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT %d\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA ascii\n",
		cloud.Size(),
		1,
		cloud.Size())
	if err != nil {
		return err
	}
	for i, p := range cloud.points {
		if _, err := fmt.Fprintf(out, "%f %f %f %d\n", p.X, p.Y, p.Z, colorToPCDInt(cloud.colors[i])); err != nil {
			return err
		}
	}
	return nil
}
