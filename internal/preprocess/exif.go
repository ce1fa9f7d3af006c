package preprocess

import (
	"image"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	exif "github.com/dsoprea/go-exif/v3"
)

// Orientation values from the EXIF specification.
const (
	OrientationNormal      = 1
	OrientationFlipH       = 2
	OrientationRotate180   = 3
	OrientationFlipV       = 4
	OrientationTranspose   = 5
	OrientationRotate270CW = 6
	OrientationTransverse  = 7
	OrientationRotate90CW  = 8
)

// Metadata is the subset of EXIF data that affects classification or the
// patient's privacy.
type Metadata struct {
	// Orientation is the EXIF orientation, 1 when absent.
	Orientation int

	// HasGPS is true when the photo embeds GPS coordinates.
	HasGPS bool

	// Camera is the "Make Model" string, empty when absent.
	Camera string
}

// ReadMetadata extracts Metadata from encoded image bytes.
// Images without EXIF, or with EXIF that cannot be parsed, yield the zero
// orientation default and no privacy flags.
//
// Design decision: EXIF parse failures are never fatal. A phone photo with a
// broken maker note is still a perfectly good wound photo.
func ReadMetadata(data []byte) Metadata {
	md := Metadata{Orientation: OrientationNormal}

	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return md
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return md
	}

	var cameraMake, cameraModel string
	orientationSeen := false
	for _, entry := range entries {
		switch entry.TagName {
		case "Orientation":
			// IFD0 comes before the thumbnail IFD; keep the first value.
			if orientationSeen {
				continue
			}
			orientationSeen = true
			if o := orientationValue(entry.Value, entry.FormattedFirst); o >= OrientationNormal && o <= OrientationRotate90CW {
				md.Orientation = o
			}
		case "GPSLatitude", "GPSLongitude":
			md.HasGPS = true
		case "Make":
			cameraMake = strings.TrimSpace(entry.Formatted)
		case "Model":
			cameraModel = strings.TrimSpace(entry.Formatted)
		}
	}
	md.Camera = strings.TrimSpace(cameraMake + " " + cameraModel)

	return md
}

// orientationValue reads an Orientation tag value.
func orientationValue(v any, formatted string) int {
	switch vv := v.(type) {
	case []uint16:
		if len(vv) > 0 {
			return int(vv[0])
		}
	case uint16:
		return int(vv)
	}
	n, err := strconv.Atoi(strings.TrimSpace(formatted))
	if err != nil {
		return 0
	}
	return n
}

// applyOrientation returns img rotated or flipped so that it displays
// upright for the given EXIF orientation.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case OrientationFlipH:
		return imaging.FlipH(img)
	case OrientationRotate180:
		return imaging.Rotate180(img)
	case OrientationFlipV:
		return imaging.FlipV(img)
	case OrientationTranspose:
		return imaging.Transpose(img)
	case OrientationRotate270CW:
		return imaging.Rotate270(img)
	case OrientationTransverse:
		return imaging.Transverse(img)
	case OrientationRotate90CW:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
