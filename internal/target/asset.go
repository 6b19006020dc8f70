package target

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"os"

	"gocv.io/x/gocv"

	"github.com/dudu/morphcam/internal/landmarks"
	"github.com/dudu/morphcam/internal/mesh"
)

// Metadata is the sidecar record stored next to each target image. Point
// coordinates are valid for an image of exactly Width x Height, so the image
// is resized to those dimensions at load time.
type Metadata struct {
	Image  string   `json:"image"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Points [][2]int `json:"points"`
}

// Asset is an immutable morph target: its pixel image, landmark set and
// precomputed triangulation. An Asset is built once and replaced whole;
// fields are never mutated after construction.
type Asset struct {
	Name      string
	Image     gocv.Mat // BGR, Width x Height
	Points    landmarks.Set
	Triangles []mesh.Triangle
}

// New builds an Asset from a decoded image and its landmark set, taking
// ownership of the Mat. The triangulation is computed here so that a fully
// constructed Asset is always safe to publish.
func New(name string, img gocv.Mat, pts landmarks.Set) (*Asset, error) {
	if img.Empty() {
		return nil, fmt.Errorf("target %s: empty image", name)
	}
	if !pts.Complete() {
		return nil, fmt.Errorf("target %s: expected %d landmarks, got %d", name, landmarks.MeshPoints, len(pts))
	}

	triangles, err := mesh.Triangulate(pts)
	if err != nil {
		return nil, fmt.Errorf("target %s: %w", name, err)
	}

	return &Asset{
		Name:      name,
		Image:     img,
		Points:    pts,
		Triangles: triangles,
	}, nil
}

// Load reads a target image and its sidecar metadata. The image is resized
// to the sidecar dimensions so the stored landmark coordinates stay valid.
func Load(name, imagePath, sidecarPath string) (*Asset, error) {
	meta, err := readMetadata(sidecarPath)
	if err != nil {
		return nil, fmt.Errorf("target %s: %w", name, err)
	}

	img := gocv.IMRead(imagePath, gocv.IMReadUnchanged)
	if img.Empty() {
		return nil, fmt.Errorf("target %s: failed to load image %s", name, imagePath)
	}

	// Normalize to 3-channel BGR before resampling: drop any alpha channel
	// and expand grayscale
	if img.Channels() == 4 {
		bgr := gocv.NewMat()
		gocv.CvtColor(img, &bgr, gocv.ColorBGRAToBGR)
		img.Close()
		img = bgr
	}
	if img.Channels() == 1 {
		bgr := gocv.NewMat()
		gocv.CvtColor(img, &bgr, gocv.ColorGrayToBGR)
		img.Close()
		img = bgr
	}

	if img.Cols() != meta.Width || img.Rows() != meta.Height {
		resized := gocv.NewMat()
		gocv.Resize(img, &resized, image.Pt(meta.Width, meta.Height), 0, 0, gocv.InterpolationLinear)
		img.Close()
		img = resized
	}

	pts := make(landmarks.Set, len(meta.Points))
	for i, p := range meta.Points {
		pts[i] = landmarks.Point{X: float32(p[0]), Y: float32(p[1])}
	}

	asset, err := New(name, img, pts)
	if err != nil {
		img.Close()
		return nil, err
	}
	return asset, nil
}

func readMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sidecar: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("malformed sidecar %s: %w", path, err)
	}
	if meta.Width <= 0 || meta.Height <= 0 {
		return nil, fmt.Errorf("sidecar %s: invalid dimensions %dx%d", path, meta.Width, meta.Height)
	}
	if len(meta.Points) != landmarks.MeshPoints {
		return nil, fmt.Errorf("sidecar %s: expected %d points, got %d", path, landmarks.MeshPoints, len(meta.Points))
	}
	return &meta, nil
}

// Icon renders a circular thumbnail of the target for the UI icon bar
func (a *Asset) Icon(size int) gocv.Mat {
	icon := gocv.NewMat()
	gocv.Resize(a.Image, &icon, image.Pt(size, size), 0, 0, gocv.InterpolationLinear)

	mask := gocv.NewMatWithSize(size, size, gocv.MatTypeCV8U)
	defer mask.Close()
	gocv.Circle(&mask, image.Pt(size/2, size/2), size/2, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)

	circular := gocv.NewMatWithSize(size, size, gocv.MatTypeCV8UC3)
	icon.CopyToWithMask(&circular, mask)
	icon.Close()
	return circular
}

// Close releases the target's image
func (a *Asset) Close() {
	a.Image.Close()
}
