package target

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// LoadAll loads every target in a folder. Each image file is paired with a
// same-stem .json sidecar; targets that fail to load are skipped and logged
// so one broken asset never takes down the rest of the gallery. An error is
// returned only when the folder yields no usable targets at all.
func LoadAll(dir string) ([]*Asset, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan target folder %s: %w", dir, err)
	}
	sort.Strings(entries)

	var assets []*Asset
	for _, path := range entries {
		ext := strings.ToLower(filepath.Ext(path))
		if !imageExtensions[ext] {
			continue
		}

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		sidecar := filepath.Join(dir, name+".json")

		asset, err := Load(name, path, sidecar)
		if err != nil {
			logrus.WithError(err).Warnf("skipping target %s", name)
			continue
		}

		logrus.WithFields(logrus.Fields{
			"target":    name,
			"size":      fmt.Sprintf("%dx%d", asset.Image.Cols(), asset.Image.Rows()),
			"triangles": len(asset.Triangles),
		}).Info("loaded target")
		assets = append(assets, asset)
	}

	if len(assets) == 0 {
		return nil, fmt.Errorf("no usable targets found in %s", dir)
	}
	return assets, nil
}
