package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/warden-sec/warden/internal/logger"
	"github.com/warden-sec/warden/internal/models"
)

// maxFileSize is the per-file ceiling; pattern matching is byte-for-byte, so
// unbounded files would make scan duration unpredictable.
const maxFileSize = 2 * 1024 * 1024

// FileRef describes one candidate file produced by discovery.
type FileRef struct {
	Path         string    // absolute
	RelativePath string    // relative to the scan root
	Size         int64
	ModTime      time.Time
}

var codeExtensions = map[string]bool{
	".php":   true,
	".phtml": true,
	".php5":  true,
	".inc":   true,
	".js":    true,
	".sh":    true,
	".py":    true,
	".pl":    true,
	".cgi":   true,
}

// profile maps a scan type to its search roots (relative to the scan root)
// and file cap.
type profile struct {
	dirs     []string
	maxFiles int
}

var profiles = map[models.ScanType]profile{
	models.ScanTypeQuick:   {dirs: []string{"wp-content/plugins", "wp-content/themes"}, maxFiles: 500},
	models.ScanTypeFull:    {dirs: []string{"."}, maxFiles: 2000},
	models.ScanTypePlugins: {dirs: []string{"wp-content/plugins"}, maxFiles: 500},
	models.ScanTypeThemes:  {dirs: []string{"wp-content/themes"}, maxFiles: 500},
	models.ScanTypeCustom:  {maxFiles: 1000},
}

// Discovery enumerates candidate files for a scan profile.
type Discovery struct {
	Root string
}

func NewDiscovery(root string) *Discovery {
	return &Discovery{Root: root}
}

// Discover returns candidate files for the scan type. Custom scans walk the
// provided paths (relative to the root) instead of the profile's fixed dirs.
// Traversal errors are logged and skipped, never fatal. Discovery stops as
// soon as the profile's file cap is reached, even mid-directory.
func (d *Discovery) Discover(scanType models.ScanType, customPaths []string) ([]FileRef, error) {
	prof, ok := profiles[scanType]
	if !ok {
		return nil, fmt.Errorf("unknown scan type: %s", scanType)
	}

	dirs := prof.dirs
	if scanType == models.ScanTypeCustom {
		if len(customPaths) == 0 {
			return nil, fmt.Errorf("custom scan requires at least one path")
		}
		dirs = customPaths
	}

	var refs []FileRef
	for _, dir := range dirs {
		if len(refs) >= prof.maxFiles {
			break
		}

		base := filepath.Join(d.Root, filepath.Clean("/"+dir))
		if dir == "." {
			base = d.Root
		}

		err := filepath.WalkDir(base, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				logger.WithFields(map[string]interface{}{"path": path}).WithError(err).Debug("skipping unreadable entry")
				if entry != nil && entry.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if len(refs) >= prof.maxFiles {
				return fs.SkipAll
			}
			if entry.IsDir() || !entry.Type().IsRegular() {
				return nil
			}
			if !codeExtensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}

			info, err := entry.Info()
			if err != nil {
				logger.WithFields(map[string]interface{}{"path": path}).WithError(err).Debug("stat failed, skipping")
				return nil
			}
			if info.Size() > maxFileSize {
				return nil
			}

			rel, err := filepath.Rel(d.Root, path)
			if err != nil {
				rel = path
			}

			refs = append(refs, FileRef{
				Path:         path,
				RelativePath: rel,
				Size:         info.Size(),
				ModTime:      info.ModTime(),
			})
			return nil
		})
		if err != nil {
			if os.IsNotExist(err) {
				logger.WithFields(map[string]interface{}{"dir": base}).Debug("scan directory missing, skipping")
				continue
			}
			logger.WithFields(map[string]interface{}{"dir": base}).WithError(err).Warn("directory walk aborted")
		}
	}

	return refs, nil
}
