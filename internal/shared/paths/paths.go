package paths

import (
	"os"
	"path/filepath"
)

const dataDirEnv = "PRESENT_CALENDAR_DATA_DIR"

// GetDataDir はデータ保存先ディレクトリを返す
// PRESENT_CALENDAR_DATA_DIR が設定されていればそれを優先する
func GetDataDir() string {
	if dir := os.Getenv(dataDirEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".present-calendar"
	}
	return filepath.Join(home, ".present-calendar")
}

// GetDBPath returns the SQLite database file path.
func GetDBPath() string {
	return filepath.Join(GetDataDir(), "local.db")
}

// GetImagesDir returns the directory served under /images/.
func GetImagesDir() string {
	return filepath.Join(GetDataDir(), "images")
}

// EnsureDataDirs creates the data and images directories.
func EnsureDataDirs() error {
	for _, dir := range []string{GetDataDir(), GetImagesDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
