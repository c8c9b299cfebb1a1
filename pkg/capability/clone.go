package capability

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// CloneAgent copies the running executable, the persisted tool store
// directory, and the configuration file (when one is configured and present)
// into targetDir, producing a directory a second agent can run from.
//
// A failure partway through is returned as-is and is NOT rolled back:
// partial copies may be left on disk. Callers that care should clone into a
// fresh directory and discard it on error.
func (s *Set) CloneAgent(targetDir string) error {
	if targetDir == "" {
		return fmt.Errorf("target directory is required")
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}

	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	targetExe := filepath.Join(targetDir, filepath.Base(exePath))
	if err := copyFile(exePath, targetExe, 0755); err != nil {
		return fmt.Errorf("failed to copy executable: %w", err)
	}

	if s.storeDir != "" {
		targetStore := filepath.Join(targetDir, filepath.Base(s.storeDir))
		if err := copyDirRecursive(s.storeDir, targetStore); err != nil {
			return fmt.Errorf("failed to copy tool store: %w", err)
		}
	}

	if s.configPth != "" {
		if _, err := os.Stat(s.configPth); err == nil {
			targetCfg := filepath.Join(targetDir, filepath.Base(s.configPth))
			if err := copyFile(s.configPth, targetCfg, 0644); err != nil {
				return fmt.Errorf("failed to copy config: %w", err)
			}
		}
	}

	log.Info().Str("target", targetDir).Msg("Clone complete")
	return nil
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyDirRecursive(src, dst string) error {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyDirRecursive(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, dstPath, 0644); err != nil {
			return err
		}
	}
	return nil
}
