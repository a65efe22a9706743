package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
)

const appName = "placeserve"

// PathResolver finds config and data files relative to the usual places: the working
// directory, the executable and the user config directory.
type PathResolver struct {
	executableDir string
	workDir       string
	homeDir       string
	configDir     string
}

// NewPathResolver creates a new path resolver that determines the executable location
func NewPathResolver() (*PathResolver, error) {
	execDir, err := GetExecutableDir()
	if err != nil {
		return nil, err
	}
	workDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executableDir: execDir,
		workDir:       workDir,
		homeDir:       homeDir,
		configDir:     getConfigDir(homeDir),
	}
	log.Debugf("PathResolver initialized: execDir=%s, workDir=%s, configDir=%s", execDir, workDir, pr.configDir)
	return pr, nil
}

// getConfigDir returns the appropriate config directory for the platform
func getConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, appName)
		}
		return filepath.Join(homeDir, ".config", appName)
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appName)
		}
		return filepath.Join(homeDir, "AppData", "Roaming", appName)
	default:
		return filepath.Join(homeDir, ".config", appName)
	}
}

// ConfigDir returns the config directory
func (pr *PathResolver) ConfigDir() string {
	return pr.configDir
}

// searchDirs lists the directories a relative data path is tried against, in order.
func (pr *PathResolver) searchDirs() []string {
	return []string{
		pr.workDir,
		pr.executableDir,
		filepath.Join(pr.executableDir, "data"),
		filepath.Join(pr.configDir, "data"),
	}
}

// ResolveDataFiles turns configured data paths into absolute file paths. A path may be
// a glob ("data/*.json.gz"); a relative path is tried against each search directory
// and the first directory that yields a match wins.
func (pr *PathResolver) ResolveDataFiles(paths []string) ([]string, error) {
	var resolved []string
	for _, p := range paths {
		matches := pr.resolve(p)
		if len(matches) == 0 {
			return nil, fmt.Errorf("data file %s: %w", p, os.ErrNotExist)
		}
		for _, m := range matches {
			if !slices.Contains(resolved, m) {
				resolved = append(resolved, m)
			}
		}
	}
	return resolved, nil
}

func (pr *PathResolver) resolve(p string) []string {
	candidates := []string{p}
	if !filepath.IsAbs(p) {
		candidates = candidates[:0]
		for _, dir := range pr.searchDirs() {
			candidates = append(candidates, filepath.Join(dir, p))
		}
	}

	for _, c := range candidates {
		matches := []string{c}
		if strings.ContainsAny(c, "*?[") {
			var err error
			if matches, err = filepath.Glob(c); err != nil {
				log.Debugf("Bad data path pattern %s: %v", c, err)
				return nil
			}
		}
		var files []string
		for _, m := range matches {
			if stat, err := os.Stat(m); err == nil && !stat.IsDir() {
				files = append(files, m)
			}
		}
		if len(files) > 0 {
			slices.Sort(files)
			log.Debugf("Resolved data path %s -> %v", p, files)
			return files
		}
		log.Debugf("Data path candidate not found: %s", c)
	}
	return nil
}

// GetRuntimeInfo returns debug information about the current runtime environment
func (pr *PathResolver) GetRuntimeInfo() map[string]string {
	info := map[string]string{
		"executable_dir": pr.executableDir,
		"current_dir":    pr.workDir,
		"home_dir":       pr.homeDir,
		"config_dir":     pr.configDir,
		"os":             runtime.GOOS,
		"arch":           runtime.GOARCH,
	}
	for _, envVar := range []string{"HOME", "XDG_CONFIG_HOME", "APPDATA"} {
		if value := os.Getenv(envVar); value != "" {
			info["env_"+strings.ToLower(envVar)] = value
		}
	}
	return info
}
