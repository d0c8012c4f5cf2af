package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Paths lists the files one shopfloor install reads and writes. The TOML config and the
// .env secrets sit in the per-user config dir; the database, the user store, scheduled
// backups and dev logs sit in the per-user data dir.
type Paths struct {
	ConfigPath string
	EnvPath    string
	DataDir    string
	DBPath     string
	UsersPath  string
	BackupDir  string
	LogDir     string
}

// defaultAppName names the install directories when Options leaves it blank.
const defaultAppName = "shopfloor"

// Options selects which install to resolve.
type Options struct {
	AppName string
	// DevMode resolves a separate "<app>-dev" install so local runs never touch shop data.
	DevMode bool
}

// baseDirEnv names the variables that relocate the config and data bases on each GOOS.
// Platforms not listed keep the directories the os package reports.
var baseDirEnv = map[string]struct{ config, data string }{
	"linux":   {config: "XDG_CONFIG_HOME", data: "XDG_DATA_HOME"},
	"windows": {config: "APPDATA", data: "LOCALAPPDATA"},
}

// DefaultPaths resolves the production install for the current user.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: defaultAppName})
}

// DefaultPathsWithOptions resolves the install selected by opts for the current user.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	dataDir, err := dataHome(configDir)
	if err != nil {
		return Paths{}, err
	}
	env := map[string]string{}
	if names, ok := baseDirEnv[runtime.GOOS]; ok {
		env[names.config] = os.Getenv(names.config)
		env[names.data] = os.Getenv(names.data)
	}
	return PathsFor(runtime.GOOS, env, configDir, dataDir, installName(opts))
}

// installName returns the directory and database stem for opts.
func installName(opts Options) string {
	name := strings.TrimSpace(opts.AppName)
	if name == "" {
		name = defaultAppName
	}
	if opts.DevMode {
		name += "-dev"
	}
	return name
}

// dataHome returns the base for the database and backups. The os package has no data-dir
// lookup, so linux uses ~/.local/share and windows uses LOCALAPPDATA when set.
func dataHome(configDir string) (string, error) {
	switch runtime.GOOS {
	case "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("user home dir: %w", err)
		}
		return filepath.Join(home, ".local", "share"), nil
	case "windows":
		if v := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); v != "" {
			return v, nil
		}
	}
	return configDir, nil
}

// PathsFor lays out an install under explicit base dirs. Non-blank env values named in
// baseDirEnv for goos replace the matching base.
func PathsFor(goos string, env map[string]string, userConfigDir, userDataDir, appName string) (Paths, error) {
	if userConfigDir == "" || userDataDir == "" {
		return Paths{}, fmt.Errorf("empty base dirs")
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, fmt.Errorf("empty app name")
	}

	configBase, dataBase := userConfigDir, userDataDir
	if names, ok := baseDirEnv[goos]; ok {
		if v := strings.TrimSpace(env[names.config]); v != "" {
			configBase = v
		}
		if v := strings.TrimSpace(env[names.data]); v != "" {
			dataBase = v
		}
	}
	return layout(filepath.Join(configBase, appName), filepath.Join(dataBase, appName), appName), nil
}

// layout places each shopfloor file inside the install's config and data dirs.
func layout(configDir, dataDir, appName string) Paths {
	return Paths{
		ConfigPath: filepath.Join(configDir, "config.toml"),
		EnvPath:    filepath.Join(configDir, ".env"),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, appName+".db"),
		UsersPath:  filepath.Join(dataDir, "users.json"),
		BackupDir:  filepath.Join(dataDir, "backups"),
		LogDir:     filepath.Join(dataDir, "logs"),
	}
}
