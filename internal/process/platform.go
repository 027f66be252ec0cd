package process

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/j-veylop/antigravity-switcher/internal/models"
)

// LaunchMode says how a platform starts the target app.
type LaunchMode int

const (
	// LaunchWait runs the launch command and checks its exit status.
	LaunchWait LaunchMode = iota
	// LaunchSpawn starts the command and reports success once it spawned.
	LaunchSpawn
	// LaunchSpawnOrLocate spawns from PATH and falls back to the first
	// standard location that exists.
	LaunchSpawnOrLocate
)

// Platform holds everything OS specific about controlling the target app.
type Platform struct {
	Match func(models.ProcessInfo) bool
	// Locations returns standard install paths, most preferred first.
	Locations   func(getenv func(string) string, home string) []string
	Name        string
	Quit        []string
	Kill        []string
	Launch      []string
	SettleDelay time.Duration
	LaunchMode  LaunchMode
}

// Linux matches the process name or executable basename exactly.
func Linux() Platform {
	return Platform{
		Name: "linux",
		Match: func(p models.ProcessInfo) bool {
			if strings.EqualFold(p.Name, "antigravity") {
				return true
			}
			return p.Exe != "" && strings.EqualFold(filepath.Base(p.Exe), "antigravity")
		},
		Quit:       []string{"pkill", "-TERM", "-x", "antigravity"},
		Kill:       []string{"pkill", "-9", "-x", "antigravity"},
		Launch:     []string{"antigravity"},
		LaunchMode: LaunchSpawnOrLocate,
		Locations: func(_ func(string) string, home string) []string {
			var paths []string
			if home != "" {
				paths = append(paths, filepath.Join(home, ".local", "bin", "antigravity"))
			}
			return append(paths,
				"/usr/bin/antigravity",
				"/opt/Antigravity/antigravity",
				"/usr/share/antigravity/antigravity",
			)
		},
	}
}

// Darwin matches on the bundle path; process names of Electron helpers are
// not reliable there.
func Darwin() Platform {
	return Platform{
		Name: "darwin",
		Match: func(p models.ProcessInfo) bool {
			return strings.Contains(strings.ToLower(p.Exe), "antigravity.app")
		},
		Quit:       []string{"osascript", "-e", `tell application "Antigravity" to quit`},
		Kill:       []string{"pkill", "-9", "Antigravity"},
		Launch:     []string{"open", "-a", "Antigravity"},
		LaunchMode: LaunchWait,
		Locations: func(_ func(string) string, home string) []string {
			paths := []string{"/Applications/Antigravity.app"}
			if home != "" {
				paths = append(paths, filepath.Join(home, "Applications", "Antigravity.app"))
			}
			return paths
		},
	}
}

// Windows matches the image name only. Helpers such as esbuild.exe live in
// the install directory too.
func Windows() Platform {
	return Platform{
		Name: "windows",
		Match: func(p models.ProcessInfo) bool {
			return strings.EqualFold(p.Name, "antigravity.exe")
		},
		Quit:        []string{"taskkill", "/F", "/IM", "Antigravity.exe"},
		Kill:        []string{"taskkill", "/F", "/IM", "Antigravity.exe"},
		SettleDelay: 200 * time.Millisecond,
		Launch:      []string{"cmd", "/C", "start", "antigravity://"},
		LaunchMode:  LaunchSpawn,
		Locations: func(getenv func(string) string, home string) []string {
			var paths []string
			local := getenv("LOCALAPPDATA")
			if local == "" && home != "" {
				local = filepath.Join(home, "AppData", "Local")
			}
			if local != "" {
				paths = append(paths, filepath.Join(local, "Programs", "Antigravity", "Antigravity.exe"))
			}

			programFiles := getenv("ProgramFiles")
			if programFiles == "" {
				programFiles = `C:\Program Files`
			}
			programFilesX86 := getenv("ProgramFiles(x86)")
			if programFilesX86 == "" {
				programFilesX86 = `C:\Program Files (x86)`
			}
			return append(paths,
				filepath.Join(programFiles, "Antigravity", "Antigravity.exe"),
				filepath.Join(programFilesX86, "Antigravity", "Antigravity.exe"),
			)
		},
	}
}
