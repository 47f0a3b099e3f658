package lhm

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

func helperName() string {
	if runtime.GOOS == "windows" {
		return "LhmHelper.exe"
	}
	return "lhm-helper"
}

// findHelper returns configured when it resolves to an executable, otherwise
// the first helper found next to the working directory, next to the agent
// binary or in the install directory.
func findHelper(configured string) (string, error) {
	if configured != "" {
		path, err := exec.LookPath(configured)
		if err != nil {
			return "", fmt.Errorf("lhm helper %q not usable: %w", configured, err)
		}
		return path, nil
	}

	name := helperName()
	candidates := []string{
		name,
		filepath.Join(".", name),
		filepath.Join(".", "utils", name),
		filepath.Join(".", "utils", "lhm-helper", name),
	}

	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		candidates = append(candidates,
			filepath.Join(exeDir, name),
			filepath.Join(exeDir, "utils", name),
			filepath.Join(exeDir, "utils", "lhm-helper", name),
		)
	}

	if runtime.GOOS == "windows" {
		candidates = append(candidates,
			filepath.Join(`C:\Program Files\DeviceMonitor`, name),
			filepath.Join(`C:\Program Files\DeviceMonitor`, "utils", name),
		)
	} else {
		candidates = append(candidates, filepath.Join("/opt/devicemonitor", name))
	}

	for _, path := range candidates {
		if full, err := exec.LookPath(path); err == nil {
			return full, nil
		}
	}
	return "", fmt.Errorf("%s not found in any expected location", name)
}
