// Package device enumerates locally attached block devices and disk
// images, so a user running zfinds can pick a <disk> argument without
// already knowing its path. Listing is best-effort: a platform whose
// enumeration command is missing or fails never aborts the program, it
// just yields an empty list for the caller to warn about.
package device

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// Device is a candidate pool device: a raw disk, partition, or image
// visible to the host OS.
type Device struct {
	Path       string
	Name       string
	Size       int64
	SizeHuman  string
	Filesystem string
	Mountpoint string
	Removable  bool
}

// List returns every block device the current platform can enumerate.
func List() ([]Device, error) {
	switch runtime.GOOS {
	case "darwin":
		return listDarwin()
	case "linux":
		return listLinux()
	case "windows":
		return listWindows()
	default:
		return nil, fmt.Errorf("device: unsupported platform %s", runtime.GOOS)
	}
}

func listDarwin() ([]Device, error) {
	cmd := exec.Command("diskutil", "list")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("device: run diskutil: %w", err)
	}

	var devices []Device
	scanner := bufio.NewScanner(bytes.NewReader(output))

	var currentDisk string
	for scanner.Scan() {
		line := scanner.Text()

		// Main disk line: /dev/disk0 (internal):
		if strings.HasPrefix(line, "/dev/disk") {
			if parts := strings.Fields(line); len(parts) >= 1 {
				currentDisk = strings.TrimSuffix(parts[0], ":")
			}
			continue
		}

		// Partition line:    1:    EFI EFI    209.7 MB   disk0s1
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, ":") || strings.HasPrefix(line, "#:") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 4 {
			continue
		}

		deviceID := ""
		for _, p := range parts {
			if strings.HasPrefix(p, "disk") {
				deviceID = p
				break
			}
		}
		if deviceID == "" {
			continue
		}

		var sizeStr string
		var sizeBytes int64
		for i, p := range parts {
			if i+1 >= len(parts) {
				continue
			}
			if unit := parts[i+1]; unit == "KB" || unit == "MB" || unit == "GB" || unit == "TB" || unit == "B" {
				sizeStr = p + " " + unit
				sizeBytes = parseSize(p, unit)
				break
			}
		}

		fsType := ""
		if len(parts) >= 3 {
			fsType = parts[1]
		}

		name := ""
		for i := 2; i < len(parts)-2; i++ {
			if name != "" {
				name += " "
			}
			name += parts[i]
		}
		if name == "" {
			name = deviceID
		}

		devices = append(devices, Device{
			Path:       "/dev/" + deviceID,
			Name:       name,
			Size:       sizeBytes,
			SizeHuman:  sizeStr,
			Filesystem: fsType,
			Removable:  !strings.Contains(currentDisk, "internal"),
		})
	}

	return devices, nil
}

func listLinux() ([]Device, error) {
	cmd := exec.Command("lsblk", "-b", "-o", "NAME,SIZE,FSTYPE,MOUNTPOINT,RM", "-n", "-l")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("device: run lsblk: %w", err)
	}

	var devices []Device
	scanner := bufio.NewScanner(bytes.NewReader(output))

	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}

		name := parts[0]
		sizeBytes, _ := strconv.ParseInt(parts[1], 10, 64)

		fsType := ""
		if len(parts) >= 3 {
			fsType = parts[2]
		}
		mountpoint := ""
		if len(parts) >= 4 {
			mountpoint = parts[3]
		}
		removable := len(parts) >= 5 && parts[4] == "1"

		devices = append(devices, Device{
			Path:       "/dev/" + name,
			Name:       name,
			Size:       sizeBytes,
			SizeHuman:  humanSize(sizeBytes),
			Filesystem: fsType,
			Mountpoint: mountpoint,
			Removable:  removable,
		})
	}

	return devices, nil
}

func listWindows() ([]Device, error) {
	cmd := exec.Command("powershell", "-Command",
		"Get-Disk | Select-Object Number,FriendlyName,Size,PartitionStyle | ConvertTo-Json")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("device: run Get-Disk: %w", err)
	}

	var devices []Device
	lines := strings.Split(string(output), "\n")
	for i, line := range lines {
		if !strings.Contains(line, "Number") {
			continue
		}

		fields := strings.SplitN(line, ":", 2)
		if len(fields) < 2 {
			continue
		}
		num, _ := strconv.Atoi(strings.Trim(strings.TrimSpace(fields[1]), ","))

		name := "Unknown"
		if i+1 < len(lines) && strings.Contains(lines[i+1], "FriendlyName") {
			if nf := strings.SplitN(lines[i+1], ":", 2); len(nf) == 2 {
				name = strings.Trim(strings.TrimSpace(nf[1]), `",`)
			}
		}

		devices = append(devices, Device{
			Path:      fmt.Sprintf(`\\.\PhysicalDrive%d`, num),
			Name:      name,
			SizeHuman: "unknown",
		})
	}

	return devices, nil
}

func parseSize(value, unit string) int64 {
	v, _ := strconv.ParseFloat(value, 64)
	switch unit {
	case "B":
		return int64(v)
	case "KB":
		return int64(v * 1024)
	case "MB":
		return int64(v * 1024 * 1024)
	case "GB":
		return int64(v * 1024 * 1024 * 1024)
	case "TB":
		return int64(v * 1024 * 1024 * 1024 * 1024)
	}
	return 0
}

func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatTable renders devices as a simple fixed-width table for the
// `zfinds devices` subcommand.
func FormatTable(devices []Device) string {
	if len(devices) == 0 {
		return "no devices found"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-12s %-10s %s\n", "PATH", "SIZE", "FSTYPE", "NAME")
	for _, d := range devices {
		size := d.SizeHuman
		if size == "" {
			size = humanSize(d.Size)
		}
		fmt.Fprintf(&b, "%-20s %-12s %-10s %s\n", d.Path, size, d.Filesystem, d.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}
