// Package browser hands URLs to the desktop's default handler.
package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// Command builds the process that opens rawURL on goos. Only http and
// https URLs are accepted.
func Command(goos, rawURL string) (*exec.Cmd, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("browser: refusing to open %q", rawURL)
	}
	switch goos {
	case "darwin":
		return exec.Command("open", rawURL), nil
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", rawURL), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL), nil
	}
	return nil, fmt.Errorf("browser: unsupported OS: %s", goos)
}

// Open opens rawURL in the user's default browser without waiting for it.
func Open(rawURL string) error {
	cmd, err := Command(runtime.GOOS, rawURL)
	if err != nil {
		return err
	}
	return cmd.Start()
}
