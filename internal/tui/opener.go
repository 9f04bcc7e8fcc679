package tui

import (
	"fmt"
	"io"
	"net/url"
	"os/exec"
	"strings"

	"github.com/pkg/browser"
)

// URLOpener hands an evidence link to something that can display it.
type URLOpener func(link string) error

// BrowserOpener returns an opener for evidence links. A configured command is
// run with the link appended; otherwise the platform's default handler opens
// it.
func BrowserOpener(command string) URLOpener {
	name, args := browserCommand(command)
	if name == "" {
		return openWithDefault
	}
	return func(link string) error {
		cmd := exec.Command(name, append(append([]string(nil), args...), link)...)
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("open %s: %w", link, err)
		}
		go func() { _ = cmd.Wait() }()
		return nil
	}
}

// openWithDefault keeps the handler's output off the terminal the TUI owns.
func openWithDefault(link string) error {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	if err := browser.OpenURL(link); err != nil {
		return fmt.Errorf("open %s: %w", link, err)
	}
	return nil
}

func browserCommand(command string) (string, []string) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

// evidenceDomain extracts the host of link for display, or "" if link does not
// look like a URL.
func evidenceDomain(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	parsed, err := url.Parse(link)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}

func openableURL(link string) bool {
	parsed, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
