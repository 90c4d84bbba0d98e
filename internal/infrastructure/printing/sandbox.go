package printing

import (
	"os"
	"strings"
)

// Host exposes the process environment to sandbox detection
type Host struct {
	Getenv func(string) string
	Exists func(string) bool
	Euid   func() int
}

// SystemHost reads the real process environment
func SystemHost() Host {
	return Host{
		Getenv: os.Getenv,
		Exists: func(p string) bool {
			_, err := os.Stat(p)
			return err == nil
		},
		Euid: os.Geteuid,
	}
}

// NoSandbox decides whether Chrome must run with --no-sandbox.
// mode is "true", "false" or "auto"; auto disables the sandbox inside
// containers, serverless runtimes and when running as root. The second
// result names the signal that decided it.
func NoSandbox(mode string, host Host) (bool, string) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "true", "1", "yes":
		return true, "forced"
	case "false", "0", "no":
		return false, "forced"
	}

	if host.Exists != nil && host.Exists("/.dockerenv") {
		return true, "/.dockerenv"
	}
	if host.Getenv != nil {
		if v := host.Getenv("container"); v != "" {
			return true, "container=" + v
		}
		for _, key := range []string{"KUBERNETES_SERVICE_HOST", "AWS_LAMBDA_FUNCTION_NAME", "VERCEL", "CI"} {
			if host.Getenv(key) != "" {
				return true, key
			}
		}
	}
	if host.Euid != nil && host.Euid() == 0 {
		return true, "euid=0"
	}
	return false, "none"
}
