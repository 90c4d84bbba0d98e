package printing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fakeHost(env map[string]string, files []string, euid int) Host {
	return Host{
		Getenv: func(k string) string { return env[k] },
		Exists: func(p string) bool {
			for _, f := range files {
				if f == p {
					return true
				}
			}
			return false
		},
		Euid: func() int { return euid },
	}
}

func TestNoSandbox(t *testing.T) {
	tests := []struct {
		name   string
		mode   string
		host   Host
		want   bool
		reason string
	}{
		{"forced on", "true", fakeHost(nil, nil, 1000), true, "forced"},
		{"forced off in container", "false", fakeHost(nil, []string{"/.dockerenv"}, 0), false, "forced"},
		{"docker", "auto", fakeHost(nil, []string{"/.dockerenv"}, 1000), true, "/.dockerenv"},
		{"podman", "auto", fakeHost(map[string]string{"container": "podman"}, nil, 1000), true, "container=podman"},
		{"kubernetes", "auto", fakeHost(map[string]string{"KUBERNETES_SERVICE_HOST": "10.0.0.1"}, nil, 1000), true, "KUBERNETES_SERVICE_HOST"},
		{"lambda", "", fakeHost(map[string]string{"AWS_LAMBDA_FUNCTION_NAME": "render"}, nil, 1000), true, "AWS_LAMBDA_FUNCTION_NAME"},
		{"vercel", "auto", fakeHost(map[string]string{"VERCEL": "1"}, nil, 1000), true, "VERCEL"},
		{"root", "auto", fakeHost(nil, nil, 0), true, "euid=0"},
		{"desktop", "auto", fakeHost(nil, nil, 1000), false, "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := NoSandbox(tt.mode, tt.host)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.reason, reason)
		})
	}
}
