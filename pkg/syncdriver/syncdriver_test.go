package syncdriver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfig struct {
	remote  string
	hasRem  bool
	sshUser string
	hasUser bool
	sshPort string
	hasPort bool
	options []string
}

func (f fakeConfig) Remote() (string, bool, error)  { return f.remote, f.hasRem, nil }
func (f fakeConfig) SSHUser() (string, bool, error) { return f.sshUser, f.hasUser, nil }
func (f fakeConfig) SSHPort() (string, bool, error) { return f.sshPort, f.hasPort, nil }
func (f fakeConfig) Options() ([]string, error)     { return f.options, nil }

func TestSSHRshOptionEmpty(t *testing.T) {
	assert.Equal(t, "", sshRshOption(fakeConfig{}))
}

func TestSSHRshOptionUserAndPort(t *testing.T) {
	cfg := fakeConfig{sshUser: "deploy", hasUser: true, sshPort: "2222", hasPort: true}
	assert.Equal(t, "ssh -l deploy -p 2222", sshRshOption(cfg))
}

func TestSSHRshOptionUserOnly(t *testing.T) {
	cfg := fakeConfig{sshUser: "deploy", hasUser: true}
	assert.Equal(t, "ssh -l deploy", sshRshOption(cfg))
}

func TestRunRsyncRequiresRemote(t *testing.T) {
	err := runRsync(nil, fakeConfig{}, true, "/tmp/objects", nil)
	require.Error(t, err)
}
