package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	original := version
	t.Cleanup(func() { version = original })

	for _, v := range []string{"dev", "1.4.0"} {
		SetVersion(v)
		out, _, err := runCmd(t, "", "version")
		require.NoError(t, err)
		assert.Equal(t, "mlsq version "+v+"\n", out)
	}
}

func TestVersionCmd_NeedsNoServices(t *testing.T) {
	savedAdapter, savedProfiles, savedBuild := adapterService, profileService, buildServices
	t.Cleanup(func() { adapterService, profileService, buildServices = savedAdapter, savedProfiles, savedBuild })
	adapterService, profileService, buildServices = nil, nil, nil

	_, _, err := runCmd(t, "", "version")

	assert.NoError(t, err)
}
