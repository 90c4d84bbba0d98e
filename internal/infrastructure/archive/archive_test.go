package archive

import (
	"context"
	"testing"

	"github.com/arvi/quotation/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	a, err := New(context.Background(), config.ArchiveConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "none", a.Backend())

	res, err := a.Archive(context.Background(), Entry{})
	require.NoError(t, err)
	assert.NotNil(t, res)

	fsArchiver, err := New(context.Background(), config.ArchiveConfig{Backend: "filesystem", Dir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "filesystem", fsArchiver.Backend())

	_, err = New(context.Background(), config.ArchiveConfig{Backend: "ftp"}, zap.NewNop())
	require.Error(t, err)

	_, err = New(context.Background(), config.ArchiveConfig{Backend: "s3"}, zap.NewNop())
	require.Error(t, err, "s3 without a bucket is rejected before any network call")
}
