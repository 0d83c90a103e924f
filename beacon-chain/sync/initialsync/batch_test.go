package initialsync

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prysmaticlabs/beacon-core/config/params"
)

func TestBatch_DownloadErrorCap(t *testing.T) {
	b := NewBatch(0, 64)
	n := int(params.BeaconConfig().MaxBatchDownloadAttempts)

	var err error
	for i := 0; i < n; i++ {
		require.NoError(t, b.StartDownloading("peer1"))
		err = b.DownloadingError()
		require.NoError(t, err)
		require.Equal(t, StateAwaitingDownload, b.State())
	}

	require.NoError(t, b.StartDownloading("peer1"))
	err = b.DownloadingError()
	require.Error(t, err)
	var be *BatchError
	require.ErrorAs(t, err, &be)
	require.Equal(t, ErrKindMaxDownloadAttempts, be.Kind)
	require.Equal(t, StateFailed, b.State())
}

func TestBatch_FullHappyPath(t *testing.T) {
	b := NewBatch(0, 32)
	require.NoError(t, b.StartDownloading("peer1"))
	require.NoError(t, b.DownloadingSuccess("peer1", nil, true))
	require.Equal(t, StateAwaitingProcessing, b.State())

	require.NoError(t, b.StartProcessing([32]byte{1}))
	require.Equal(t, StateProcessing, b.State())

	require.NoError(t, b.ProcessingSuccess())
	require.Equal(t, StateAwaitingValidation, b.State())

	require.NoError(t, b.ValidationSuccess())
	require.Equal(t, StateDone, b.State())
	require.False(t, b.Validated(), "a batch is not validated until the next batch also imports a block")

	b.NotifyNextBatchImported(true)
	require.True(t, b.Validated())
}

func TestBatch_IllegalTransitionReturnsWrongStatus(t *testing.T) {
	b := NewBatch(0, 32)

	err := b.ProcessingSuccess()
	require.Error(t, err)
	var be *BatchError
	require.ErrorAs(t, err, &be)
	require.Equal(t, ErrKindWrongStatus, be.Kind)
	require.Equal(t, StateProcessing, be.Wanted)
	require.Equal(t, StateAwaitingDownload, be.Got)
}

func TestBatch_EmptyBatchSpoofingDefended(t *testing.T) {
	b := NewBatch(0, 32)
	require.NoError(t, b.StartDownloading("peer1"))
	require.NoError(t, b.DownloadingSuccess("peer1", nil, true))
	require.NoError(t, b.StartProcessing([32]byte{}))
	require.NoError(t, b.ProcessingSuccess())
	require.NoError(t, b.ValidationSuccess())

	b.NotifyNextBatchImported(false)
	require.False(t, b.Validated(), "next batch importing zero valid blocks must not validate this one")
}
