package ctrlembed

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tricked-dev/musicembed-spotify/playback"
)

func TestDecodeReportEncodingsAgree(t *testing.T) {
	t.Parallel()

	fromJSON, err := decodeReport([]byte(`{"title":"song","artist":"artist","thumbnail":"http://art","duration":{"at":30,"end":120}}`))
	require.NoError(t, err)

	fromDelimited, err := decodeReport([]byte("artist%song%http://art%120%30"))
	require.NoError(t, err)

	require.Equal(t, fromJSON, fromDelimited)
	require.Equal(t, playback.Interval{At: 30, End: 120}, fromJSON.Duration)
}

func TestDecodeReportVideoID(t *testing.T) {
	t.Parallel()

	report, err := decodeReport([]byte(`{"title":"song","artist":"artist","thumbnail":"","duration":{"at":0,"end":1},"videoId":"abc"}`))
	require.NoError(t, err)
	require.Equal(t, "abc", report.VideoID)
}

func TestDecodeReportToleratesBadInterval(t *testing.T) {
	t.Parallel()

	// producers sometimes report at > end, the engine deals with it
	report, err := decodeReport([]byte(`{"title":"song","artist":"artist","thumbnail":"","duration":{"at":500,"end":100}}`))
	require.NoError(t, err)
	require.Equal(t, playback.Interval{At: 500, End: 100}, report.Duration)
}
