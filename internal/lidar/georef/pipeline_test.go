package georef

import (
	"bytes"
	"context"
	"io"
	"slices"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/georef/internal/lidar/lidarerr"
	"github.com/banshee-data/georef/internal/lidar/ply"
	"github.com/banshee-data/georef/internal/lidar/trajectory"
	"github.com/banshee-data/georef/internal/testutil"
	"github.com/banshee-data/georef/internal/timeutil"
)

func newPipeline(in testutil.Inputs) *Pipeline {
	return &Pipeline{
		FS:            in.FS,
		Clock:         timeutil.NewMockClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
		ProbeCount:  2,
		SampleEvery: 1,
	}
}

func defaultInputs() testutil.Inputs {
	return testutil.WriteInputs(
		testutil.PointFile(testutil.PointsAt(1, 2, 3, 4, 5)...),
		testutil.PoseFile(testutil.LinearPoses(0, 2, 4, 6)...),
	)
}

func decodeAll(t *testing.T, data []byte) []ply.CorrectedPoint {
	t.Helper()
	require.Zero(t, len(data)%ply.CorrectedPointSize, "output is not a whole number of records")
	var out []ply.CorrectedPoint
	for off := 0; off < len(data); off += ply.CorrectedPointSize {
		out = append(out, ply.DecodeCorrectedPoint(data[off:]))
	}
	return out
}

func TestPipeline_Run(t *testing.T) {
	captureLogs(t)
	in := defaultInputs()
	p := newPipeline(in)

	res, err := p.Run(context.Background(), Inputs{Points: in.Points, Poses: in.Poses, Output: "/out/corrected.bin"})
	require.NoError(t, err)

	data, err := in.FS.ReadFile("/out/corrected.bin")
	require.NoError(t, err)
	records := decodeAll(t, data)
	require.Len(t, records, 5)

	for i, cp := range records {
		ts := float64(i + 1)
		assert.Equal(t, ts, cp.Time)
		assert.Equal(t, ts, cp.X, "delta mode keeps the raw position")
		assert.Equal(t, 0.0, cp.NX)
		assert.Equal(t, -2*ts, cp.NY)
		assert.Equal(t, -3*ts, cp.NZ)
		assert.Equal(t, uint8(1), cp.ReturnNum)
	}

	assert.Equal(t, int64(5), res.Stats.Written)
	assert.Equal(t, xxhash.Sum64(data), res.Digest)
	assert.Equal(t, int64(len(data)), res.Bytes)
	assert.Equal(t, 5, res.Summary.Samples)
	assert.True(t, res.Consistency.OK())
	assert.True(t, res.Finished.After(res.Started) || res.Finished.Equal(res.Started))
	assert.False(t, in.FS.Exists("/out/corrected.bin.partial"))
}

func TestPipeline_Idempotent(t *testing.T) {
	captureLogs(t)
	in := defaultInputs()
	p := newPipeline(in)

	first, err := p.Run(context.Background(), Inputs{Points: in.Points, Poses: in.Poses, Output: "/a.bin"})
	require.NoError(t, err)
	second, err := p.Run(context.Background(), Inputs{Points: in.Points, Poses: in.Poses, Output: "/b.bin"})
	require.NoError(t, err)

	a, _ := in.FS.ReadFile("/a.bin")
	b, _ := in.FS.ReadFile("/b.bin")
	assert.True(t, bytes.Equal(a, b), "outputs differ")
	assert.Equal(t, first.Digest, second.Digest)
}

func TestPipeline_CoverageViolationWritesNothing(t *testing.T) {
	captureLogs(t)
	in := testutil.WriteInputs(
		testutil.PointFile(testutil.PointsAt(1, 2, 3, 4, 5)...),
		testutil.PoseFile(testutil.LinearPoses(0, 2, 4)...),
	)
	before := in.FS.Names()

	_, err := newPipeline(in).Run(context.Background(), Inputs{Points: in.Points, Poses: in.Poses, Output: "/out.bin"})
	require.ErrorIs(t, err, lidarerr.ErrCoverageViolation)

	after := in.FS.Names()
	slices.Sort(before)
	slices.Sort(after)
	assert.Equal(t, before, after, "no files may be created on a coverage failure")
}

func TestPipeline_TruncatedMidScanRemovesPartial(t *testing.T) {
	captureLogs(t)
	data := testutil.PointFileDeclaring(4, testutil.PointsAt(1, 2, 3, 4, 5)...)
	in := testutil.WriteInputs(data[:len(data)-20], testutil.PoseFile(testutil.LinearPoses(0, 2, 4, 6)...))

	res, err := newPipeline(in).Run(context.Background(), Inputs{Points: in.Points, Poses: in.Poses, Output: "/out.bin"})
	require.ErrorIs(t, err, lidarerr.ErrTruncatedRecord)
	assert.Equal(t, int64(4), lidarerr.IndexOf(err))
	assert.False(t, res.Consistency.OK())
	assert.False(t, in.FS.Exists("/out.bin"))
	assert.False(t, in.FS.Exists("/out.bin.partial"))
}

func TestPipeline_ZeroVertexCount(t *testing.T) {
	captureLogs(t)
	in := testutil.WriteInputs(
		testutil.PointFileDeclaring(0, testutil.PointsAt(1, 2)...),
		testutil.PoseFile(testutil.LinearPoses(0, 2)...),
	)

	_, err := newPipeline(in).Run(context.Background(), Inputs{Points: in.Points, Poses: in.Poses, Output: "/out.bin"})
	assert.Equal(t, lidarerr.KindMalformedHeader, lidarerr.KindOf(err))
}

func TestPipeline_HeaderAndCompression(t *testing.T) {
	captureLogs(t)
	in := defaultInputs()

	plain := newPipeline(in)
	_, err := plain.Run(context.Background(), Inputs{Points: in.Points, Poses: in.Poses, Output: "/plain.bin"})
	require.NoError(t, err)
	want, _ := in.FS.ReadFile("/plain.bin")

	for _, codec := range []string{ply.CodecNone, ply.CodecZstd, ply.CodecLZ4} {
		t.Run(codec, func(t *testing.T) {
			p := newPipeline(in)
			p.WriteHeader = true
			p.Compression = codec
			out := "/with-header.ply" + ply.FileExtension(codec)

			res, err := p.Run(context.Background(), Inputs{Points: in.Points, Poses: in.Poses, Output: out})
			require.NoError(t, err)
			assert.False(t, in.FS.Exists(out+bodySuffix))

			raw, err := in.FS.ReadFile(out)
			require.NoError(t, err)
			assert.Equal(t, xxhash.Sum64(raw), res.Digest)

			r, err := ply.NewDecompressor(bytes.NewReader(raw), codec)
			require.NoError(t, err)
			decoded, err := io.ReadAll(r)
			require.NoError(t, err)

			h, err := ply.ReadHeader(bytes.NewReader(decoded))
			require.NoError(t, err)
			assert.Equal(t, int64(5), h.VertexCount)
			assert.Equal(t, want, decoded[h.DataOffset:])
		})
	}
}

func TestPipeline_ZeroValueDefaults(t *testing.T) {
	captureLogs(t)
	// Numeric preamble lines that would break time ordering if loaded.
	poses := append([]byte("100 0 0 0 1 0 0 0\n200 0 0 0 1 0 0 0\n"),
		testutil.PoseFile(testutil.LinearPoses(0, 2, 4, 6)...)[len("# trajectory export\ntime x y z qw qx qy qz\n"):]...)
	in := testutil.WriteInputs(testutil.PointFile(testutil.PointsAt(1, 2, 3, 4, 5)...), poses)

	p := &Pipeline{FS: in.FS, Clock: timeutil.NewMockClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))}
	res, err := p.Run(context.Background(), Inputs{Points: in.Points, Poses: in.Poses, Output: "/out.bin"})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Poses.Series.Len(), "two leading lines skipped by default")
	assert.Equal(t, 0.0, res.Poses.Series.First().Time)
	assert.Empty(t, res.Poses.Skipped)
	assert.Equal(t, int64(5), res.Stats.Written)
	assert.Len(t, res.Samples, 1, "default stride keeps one sample in DefaultSampleEvery")

	p.PoseSkipLines = trajectory.Skip(0)
	_, err = p.Run(context.Background(), Inputs{Points: in.Points, Poses: in.Poses, Output: "/out2.bin"})
	assert.ErrorIs(t, err, lidarerr.ErrNonMonotonicInput, "preamble read as poses")
}

func TestPipeline_StopPolicyStillCommits(t *testing.T) {
	captureLogs(t)
	in := testutil.WriteInputs(
		testutil.PointFile(testutil.PointsAt(1, 2, 3, 4, 5)...),
		testutil.PoseFile(testutil.LinearPoses(0, 2, 4, 6)...),
	)
	p := newPipeline(in)
	p.Options = Options{NonMonotonic: MonotonicSkip, OutOfCoverage: CoverageStop}

	res, err := p.Run(context.Background(), Inputs{Points: in.Points, Poses: in.Poses, Output: "/out.bin"})
	require.NoError(t, err)
	assert.False(t, res.Stats.Stopped)
	assert.Equal(t, int64(5), res.Stats.Written)
}

func TestPipeline_Prepare(t *testing.T) {
	captureLogs(t)
	in := testutil.WriteInputs(
		testutil.PointFile(testutil.PointsAt(1, 2, 3)...),
		append(testutil.PoseFile(testutil.LinearPoses(0, 4)...), []byte("not a pose\n")...),
	)

	res, err := newPipeline(in).Prepare(context.Background(), Inputs{Points: in.Points, Poses: in.Poses})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Span.First)
	assert.Equal(t, 3.0, res.Span.Last)
	assert.Len(t, res.Poses.Skipped, 1)
	assert.Equal(t, 2, res.Poses.Series.Len())
}
