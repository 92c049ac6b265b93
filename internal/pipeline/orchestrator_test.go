package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediavault/internal/models"
	"mediavault/internal/scan"
)

type fakeJobStore struct {
	pending    []models.MediaJob
	pendingErr error
	completed  [][]string
	markErr    error
}

func (f *fakeJobStore) GetPendingJobs(ctx context.Context) ([]models.MediaJob, error) {
	return f.pending, f.pendingErr
}

func (f *fakeJobStore) MarkComplete(ctx context.Context, ids []string) error {
	f.completed = append(f.completed, ids)
	return f.markErr
}

type fakeMediaStore struct {
	items []models.MediaItem
	err   error
}

func (f *fakeMediaStore) CreateMediaItem(ctx context.Context, item models.MediaItem) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.items = append(f.items, item)
	return item.JobID + "-media", nil
}

type fakeModerationStore struct {
	hashes      []models.BlockedHash
	restricted  []string
	hashErr     error
	restrictErr error
}

func (f *fakeModerationStore) AddBlockedHash(ctx context.Context, blocked models.BlockedHash) error {
	if f.hashErr != nil {
		return f.hashErr
	}
	f.hashes = append(f.hashes, blocked)
	return nil
}

func (f *fakeModerationStore) RestrictUser(ctx context.Context, userID string) error {
	if f.restrictErr != nil {
		return f.restrictErr
	}
	f.restricted = append(f.restricted, userID)
	return nil
}

type fakeAuditLog struct {
	events []models.AuditEvent
	err    error
}

func (f *fakeAuditLog) Append(ctx context.Context, event models.AuditEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAuditLog) byType(eventType string) []models.AuditEvent {
	var out []models.AuditEvent
	for _, e := range f.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type moveCall struct {
	fromBucket, fromKey, toBucket, toKey string
}

type fakeMover struct {
	moves    []moveCall
	failKeys map[string]error
}

func (f *fakeMover) Move(ctx context.Context, fromBucket, fromKey, toBucket, toKey string) error {
	if err, ok := f.failKeys[fromKey]; ok {
		return err
	}
	f.moves = append(f.moves, moveCall{fromBucket, fromKey, toBucket, toKey})
	return nil
}

type fakeBackend struct {
	verdicts  []scan.Verdict
	err       error
	failFirst int
	calls     int
}

func (f *fakeBackend) Scan(ctx context.Context, class models.MediaClass, jobs []scan.Job) ([]scan.Verdict, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls <= f.failFirst {
		return nil, errors.New("transient backend failure")
	}
	return f.verdicts, nil
}

type orchestratorFixture struct {
	jobs       *fakeJobStore
	media      *fakeMediaStore
	moderation *fakeModerationStore
	audit      *fakeAuditLog
	mover      *fakeMover
	vision     *fakeBackend
	remote     *fakeBackend
	orch       *Orchestrator
}

func testLayout() BucketLayout {
	return BucketLayout{
		Staging:    "staging",
		Quarantine: "quarantine",
		Default:    "media",
		ByCategory: map[string]string{
			"avatar": "profile",
			"post":   "content",
		},
	}
}

func newFixture() *orchestratorFixture {
	f := &orchestratorFixture{
		jobs:       &fakeJobStore{},
		media:      &fakeMediaStore{},
		moderation: &fakeModerationStore{},
		audit:      &fakeAuditLog{},
		mover:      &fakeMover{},
		vision:     &fakeBackend{},
		remote:     &fakeBackend{},
	}
	f.orch = NewOrchestrator(OrchestratorParams{
		Jobs:          f.jobs,
		Media:         f.media,
		Moderation:    f.moderation,
		Audit:         f.audit,
		Mover:         f.mover,
		Vision:        f.vision,
		Remote:        f.remote,
		Layout:        testLayout(),
		SmallBatchMax: 4,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
		Log:           zerolog.Nop(),
	})
	return f
}

func pendingJob(id, linkedToType string) models.MediaJob {
	return models.MediaJob{
		ID:           id,
		UserID:       "user-" + id,
		FileName:     "2026/08/24/" + id + ".jpg",
		FileSize:     1024,
		SHA256Hash:   "hash-" + id,
		MimeType:     "image/jpeg",
		LinkedToID:   "target-1",
		LinkedToType: linkedToType,
		URL:          "https://signed/" + id,
		Status:       models.JobStatusPending,
	}
}

func safeVerdict(jobID string) scan.Verdict {
	safe := false
	return scan.Verdict{JobID: jobID, IsNSFW: &safe, Width: 640, Height: 480}
}

func nsfwVerdict(jobID string) scan.Verdict {
	unsafe := true
	return scan.Verdict{JobID: jobID, IsNSFW: &unsafe}
}

func TestScanBatchMixedVerdicts(t *testing.T) {
	f := newFixture()
	jobs := []models.MediaJob{pendingJob("a", "post"), pendingJob("b", ""), pendingJob("c", "avatar")}
	f.vision.verdicts = []scan.Verdict{safeVerdict("a"), safeVerdict("b"), nsfwVerdict("c")}

	f.orch.ScanBatch(context.Background(), models.ClassImages, jobs)

	assert.Equal(t, 1, f.vision.calls, "small image batch uses the per-image backend")
	assert.Equal(t, 0, f.remote.calls)

	// Two commit moves plus one quarantine move.
	require.Len(t, f.mover.moves, 3)
	assert.Equal(t, moveCall{"staging", jobs[0].FileName, "content", "post/" + jobs[0].FileName}, f.mover.moves[0])
	assert.Equal(t, moveCall{"staging", jobs[1].FileName, "media", jobs[1].FileName}, f.mover.moves[1])
	assert.Equal(t, moveCall{"staging", jobs[2].FileName, "quarantine", jobs[2].FileName}, f.mover.moves[2])

	require.Len(t, f.media.items, 2)
	assert.Equal(t, models.ModerationStatusApproved, f.media.items[0].ModerationStatus)
	assert.Equal(t, 640, f.media.items[0].Width)

	require.Len(t, f.moderation.hashes, 1)
	assert.Equal(t, "hash-c", f.moderation.hashes[0].HashValue)
	assert.Equal(t, []string{"user-c"}, f.moderation.restricted)

	require.Len(t, f.jobs.completed, 1)
	assert.Equal(t, []string{"a", "b", "c"}, f.jobs.completed[0])

	assert.Len(t, f.audit.byType("unsafe_content"), 1)
	assert.Len(t, f.audit.byType("batch_summary"), 1)
}

func TestScanBatchWholeBatchFailure(t *testing.T) {
	f := newFixture()
	var jobs []models.MediaJob
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		jobs = append(jobs, pendingJob(id, ""))
	}
	f.remote.err = errors.New("backend down")

	f.orch.ScanBatch(context.Background(), models.ClassImages, jobs)

	assert.Equal(t, 3, f.remote.calls, "retries exhausted")
	assert.Empty(t, f.mover.moves)
	assert.Empty(t, f.media.items)
	assert.Empty(t, f.moderation.hashes)
	assert.Empty(t, f.jobs.completed, "no completion marking after a whole-batch failure")
	assert.Len(t, f.audit.byType("batch_failure"), 1)
}

func TestScanBatchRetryThenSuccess(t *testing.T) {
	f := newFixture()
	jobs := []models.MediaJob{pendingJob("a", "")}
	f.vision.failFirst = 2
	f.vision.verdicts = []scan.Verdict{safeVerdict("a")}

	f.orch.ScanBatch(context.Background(), models.ClassImages, jobs)

	assert.Equal(t, 3, f.vision.calls)
	require.Len(t, f.jobs.completed, 1)
	assert.Equal(t, []string{"a"}, f.jobs.completed[0])
}

func TestScanBatchLargeImageBatchUsesRemote(t *testing.T) {
	f := newFixture()
	var jobs []models.MediaJob
	var verdicts []scan.Verdict
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		jobs = append(jobs, pendingJob(id, ""))
		verdicts = append(verdicts, safeVerdict(id))
	}
	f.remote.verdicts = verdicts

	f.orch.ScanBatch(context.Background(), models.ClassImages, jobs)

	assert.Equal(t, 1, f.remote.calls)
	assert.Equal(t, 0, f.vision.calls)
}

func TestScanBatchRejectsUnknownClass(t *testing.T) {
	f := newFixture()
	jobs := []models.MediaJob{pendingJob("a", "")}

	f.orch.ScanBatch(context.Background(), models.MediaClass("audio"), jobs)

	assert.Equal(t, 0, f.vision.calls)
	assert.Equal(t, 0, f.remote.calls)
	assert.Empty(t, f.jobs.completed)
	assert.Len(t, f.audit.byType("invalid_class"), 1)
}

func TestScanBatchSkipsJobWithoutVerdict(t *testing.T) {
	f := newFixture()
	jobs := []models.MediaJob{pendingJob("a", ""), pendingJob("b", "")}
	f.vision.verdicts = []scan.Verdict{safeVerdict("a"), {JobID: "b", Error: "decode failed"}}

	f.orch.ScanBatch(context.Background(), models.ClassImages, jobs)

	require.Len(t, f.jobs.completed, 1)
	assert.Equal(t, []string{"a"}, f.jobs.completed[0])
	assert.Len(t, f.mover.moves, 1, "no destructive action for the verdict-less job")

	missing := f.audit.byType("missing_verdict")
	require.Len(t, missing, 1)
	assert.Equal(t, "b", missing[0].JobID)
}

func TestCommitMoveFailureAbortsJob(t *testing.T) {
	f := newFixture()
	jobs := []models.MediaJob{pendingJob("a", "")}
	f.vision.verdicts = []scan.Verdict{safeVerdict("a")}
	f.mover.failKeys = map[string]error{jobs[0].FileName: errors.New("copy failed")}

	f.orch.ScanBatch(context.Background(), models.ClassImages, jobs)

	assert.Empty(t, f.media.items, "no metadata record for an unmoved object")
	require.Len(t, f.jobs.completed, 1)
	assert.Empty(t, f.jobs.completed[0])
}

func TestMetadataFailureAbortsJobAfterMove(t *testing.T) {
	f := newFixture()
	jobs := []models.MediaJob{pendingJob("a", "")}
	f.vision.verdicts = []scan.Verdict{safeVerdict("a")}
	f.media.err = errors.New("insert failed")

	f.orch.ScanBatch(context.Background(), models.ClassImages, jobs)

	assert.Len(t, f.mover.moves, 1, "object was moved before the write failed")
	require.Len(t, f.jobs.completed, 1)
	assert.Empty(t, f.jobs.completed[0], "job excluded from completion")
}

func TestQuarantineSubStepsAreBestEffort(t *testing.T) {
	f := newFixture()
	jobs := []models.MediaJob{pendingJob("a", "")}
	f.vision.verdicts = []scan.Verdict{nsfwVerdict("a")}
	f.moderation.hashErr = errors.New("blocklist down")
	f.moderation.restrictErr = errors.New("restrictions down")
	f.mover.failKeys = map[string]error{jobs[0].FileName: errors.New("move failed")}

	f.orch.ScanBatch(context.Background(), models.ClassImages, jobs)

	// The denial is recorded in the audit log even when every other
	// quarantine sub-step fails, and the job still completes.
	assert.Len(t, f.audit.byType("unsafe_content"), 1)
	require.Len(t, f.jobs.completed, 1)
	assert.Equal(t, []string{"a"}, f.jobs.completed[0])
	assert.Empty(t, f.media.items, "unsafe content never reaches the media store")
}

func TestDuplicateVerdictFirstWins(t *testing.T) {
	f := newFixture()
	jobs := []models.MediaJob{pendingJob("a", "")}
	f.vision.verdicts = []scan.Verdict{safeVerdict("a"), nsfwVerdict("a")}

	f.orch.ScanBatch(context.Background(), models.ClassImages, jobs)

	assert.Len(t, f.media.items, 1)
	assert.Empty(t, f.moderation.hashes)
}

func TestMarkCompleteFailureDoesNotPanic(t *testing.T) {
	f := newFixture()
	jobs := []models.MediaJob{pendingJob("a", "")}
	f.vision.verdicts = []scan.Verdict{safeVerdict("a")}
	f.jobs.markErr = errors.New("db down")

	f.orch.ScanBatch(context.Background(), models.ClassImages, jobs)

	// Side effects already applied are kept; completion marking is
	// idempotent and retried by the stale sweep.
	assert.Len(t, f.media.items, 1)
	assert.Len(t, f.audit.byType("batch_summary"), 1)
}
