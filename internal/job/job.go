// Package job tracks the transcription job dispatched for each conversation
// during a run. Jobs are transient: they live in a run-scoped repository and
// are never persisted across process restarts.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/maauso/clawhark/internal/job/id"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusSubmitted indicates the audio was handed to the provider.
	StatusSubmitted Status = "SUBMITTED"
	// StatusPolling indicates an asynchronous backend job is being polled.
	StatusPolling Status = "POLLING"
	// StatusCompleted indicates the provider returned a transcript.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the provider or the merge step failed.
	StatusFailed Status = "FAILED"
	// StatusTimedOut indicates the backend job never finished within the poll ceiling.
	StatusTimedOut Status = "TIMED_OUT"
	// StatusCancelled indicates the run was cancelled while the job was in flight.
	StatusCancelled Status = "CANCELLED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusSubmitted: {StatusPolling, StatusCompleted, StatusFailed, StatusTimedOut, StatusCancelled},
	StatusPolling:   {StatusCompleted, StatusFailed, StatusTimedOut, StatusCancelled},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusTimedOut:  {},
	StatusCancelled: {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Job is the transcription job for one conversation.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Index is the 1-based conversation number within the run.
	Index int
	// AudioPath is the merged conversation audio sent to the provider.
	AudioPath string
	// ChunkCount is the number of chunks merged into AudioPath.
	ChunkCount int
	// Provider is the name of the provider handling the job.
	Provider string
	// RemoteID is the backend's job identifier, when it has one.
	RemoteID string
	// Status is the current job state.
	Status Status
	// Polls is the number of status polls made so far.
	Polls int
	// Error contains the error message if the job did not complete.
	Error string
	// CreatedAt is when the job was submitted.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// CompletedAt is when the job reached a terminal state.
	CompletedAt time.Time
}

// New creates a new Job in SUBMITTED status with a generated ID.
func New(index int, audioPath, provider string) *Job {
	return NewWithID(id.Generate("job"), index, audioPath, provider)
}

// NewWithID creates a new Job with the specified ID.
// Useful for testing or when the ID needs to be externally generated.
func NewWithID(jobID string, index int, audioPath, provider string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Index:     index,
		AudioPath: audioPath,
		Provider:  provider,
		Status:    StatusSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(status)
}

func (j *Job) transitionLocked(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()
	if j.isTerminalLocked() {
		j.CompletedAt = j.UpdatedAt
	}
	return nil
}

// RecordPoll notes one status poll of the backend job remoteID, moving the
// job to POLLING on the first poll.
func (j *Job) RecordPoll(remoteID string, poll int) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Status == StatusSubmitted {
		if err := j.transitionLocked(StatusPolling); err != nil {
			return err
		}
	} else if j.Status != StatusPolling {
		return ErrInvalidTransition
	}

	j.RemoteID = remoteID
	j.Polls = poll
	j.UpdatedAt = time.Now()
	return nil
}

// SetRemoteID records the backend's job identifier.
func (j *Job) SetRemoteID(remoteID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.RemoteID = remoteID
	j.UpdatedAt = time.Now()
}

// Complete transitions the job to COMPLETED state.
func (j *Job) Complete() error {
	return j.TransitionTo(StatusCompleted)
}

// Fail transitions the job to FAILED state with an error message.
func (j *Job) Fail(errMsg string) error {
	return j.finish(StatusFailed, errMsg)
}

// Timeout transitions the job to TIMED_OUT state with an error message.
func (j *Job) Timeout(errMsg string) error {
	return j.finish(StatusTimedOut, errMsg)
}

// Cancel transitions the job to CANCELLED state.
func (j *Job) Cancel() error {
	return j.finish(StatusCancelled, "cancelled")
}

func (j *Job) finish(status Status, errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(status); err != nil {
		return err
	}
	j.Error = errMsg
	return nil
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.isTerminalLocked()
}

func (j *Job) isTerminalLocked() bool {
	return len(validTransitions[j.Status]) == 0
}

// Clone creates a copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:          j.ID,
		Index:       j.Index,
		AudioPath:   j.AudioPath,
		ChunkCount:  j.ChunkCount,
		Provider:    j.Provider,
		RemoteID:    j.RemoteID,
		Status:      j.Status,
		Polls:       j.Polls,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		CompletedAt: j.CompletedAt,
	}
}
