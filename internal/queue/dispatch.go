package queue

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/ah-its-andy/webpconv/internal/converter"
	"github.com/ah-its-andy/webpconv/internal/result"
)

// BuildRequest assembles the conversion request from the selected entries in
// queue order, applying the batch override to each one.
func BuildRequest(entries []Entry, o BatchOverride, destination string) converter.Request {
	req := converter.Request{DestinationFolder: destination}
	for _, e := range entries {
		if !e.Selected {
			continue
		}
		f, q := o.Resolve(e)
		req.Files = append(req.Files, converter.File{
			SourcePath: e.SourcePath,
			Format:     f.String(),
			Quality:    int(q),
		})
	}
	return req
}

// Job is a dispatch that has entered the processing state but not yet called
// the converter. The session stays busy until Run returns.
type Job struct {
	session *Session
	req     converter.Request
	ran     atomic.Bool
}

// Begin validates the dispatch preconditions and moves the session into the
// processing state. The caller must Run the returned job.
func (s *Session) Begin(destination string) (*Job, error) {
	if destination == "" {
		return nil, ErrNoDestination
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateProcessing {
		return nil, ErrBusy
	}
	req := BuildRequest(s.entries, s.override, destination)
	if len(req.Files) == 0 {
		return nil, ErrNothingSelected
	}
	s.state = StateProcessing
	return &Job{session: s, req: req}, nil
}

// Request returns the request this job will submit.
func (j *Job) Request() converter.Request {
	req := j.req
	req.Files = append([]converter.File(nil), j.req.Files...)
	return req
}

func (j *Job) Requested() int { return len(j.req.Files) }

// Run makes exactly one conversion call and classifies its result. The call
// is not cancelled with ctx; a batch that started always reports back. The
// session leaves the processing state on every path out of Run.
func (j *Job) Run(ctx context.Context, conv converter.Converter) (result.Outcome, error) {
	if !j.ran.CompareAndSwap(false, true) {
		return result.Outcome{}, ErrJobDone
	}
	defer j.session.finish()

	requested := len(j.req.Files)
	start := time.Now()

	var (
		processed int
		err       error
	)
	if conv == nil {
		err = converter.ErrNoConverter
	} else {
		log.Printf("dispatching %d images to %s, converter=%s", requested, j.req.DestinationFolder, conv.Name())
		processed, err = conv.Convert(context.WithoutCancel(ctx), j.Request())
	}

	var outcome result.Outcome
	if err != nil {
		log.Printf("conversion call failed after %s: %v", time.Since(start), err)
		outcome = result.Outcome{Processed: 0, Requested: requested, Failed: true}
		err = fmt.Errorf("%w: %w", ErrConversionFailed, err)
	} else {
		if processed < 0 || processed > requested {
			log.Printf("converter reported %d of %d processed, clamping", processed, requested)
			processed = min(max(processed, 0), requested)
		}
		outcome = result.Outcome{Processed: processed, Requested: requested}
		log.Printf("conversion finished in %s: %s (%s)", time.Since(start), outcome.Message(), outcome.Status())
	}

	if j.session.board != nil {
		j.session.board.Show(outcome)
	}
	return outcome, err
}

func (s *Session) finish() {
	s.mu.Lock()
	s.state = StateIdle
	s.mu.Unlock()
}

// Dispatch begins and runs a conversion in one step.
func (s *Session) Dispatch(ctx context.Context, destination string, conv converter.Converter) (result.Outcome, error) {
	job, err := s.Begin(destination)
	if err != nil {
		return result.Outcome{}, err
	}
	return job.Run(ctx, conv)
}
