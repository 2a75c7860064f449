// Package validator cross-checks two delayed fetches before the data is trusted.
package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/rigwild/raspberry-instock-check/internal/models"
)

var (
	// ErrMismatch is returned when both fetches succeeded but disagree.
	ErrMismatch = errors.New("fetched payloads disagree")
	// ErrPartialFetch is returned when exactly one of the two fetches failed.
	ErrPartialFetch = errors.New("one of the two fetches failed")
	// ErrFetchFailed is returned when both fetches failed.
	ErrFetchFailed = errors.New("both fetches failed")
)

// Fetcher retrieves the current listing set from upstream.
type Fetcher interface {
	Fetch(ctx context.Context) (*models.Payload, error)
}

// MismatchRecorder keeps disagreeing payloads for later inspection.
type MismatchRecorder interface {
	SaveMismatch(ctx context.Context, payloadA, payloadB []byte) (string, error)
}

// Validator issues two fetches separated by a delay and accepts the data only if they agree.
type Validator struct {
	log      *slog.Logger
	fetcher  Fetcher
	recorder MismatchRecorder
	delay    time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewValidator creates a new Validator. A nil recorder disables diagnostics.
func NewValidator(log *slog.Logger, fetcher Fetcher, recorder MismatchRecorder, delay time.Duration) *Validator {
	return &Validator{log: log, fetcher: fetcher, recorder: recorder, delay: delay, sleep: sleepContext}
}

type fetchResult struct {
	payload *models.Payload
	err     error
}

// Validate runs the double fetch. Fetch A starts immediately, fetch B after the delay;
// both are awaited before returning.
func (v *Validator) Validate(ctx context.Context) (*models.Payload, error) {
	const opn = "validator.Validate"
	log := v.log.With("op", opn)

	first := make(chan fetchResult, 1)
	go func() {
		payload, err := v.fetcher.Fetch(ctx)
		first <- fetchResult{payload: payload, err: err}
	}()

	if err := v.sleep(ctx, v.delay); err != nil {
		return nil, fmt.Errorf("%s: interrupted between fetches: %w", opn, err)
	}

	payloadB, errB := v.fetcher.Fetch(ctx)
	resA := <-first

	switch {
	case resA.err != nil && errB != nil:
		return nil, fmt.Errorf("%s: %w: %w", opn, ErrFetchFailed, errors.Join(resA.err, errB))
	case resA.err != nil:
		return nil, fmt.Errorf("%s: %w: first: %w", opn, ErrPartialFetch, resA.err)
	case errB != nil:
		return nil, fmt.Errorf("%s: %w: second: %w", opn, ErrPartialFetch, errB)
	}

	equal, err := Equivalent(resA.payload.Items, payloadB.Items)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to compare payloads: %w", opn, err)
	}
	if !equal {
		id := v.recordMismatch(ctx, log, resA.payload.Raw, payloadB.Raw)
		return nil, fmt.Errorf("%s: %w (diagnostic %q)", opn, ErrMismatch, id)
	}

	log.DebugContext(ctx, "Payloads agree", "items", len(payloadB.Items))
	return payloadB, nil
}

func (v *Validator) recordMismatch(ctx context.Context, log *slog.Logger, a, b []byte) string {
	if v.recorder == nil {
		return ""
	}
	id, err := v.recorder.SaveMismatch(ctx, a, b)
	if err != nil {
		log.ErrorContext(ctx, "Failed to store mismatching payloads", "error", err)
		return ""
	}
	log.WarnContext(ctx, "Fetched payloads disagree, cycle rejected", "diagnostic", id)
	return id
}

// Equivalent reports whether two listing sets are the same once volatile fields are stripped.
// Listing order is not significant.
func Equivalent(a, b []models.Item) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	encA, err := canonical(a)
	if err != nil {
		return false, fmt.Errorf("failed to encode first payload: %w", err)
	}
	encB, err := canonical(b)
	if err != nil {
		return false, fmt.Errorf("failed to encode second payload: %w", err)
	}
	return slices.EqualFunc(encA, encB, bytes.Equal), nil
}

// canonical encodes every listing without the sort-order fields, which change between
// reads even when the content does not, and sorts the encodings.
func canonical(items []models.Item) ([][]byte, error) {
	out := make([][]byte, 0, len(items))
	for _, it := range items {
		it.Price.Sort = ""
		it.LastStock.Sort = ""
		it.Updated.Sort = ""
		enc, err := json.Marshal(it)
		if err != nil {
			return nil, err
		}
		out = append(out, enc)
	}
	slices.SortFunc(out, bytes.Compare)
	return out, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
