package decision

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/opcg/rules-engine-go/internal/game/state"
	"gopkg.in/yaml.v3"
)

// Kind names the question a recorded answer belongs to.
type Kind string

const (
	KindBlocker Kind = "blocker"
	KindCounter Kind = "counter"
	KindTargets Kind = "targets"
	KindValue   Kind = "value"
)

// Record is one answered question.
type Record struct {
	Kind    Kind     `yaml:"kind"`
	Player  string   `yaml:"player,omitempty"`
	Choice  string   `yaml:"choice,omitempty"`
	Targets []string `yaml:"targets,omitempty"`
	Value   int      `yaml:"value,omitempty"`
}

// Recording is an ordered list of answers.
type Recording struct {
	Records []Record `yaml:"decisions"`
}

// WriteYAML encodes the recording.
func (r Recording) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode recording: %w", err)
	}
	return enc.Close()
}

// ReadRecording decodes a recording written by WriteYAML.
func ReadRecording(r io.Reader) (Recording, error) {
	var rec Recording
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rec); err != nil {
		return Recording{}, fmt.Errorf("decode recording: %w", err)
	}
	return rec, nil
}

// Recorder wraps a provider and records every answer it gives.
type Recorder struct {
	mu      sync.Mutex
	inner   Provider
	records []Record
}

var _ Provider = (*Recorder)(nil)

// NewRecorder wraps inner.
func NewRecorder(inner Provider) *Recorder {
	return &Recorder{inner: inner}
}

// Recording returns everything answered so far.
func (r *Recorder) Recording() Recording {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Recording{Records: slices.Clone(r.records)}
}

func (r *Recorder) add(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *Recorder) ChooseBlocker(ctx context.Context, st *state.State, req BlockRequest) (string, error) {
	v, err := r.inner.ChooseBlocker(ctx, st, req)
	if err == nil {
		r.add(Record{Kind: KindBlocker, Player: req.Defender, Choice: v})
	}
	return v, err
}

func (r *Recorder) ChooseCounter(ctx context.Context, st *state.State, req CounterRequest) (string, error) {
	v, err := r.inner.ChooseCounter(ctx, st, req)
	if err == nil {
		r.add(Record{Kind: KindCounter, Player: req.Defender, Choice: v})
	}
	return v, err
}

func (r *Recorder) ChooseTargets(ctx context.Context, st *state.State, req TargetRequest) ([]string, error) {
	v, err := r.inner.ChooseTargets(ctx, st, req)
	if err == nil {
		r.add(Record{Kind: KindTargets, Player: req.Player, Targets: slices.Clone(v)})
	}
	return v, err
}

func (r *Recorder) ChooseValue(ctx context.Context, st *state.State, req ValueRequest) (int, error) {
	v, err := r.inner.ChooseValue(ctx, st, req)
	if err == nil {
		r.add(Record{Kind: KindValue, Player: req.Player, Value: v})
	}
	return v, err
}

// Replayer answers strictly in recorded order.
type Replayer struct {
	mu      sync.Mutex
	records []Record
	pos     int
}

var _ Provider = (*Replayer)(nil)

// NewReplayer replays rec from the start.
func NewReplayer(rec Recording) *Replayer {
	return &Replayer{records: slices.Clone(rec.Records)}
}

// Done reports whether every recorded answer was consumed.
func (r *Replayer) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos >= len(r.records)
}

func (r *Replayer) next(kind Kind) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pos >= len(r.records) {
		return Record{}, fmt.Errorf("%w: wanted %s after %d answers", ErrReplayExhausted, kind, r.pos)
	}
	rec := r.records[r.pos]
	if rec.Kind != kind {
		return Record{}, fmt.Errorf("%w: answer %d is %s, wanted %s", ErrReplayMismatch, r.pos, rec.Kind, kind)
	}
	r.pos++
	return rec, nil
}

func (r *Replayer) ChooseBlocker(_ context.Context, _ *state.State, _ BlockRequest) (string, error) {
	rec, err := r.next(KindBlocker)
	return rec.Choice, err
}

func (r *Replayer) ChooseCounter(_ context.Context, _ *state.State, _ CounterRequest) (string, error) {
	rec, err := r.next(KindCounter)
	return rec.Choice, err
}

func (r *Replayer) ChooseTargets(_ context.Context, _ *state.State, _ TargetRequest) ([]string, error) {
	rec, err := r.next(KindTargets)
	return slices.Clone(rec.Targets), err
}

func (r *Replayer) ChooseValue(_ context.Context, _ *state.State, _ ValueRequest) (int, error) {
	rec, err := r.next(KindValue)
	return rec.Value, err
}
