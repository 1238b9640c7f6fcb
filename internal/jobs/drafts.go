package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"device-tracking-backend/internal/model"
)

// ErrDraftNotFound is returned for unknown or expired draft ids.
var ErrDraftNotFound = errors.New("job draft not found")

// Backend is what a draft needs from the job manager.
type Backend interface {
	Continuation(ctx context.Context, name string) (Continuation, error)
	Create(ctx context.Context, form *Form) (*model.Job, error)
}

// draft is the server-held state of one open create-job page.
type draft struct {
	id     string
	mu     sync.Mutex
	form   *Form
	errors map[string]string
	lookup *Debouncer

	pending bool
}

// DraftView is a snapshot of a draft as the page renders it.
type DraftView struct {
	ID            string            `json:"id"`
	Values        map[string]string `json:"values"`
	Errors        map[string]string `json:"errors"`
	End           string            `json:"end"`
	FinalEnd      string            `json:"finalEnd"`
	Count         int               `json:"count"`
	FinalCount    int               `json:"finalCount"`
	LookupPending bool              `json:"lookupPending"`
}

// Drafts keeps create-job form sessions in memory. A draft expires after
// ttl without activity; its state is then discarded.
type Drafts struct {
	backend Backend
	delay   time.Duration
	cache   *cache.Cache
	log     *zap.Logger
	opts    options
}

// NewDrafts creates the draft registry. delay is the job-name lookup
// debounce window.
func NewDrafts(backend Backend, delay, ttl time.Duration, log *zap.Logger, opts ...Option) *Drafts {
	c := cache.New(ttl, ttl)
	c.OnEvicted(func(_ string, v interface{}) {
		if dr, ok := v.(*draft); ok {
			dr.lookup.Cancel()
		}
	})
	return &Drafts{backend: backend, delay: delay, cache: c, log: log, opts: applyOptions(opts)}
}

// Create opens an empty draft.
func (d *Drafts) Create() DraftView {
	dr := &draft{
		id:     uuid.NewString(),
		form:   NewForm(),
		errors: map[string]string{},
		lookup: NewDebouncer(d.delay),
	}
	dr.form.MaxDevices = d.opts.maxDevices
	d.cache.Set(dr.id, dr, cache.DefaultExpiration)

	dr.mu.Lock()
	defer dr.mu.Unlock()
	return dr.view()
}

func (d *Drafts) get(id string) (*draft, error) {
	v, found := d.cache.Get(id)
	if !found {
		return nil, fmt.Errorf("draft %s: %w", id, ErrDraftNotFound)
	}
	dr := v.(*draft)
	// Any access keeps the draft alive.
	d.cache.Set(id, dr, cache.DefaultExpiration)
	return dr, nil
}

// Get returns the current state of a draft.
func (d *Drafts) Get(id string) (DraftView, error) {
	dr, err := d.get(id)
	if err != nil {
		return DraftView{}, err
	}
	dr.mu.Lock()
	defer dr.mu.Unlock()
	return dr.view(), nil
}

// Update applies field changes in form order and re-validates each changed
// field. A change to the job name or either mode reschedules the
// continuation lookup.
func (d *Drafts) Update(id string, changes map[string]string) (DraftView, error) {
	dr, err := d.get(id)
	if err != nil {
		return DraftView{}, err
	}

	dr.mu.Lock()
	defer dr.mu.Unlock()

	for key := range changes {
		if !knownKey(key) {
			return dr.view(), fmt.Errorf("unknown job form field %q", key)
		}
	}

	relookup := false
	for _, key := range FieldOrder {
		value, ok := changes[key]
		if !ok {
			continue
		}
		if err := dr.form.Set(key, value); err != nil {
			return dr.view(), err
		}
		dr.setError(key, dr.form.ValidateField(key))
		if key == KeyMode || key == KeyFinalMode {
			dr.revalidateSequence(key)
		}
		if startKey, ok := startOf[key]; ok && dr.form.Value(startKey) != "" {
			dr.setError(startKey, dr.form.ValidateField(startKey))
		}
		if key == KeyJobName || key == KeyMode || key == KeyFinalMode {
			relookup = true
		}
	}

	if relookup {
		d.scheduleLookup(dr)
	}
	return dr.view(), nil
}

// Submit validates the whole form and creates the job. On success the
// draft is discarded.
func (d *Drafts) Submit(ctx context.Context, id string) (*model.Job, error) {
	dr, err := d.get(id)
	if err != nil {
		return nil, err
	}

	dr.mu.Lock()
	if errs := dr.form.Validate(); len(errs) > 0 {
		dr.errors = errs.Map()
		dr.mu.Unlock()
		return nil, errs
	}
	form := *dr.form
	dr.mu.Unlock()

	job, err := d.backend.Create(ctx, &form)
	if err != nil {
		return nil, err
	}

	d.cache.Delete(id)
	return job, nil
}

// Delete discards a draft.
func (d *Drafts) Delete(id string) error {
	if _, found := d.cache.Get(id); !found {
		return fmt.Errorf("draft %s: %w", id, ErrDraftNotFound)
	}
	d.cache.Delete(id)
	return nil
}

// Flush discards every draft.
func (d *Drafts) Flush() {
	for id := range d.cache.Items() {
		d.cache.Delete(id)
	}
}

// scheduleLookup must be called with dr.mu held.
func (d *Drafts) scheduleLookup(dr *draft) {
	name := strings.TrimSpace(dr.form.JobName)
	if name == "" {
		dr.lookup.Cancel()
		dr.pending = false
		dr.clearAutoStarts()
		return
	}

	dr.pending = true
	dr.lookup.Trigger(func(ctx context.Context, gen uint64) {
		c, err := d.backend.Continuation(ctx, name)

		dr.mu.Lock()
		defer dr.mu.Unlock()
		if !dr.lookup.Current(gen) {
			return
		}
		dr.pending = false
		if err != nil {
			d.log.Error("error checking job name", zap.String("draft", dr.id), zap.String("name", name), zap.Error(err))
			return
		}
		dr.applyContinuation(c)
	})
}

func (dr *draft) applyContinuation(c Continuation) {
	if !c.Found {
		dr.clearAutoStarts()
		return
	}
	if dr.form.Primary.Mode == Automatic && c.Start != "" {
		dr.form.Primary.Start = c.Start
		dr.setError(KeyStart, dr.form.ValidateField(KeyStart))
	}
	if dr.form.Final.Mode == Automatic && c.FinalStart != "" {
		dr.form.Final.Start = c.FinalStart
		dr.setError(KeyFinalStart, dr.form.ValidateField(KeyFinalStart))
	}
}

func (dr *draft) clearAutoStarts() {
	if dr.form.Primary.Mode == Automatic {
		dr.form.Primary.Start = ""
		delete(dr.errors, KeyStart)
	}
	if dr.form.Final.Mode == Automatic {
		dr.form.Final.Start = ""
		delete(dr.errors, KeyFinalStart)
	}
}

// revalidateSequence drops errors of fields a mode switch just hid.
func (dr *draft) revalidateSequence(modeKey string) {
	keys := []string{KeyPrefix, KeySuffix, KeyStart, KeyTotalDevices, KeyManualSerialInput}
	if modeKey == KeyFinalMode {
		keys = []string{KeyFinalPrefix, KeyFinalSuffix, KeyFinalStart, KeyFinalTotalDevices, KeyManualFinalSerialInput}
	}
	for _, k := range keys {
		if !dr.form.Active(k) {
			delete(dr.errors, k)
		}
	}
}

func (dr *draft) setError(key, msg string) {
	if msg == "" {
		delete(dr.errors, key)
		return
	}
	dr.errors[key] = msg
}

func (dr *draft) view() DraftView {
	errs := make(map[string]string, len(dr.errors))
	for k, v := range dr.errors {
		errs[k] = v
	}
	return DraftView{
		ID:            dr.id,
		Values:        dr.form.Values(),
		Errors:        errs,
		End:           dr.form.Primary.End(),
		FinalEnd:      dr.form.Final.End(),
		Count:         dr.form.Primary.Count(),
		FinalCount:    dr.form.Final.Count(),
		LookupPending: dr.pending,
	}
}

// startOf maps a total field to the start whose range depends on it.
var startOf = map[string]string{
	KeyTotalDevices:      KeyStart,
	KeyFinalTotalDevices: KeyFinalStart,
}

func knownKey(key string) bool {
	for _, k := range FieldOrder {
		if k == key {
			return true
		}
	}
	return false
}
