package node

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/strategist922/sensei/admin"
	"github.com/strategist922/sensei/index"
	"github.com/strategist922/sensei/loader"
	"github.com/strategist922/sensei/querybuilder"
)

// fakeIndex counts lifecycle calls.
type fakeIndex struct {
	name     string
	starts   atomic.Int32
	stops    atomic.Int32
	startErr error
	stopErr  error
	hooks    []string
}

func (f *fakeIndex) Start(context.Context) error {
	f.starts.Add(1)
	return f.startErr
}

func (f *fakeIndex) Shutdown(context.Context) error {
	f.stops.Add(1)
	return f.stopErr
}

func (f *fakeIndex) Reader() (index.Reader, error)               { return nil, nil }
func (f *fakeIndex) Consume(context.Context, []index.Event) error { return nil }
func (f *fakeIndex) Version() uint64                              { return 0 }

func (f *fakeIndex) AdminHooks() []admin.Hook {
	out := make([]admin.Hook, len(f.hooks))
	for i, name := range f.hooks {
		out[i] = admin.Hook{Name: name, Value: func() float64 { return 1 }}
	}
	return out
}

// fakeIndexes maps partitions to instances.
type fakeIndexes struct {
	byPartition map[int]*fakeIndex
	err         map[int]error
	calls       atomic.Int32
}

func (f *fakeIndexes) Index(_, partition int) (index.Instance, error) {
	f.calls.Add(1)
	if err := f.err[partition]; err != nil {
		return nil, err
	}
	inst, ok := f.byPartition[partition]
	if !ok {
		return nil, nil
	}
	return inst, nil
}

type fakeLoader struct {
	starts   atomic.Int32
	stops    atomic.Int32
	startErr error
	stopErr  error
}

func (f *fakeLoader) Start(context.Context) error {
	f.starts.Add(1)
	return f.startErr
}

func (f *fakeLoader) Shutdown(context.Context) error {
	f.stops.Add(1)
	return f.stopErr
}

// fakeLoaders hands out one loader per distinct index, like a stream
// loader factory.
type fakeLoaders struct {
	mu       sync.Mutex
	byTarget map[index.Consumer]*fakeLoader
	order    []*fakeLoader
	stopErr  map[int]error
	startErr map[int]error
}

func newFakeLoaders() *fakeLoaders {
	return &fakeLoaders{byTarget: map[index.Consumer]*fakeLoader{}}
}

func (f *fakeLoaders) Loader(partition int, target index.Consumer) (loader.Loader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.byTarget[target]; ok {
		return l, nil
	}
	l := &fakeLoader{stopErr: f.stopErr[partition], startErr: f.startErr[partition]}
	f.byTarget[target] = l
	f.order = append(f.order, l)
	return l, nil
}

type fakeBuilders struct{}

func (fakeBuilders) NewBuilder(*querybuilder.Request) (querybuilder.Builder, error) {
	return nil, errors.New("not used")
}

// failingRegistry rejects every registration.
type failingRegistry struct{}

func (failingRegistry) Register(admin.HookID, admin.Hook) error { return errors.New("registry down") }
func (failingRegistry) Unregister(admin.HookID) error           { return nil }

type recordingExtensions struct {
	paths []string
	fail  map[string]bool
}

func (r *recordingExtensions) Load(path string) error {
	r.paths = append(r.paths, path)
	for suffix := range r.fail {
		if strings.HasSuffix(path, suffix) {
			return errors.New("bad plugin")
		}
	}
	return nil
}

type loaderFactoryFunc func(partition int, target index.Consumer) (loader.Loader, error)

func (f loaderFactoryFunc) Loader(partition int, target index.Consumer) (loader.Loader, error) {
	return f(partition, target)
}

// funcLoader is a value-typed loader that cannot be used as a map key.
type funcLoader struct {
	start func() error
	stop  func() error
}

func (l funcLoader) Start(context.Context) error    { return l.start() }
func (l funcLoader) Shutdown(context.Context) error { return l.stop() }

// countingLoader is a comparable value type: copies handed out for
// different partitions compare equal.
type countingLoader struct {
	starts *atomic.Int32
	stops  *atomic.Int32
}

func (l countingLoader) Start(context.Context) error {
	l.starts.Add(1)
	return nil
}

func (l countingLoader) Shutdown(context.Context) error {
	l.stops.Add(1)
	return nil
}
