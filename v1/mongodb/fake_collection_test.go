package mongodb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Aleph-Alpha/mongosearch/v1/observability"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// fakeCollection is an in-memory Collection that records every call. It
// also implements Collections by returning itself.
type fakeCollection struct {
	mu sync.Mutex

	namespace string

	inserted     [][]any
	insertErrs   []error
	insertCalls  int
	insertDelay  time.Duration
	nextID       int
	maxInFlight  int
	inFlight     int
	insertedOne  []any
	findDoc      bson.D
	findErr      error
	filters      []any
	updates      []any
	matched      int64
	modified     int64
	deleted      int64
	aggRows      []bson.M
	aggErrs      []error
	aggCalls     int
	pipelines    []mongo.Pipeline
	indexes      []bson.D
	created      []SearchIndexModel
	dropped      []string
	listedByName []string
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{}
}

func (f *fakeCollection) Collection(dbName, collectionName string) Collection {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.namespace = dbName + "." + collectionName
	return f
}

func (f *fakeCollection) Namespace() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.namespace
}

// popErr returns and removes the first queued error.
func popErr(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (f *fakeCollection) InsertMany(ctx context.Context, docs []any) ([]any, error) {
	f.mu.Lock()
	f.insertCalls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.insertDelay
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := popErr(&f.insertErrs); err != nil {
		return nil, err
	}

	ids := make([]any, len(docs))
	for i := range docs {
		ids[i] = fmt.Sprintf("id-%d", f.nextID)
		f.nextID++
	}
	f.inserted = append(f.inserted, docs)
	return ids, nil
}

func (f *fakeCollection) InsertOne(_ context.Context, doc any) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertedOne = append(f.insertedOne, doc)
	return bson.NewObjectID(), nil
}

func (f *fakeCollection) FindOne(_ context.Context, filter any) (bson.D, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.findDoc == nil {
		return nil, ErrNotFound
	}
	return f.findDoc, nil
}

func (f *fakeCollection) UpdateOne(_ context.Context, filter, update any) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	f.updates = append(f.updates, update)
	return f.matched, f.modified, nil
}

func (f *fakeCollection) DeleteOne(_ context.Context, filter any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	return f.deleted, nil
}

func (f *fakeCollection) Aggregate(_ context.Context, pipeline mongo.Pipeline) ([]bson.M, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aggCalls++
	f.pipelines = append(f.pipelines, pipeline)
	if err := popErr(&f.aggErrs); err != nil {
		return nil, err
	}
	return f.aggRows, nil
}

func (f *fakeCollection) CreateSearchIndex(_ context.Context, model SearchIndexModel) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, model)
	return model.Name, nil
}

func (f *fakeCollection) ListSearchIndexes(_ context.Context, name string) ([]bson.D, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listedByName = append(f.listedByName, name)
	return f.indexes, nil
}

func (f *fakeCollection) DropSearchIndex(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped = append(f.dropped, name)
	return nil
}

// TestObserver records observed operations and retries.
type TestObserver struct {
	mu         sync.Mutex
	operations []observability.OperationContext
	retries    []string
}

func (t *TestObserver) ObserveOperation(ctx observability.OperationContext) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.operations = append(t.operations, ctx)
}

func (t *TestObserver) ObserveRetry(component, operation string, _ int, _ time.Duration, _ error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.retries = append(t.retries, component+"/"+operation)
}

func (t *TestObserver) GetOperations() []observability.OperationContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]observability.OperationContext{}, t.operations...)
}

// observedCollections lets tests hand a fake to components together with a
// logger and an observer, the way a MongoClient does.
type observedCollections struct {
	*fakeCollection
	logger   Logger
	observer observability.Observer
}

func (o observedCollections) Logger() Logger { return o.logger }
func (o observedCollections) Observer() observability.Observer { return o.observer }

func ptr[T any](v T) *T { return &v }
