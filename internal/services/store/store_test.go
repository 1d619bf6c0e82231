package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/iyunix/go-juri/internal/domain"
	"github.com/iyunix/go-juri/internal/repository/kv"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

func newKV(t *testing.T) kv.KVRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "store.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&kv.Entry{}))
	return kv.NewKVRepository(db)
}

func sampleCollection() []*domain.Conversation {
	at := time.Date(2025, 5, 10, 8, 30, 0, 0, time.UTC)
	a := domain.NewConversation("a", "Chat 1", at)
	a.Append(domain.NewUserMessage("What is a section 21 notice?", "", at.Add(time.Second)))
	a.Append(domain.NewAssistantMessage("A no-fault eviction notice.", domain.EndpointQuery, at.Add(2*time.Second)))
	b := domain.NewConversation("b", "Chat 2", at.Add(time.Hour))
	return []*domain.Conversation{a, b}
}

func assertSameCollection(t *testing.T, want, got []*domain.Conversation) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Title, got[i].Title)
		require.Len(t, got[i].Messages, len(want[i].Messages))
		for j := range want[i].Messages {
			assert.Equal(t, want[i].Messages[j].ID, got[i].Messages[j].ID)
			assert.Equal(t, want[i].Messages[j].Text, got[i].Messages[j].Text)
			assert.True(t, want[i].Messages[j].Timestamp.Equal(got[i].Messages[j].Timestamp))
		}
	}
}

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(newKV(t), nopLogger{})

	convs := sampleCollection()
	require.NoError(t, s.Persist(ctx, convs))

	loaded, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assertSameCollection(t, convs, loaded)

	require.NoError(t, s.Persist(ctx, loaded))
	reloaded, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assertSameCollection(t, loaded, reloaded)
}

func TestLocalStoreEmptyAndCorrupt(t *testing.T) {
	ctx := context.Background()
	repo := newKV(t)
	s := NewLocalStore(repo, nopLogger{})

	convs, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, convs)

	require.NoError(t, repo.Put(ctx, StorageKey, "{not json"))
	convs, err = s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestLocalStoreReadsLegacyDocument(t *testing.T) {
	ctx := context.Background()
	repo := newKV(t)
	legacy := `[{"id":"1","title":"Chat 1","messages":[
		{"id":"m1","from":"ai","text":"Hello!","timestamp":"2025-01-01T10:00:00Z","isWelcome":true},
		{"id":"m2","from":"user","text":"Hi","timestamp":"2025-01-01T10:00:05Z"}],
		"createdAt":"2025-01-01T10:00:00Z"}]`
	require.NoError(t, repo.Put(ctx, StorageKey, legacy))

	convs, err := NewLocalStore(repo, nopLogger{}).LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, domain.OriginAssistant, convs[0].Messages[0].Origin)
	assert.Equal(t, 1, convs[0].UserMessageCount())
}

func TestLocalStoreSkipsNullEntries(t *testing.T) {
	ctx := context.Background()
	repo := newKV(t)
	doc := `[null,{"id":"x","title":"t","messages":[null]},
		{"id":"y","title":"u","messages":[{"id":"m1","from":"user","text":"Hi","timestamp":"2025-01-01T10:00:00Z"},null]}]`
	require.NoError(t, repo.Put(ctx, StorageKey, doc))

	convs, err := NewLocalStore(repo, nopLogger{}).LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Empty(t, convs[0].Messages)
	require.Len(t, convs[1].Messages, 1)
	assert.Equal(t, 1, convs[1].UserMessageCount())
	assert.NotPanics(t, func() { domain.NewCollection(convs).Snapshot() })
}

func TestLocalStoreLoadOneAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(newKV(t), nopLogger{})
	require.NoError(t, s.Persist(ctx, sampleCollection()))

	one, err := s.LoadOne(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "Chat 2", one.Title)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.LoadOne(ctx, "a")
	assert.True(t, domain.IsKind(err, domain.ErrKindNotFound))

	err = s.Delete(ctx, "a")
	assert.True(t, domain.IsKind(err, domain.ErrKindNotFound))

	all, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "b", all[0].ID)
}

type failingKV struct{ kv.KVRepository }

func (failingKV) Put(context.Context, string, string) error { return errors.New("disk full") }

func TestLocalStorePersistFailureIsStorageError(t *testing.T) {
	s := NewLocalStore(failingKV{newKV(t)}, nopLogger{})
	err := s.Persist(context.Background(), sampleCollection())
	assert.True(t, domain.IsKind(err, domain.ErrKindStorage))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	convs := sampleCollection()
	require.NoError(t, s.Persist(ctx, convs))
	convs[0].Title = "mutated after persist"

	loaded, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "What is a section 21 notice?", loaded[0].Title)

	s.FailWith(errors.New("quota"))
	assert.True(t, domain.IsKind(s.Persist(ctx, convs), domain.ErrKindStorage))
	s.FailWith(nil)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.LoadOne(ctx, "a")
	assert.True(t, domain.IsKind(err, domain.ErrKindNotFound))
}

// fakeConversationServer implements the /api/conversations endpoints in memory.
type fakeConversationServer struct {
	mu    sync.Mutex
	convs map[string]*domain.Conversation
	order []string
	puts  int
}

func (f *fakeConversationServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, conversationsPath), "/")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && id == "":
		list := make([]*domain.Conversation, 0, len(f.order))
		for _, k := range f.order {
			list = append(list, f.convs[k])
		}
		_ = json.NewEncoder(w).Encode(listResponse{Conversations: list})
	case r.Method == http.MethodGet:
		c, ok := f.convs[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(errorResponse{Error: "conversation not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(oneResponse{Conversation: c})
	case r.Method == http.MethodPut:
		var c domain.Conversation
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if _, ok := f.convs[id]; !ok {
			f.order = append(f.order, id)
		}
		f.convs[id] = &c
		f.puts++
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodDelete:
		if _, ok := f.convs[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(f.convs, id)
		for i, k := range f.order {
			if k == id {
				f.order = append(f.order[:i], f.order[i+1:]...)
				break
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func TestRemoteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := &fakeConversationServer{convs: map[string]*domain.Conversation{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := NewRemoteStore(srv.URL, srv.Client(), nopLogger{})
	convs := sampleCollection()
	require.NoError(t, s.Persist(ctx, convs))
	assert.Equal(t, 2, fake.puts)

	require.NoError(t, s.Persist(ctx, convs))
	assert.Equal(t, 2, fake.puts, "unchanged conversations are not re-uploaded")

	loaded, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assertSameCollection(t, convs, loaded)

	one, err := s.LoadOne(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, one.Messages, 3)
}

func TestRemoteStorePersistDeletesMissing(t *testing.T) {
	ctx := context.Background()
	fake := &fakeConversationServer{convs: map[string]*domain.Conversation{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := NewRemoteStore(srv.URL, srv.Client(), nopLogger{})
	convs := sampleCollection()
	require.NoError(t, s.Persist(ctx, convs))
	require.NoError(t, s.Persist(ctx, convs[1:]))

	_, err := s.LoadOne(ctx, "a")
	assert.True(t, domain.IsKind(err, domain.ErrKindNotFound))

	err = s.Delete(ctx, "a")
	assert.True(t, domain.IsKind(err, domain.ErrKindNotFound))
}

func TestRemoteStoreSkipsNullMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"conversations":[null,{"id":"x","title":"t","messages":[null]}]}`)
	}))
	defer srv.Close()

	convs, err := NewRemoteStore(srv.URL, srv.Client(), nopLogger{}).LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Empty(t, convs[0].Messages)
	assert.Equal(t, 0, convs[0].UserMessageCount())
}

func TestRemoteStorePersistContinuesPastRejectedConversation(t *testing.T) {
	ctx := context.Background()
	fake := &fakeConversationServer{convs: map[string]*domain.Conversation{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/a") {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(errorResponse{Error: "Database error"})
			return
		}
		fake.ServeHTTP(w, r)
	}))
	defer srv.Close()

	s := NewRemoteStore(srv.URL, srv.Client(), nopLogger{})
	err := s.Persist(ctx, sampleCollection())
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrKindStorage))
	assert.Contains(t, err.Error(), "Database error")

	one, err := s.LoadOne(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "Chat 2", one.Title)
}

func TestRemoteStoreUnreachable(t *testing.T) {
	s := NewRemoteStore("http://127.0.0.1:1", nil, nopLogger{})
	_, err := s.LoadAll(context.Background())
	assert.True(t, domain.IsKind(err, domain.ErrKindStorage))
	err = s.Persist(context.Background(), sampleCollection())
	assert.True(t, domain.IsKind(err, domain.ErrKindStorage))
}
