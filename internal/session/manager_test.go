package session

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "nested", "chats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestManager_SaveAndFind(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	c := NewChat("llama2", "")
	c.AddUser("hola", "llama2")
	c.AddAssistant("¿en qué te ayudo?", "llama2", []int{1, 2, 3})
	require.NoError(t, m.Save(ctx, c))

	got, err := m.Find(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "llama2", got.ModelName)
	assert.Equal(t, TypeGeneral, got.ChatType)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, "hola", got.Messages.Messages[0].Content)
	assert.Equal(t, []int{1, 2, 3}, got.Messages.Messages[1].Context)
	assert.Equal(t, []int{1, 2, 3}, got.Messages.LastContext())
}

func TestManager_SaveRewritesMessages(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	c := NewChat("gpt-4o", TypeGeneral)
	c.AddUser("one", "")
	require.NoError(t, m.Save(ctx, c))
	c.AddAssistant("two", "gpt-4o", nil)
	c.AddUser("three", "")
	require.NoError(t, m.Save(ctx, c))

	got, err := m.Find(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, 3, got.Len())
	last, ok := got.Messages.Last()
	require.True(t, ok)
	assert.Equal(t, "three", last.Content)
}

func TestManager_FindMissing(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Find(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestManager_GetOrCreate(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	fresh, err := m.GetOrCreate(ctx, "", "gemini-2.0-flash", TypeCourse)
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.ID)
	assert.Equal(t, TypeCourse, fresh.ChatType)

	_, err = m.GetOrCreate(ctx, "missing", "x", "")
	assert.ErrorIs(t, err, ErrChatNotFound)

	require.NoError(t, m.Save(ctx, fresh))
	again, err := m.GetOrCreate(ctx, fresh.ID, "ignored", "")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", again.ModelName)
}

func TestManager_MarkCourse(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	c := NewChat("m", "")
	require.NoError(t, m.Save(ctx, c))
	require.NoError(t, m.MarkCourse(ctx, c.ID, "course-42"))

	got, err := m.Find(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, TypeCourse, got.ChatType)
	assert.Equal(t, "course-42", got.CourseID)

	// An empty course id keeps the recorded one.
	require.NoError(t, m.MarkCourse(ctx, c.ID, ""))
	got, err = m.Find(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "course-42", got.CourseID)

	assert.ErrorIs(t, m.MarkCourse(ctx, "missing", "x"), ErrChatNotFound)
}

func TestManager_Delete(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	c := NewChat("m", "")
	c.AddUser("bye", "")
	require.NoError(t, m.Save(ctx, c))

	require.NoError(t, m.Delete(ctx, c.ID))
	_, err := m.Find(ctx, c.ID)
	assert.ErrorIs(t, err, ErrChatNotFound)
	assert.ErrorIs(t, m.Delete(ctx, c.ID), ErrChatNotFound)
}

func TestManager_ListOrderAndPreview(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	older := NewChat("a", "")
	older.AddUser("first", "")
	older.UpdatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, m.Save(ctx, older))

	newer := NewChat("b", "")
	newer.AddUser(strings.Repeat("x", 150), "")
	require.NoError(t, m.Save(ctx, newer))

	empty := NewChat("c", "")
	empty.UpdatedAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, m.Save(ctx, empty))

	list, err := m.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, strings.Repeat("x", 100), list[0].LastMessage)
	assert.Equal(t, 1, list[0].MessageCount)

	assert.Equal(t, older.ID, list[1].ID)
	assert.Equal(t, "first", list[1].LastMessage)

	assert.Equal(t, empty.ID, list[2].ID)
	assert.Equal(t, "", list[2].LastMessage)
	assert.Zero(t, list[2].MessageCount)

	limited, err := m.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestManager_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chats.db")
	ctx := context.Background()

	m, err := NewManager(path)
	require.NoError(t, err)
	c := NewChat("m", "")
	c.AddUser("persist me", "")
	require.NoError(t, m.Save(ctx, c))
	require.NoError(t, m.Close())

	m, err = NewManager(path)
	require.NoError(t, err)
	defer m.Close()
	got, err := m.Find(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
}

func TestTryLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chats.db")

	l, ok, err := TryLock(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, path+".lock", l.Path())
	require.NoError(t, l.Release())

	again, ok, err := TryLock(path)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, again.Release())
}

func TestChat_MarkCourseKeepsID(t *testing.T) {
	c := NewChat("m", "")
	c.MarkCourse("abc")
	c.MarkCourse("")
	assert.Equal(t, TypeCourse, c.ChatType)
	assert.Equal(t, "abc", c.CourseID)
}
