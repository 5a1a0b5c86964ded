package loom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocumentStartsEmpty(t *testing.T) {
	doc := NewDocument()

	assert.Equal(t, 0, doc.Version())
	assert.Empty(t, doc.RootNames())
	assert.NotNil(t, doc.Graveyard())
	assert.Equal(t, 0, doc.History().Len())
}

func TestCreateAndGetRoot(t *testing.T) {
	doc := NewDocument()

	root, err := doc.CreateRoot("main")
	require.NoError(t, err)
	assert.True(t, root.IsRoot())
	assert.Equal(t, "main", root.RootName())

	_, err = doc.CreateRoot("main")
	assert.ErrorIs(t, err, ErrRootExists)

	got, err := doc.GetRoot("main")
	require.NoError(t, err)
	assert.Same(t, root, got)

	_, err = doc.GetRoot("missing")
	assert.ErrorIs(t, err, ErrRootNotFound)

	_, err = doc.CreateRoot("other")
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "other"}, doc.RootNames(), "graveyard stays out of the listing")
}

func TestApplyOperationVersionGate(t *testing.T) {
	doc := NewDocument()
	_, err := doc.CreateRoot("main")
	require.NoError(t, err)

	stale := NewInsertOperation(NewPosition("main", 0), []Node{NewText("x", nil)}, 5)
	err = doc.ApplyOperation(stale)
	assert.ErrorIs(t, err, ErrVersionMismatch)
	assert.Equal(t, 0, doc.Version())
}

func TestApplyOperationRejectsUnresolvableTarget(t *testing.T) {
	doc := NewDocument()
	_, err := doc.CreateRoot("main")
	require.NoError(t, err)

	op := NewInsertOperation(NewPosition("main", 2, 0), []Node{NewText("x", nil)}, 0)
	err = doc.ApplyOperation(op)
	assert.ErrorIs(t, err, ErrInvalidTarget)
	assert.Equal(t, 0, doc.Version())
	assert.Equal(t, 0, doc.History().Len(), "failed operations stay out of history")
}

func TestParentAtResolution(t *testing.T) {
	doc := paragraphDoc(t)

	parent, err := doc.parentAt(NewPosition("main", 0, 3))
	require.NoError(t, err)
	assert.Equal(t, "paragraph", parent.Name())

	_, err = doc.parentAt(NewPosition("main"))
	assert.ErrorIs(t, err, ErrEmptyPath)

	// a path entry landing inside a text run is not an element boundary
	_, err = doc.parentAt(NewPosition("main", 0, 2, 0))
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = doc.parentAt(NewPosition("main", 0, 99))
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestOnChangeCallback(t *testing.T) {
	doc := NewDocument()
	_, err := doc.CreateRoot("main")
	require.NoError(t, err)

	var seen []OperationKind
	doc.OnChange(func(op Operation) {
		seen = append(seen, op.Kind())
	})

	require.NoError(t, doc.ApplyOperation(NewInsertOperation(NewPosition("main", 0), []Node{NewText("hi", nil)}, 0)))
	require.NoError(t, doc.ApplyOperation(NewRemoveOperation(NewPosition("main", 0), 2, 1)))

	assert.Equal(t, []OperationKind{OpInsert, OpRemove}, seen)
}

func TestFailedMoveLeavesTreeUnchanged(t *testing.T) {
	doc := paragraphDoc(t)
	before := DebugString(mainRoot(t, doc))

	// target root does not exist
	op := NewMoveOperation(NewPosition("main", 0, 0), 3, NewPosition("nowhere", 0), doc.Version())
	err := doc.ApplyOperation(op)
	assert.ErrorIs(t, err, ErrRootNotFound)
	assert.Equal(t, before, DebugString(mainRoot(t, doc)))
}
