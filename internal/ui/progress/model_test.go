package progress

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/gitlab-import/internal/model"
	gosync "github.com/nhle/gitlab-import/internal/sync"
)

func TestModelTracksProgressAndQuitsWhenDone(t *testing.T) {
	m := New("acme/web", nil)

	next, _ := m.Update(UpdateMsg{Page: 2, Imported: 23, Last: model.ImportRecord{Identifier: "23", Name: "Crash"}})
	m = next.(Model)
	assert.Contains(t, m.View(), "page 2, 23 issues imported")
	assert.Contains(t, m.View(), "Crash")

	next, cmd := m.Update(DoneMsg{Result: &gosync.Result{Pages: 3, Imported: 45}})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())

	res, err := m.Result()
	require.NoError(t, err)
	assert.Equal(t, 45, res.Imported)
}

func TestModelCancelsOnce(t *testing.T) {
	calls := 0
	m := New("acme/web", func() { calls++ })

	for i := 0; i < 2; i++ {
		next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
		m = next.(Model)
		assert.Nil(t, cmd)
	}

	assert.Equal(t, 1, calls)
	assert.Contains(t, m.View(), "stopping")
}

func TestSummary(t *testing.T) {
	ok := Summary("acme/web", &gosync.Result{Pages: 3, Imported: 45}, 52, nil)
	assert.Contains(t, ok, "Import complete")
	assert.Contains(t, ok, "45 issues from 3 pages")
	assert.Contains(t, ok, "52 records stored")

	failed := Summary("acme/web", nil, 0, errors.New("boom"))
	assert.Contains(t, failed, "Import stopped")
	assert.Contains(t, failed, "0 issues")
}
