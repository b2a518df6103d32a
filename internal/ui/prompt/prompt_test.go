package prompt

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/gitlab-import/internal/model"
	"github.com/nhle/gitlab-import/internal/source"
)

func TestOptions(t *testing.T) {
	opts := Options([]model.FilterValue{
		{Text: "Web", Value: "acme/web"},
		{Text: "solo", Value: "solo"},
	})

	require.Len(t, opts, 2)
	assert.Equal(t, "Web (acme/web)", opts[0].Key)
	assert.Equal(t, "acme/web", opts[0].Value)
	assert.Equal(t, "solo", opts[1].Key)
}

func TestValidateRequired(t *testing.T) {
	v := validateRequired("Token")
	assert.Error(t, v("   "))
	assert.NoError(t, v("glpat-x"))
}

// scriptedImporter answers FilterValues with values, or err when the search
// term is "fail".
type scriptedImporter struct {
	source.Importer
	values []model.FilterValue
	err    error
}

func (s *scriptedImporter) FilterValues(
	_ context.Context,
	_ string,
	filters model.FilterValues,
) ([]model.FilterValue, error) {
	if filters["project"] == "fail" {
		return nil, s.err
	}
	return s.values, nil
}

func TestProjectLookupKeepsLastError(t *testing.T) {
	boom := errors.New("graphql error")
	imp := &scriptedImporter{
		values: []model.FilterValue{{Text: "Web", Value: "acme/web"}},
		err:    boom,
	}
	l := &projectLookup{ctx: context.Background(), imp: imp}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			term := "web"
			if i%2 == 0 {
				term = "fail"
			}
			l.options(term)
		}(i)
	}
	wg.Wait()

	assert.Nil(t, l.options("fail"))
	assert.ErrorIs(t, l.err(), boom)

	opts := l.options("web")
	require.Len(t, opts, 1)
	assert.Equal(t, "acme/web", opts[0].Value)
	assert.NoError(t, l.err())
}
