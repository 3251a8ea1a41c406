package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/resourcehub/internal/apperror"
	"github.com/sakif/resourcehub/internal/model"
)

func validForm() ResourceForm {
	return ResourceForm{
		Title:       "  Go Tour ",
		Description: "Interactive intro",
		URL:         "https://go.dev/tour",
		Type:        "TUTORIAL",
		Tags:        "go, basics,,",
	}
}

func newTestProfile(api *fakeAPI) *ProfileView {
	return NewProfileView(api, &fixedResolver{ident: Identity{Source: SourceUnknown}}, discardLogger())
}

func TestResourceForm_Input(t *testing.T) {
	in, err := validForm().Input()
	require.NoError(t, err)

	want := model.ResourceInput{
		Title:       "Go Tour",
		Description: "Interactive intro",
		URL:         "https://go.dev/tour",
		Type:        "TUTORIAL",
		Tags:        []string{"go", "basics"},
	}
	if diff := cmp.Diff(want, in); diff != "" {
		t.Errorf("Input() mismatch (-want +got):\n%s", diff)
	}
}

func TestResourceForm_RequiredFields(t *testing.T) {
	tests := []struct {
		field string
		edit  func(*ResourceForm)
	}{
		{"title", func(f *ResourceForm) { f.Title = "  " }},
		{"description", func(f *ResourceForm) { f.Description = "" }},
		{"url", func(f *ResourceForm) { f.URL = "\t" }},
		{"type", func(f *ResourceForm) { f.Type = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			form := validForm()
			tt.edit(&form)

			_, err := form.Input()
			require.Error(t, err)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.field, appErr.Field)
			assert.True(t, errors.Is(err, apperror.ErrValidation))
		})
	}
}

func TestResourceForm_TagsOptional(t *testing.T) {
	form := validForm()
	form.Tags = ""

	in, err := form.Input()
	require.NoError(t, err)
	assert.NotNil(t, in.Tags)
	assert.Empty(t, in.Tags)
}

func TestProfile_CreateThenListMineRoundTrip(t *testing.T) {
	api := newFakeAPI(ann)
	p := newTestProfile(api)

	created, err := p.Create(context.Background(), validForm())
	require.NoError(t, err)

	mine, err := p.Refresh(context.Background())
	require.NoError(t, err)

	var found *model.Resource
	for i := range mine {
		if mine[i].ID == created.ID {
			found = &mine[i]
		}
	}
	require.NotNil(t, found, "created resource missing from listMine")
	assert.Equal(t, "Go Tour", found.Title)
	assert.Equal(t, "Interactive intro", found.Description)
	assert.Equal(t, "https://go.dev/tour", found.URL)
	assert.Equal(t, "TUTORIAL", found.Type)
	assert.Equal(t, []string{"go", "basics"}, found.Tags)
}

func TestProfile_CreatePrepends(t *testing.T) {
	api := newFakeAPI(ann)
	api.seed(model.Resource{ID: 1, Title: "old", Author: ann})
	p := newTestProfile(api)
	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	created, err := p.Create(context.Background(), validForm())
	require.NoError(t, err)

	items := p.Resources()
	require.Len(t, items, 2)
	assert.Equal(t, created.ID, items[0].ID)
	assert.Equal(t, int64(1), items[1].ID)
}

func TestProfile_CreateInvalidNeverCallsServer(t *testing.T) {
	api := newFakeAPI(ann)
	p := newTestProfile(api)

	form := validForm()
	form.URL = " "
	_, err := p.Create(context.Background(), form)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
	assert.Equal(t, 0, api.count("POST /resources"))
	assert.Empty(t, p.Resources())
}

func TestProfile_CreateFailureLeavesListUnchanged(t *testing.T) {
	api := newFakeAPI(ann)
	api.createErr = apperror.Remote(500, "boom")
	p := newTestProfile(api)

	_, err := p.Create(context.Background(), validForm())
	require.Error(t, err)
	assert.Empty(t, p.Resources())
}

func TestProfile_Delete(t *testing.T) {
	setup := func(t *testing.T) (*fakeAPI, *ProfileView) {
		t.Helper()
		api := newFakeAPI(ann)
		api.seed(model.Resource{ID: 1, Title: "keep", Author: ann})
		api.seed(model.Resource{ID: 2, Title: "drop", Author: ann})
		p := newTestProfile(api)
		_, err := p.Refresh(context.Background())
		require.NoError(t, err)
		return api, p
	}

	t.Run("declined sends nothing", func(t *testing.T) {
		api, p := setup(t)

		deleted, err := p.Delete(context.Background(), 2, Confirmed(false))
		require.NoError(t, err)
		assert.False(t, deleted)
		assert.Equal(t, 0, api.count("DELETE"))
		assert.Len(t, p.Resources(), 2)
	})

	t.Run("confirmed removes exactly once", func(t *testing.T) {
		api, p := setup(t)

		var prompt string
		confirm := ConfirmFunc(func(ctx context.Context, msg string) (bool, error) {
			prompt = msg
			return true, nil
		})

		deleted, err := p.Delete(context.Background(), 2, confirm)
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.Equal(t, `Delete "drop"?`, prompt)
		assert.Equal(t, 1, api.count("DELETE /resources/2"))

		items := p.Resources()
		require.Len(t, items, 1)
		assert.Equal(t, int64(1), items[0].ID)
	})

	t.Run("failure leaves list unchanged", func(t *testing.T) {
		api, p := setup(t)
		api.deleteErr = apperror.Remote(403, "Not your resource")

		deleted, err := p.Delete(context.Background(), 2, Confirmed(true))
		require.Error(t, err)
		assert.False(t, deleted)
		assert.Len(t, p.Resources(), 2)
	})

	t.Run("confirmer error", func(t *testing.T) {
		api, p := setup(t)
		boom := errors.New("stdin closed")

		_, err := p.Delete(context.Background(), 2, ConfirmFunc(func(context.Context, string) (bool, error) {
			return false, boom
		}))
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, api.count("DELETE"))
	})
}

func TestProfile_RefreshOwner(t *testing.T) {
	t.Run("inferred from list", func(t *testing.T) {
		api := newFakeAPI(ann)
		api.seed(model.Resource{ID: 1, Author: ann})
		p := newTestProfile(api)

		_, err := p.Refresh(context.Background())
		require.NoError(t, err)
		assert.Equal(t, SourceInferred, p.Owner().Source)
		assert.Equal(t, "ann", p.Owner().User.Username)
	})

	t.Run("empty list asks resolver", func(t *testing.T) {
		api := newFakeAPI(ann)
		resolver := &fixedResolver{ident: Identity{User: &ann, Source: SourceEndpoint}}
		p := NewProfileView(api, resolver, discardLogger())

		mine, err := p.Refresh(context.Background())
		require.NoError(t, err)
		assert.Empty(t, mine)
		assert.Equal(t, SourceEndpoint, p.Owner().Source)
		assert.Equal(t, int32(1), resolver.calls.Load())
	})

	t.Run("failure keeps previous list", func(t *testing.T) {
		api := newFakeAPI(ann)
		api.seed(model.Resource{ID: 1, Author: ann})
		p := newTestProfile(api)
		_, err := p.Refresh(context.Background())
		require.NoError(t, err)

		api.listErr = apperror.Transport(errors.New("connection refused"))
		_, err = p.Refresh(context.Background())
		assert.True(t, errors.Is(err, apperror.ErrTransport))
		assert.Len(t, p.Resources(), 1)
	})
}
