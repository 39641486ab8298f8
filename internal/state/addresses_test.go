package state

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func newAddressInput(name string, isDefault bool) domain.AddressInput {
	return domain.AddressInput{
		RecipientName: name,
		Phone:         "13700137000",
		Province:      "浙江省",
		City:          "杭州市",
		District:      "西湖区",
		Address:       "文三路 100号",
		IsDefault:     isDefault,
	}
}

func assertSingleDefault(t *testing.T, a *Addresses, want int64) {
	t.Helper()
	assert.Equal(t, 1, domain.CountDefaults(a.List()))
	def, ok := a.DefaultAddress()
	require.True(t, ok)
	assert.Equal(t, want, def.ID)
}

func TestAddresses_MockFetch(t *testing.T) {
	a := NewAddresses(mockOpts(), newMockAPI(t))
	a.FetchAddresses(context.Background())

	assert.Len(t, a.List(), 2)
	assertSingleDefault(t, a, 1)
}

func TestAddresses_MockSingleDefault(t *testing.T) {
	ctx := context.Background()
	a := NewAddresses(mockOpts(), newMockAPI(t))
	a.FetchAddresses(ctx)

	require.NoError(t, a.SetDefault(ctx, 2))
	assertSingleDefault(t, a, 2)

	created, err := a.CreateAddress(ctx, newAddressInput("王五", true))
	require.NoError(t, err)
	assert.Equal(t, int64(3), created.ID)
	assertSingleDefault(t, a, 3)

	_, err = a.UpdateAddress(ctx, 1, newAddressInput("张三", true))
	require.NoError(t, err)
	assertSingleDefault(t, a, 1)

	// a non-default update leaves the default alone
	_, err = a.UpdateAddress(ctx, 2, newAddressInput("李四", false))
	require.NoError(t, err)
	assertSingleDefault(t, a, 1)

	// the mock backend agrees after a refetch
	a.FetchAddresses(ctx)
	assertSingleDefault(t, a, 1)
	assert.Len(t, a.List(), 3)
}

func TestAddresses_MockDelete(t *testing.T) {
	ctx := context.Background()
	a := NewAddresses(mockOpts(), newMockAPI(t))
	a.FetchAddresses(ctx)

	require.NoError(t, a.DeleteAddress(ctx, 2))
	assert.Len(t, a.List(), 1)
	assert.True(t, apperrors.IsNotFound(a.DeleteAddress(ctx, 2)))

	a.FetchAddresses(ctx)
	assert.Len(t, a.List(), 1)
}

func TestAddresses_SetDefaultUnknown(t *testing.T) {
	a := NewAddresses(mockOpts(), newMockAPI(t))
	assert.True(t, apperrors.IsNotFound(a.SetDefault(context.Background(), 9)))
}

func TestAddresses_Validation(t *testing.T) {
	a := NewAddresses(liveOpts(), newMockAPI(t))

	in := newAddressInput("赵六", false)
	in.Phone = "12345"
	_, err := a.CreateAddress(context.Background(), in)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "phone")
}

func TestAddresses_LiveEnforcesSingleDefaultLocally(t *testing.T) {
	ctx := context.Background()
	api := newMockAPI(t)
	a := NewAddresses(liveOpts(), api)

	api.On("Addresses", mock.Anything).Return([]domain.Address{
		{ID: 1, RecipientName: "张三", IsDefault: true},
		{ID: 2, RecipientName: "李四"},
	}, nil)
	a.FetchAddresses(ctx)

	in := newAddressInput("李四", true)
	api.On("UpdateAddress", mock.Anything, int64(2), in).
		Return(&domain.Address{ID: 2, RecipientName: "李四", IsDefault: true}, nil)

	_, err := a.UpdateAddress(ctx, 2, in)
	require.NoError(t, err)
	assertSingleDefault(t, a, 2)
}

func TestAddresses_LiveFailureKeepsList(t *testing.T) {
	ctx := context.Background()
	api := newMockAPI(t)
	a := NewAddresses(liveOpts(), api)

	api.On("Addresses", mock.Anything).Return([]domain.Address{{ID: 1, IsDefault: true}}, nil)
	a.FetchAddresses(ctx)

	api.On("DeleteAddress", mock.Anything, int64(1)).Return(apperrors.Forbidden("not yours"))
	require.Error(t, a.DeleteAddress(ctx, 1))
	assert.Len(t, a.List(), 1)
}

func TestAddresses_CreateSupersedesInFlightFetch(t *testing.T) {
	ctx := context.Background()
	api := newMockAPI(t)
	a := NewAddresses(liveOpts(), api)

	started := make(chan struct{})
	release := make(chan struct{})
	api.On("Addresses", mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]domain.Address{{ID: 1, RecipientName: "张三", IsDefault: true}}, nil)

	in := newAddressInput("李四", true)
	created := domain.Address{ID: 2}
	in.Apply(&created)
	api.On("CreateAddress", mock.Anything, in).Return(&created, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.FetchAddresses(ctx)
	}()
	<-started

	_, err := a.CreateAddress(ctx, in)
	require.NoError(t, err)
	close(release)
	wg.Wait()

	list := a.List()
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].ID)
	assertSingleDefault(t, a, 2)
	assert.False(t, a.Loading())
}
