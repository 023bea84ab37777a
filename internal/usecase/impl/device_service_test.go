package impl

import (
	"context"
	"testing"

	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/domain/repository"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDeviceRepository struct {
	mock.Mock
}

func (m *mockDeviceRepository) CreateDevice(ctx context.Context, device *entity.UserDevice) error {
	return m.Called(ctx, device).Error(0)
}

func (m *mockDeviceRepository) FindDeviceByID(ctx context.Context, id uuid.UUID) (*entity.UserDevice, error) {
	args := m.Called(ctx, id)
	device, _ := args.Get(0).(*entity.UserDevice)

	return device, args.Error(1)
}

func (m *mockDeviceRepository) FindDevicesByUser(ctx context.Context, userID uuid.UUID) ([]*entity.UserDevice, error) {
	args := m.Called(ctx, userID)
	devices, _ := args.Get(0).([]*entity.UserDevice)

	return devices, args.Error(1)
}

func (m *mockDeviceRepository) FindActiveDevicesByUser(ctx context.Context, userID uuid.UUID) ([]*entity.UserDevice, error) {
	args := m.Called(ctx, userID)
	devices, _ := args.Get(0).([]*entity.UserDevice)

	return devices, args.Error(1)
}

func (m *mockDeviceRepository) UpdateFCMToken(ctx context.Context, deviceID uuid.UUID, fcmToken string) error {
	return m.Called(ctx, deviceID, fcmToken).Error(0)
}

func (m *mockDeviceRepository) DeactivateByTokens(ctx context.Context, fcmTokens []string) error {
	return m.Called(ctx, fcmTokens).Error(0)
}

func (m *mockDeviceRepository) DeleteDevice(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func TestDeviceService_RegisterDevice_New(t *testing.T) {
	repo := new(mockDeviceRepository)
	svc := NewDeviceService(repo)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("FindDevicesByUser", ctx, userID).Return([]*entity.UserDevice{}, nil)
	repo.On("CreateDevice", ctx, mock.MatchedBy(func(d *entity.UserDevice) bool {
		return d.UserID == userID && d.Platform == entity.PlatformIOS && d.IsActive
	})).Return(nil)

	device, err := svc.RegisterDevice(ctx, userID, &usecase.DeviceInfo{FCMToken: "tok", DeviceID: "iphone-15", Platform: "iOS"})
	require.NoError(t, err)
	assert.Equal(t, "iphone-15", device.DeviceID)
	repo.AssertExpectations(t)
}

func TestDeviceService_RegisterDevice_RefreshesKnownDevice(t *testing.T) {
	repo := new(mockDeviceRepository)
	svc := NewDeviceService(repo)
	ctx := context.Background()
	userID := uuid.New()
	known := &entity.UserDevice{ID: uuid.New(), UserID: userID, DeviceID: "pixel", Platform: entity.PlatformAndroid}

	repo.On("FindDevicesByUser", ctx, userID).Return([]*entity.UserDevice{known}, nil)
	repo.On("UpdateFCMToken", ctx, known.ID, "new-token").Return(nil)
	repo.On("FindDeviceByID", ctx, known.ID).Return(known, nil)

	device, err := svc.RegisterDevice(ctx, userID, &usecase.DeviceInfo{FCMToken: "new-token", DeviceID: "pixel", Platform: "android"})
	require.NoError(t, err)
	assert.Equal(t, known.ID, device.ID)
	repo.AssertNotCalled(t, "CreateDevice", mock.Anything, mock.Anything)
}

func TestDeviceService_RegisterDevice_Validation(t *testing.T) {
	svc := NewDeviceService(new(mockDeviceRepository))

	_, err := svc.RegisterDevice(context.Background(), uuid.New(), &usecase.DeviceInfo{FCMToken: "t", DeviceID: "d", Platform: "symbian"})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	_, err = svc.RegisterDevice(context.Background(), uuid.New(), &usecase.DeviceInfo{DeviceID: "d", Platform: "web"})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
}

func TestDeviceService_RegisterDevice_DuplicateToken(t *testing.T) {
	repo := new(mockDeviceRepository)
	svc := NewDeviceService(repo)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("FindDevicesByUser", ctx, userID).Return([]*entity.UserDevice{}, nil)
	repo.On("CreateDevice", ctx, mock.Anything).Return(repository.ErrDuplicateDevice)

	_, err := svc.RegisterDevice(ctx, userID, &usecase.DeviceInfo{FCMToken: "tok", DeviceID: "browser", Platform: "web"})
	assert.ErrorIs(t, err, domainerrors.ErrConflict)
}

func TestDeviceService_OwnershipIsolation(t *testing.T) {
	repo := new(mockDeviceRepository)
	svc := NewDeviceService(repo)
	ctx := context.Background()
	owner := uuid.New()
	device := &entity.UserDevice{ID: uuid.New(), UserID: owner}
	missing := uuid.New()

	repo.On("FindDeviceByID", ctx, device.ID).Return(device, nil)
	repo.On("FindDeviceByID", ctx, missing).Return(nil, repository.ErrDeviceNotFound)
	repo.On("DeleteDevice", ctx, device.ID).Return(nil)
	repo.On("UpdateFCMToken", ctx, device.ID, "rotated").Return(nil)

	assert.ErrorIs(t, svc.DeactivateDevice(ctx, uuid.New(), device.ID), domainerrors.ErrDeviceNotFound)
	assert.ErrorIs(t, svc.UpdateFCMToken(ctx, uuid.New(), device.ID, "rotated"), domainerrors.ErrDeviceNotFound)
	assert.ErrorIs(t, svc.DeactivateDevice(ctx, owner, missing), domainerrors.ErrDeviceNotFound)
	repo.AssertNotCalled(t, "DeleteDevice", mock.Anything, mock.Anything)

	require.NoError(t, svc.UpdateFCMToken(ctx, owner, device.ID, "rotated"))
	require.NoError(t, svc.DeactivateDevice(ctx, owner, device.ID))
	repo.AssertExpectations(t)
}
