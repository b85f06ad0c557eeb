package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invoicestore/internal/domain"
	"invoicestore/internal/port"
)

// MockAttachmentRepo is a mock implementation of port.AttachmentRepository.
type MockAttachmentRepo struct {
	mock.Mock
}

func (m *MockAttachmentRepo) Upload(ctx context.Context, invoiceID string, file domain.FileUpload, progress domain.ProgressFunc) (*domain.FileAttachment, error) {
	args := m.Called(ctx, invoiceID, file, progress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FileAttachment), args.Error(1)
}

func (m *MockAttachmentRepo) UploadMany(ctx context.Context, invoiceID string, files []domain.FileUpload) (*domain.BatchResult, error) {
	args := m.Called(ctx, invoiceID, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchResult), args.Error(1)
}

func (m *MockAttachmentRepo) Get(ctx context.Context, invoiceID, attachmentID string) (*domain.FileAttachment, error) {
	args := m.Called(ctx, invoiceID, attachmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FileAttachment), args.Error(1)
}

func (m *MockAttachmentRepo) List(ctx context.Context, invoiceID string) ([]domain.FileAttachment, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FileAttachment), args.Error(1)
}

func (m *MockAttachmentRepo) Delete(ctx context.Context, invoiceID, attachmentID string) (bool, error) {
	args := m.Called(ctx, invoiceID, attachmentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAttachmentRepo) BulkDelete(ctx context.Context, invoiceID string, attachmentIDs []string) (int, error) {
	args := m.Called(ctx, invoiceID, attachmentIDs)
	return args.Int(0), args.Error(1)
}

func (m *MockAttachmentRepo) Download(ctx context.Context, attachment *domain.FileAttachment, sink port.DownloadSink) error {
	args := m.Called(ctx, attachment, sink)
	return args.Error(0)
}

func (m *MockAttachmentRepo) Stats(ctx context.Context, invoiceID string) (*domain.AttachmentStats, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AttachmentStats), args.Error(1)
}
