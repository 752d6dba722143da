package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/RMahshie/tunecheck/internal/pitch"
	"github.com/RMahshie/tunecheck/internal/processing"
	"github.com/RMahshie/tunecheck/internal/repository"
	"github.com/RMahshie/tunecheck/pkg/models"
	"github.com/RMahshie/tunecheck/pkg/tuning"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTuningService implements processing.TuningService for testing
type MockTuningService struct {
	mock.Mock
	matcher *tuning.Matcher
}

func (m *MockTuningService) Analyze(ctx context.Context, upload processing.ClipUpload) (*models.Reading, error) {
	args := m.Called(ctx, upload)
	reading, _ := args.Get(0).(*models.Reading)
	return reading, args.Error(1)
}

func (m *MockTuningService) MatchFrequency(frequency float64) (tuning.Result, error) {
	return m.matcher.Match(frequency)
}

func (m *MockTuningService) Matcher() *tuning.Matcher {
	return m.matcher
}

// MockReadingRepository implements repository.ReadingRepository for testing
type MockReadingRepository struct {
	mock.Mock
}

func (m *MockReadingRepository) Create(ctx context.Context, reading *models.Reading) error {
	args := m.Called(ctx, reading)
	return args.Error(0)
}

func (m *MockReadingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Reading, error) {
	args := m.Called(ctx, id)
	reading, _ := args.Get(0).(*models.Reading)
	return reading, args.Error(1)
}

func (m *MockReadingRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*models.Reading, error) {
	args := m.Called(ctx, sessionID, limit)
	readings, _ := args.Get(0).([]*models.Reading)
	return readings, args.Error(1)
}

func newMockService(t *testing.T, opts ...tuning.Option) *MockTuningService {
	t.Helper()
	m, err := tuning.NewMatcher(nil, opts...)
	require.NoError(t, err)
	return &MockTuningService{matcher: m}
}

func requireAPIError(t *testing.T, err error, status int, kind string) {
	t.Helper()
	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, status, apiErr.GetStatus())
	assert.Equal(t, kind, apiErr.Kind)
}

func TestMatch(t *testing.T) {
	h := NewTuningHandler(newMockService(t), nil, nil)

	tests := []struct {
		name      string
		frequency float64
		wantNote  string
		wantJudge tuning.Judgment
		wantErr   bool
	}{
		{name: "in tune", frequency: 440, wantNote: "A4", wantJudge: tuning.InTune},
		{name: "sharp", frequency: 445, wantNote: "A4", wantJudge: tuning.Sharp},
		{name: "flat", frequency: 435, wantNote: "A4", wantJudge: tuning.Flat},
		{name: "sub-audible still matches", frequency: 1, wantNote: "C4", wantJudge: tuning.Flat},
		{name: "zero", frequency: 0, wantErr: true},
		{name: "negative", frequency: -440, wantErr: true},
		{name: "infinite", frequency: math.Inf(1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &models.MatchRequest{}
			req.Body.Frequency = tt.frequency

			resp, err := h.Match(context.Background(), req)
			if tt.wantErr {
				requireAPIError(t, err, http.StatusUnprocessableEntity, models.KindInvalidFrequency)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNote, resp.Body.Note)
			assert.Equal(t, tt.wantJudge, resp.Body.Judgment)
		})
	}
}

func TestListNotes(t *testing.T) {
	h := NewTuningHandler(newMockService(t, tuning.WithTolerance(5)), nil, nil)

	resp, err := h.ListNotes(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 5.0, resp.Body.ToleranceCents)
	require.Len(t, resp.Body.Notes, 25)
	assert.Equal(t, "C4", resp.Body.Notes[0].Name)
	assert.Equal(t, "C6", resp.Body.Notes[24].Name)
}

func TestHistoryDisabled(t *testing.T) {
	h := NewTuningHandler(newMockService(t), nil, nil)

	_, err := h.ListReadings(context.Background(), &models.ListReadingsRequest{SessionID: "s", Limit: 10})
	requireAPIError(t, err, http.StatusServiceUnavailable, models.KindHistoryDisabled)

	_, err = h.GetReading(context.Background(), &models.GetReadingRequest{ID: uuid.NewString()})
	requireAPIError(t, err, http.StatusServiceUnavailable, models.KindHistoryDisabled)
}

func TestListReadings(t *testing.T) {
	mockRepo := &MockReadingRepository{}
	h := NewTuningHandler(newMockService(t), mockRepo, nil)

	readings := []*models.Reading{
		{ID: uuid.NewString(), SessionID: "session-abc", ClosestNote: "A4", CreatedAt: time.Now()},
	}
	mockRepo.On("ListBySession", mock.Anything, "session-abc", 20).Return(readings, nil)
	mockRepo.On("ListBySession", mock.Anything, "empty", 50).Return(nil, nil)
	mockRepo.On("ListBySession", mock.Anything, "broken", 50).Return(nil, errors.New("connection reset"))

	resp, err := h.ListReadings(context.Background(), &models.ListReadingsRequest{SessionID: "session-abc", Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, "session-abc", resp.Body.SessionID)
	assert.Equal(t, readings, resp.Body.Readings)

	resp, err = h.ListReadings(context.Background(), &models.ListReadingsRequest{SessionID: "empty", Limit: 50})
	require.NoError(t, err)
	assert.NotNil(t, resp.Body.Readings)
	assert.Empty(t, resp.Body.Readings)

	_, err = h.ListReadings(context.Background(), &models.ListReadingsRequest{SessionID: "broken", Limit: 50})
	requireAPIError(t, err, http.StatusInternalServerError, models.KindStorageFailed)

	mockRepo.AssertExpectations(t)
}

func TestGetReading(t *testing.T) {
	mockRepo := &MockReadingRepository{}
	h := NewTuningHandler(newMockService(t), mockRepo, nil)

	found := &models.Reading{ID: uuid.NewString(), ClosestNote: "G4"}
	missing := uuid.New()
	mockRepo.On("GetByID", mock.Anything, uuid.MustParse(found.ID)).Return(found, nil)
	mockRepo.On("GetByID", mock.Anything, missing).Return(nil, repository.ErrNotFound)

	resp, err := h.GetReading(context.Background(), &models.GetReadingRequest{ID: found.ID})
	require.NoError(t, err)
	assert.Equal(t, "G4", resp.Body.ClosestNote)

	_, err = h.GetReading(context.Background(), &models.GetReadingRequest{ID: missing.String()})
	requireAPIError(t, err, http.StatusNotFound, models.KindNotFound)

	_, err = h.GetReading(context.Background(), &models.GetReadingRequest{ID: "not-a-uuid"})
	requireAPIError(t, err, http.StatusBadRequest, models.KindBadRequest)
}

func TestAnalysisError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"invalid audio", &processing.Error{Kind: processing.KindInvalidAudio, Err: errors.New("bad header")}, http.StatusBadRequest, models.KindInvalidAudio},
		{"no pitch", &processing.Error{Kind: processing.KindNoPitch, Err: pitch.ErrNoPitch}, http.StatusUnprocessableEntity, models.KindNoPitch},
		{"estimator failed", &processing.Error{Kind: processing.KindEstimatorFailed, Err: pitch.ErrEstimator}, http.StatusBadGateway, models.KindEstimatorFailed},
		{"storage failed", &processing.Error{Kind: processing.KindStorageFailed, Err: errors.New("db down")}, http.StatusInternalServerError, models.KindStorageFailed},
		{"untyped", errors.New("boom"), http.StatusInternalServerError, models.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireAPIError(t, analysisError(tt.err), tt.wantStatus, tt.wantKind)
		})
	}

	var apiErr *models.APIError
	require.ErrorAs(t, analysisError(errors.New("boom")), &apiErr)
	assert.Equal(t, "boom", apiErr.Message)
}

// MockClipStore implements storage.ClipStore for testing
type MockClipStore struct {
	mock.Mock
}

func (m *MockClipStore) PutClip(ctx context.Context, key string, contentType string, data []byte) error {
	args := m.Called(ctx, key, contentType, data)
	return args.Error(0)
}

func (m *MockClipStore) DownloadClip(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockClipStore) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockClipStore) DeleteClip(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func TestGetReadingAudio(t *testing.T) {
	mockRepo := &MockReadingRepository{}
	mockStore := &MockClipStore{}
	h := NewTuningHandler(newMockService(t), mockRepo, mockStore)

	key := "clips/archived.webm"
	archived := &models.Reading{ID: uuid.NewString(), AudioKey: &key}
	unarchived := &models.Reading{ID: uuid.NewString()}
	mockRepo.On("GetByID", mock.Anything, uuid.MustParse(archived.ID)).Return(archived, nil)
	mockRepo.On("GetByID", mock.Anything, uuid.MustParse(unarchived.ID)).Return(unarchived, nil)
	mockStore.On("GenerateDownloadURL", mock.Anything, key).Return("https://clips.example.com/archived.webm?sig=abc", nil)

	resp, err := h.GetReadingAudio(context.Background(), &models.GetReadingRequest{ID: archived.ID})
	require.NoError(t, err)
	assert.Equal(t, archived.ID, resp.Body.ReadingID)
	assert.Equal(t, "https://clips.example.com/archived.webm?sig=abc", resp.Body.URL)

	_, err = h.GetReadingAudio(context.Background(), &models.GetReadingRequest{ID: unarchived.ID})
	requireAPIError(t, err, http.StatusNotFound, models.KindNotFound)

	noArchive := NewTuningHandler(newMockService(t), mockRepo, nil)
	_, err = noArchive.GetReadingAudio(context.Background(), &models.GetReadingRequest{ID: archived.ID})
	requireAPIError(t, err, http.StatusServiceUnavailable, models.KindArchiveDisabled)

	mockStore.AssertExpectations(t)
}
