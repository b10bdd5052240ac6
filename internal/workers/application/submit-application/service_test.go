package submitapplication

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	stderrors "collision-site/internal/common/errors"
	"collision-site/internal/common/logger"
	"collision-site/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	args := m.Called(ctx, key, contentType, body)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) LinkFor(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Insert(ctx context.Context, app *models.JobApplication) (string, error) {
	args := m.Called(ctx, app)
	return args.String(0), args.Error(1)
}

// chanNotifier hands every notification to the test.
type chanNotifier struct {
	sent chan models.NotificationRequest
	err  error
}

func newChanNotifier(err error) *chanNotifier {
	return &chanNotifier{sent: make(chan models.NotificationRequest, 4), err: err}
}

func (n *chanNotifier) Dispatch(_ context.Context, req models.NotificationRequest) error {
	n.sent <- req
	return n.err
}

func (n *chanNotifier) next(t *testing.T) models.NotificationRequest {
	t.Helper()
	select {
	case req := <-n.sent:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not sent")
		return models.NotificationRequest{}
	}
}

var fixedNow = time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)

func testConfig() *Config {
	return &Config{MaxResumeBytes: DefaultMaxResumeBytes, SuccessPath: DefaultSuccessPath, LockTTL: time.Minute}
}

func validForm() models.ApplicationForm {
	return models.ApplicationForm{
		FirstName:  "Ann",
		LastName:   "Lee",
		Email:      "ann@example.com",
		Phone:      "5551234567",
		Address:    "1 Main St",
		City:       "Springfield",
		State:      "NJ",
		Zip:        "07081",
		Position:   "Painter",
		Experience: "4",
		References: []models.Reference{{Name: "Bob", Relationship: "Manager", Phone: "5550000000", Email: "bob@x.com"}},
	}
}

func newTestService(t *testing.T, objects ObjectStore, store ApplicationStore, notifier Notifier, opts ...ServiceOption) *Service {
	svc := NewService(testConfig(), objects, store, notifier, logger.NewTestLogger(t), opts...)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

// ==========================
// Submit
// ==========================

func TestSubmit_WithResume(t *testing.T) {
	objects := new(MockObjectStore)
	store := new(MockStore)
	notifier := newChanNotifier(nil)

	key := "1710527400000-Ann-Lee.pdf"
	objects.On("Put", mock.Anything, key, "application/pdf", mock.Anything).Return(key, nil).Once()
	objects.On("LinkFor", mock.Anything, key).Return("https://files.example.com/"+key+"?sig=1", nil)
	store.On("Insert", mock.Anything, mock.MatchedBy(func(app *models.JobApplication) bool {
		return app.ResumeURL != nil && *app.ResumeURL == key && app.Phone == "(555) 123-4567"
	})).Return("app-1", nil).Once()

	svc := newTestService(t, objects, store, notifier)
	res, err := svc.Submit(context.Background(), validForm(), &Attachment{
		Filename: "resume.pdf", ContentType: "application/pdf", Size: 3, Body: strings.NewReader("pdf"),
	})

	require.NoError(t, err)
	assert.Equal(t, "app-1", res.ApplicationID)
	assert.Equal(t, "/careers/success", res.Redirect)

	req := notifier.next(t)
	assert.Equal(t, models.KindApplication, req.Kind)
	assert.Equal(t, "Ann", req.Payload["firstName"])
	assert.Equal(t, "Painter", req.Payload["position"])
	assert.Equal(t, "https://files.example.com/"+key+"?sig=1", req.Payload["resumeUrl"])

	objects.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestSubmit_WithoutResume(t *testing.T) {
	objects := new(MockObjectStore)
	store := new(MockStore)
	notifier := newChanNotifier(nil)

	store.On("Insert", mock.Anything, mock.MatchedBy(func(app *models.JobApplication) bool {
		return app.ResumeURL == nil
	})).Return("app-2", nil).Once()

	svc := newTestService(t, objects, store, notifier)
	_, err := svc.Submit(context.Background(), validForm(), nil)
	require.NoError(t, err)

	req := notifier.next(t)
	assert.Equal(t, "", req.Payload["resumeUrl"])
	objects.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_LinkFallsBackToKey(t *testing.T) {
	objects := new(MockObjectStore)
	store := new(MockStore)
	notifier := newChanNotifier(nil)

	objects.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("k.pdf", nil)
	objects.On("LinkFor", mock.Anything, "k.pdf").Return("", errors.New("presigning not configured"))
	store.On("Insert", mock.Anything, mock.Anything).Return("app-3", nil)

	svc := newTestService(t, objects, store, notifier)
	_, err := svc.Submit(context.Background(), validForm(), &Attachment{Filename: "k.pdf", Size: 1, Body: strings.NewReader("x")})
	require.NoError(t, err)

	assert.Equal(t, "k.pdf", notifier.next(t).Payload["resumeUrl"])
}

func TestSubmit_NotificationFailureIsIgnored(t *testing.T) {
	store := new(MockStore)
	store.On("Insert", mock.Anything, mock.Anything).Return("app-4", nil)
	notifier := newChanNotifier(errors.New("smtp down"))

	svc := newTestService(t, new(MockObjectStore), store, notifier)
	res, err := svc.Submit(context.Background(), validForm(), nil)

	require.NoError(t, err)
	assert.Equal(t, "app-4", res.ApplicationID)
	notifier.next(t)
}

func TestSubmit_InvalidInput(t *testing.T) {
	objects := new(MockObjectStore)
	store := new(MockStore)
	svc := newTestService(t, objects, store, newChanNotifier(nil))

	form := validForm()
	form.Email = "ann@"
	form.Phone = "555"
	form.FirstName = ""

	_, err := svc.Submit(context.Background(), form, &Attachment{Filename: "r.pdf", Size: 1, Body: strings.NewReader("x")})

	require.True(t, stderrors.HasCode(err, stderrors.ErrCodeValidationFailed))
	stdErr, _ := stderrors.As(err)
	fields := stdErr.Metadata["fields"].(map[string]string)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "phone")
	assert.Contains(t, fields, "firstName")
	objects.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestSubmit_ResumeTooLarge(t *testing.T) {
	objects := new(MockObjectStore)
	store := new(MockStore)
	svc := newTestService(t, objects, store, newChanNotifier(nil))

	_, err := svc.Submit(context.Background(), validForm(), &Attachment{
		Filename: "big.pdf", Size: DefaultMaxResumeBytes + 1, Body: strings.NewReader(""),
	})

	require.True(t, stderrors.HasCode(err, stderrors.ErrCodeAttachmentTooLarge))
	assert.Equal(t, "Resume file size must be less than 10MB", err.(*stderrors.StandardError).Message)
	objects.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestSubmit_ResumeAtLimitIsAccepted(t *testing.T) {
	objects := new(MockObjectStore)
	store := new(MockStore)
	objects.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("k", nil)
	objects.On("LinkFor", mock.Anything, mock.Anything).Return("u", nil)
	store.On("Insert", mock.Anything, mock.Anything).Return("app-5", nil)
	notifier := newChanNotifier(nil)

	svc := newTestService(t, objects, store, notifier)
	_, err := svc.Submit(context.Background(), validForm(), &Attachment{
		Filename: "exact.pdf", Size: DefaultMaxResumeBytes, Body: strings.NewReader(""),
	})
	require.NoError(t, err)
	notifier.next(t)
}

func TestSubmit_UploadFailure(t *testing.T) {
	objects := new(MockObjectStore)
	store := new(MockStore)
	objects.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("bucket not found"))

	svc := newTestService(t, objects, store, newChanNotifier(nil))
	_, err := svc.Submit(context.Background(), validForm(), &Attachment{Filename: "r.pdf", Size: 1, Body: strings.NewReader("x")})

	require.True(t, stderrors.HasCode(err, stderrors.ErrCodeUploadFailed))
	assert.Equal(t, "There was an error submitting your application. Please try again.", err.(*stderrors.StandardError).Message)
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestSubmit_InsertFailure(t *testing.T) {
	store := new(MockStore)
	store.On("Insert", mock.Anything, mock.Anything).Return("", ErrInsertFailed)
	notifier := newChanNotifier(nil)

	svc := newTestService(t, new(MockObjectStore), store, notifier)
	_, err := svc.Submit(context.Background(), validForm(), nil)

	require.True(t, stderrors.HasCode(err, stderrors.ErrCodeInsertFailed))
	select {
	case <-notifier.sent:
		t.Fatal("notification sent for a failed insert")
	case <-time.After(50 * time.Millisecond):
	}
}

// ==========================
// Form lock
// ==========================

func TestSubmit_FormLock(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := new(MockStore)
	store.On("Insert", mock.Anything, mock.Anything).Return("", ErrInsertFailed).Once()
	store.On("Insert", mock.Anything, mock.Anything).Return("app-6", nil).Once()
	notifier := newChanNotifier(nil)

	svc := newTestService(t, new(MockObjectStore), store, notifier, WithFormLock(NewFormLock(rdb, time.Minute)))
	form := validForm()
	form.FormToken = "tok-1"

	// A failed submit frees the token for a retry.
	_, err := svc.Submit(context.Background(), form, nil)
	require.Error(t, err)
	assert.False(t, mr.Exists(lockKeyPrefix+"tok-1"))

	_, err = svc.Submit(context.Background(), form, nil)
	require.NoError(t, err)
	notifier.next(t)
	assert.True(t, mr.Exists(lockKeyPrefix+"tok-1"))

	_, err = svc.Submit(context.Background(), form, nil)
	assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeDuplicateSubmission))
	store.AssertNumberOfCalls(t, "Insert", 2)
}

func TestSubmit_FormLockHeldElsewhere(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, mr.Set(lockKeyPrefix+"tok-2", "1"))

	store := new(MockStore)
	svc := newTestService(t, new(MockObjectStore), store, newChanNotifier(nil), WithFormLock(NewFormLock(rdb, time.Minute)))
	form := validForm()
	form.FormToken = "tok-2"

	_, err := svc.Submit(context.Background(), form, nil)
	assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeDuplicateSubmission))
	assert.True(t, mr.Exists(lockKeyPrefix+"tok-2"))
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

// ==========================
// Repository
// ==========================

func TestRepository_Insert(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	key := "1-Ann-Lee.pdf"
	app := &models.JobApplication{
		FirstName: "Ann", LastName: "Lee", Email: "ann@example.com", Phone: "(555) 123-4567",
		Position: "Painter", Experience: "4", ResumeURL: &key,
		References: []models.Reference{{Name: "Bob"}},
		CreatedAt:  fixedNow,
	}

	sqlMock.ExpectExec("INSERT INTO job_applications").
		WithArgs(sqlmock.AnyArg(), "Ann", "Lee", "ann@example.com", "(555) 123-4567", "", "", "", "",
			"Painter", "4", "2024-03-15", key,
			[]byte(`[{"name":"Bob","relationship":"","phone":"","email":""}]`), fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := NewRepository(db).Insert(context.Background(), app)
	require.NoError(t, err)
	assert.Len(t, id, 36)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestRepository_InsertNullResume(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlMock.ExpectExec("INSERT INTO job_applications").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), nil, []byte(`[]`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = NewRepository(db).Insert(context.Background(), &models.JobApplication{FirstName: "Ann"})
	require.NoError(t, err)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestRepository_InsertError(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlMock.ExpectExec("INSERT INTO job_applications").WillReturnError(errors.New("connection reset"))

	_, err = NewRepository(db).Insert(context.Background(), &models.JobApplication{})
	assert.ErrorIs(t, err, ErrInsertFailed)
	assert.ErrorContains(t, err, "connection reset")
}

func TestResumeKey(t *testing.T) {
	assert.Equal(t, "1710527400000-Ann-Lee.pdf", ResumeKey(fixedNow, "Ann", "Lee", "My CV.pdf"))
	assert.Equal(t, "1710527400000-Ann-Lee.gz", ResumeKey(fixedNow, "Ann", "Lee", "cv.tar.gz"))
	assert.Equal(t, "1710527400000-Ann-Lee.resume", ResumeKey(fixedNow, "Ann", "Lee", "resume"))
	assert.Equal(t, "1710527400000-A_B-Lee.pdf", ResumeKey(fixedNow, "A/B", "Lee", "x.pdf"))
}
