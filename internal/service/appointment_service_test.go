package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/repository"
	"github.com/noah-isme/lesson-scheduler-api/internal/scheduling"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
)

// fakeAppointmentStore is an in-memory appointment store whose WithinLock rolls back on error.
type fakeAppointmentStore struct {
	appointments map[string]models.Appointment
	rebookings   []models.Rebooking
	lockedKeys   [][]string
	tick         time.Time
}

func newFakeAppointmentStore() *fakeAppointmentStore {
	return &fakeAppointmentStore{
		appointments: map[string]models.Appointment{},
		tick:         time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeAppointmentStore) put(a models.Appointment) models.Appointment {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	f.tick = f.tick.Add(time.Second)
	a.UpdatedAt = f.tick
	f.appointments[a.ID] = a
	return a
}

func (f *fakeAppointmentStore) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	var out []models.Appointment
	for _, a := range f.appointments {
		if filter.InstructorID != "" && a.InstructorID != filter.InstructorID {
			continue
		}
		out = append(out, a)
	}
	return out, len(out), nil
}

func (f *fakeAppointmentStore) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	a, ok := f.appointments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (f *fakeAppointmentStore) BookedInWindow(ctx context.Context, w scheduling.Window) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range f.appointments {
		if a.Status == scheduling.StatusFuture && a.StudentID != nil && w.Contains(a.StartTime) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAppointmentStore) DayView(ctx context.Context, w scheduling.Window) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, s := range scheduling.DayViewStatuses() {
		for _, a := range f.appointments {
			if a.Status == s && w.Contains(a.StartTime) {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (f *fakeAppointmentStore) Delete(ctx context.Context, id string) error {
	if _, ok := f.appointments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.appointments, id)
	return nil
}

func (f *fakeAppointmentStore) RebookingFor(ctx context.Context, id string) (*models.Rebooking, error) {
	for _, rb := range f.rebookings {
		if rb.DeadAppointmentID == id || rb.NewAppointmentID == id {
			return &rb, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAppointmentStore) WithinLock(ctx context.Context, keys []string, fn func(repository.AppointmentTx) error) error {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	f.lockedKeys = append(f.lockedKeys, sorted)

	snapshot := make(map[string]models.Appointment, len(f.appointments))
	for k, v := range f.appointments {
		snapshot[k] = v
	}
	rebookings := append([]models.Rebooking(nil), f.rebookings...)
	if err := fn(f); err != nil {
		f.appointments = snapshot
		f.rebookings = rebookings
		return err
	}
	return nil
}

func (f *fakeAppointmentStore) ActiveForActor(ctx context.Context, scope scheduling.Scope, actorID string, w scheduling.Window, excludeIDs ...string) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range f.appointments {
		if len(scheduling.Without([]scheduling.Slot{a.Slot()}, excludeIDs...)) == 0 {
			continue
		}
		if a.Slot().ActorID(scope) != actorID {
			continue
		}
		if !scheduling.Overlaps(a.StartTime, a.EndTime, w.Start, w.End) {
			continue
		}
		if !scheduling.CountsTowardOverlap(a.Slot(), f.isDead(a.ID)) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAppointmentStore) isDead(id string) bool {
	for _, rb := range f.rebookings {
		if rb.DeadAppointmentID == id {
			return true
		}
	}
	return false
}

func (f *fakeAppointmentStore) Create(ctx context.Context, a *models.Appointment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	*a = f.put(*a)
	return nil
}

func (f *fakeAppointmentStore) Update(ctx context.Context, a *models.Appointment) error {
	*a = f.put(*a)
	return nil
}

func (f *fakeAppointmentStore) RebookingLinks(ctx context.Context, deadID, newID string) (bool, bool, error) {
	var dead, target bool
	for _, rb := range f.rebookings {
		dead = dead || rb.DeadAppointmentID == deadID
		target = target || rb.NewAppointmentID == newID
	}
	return dead, target, nil
}

func (f *fakeAppointmentStore) CreateRebooking(ctx context.Context, rb *models.Rebooking) error {
	rb.ID = uuid.NewString()
	f.rebookings = append(f.rebookings, *rb)
	return nil
}

type fakeCategories map[string]models.AppointmentCategory

func (f fakeCategories) Get(ctx context.Context, id string) (*models.AppointmentCategory, error) {
	c, ok := f[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
	}
	return &c, nil
}

var (
	fixedNow        = time.Date(2030, 3, 4, 8, 0, 0, 0, time.UTC)
	adminActor      = Actor{UserID: "admin-1", Role: models.RoleAdmin}
	instructorActor = Actor{UserID: "inst-1", Role: models.RoleInstructor}
	studentActor    = Actor{UserID: "stu-1", Role: models.RoleStudent}
)

func at(hour, minute int) time.Time {
	return time.Date(2030, 3, 4, hour, minute, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

func newAppointmentFixture() (*AppointmentService, *fakeAppointmentStore) {
	store := newFakeAppointmentStore()
	categories := fakeCategories{
		"hour": {ID: "hour", Name: "Piano 55", LessonMinutes: 55, BufferMinutes: 5},
		"half": {ID: "half", Name: "Guitar 30", LessonMinutes: 30},
	}
	policy := scheduling.Policy{MinStartOffset: scheduling.DefaultMinStartOffset, Now: func() time.Time { return fixedNow }}
	svc := NewAppointmentService(store, categories, nil, NewMetricsService(), nil, nil, AppointmentServiceConfig{Policy: policy})
	return svc, store
}

func requireAppError(t *testing.T, err error, status int) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected *errors.Error, got %T", err)
	assert.Equal(t, status, appErr.Status)
	return appErr
}

func TestAppointmentServiceCreateComputesEndTime(t *testing.T) {
	svc, store := newAppointmentFixture()

	appt, err := svc.Create(context.Background(), adminActor, models.CreateAppointmentRequest{
		CategoryID:   "hour",
		InstructorID: "inst-1",
		StudentID:    strPtr("stu-1"),
		StartTime:    at(9, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, at(10, 0), appt.EndTime)
	assert.Equal(t, scheduling.StatusFuture, appt.Status)
	assert.Len(t, store.appointments, 1)
	assert.Equal(t, []string{"instructor:inst-1", "student:stu-1"}, store.lockedKeys[0])
}

func TestAppointmentServiceCreateDefaultsToOpen(t *testing.T) {
	svc, store := newAppointmentFixture()

	appt, err := svc.Create(context.Background(), instructorActor, models.CreateAppointmentRequest{
		CategoryID:   "half",
		InstructorID: "inst-1",
		StartTime:    at(9, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusOpen, appt.Status)
	assert.Nil(t, appt.StudentID)
	assert.Equal(t, []string{"instructor:inst-1"}, store.lockedKeys[0])
}

func TestAppointmentServiceCreateInstructorOverlapIsConflict(t *testing.T) {
	svc, store := newAppointmentFixture()
	existing := store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-1", StartTime: at(9, 0), EndTime: at(10, 0), Status: scheduling.StatusOpen})

	_, err := svc.Create(context.Background(), adminActor, models.CreateAppointmentRequest{
		CategoryID: "hour", InstructorID: "inst-1", StartTime: at(9, 30),
	})
	appErr := requireAppError(t, err, http.StatusConflict)
	assert.Equal(t, "Time slot overlaps with instructor's other appointments.", appErr.Message)
	details, ok := appErr.Details.(scheduling.ValidationErrors)
	require.True(t, ok)
	assert.Equal(t, existing.ID, details[0].ConflictingID)
	assert.Len(t, store.appointments, 1)
}

func TestAppointmentServiceCreateBackToBackIsAllowed(t *testing.T) {
	svc, store := newAppointmentFixture()
	store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-1", StartTime: at(9, 0), EndTime: at(10, 0), Status: scheduling.StatusOpen})

	_, err := svc.Create(context.Background(), adminActor, models.CreateAppointmentRequest{
		CategoryID: "hour", InstructorID: "inst-1", StartTime: at(10, 0),
	})
	require.NoError(t, err)
	assert.Len(t, store.appointments, 2)
}

func TestAppointmentServiceCreateStudentOverlap(t *testing.T) {
	svc, store := newAppointmentFixture()
	store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-2", StudentID: strPtr("stu-1"), StartTime: at(9, 0), EndTime: at(10, 0), Status: scheduling.StatusFuture})

	_, err := svc.Create(context.Background(), adminActor, models.CreateAppointmentRequest{
		CategoryID: "half", InstructorID: "inst-1", StudentID: strPtr("stu-1"), StartTime: at(9, 45),
	})
	appErr := requireAppError(t, err, http.StatusConflict)
	assert.Equal(t, "Time slot overlaps with student's other appointments.", appErr.Message)
}

func TestAppointmentServiceCreateCollectsValidationErrors(t *testing.T) {
	svc, _ := newAppointmentFixture()

	_, err := svc.Create(context.Background(), adminActor, models.CreateAppointmentRequest{
		CategoryID: "hour", InstructorID: "inst-1", StartTime: at(7, 0), Status: scheduling.StatusFuture,
	})
	appErr := requireAppError(t, err, http.StatusBadRequest)
	details := appErr.Details.(scheduling.ValidationErrors)
	fields := []string{}
	for _, d := range details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"student_id", "start_time"}, fields)
}

func TestAppointmentServiceCreateUnknownCategory(t *testing.T) {
	svc, _ := newAppointmentFixture()

	_, err := svc.Create(context.Background(), adminActor, models.CreateAppointmentRequest{
		CategoryID: "nope", InstructorID: "inst-1", StartTime: at(9, 0),
	})
	appErr := requireAppError(t, err, http.StatusBadRequest)
	assert.Equal(t, "appointment_category_id", appErr.Details.(scheduling.ValidationErrors)[0].Field)
}

func TestAppointmentServiceInstructorCannotCreateForOthers(t *testing.T) {
	svc, _ := newAppointmentFixture()

	_, err := svc.Create(context.Background(), instructorActor, models.CreateAppointmentRequest{
		CategoryID: "hour", InstructorID: "inst-2", StartTime: at(9, 0),
	})
	requireAppError(t, err, http.StatusForbidden)
}

func TestAppointmentServiceBook(t *testing.T) {
	svc, store := newAppointmentFixture()
	open := store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-1", StartTime: at(9, 0), EndTime: at(10, 0), Status: scheduling.StatusOpen})

	booked, err := svc.Book(context.Background(), studentActor, open.ID, models.BookRequest{})
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusFuture, booked.Status)
	require.NotNil(t, booked.StudentID)
	assert.Equal(t, "stu-1", *booked.StudentID)
	assert.Contains(t, store.lockedKeys[len(store.lockedKeys)-1], "student:stu-1")

	_, err = svc.Book(context.Background(), Actor{UserID: "stu-2", Role: models.RoleStudent}, open.ID, models.BookRequest{})
	requireAppError(t, err, http.StatusBadRequest)
}

func TestAppointmentServiceBookRejectsStudentDoubleBooking(t *testing.T) {
	svc, store := newAppointmentFixture()
	store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-2", StudentID: strPtr("stu-1"), StartTime: at(9, 30), EndTime: at(10, 30), Status: scheduling.StatusFuture})
	open := store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-1", StartTime: at(9, 0), EndTime: at(10, 0), Status: scheduling.StatusOpen})

	_, err := svc.Book(context.Background(), studentActor, open.ID, models.BookRequest{})
	requireAppError(t, err, http.StatusConflict)
	assert.Nil(t, store.appointments[open.ID].StudentID)
}

func TestAppointmentServiceBookRoles(t *testing.T) {
	svc, store := newAppointmentFixture()
	open := store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-1", StartTime: at(9, 0), EndTime: at(10, 0), Status: scheduling.StatusOpen})

	_, err := svc.Book(context.Background(), instructorActor, open.ID, models.BookRequest{StudentID: "stu-1"})
	requireAppError(t, err, http.StatusForbidden)

	_, err = svc.Book(context.Background(), adminActor, open.ID, models.BookRequest{})
	requireAppError(t, err, http.StatusBadRequest)

	booked, err := svc.Book(context.Background(), adminActor, open.ID, models.BookRequest{StudentID: "stu-9"})
	require.NoError(t, err)
	assert.Equal(t, "stu-9", *booked.StudentID)
}

func TestAppointmentServiceBookRejectsElapsedSlot(t *testing.T) {
	svc, store := newAppointmentFixture()
	started := store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-1", StartTime: at(6, 0), EndTime: at(7, 0), Status: scheduling.StatusOpen})

	_, err := svc.Book(context.Background(), studentActor, started.ID, models.BookRequest{})
	appErr := requireAppError(t, err, http.StatusBadRequest)
	details := appErr.Details.(scheduling.ValidationErrors)
	require.Len(t, details, 1)
	assert.Equal(t, "start_time", details[0].Field)
	assert.Equal(t, "cannot be in the past", details[0].Message)
	assert.Nil(t, store.appointments[started.ID].StudentID)
	assert.Equal(t, scheduling.StatusOpen, store.appointments[started.ID].Status)
}

func TestAppointmentServiceReopenReleasesStudent(t *testing.T) {
	svc, store := newAppointmentFixture()
	booked := store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-1", StudentID: strPtr("stu-1"), StartTime: at(9, 0), EndTime: at(10, 0), Status: scheduling.StatusFuture})
	other := store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-2", StartTime: at(9, 30), EndTime: at(10, 30), Status: scheduling.StatusOpen})

	res, err := svc.UpdateStatus(context.Background(), instructorActor, booked.ID, models.UpdateStatusRequest{Status: scheduling.StatusOpen})
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusOpen, res.Appointment.Status)
	assert.Nil(t, res.Appointment.StudentID)

	moved, err := svc.Book(context.Background(), studentActor, other.ID, models.BookRequest{})
	require.NoError(t, err)
	assert.Equal(t, "stu-1", *moved.StudentID)

	rebooked, err := svc.Book(context.Background(), Actor{UserID: "stu-2", Role: models.RoleStudent}, booked.ID, models.BookRequest{})
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusFuture, rebooked.Status)
	assert.Equal(t, "stu-2", *rebooked.StudentID)
}

func TestAppointmentServiceUpdateToOpenClearsStudent(t *testing.T) {
	svc, store := newAppointmentFixture()
	booked := store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-1", StudentID: strPtr("stu-1"), StartTime: at(9, 0), EndTime: at(10, 0), Status: scheduling.StatusFuture})

	open := scheduling.StatusOpen
	updated, err := svc.Update(context.Background(), adminActor, booked.ID, models.UpdateAppointmentRequest{Status: &open})
	require.NoError(t, err)
	assert.Nil(t, updated.StudentID)
	assert.True(t, updated.IsOpen())
}

func TestAppointmentServiceUpdateStatusEditableByInstructor(t *testing.T) {
	svc, store := newAppointmentFixture()
	occurred := store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-1", StudentID: strPtr("stu-1"), StartTime: at(9, 0), EndTime: at(10, 0), Status: scheduling.StatusPastOccurred})
	future := store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-1", StudentID: strPtr("stu-1"), StartTime: at(11, 0), EndTime: at(12, 0), Status: scheduling.StatusFuture})
	foreign := store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-2", StartTime: at(11, 0), EndTime: at(12, 0), Status: scheduling.StatusOpen})

	_, err := svc.UpdateStatus(context.Background(), instructorActor, occurred.ID, models.UpdateStatusRequest{Status: scheduling.StatusNoShow})
	requireAppError(t, err, http.StatusForbidden)

	_, err = svc.UpdateStatus(context.Background(), instructorActor, foreign.ID, models.UpdateStatusRequest{Status: scheduling.StatusUnavailable})
	requireAppError(t, err, http.StatusForbidden)

	res, err := svc.UpdateStatus(context.Background(), instructorActor, future.ID, models.UpdateStatusRequest{Status: scheduling.StatusCancelledByInstructor})
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusCancelledByInstructor, res.Appointment.Status)
	assert.Nil(t, res.Rebook)

	res, err = svc.UpdateStatus(context.Background(), adminActor, occurred.ID, models.UpdateStatusRequest{Status: scheduling.StatusNoShow})
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusNoShow, res.Appointment.Status)
}

func TestAppointmentServiceUpdateStatusWithRebook(t *testing.T) {
	svc, store := newAppointmentFixture()
	booked := store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-1", StudentID: strPtr("stu-1"), StartTime: at(9, 0), EndTime: at(10, 0), Status: scheduling.StatusFuture})

	res, err := svc.UpdateStatus(context.Background(), instructorActor, booked.ID, models.UpdateStatusRequest{Status: scheduling.StatusCancelledByStudent, Rebook: true})
	require.NoError(t, err)
	require.NotNil(t, res.Rebook)
	replacement := res.Rebook.Replacement
	assert.Equal(t, scheduling.StatusOpen, replacement.Status)
	assert.True(t, replacement.ReBookable)
	assert.Nil(t, replacement.StudentID)
	assert.Equal(t, at(9, 0), replacement.StartTime)
	assert.Equal(t, at(10, 0), replacement.EndTime)
	assert.Equal(t, booked.ID, res.Rebook.Rebooking.DeadAppointmentID)
	assert.Equal(t, replacement.ID, res.Rebook.Rebooking.NewAppointmentID)
	assert.Len(t, store.rebookings, 1)
	assert.Len(t, store.appointments, 2)

	_, err = svc.UpdateStatus(context.Background(), adminActor, booked.ID, models.UpdateStatusRequest{Status: scheduling.StatusFuture, Rebook: true})
	requireAppError(t, err, http.StatusBadRequest)
}

func TestAppointmentServiceRebook(t *testing.T) {
	svc, store := newAppointmentFixture()
	dead := store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-1", StudentID: strPtr("stu-1"), StartTime: at(9, 0), EndTime: at(10, 0), Status: scheduling.StatusRescheduledByInstructor})

	res, err := svc.Rebook(context.Background(), instructorActor, dead.ID, models.RebookRequest{})
	require.NoError(t, err)
	assert.Equal(t, dead.ID, res.Dead.ID)
	assert.Equal(t, "inst-1", res.Replacement.InstructorID)
	assert.Equal(t, "hour", res.Replacement.CategoryID)

	_, err = svc.Rebook(context.Background(), instructorActor, dead.ID, models.RebookRequest{})
	appErr := requireAppError(t, err, http.StatusBadRequest)
	assert.Contains(t, appErr.Details.(scheduling.ValidationErrors).Error(), "has already been rebooked")
	assert.Len(t, store.appointments, 2)
}

func TestAppointmentServiceRebookRequiresCancelledAppointment(t *testing.T) {
	svc, store := newAppointmentFixture()
	live := store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-1", StudentID: strPtr("stu-1"), StartTime: at(9, 0), EndTime: at(10, 0), Status: scheduling.StatusFuture})

	_, err := svc.Rebook(context.Background(), adminActor, live.ID, models.RebookRequest{})
	requireAppError(t, err, http.StatusBadRequest)
	assert.Empty(t, store.rebookings)
}

func TestAppointmentServiceRebookConflictRollsBack(t *testing.T) {
	svc, store := newAppointmentFixture()
	dead := store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-1", StudentID: strPtr("stu-1"), StartTime: at(9, 0), EndTime: at(10, 0), Status: scheduling.StatusCancelledByStudent})
	store.put(models.Appointment{CategoryID: "half", InstructorID: "inst-1", StartTime: at(9, 30), EndTime: at(10, 0), Status: scheduling.StatusUnavailable})

	_, err := svc.Rebook(context.Background(), adminActor, dead.ID, models.RebookRequest{})
	requireAppError(t, err, http.StatusConflict)
	assert.Len(t, store.appointments, 2)
	assert.Empty(t, store.rebookings)
}

func TestDeadAppointmentFreesItsWindow(t *testing.T) {
	svc, store := newAppointmentFixture()
	dead := store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-1", StudentID: strPtr("stu-1"), StartTime: at(9, 0), EndTime: at(10, 0), Status: scheduling.StatusCancelledByStudent})

	res, err := svc.Rebook(context.Background(), adminActor, dead.ID, models.RebookRequest{StartTime: timePtr(at(13, 0))})
	require.NoError(t, err)
	assert.Equal(t, at(13, 0), res.Replacement.StartTime)

	_, err = svc.Create(context.Background(), adminActor, models.CreateAppointmentRequest{CategoryID: "hour", InstructorID: "inst-1", StartTime: at(9, 0)})
	require.NoError(t, err)
}

func TestAppointmentServiceUpdateRecomputesEndTime(t *testing.T) {
	svc, store := newAppointmentFixture()
	appt := store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-1", StartTime: at(9, 0), EndTime: at(10, 0), Status: scheduling.StatusOpen})

	updated, err := svc.Update(context.Background(), adminActor, appt.ID, models.UpdateAppointmentRequest{CategoryID: strPtr("half"), StartTime: timePtr(at(7, 0))})
	require.NoError(t, err)
	assert.Equal(t, at(7, 30), updated.EndTime)
}

func TestAppointmentServiceGetAndDeleteNotFound(t *testing.T) {
	svc, _ := newAppointmentFixture()

	_, err := svc.Get(context.Background(), "missing")
	requireAppError(t, err, http.StatusNotFound)
	requireAppError(t, svc.Delete(context.Background(), "missing"), http.StatusNotFound)
}

func TestAppointmentServiceBookedInWindowAndToday(t *testing.T) {
	svc, store := newAppointmentFixture()
	store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-1", StudentID: strPtr("stu-1"), StartTime: at(9, 0), EndTime: at(10, 0), Status: scheduling.StatusFuture})
	store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-1", StartTime: at(11, 0), EndTime: at(12, 0), Status: scheduling.StatusOpen})
	store.put(models.Appointment{CategoryID: "hour", InstructorID: "inst-1", StudentID: strPtr("stu-2"), StartTime: at(13, 0), EndTime: at(14, 0), Status: scheduling.StatusCancelledByInstructor})

	booked, err := svc.BookedInWindow(context.Background(), at(0, 0), at(23, 0))
	require.NoError(t, err)
	assert.Len(t, booked, 1)

	_, err = svc.BookedInWindow(context.Background(), at(10, 0), at(9, 0))
	requireAppError(t, err, http.StatusBadRequest)

	today, err := svc.Today(context.Background(), at(15, 0), time.UTC)
	require.NoError(t, err)
	assert.Len(t, today, 2)
}

func timePtr(t time.Time) *time.Time { return &t }
