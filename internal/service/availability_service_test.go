package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/scheduling"
)

type availabilityRepoStub struct {
	items map[string]models.Availability
}

func (s *availabilityRepoStub) FindByID(ctx context.Context, id string) (*models.Availability, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

func (s *availabilityRepoStub) ListByInstructor(ctx context.Context, instructorID string) ([]models.Availability, error) {
	var out []models.Availability
	for _, item := range s.items {
		if item.InstructorID == instructorID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *availabilityRepoStub) Create(ctx context.Context, availability *models.Availability) error {
	s.items[availability.ID] = *availability
	return nil
}

func newAvailabilityFixture() (*AvailabilityService, *availabilityRepoStub, *fakeAppointmentStore) {
	store := newFakeAppointmentStore()
	repo := &availabilityRepoStub{items: map[string]models.Availability{}}
	categories := fakeCategories{"hour": {ID: "hour", LessonMinutes: 55, BufferMinutes: 5}}
	policy := scheduling.Policy{MinStartOffset: scheduling.DefaultMinStartOffset, Now: func() time.Time { return fixedNow }}
	svc := NewAvailabilityService(repo, store, categories, nil, NewMetricsService(), nil, nil, policy, time.UTC)
	return svc, repo, store
}

func TestAvailabilityServiceCreate(t *testing.T) {
	svc, repo, _ := newAvailabilityFixture()

	created, err := svc.Create(context.Background(), instructorActor, models.CreateAvailabilityRequest{
		CategoryID: "hour",
		StartsAt:   at(9, 0),
		Recurrence: "FREQ=WEEKLY;BYDAY=MO,WE",
	})
	require.NoError(t, err)
	assert.Equal(t, "inst-1", created.InstructorID)
	assert.Equal(t, "UTC", created.Timezone)
	assert.Contains(t, repo.items, created.ID)

	_, err = svc.Create(context.Background(), instructorActor, models.CreateAvailabilityRequest{
		CategoryID: "hour", StartsAt: at(9, 0), Recurrence: "FREQ=SOMETIMES",
	})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = svc.Create(context.Background(), studentActor, models.CreateAvailabilityRequest{CategoryID: "hour", StartsAt: at(9, 0)})
	requireAppError(t, err, http.StatusForbidden)

	_, err = svc.Create(context.Background(), adminActor, models.CreateAvailabilityRequest{CategoryID: "hour", StartsAt: at(9, 0)})
	requireAppError(t, err, http.StatusBadRequest)
}

func TestAvailabilityServiceExpandSkipsConflicts(t *testing.T) {
	svc, repo, store := newAvailabilityFixture()
	// 2030-03-04 is a Monday.
	repo.items["av-1"] = models.Availability{
		ID: "av-1", InstructorID: "inst-1", CategoryID: "hour",
		StartsAt: at(9, 0), Recurrence: "FREQ=DAILY", Timezone: "UTC",
	}
	blocker := store.put(models.Appointment{
		CategoryID: "hour", InstructorID: "inst-1",
		StartTime: at(9, 30).AddDate(0, 0, 1), EndTime: at(10, 30).AddDate(0, 0, 1),
		Status: scheduling.StatusUnavailable,
	})

	result, err := svc.Expand(context.Background(), instructorActor, "av-1", models.ExpandAvailabilityRequest{
		From: at(0, 0), To: at(0, 0).AddDate(0, 0, 3),
	})
	require.NoError(t, err)
	require.Len(t, result.Created, 2)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, at(9, 0).AddDate(0, 0, 1), result.Skipped[0].StartTime)
	assert.Equal(t, blocker.ID, result.Skipped[0].Errors[0].ConflictingID)

	for _, created := range result.Created {
		assert.Equal(t, scheduling.StatusOpen, created.Status)
		require.NotNil(t, created.AvailabilityID)
		assert.Equal(t, "av-1", *created.AvailabilityID)
		assert.Equal(t, created.StartTime.Add(time.Hour), created.EndTime)
	}
	assert.Len(t, store.appointments, 3)
	assert.Equal(t, []string{"instructor:inst-1"}, store.lockedKeys[0])
}

func TestAvailabilityServiceExpandValidation(t *testing.T) {
	svc, repo, _ := newAvailabilityFixture()
	repo.items["av-1"] = models.Availability{ID: "av-1", InstructorID: "inst-2", CategoryID: "hour", StartsAt: at(9, 0), Timezone: "UTC"}

	_, err := svc.Expand(context.Background(), adminActor, "av-1", models.ExpandAvailabilityRequest{From: at(10, 0), To: at(9, 0)})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = svc.Expand(context.Background(), adminActor, "av-1", models.ExpandAvailabilityRequest{From: at(0, 0), To: at(0, 0).AddDate(1, 0, 0)})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = svc.Expand(context.Background(), instructorActor, "av-1", models.ExpandAvailabilityRequest{From: at(0, 0), To: at(23, 0)})
	requireAppError(t, err, http.StatusForbidden)

	_, err = svc.Expand(context.Background(), adminActor, "missing", models.ExpandAvailabilityRequest{From: at(0, 0), To: at(23, 0)})
	requireAppError(t, err, http.StatusNotFound)
}

func TestAvailabilityServiceExpandSingleOccurrence(t *testing.T) {
	svc, repo, _ := newAvailabilityFixture()
	repo.items["av-1"] = models.Availability{ID: "av-1", InstructorID: "inst-1", CategoryID: "hour", StartsAt: at(14, 0), Timezone: "UTC"}

	result, err := svc.Expand(context.Background(), adminActor, "av-1", models.ExpandAvailabilityRequest{From: at(0, 0), To: at(23, 0)})
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	assert.Equal(t, at(14, 0), result.Created[0].StartTime)
	assert.Empty(t, result.Skipped)
}
