package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/auth"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository/memstore"
	"github.com/Freeeeeet/tutor_market/internal/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMessage struct {
	UserID int64
	Text   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (n *recordingNotifier) Notify(_ context.Context, userID int64, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{UserID: userID, Text: text})
}

func (n *recordingNotifier) To(userID int64) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, m := range n.sent {
		if m.UserID == userID {
			out = append(out, m.Text)
		}
	}
	return out
}

type env struct {
	store    *memstore.Store
	clock    *clock
	notifier *recordingNotifier

	users        *service.UserService
	availability *service.AvailabilityService
	bookings     *service.BookingService
	reviews      *service.ReviewService
	catalog      *service.CatalogService
	templates    *service.TemplateService
}

var baseTime = time.Date(2030, time.March, 4, 9, 0, 0, 0, time.UTC) // понедельник

func newEnv(t *testing.T) *env {
	t.Helper()

	store := memstore.New()
	clk := &clock{now: baseTime}
	notifier := &recordingNotifier{}
	logger := zap.NewNop()
	opts := []service.Option{service.WithClock(clk.Now), service.WithNotifier(notifier)}

	tokens := auth.NewTokenManager("test-secret-key-that-is-long-enough", time.Hour)
	revocations := auth.NewStoreRevocationList(store.Revocations())

	return &env{
		store:        store,
		clock:        clk,
		notifier:     notifier,
		users:        service.NewUserService(store, tokens, auth.NewHasher(bcrypt.MinCost), revocations, logger),
		availability: service.NewAvailabilityService(store, logger, opts...),
		bookings:     service.NewBookingService(store, logger, opts...),
		reviews:      service.NewReviewService(store, logger, opts...),
		catalog:      service.NewCatalogService(store, logger, opts...),
		templates:    service.NewTemplateService(store, logger, 2, time.UTC, opts...),
	}
}

var userSeq int

func (e *env) register(t *testing.T, role model.Role) *model.User {
	t.Helper()
	userSeq++
	profile, err := e.users.Register(context.Background(), service.RegisterInput{
		Username:   fmt.Sprintf("%s_%d", role, userSeq),
		Email:      fmt.Sprintf("%s%d@example.com", role, userSeq),
		Password:   "correct-horse",
		FirstName:  "Test",
		LastName:   string(role),
		Role:       role,
		HourlyRate: 40,
	})
	require.NoError(t, err)
	return profile.User
}

func (e *env) tutor(t *testing.T) *model.User   { return e.register(t, model.RoleTutor) }
func (e *env) student(t *testing.T) *model.User { return e.register(t, model.RoleStudent) }

// slot создаёт слот, начинающийся через offset от текущего времени
func (e *env) slot(t *testing.T, tutorID int64, offset, length time.Duration) *model.TimeSlot {
	t.Helper()
	start := e.clock.Now().Add(offset)
	slot, err := e.availability.CreateSlot(context.Background(), tutorID, start, start.Add(length))
	require.NoError(t, err)
	return slot
}

// completedSession бронирует слот и переводит часы за его окончание
func (e *env) completedSession(t *testing.T, tutorID, studentID int64) *model.Session {
	t.Helper()
	slot := e.slot(t, tutorID, time.Hour, time.Hour)
	session, err := e.bookings.BookSlot(context.Background(), studentID, slot.ID)
	require.NoError(t, err)
	e.clock.Advance(3 * time.Hour)
	return session
}
