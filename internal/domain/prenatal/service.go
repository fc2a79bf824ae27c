package prenatal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gestcare/gestcare/internal/domain/gestation"
	"github.com/gestcare/gestcare/internal/domain/protocol"
	"github.com/gestcare/gestcare/internal/domain/reminder"
	"github.com/gestcare/gestcare/internal/domain/schedule"
	"github.com/gestcare/gestcare/internal/platform/metrics"
	"github.com/gestcare/gestcare/internal/platform/notification"
)

// ErrProfileNotFound is returned for users who never onboarded.
var ErrProfileNotFound = gestation.ErrProfileNotFound

// Repositories groups the persistence collaborators of the service.
type Repositories struct {
	Profiles gestation.ProfileRepository
	Exams    schedule.Repository
	Settings reminder.SettingsRepository
	Patients PatientRepository
}

// Options tune the service. Zero values fall back to defaults.
type Options struct {
	Catalog        *protocol.Catalog
	Tolerances     gestation.Tolerances
	Lifecycle      schedule.Lifecycle
	ClinicWhatsApp string
	Clock          func() time.Time
	Logger         zerolog.Logger
}

// Service is the application state container. Every operation loads the
// user's state, applies pure engine functions and persists the result.
type Service struct {
	repos     Repositories
	planner   *reminder.Planner
	templates *notification.TemplateEngine
	catalog   *protocol.Catalog
	tol       gestation.Tolerances
	lifecycle schedule.Lifecycle
	clinic    string
	now       func() time.Time
	logger    zerolog.Logger

	locks sync.Map
}

// NewService wires the service.
func NewService(repos Repositories, planner *reminder.Planner, templates *notification.TemplateEngine, opts Options) *Service {
	if opts.Catalog == nil {
		opts.Catalog = protocol.Default()
	}
	if opts.Tolerances == (gestation.Tolerances{}) {
		opts.Tolerances = gestation.DefaultTolerances()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if templates == nil {
		templates = notification.NewTemplateEngine()
	}
	return &Service{
		repos:     repos,
		planner:   planner,
		templates: templates,
		catalog:   opts.Catalog,
		tol:       opts.Tolerances,
		lifecycle: opts.Lifecycle,
		clinic:    opts.ClinicWhatsApp,
		now:       opts.Clock,
		logger:    opts.Logger,
	}
}

// Catalog returns the active exam protocol.
func (s *Service) Catalog() *protocol.Catalog { return s.catalog }

// lock serialises read-modify-write cycles of one user.
func (s *Service) lock(userID string) func() {
	v, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// -- Profile --

// Onboard validates and resolves the first profile of a user, generates the
// exam schedule and plans reminders. Onboarding again replaces the profile
// but keeps the existing exam collection.
func (s *Service) Onboard(ctx context.Context, userID string, req ProfileRequest) (*Dashboard, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	defer s.lock(userID)()
	now := s.now()

	in, err := s.validate(req, now)
	if err != nil {
		return nil, err
	}
	in.ID = uuid.New().String()
	in.UserID = userID
	prev, err := s.repos.Profiles.Get(ctx, userID)
	switch {
	case err == nil:
		in.ID = prev.ID
		in.CreatedAt = prev.CreatedAt
	case !errors.Is(err, gestation.ErrProfileNotFound):
		return nil, fmt.Errorf("load profile: %w", err)
	}
	profile := gestation.Resolve(in, now)
	metrics.ProfileResolved(string(profile.Source))

	if err := s.savePatient(ctx, userID, req, now); err != nil {
		return nil, err
	}
	if err := s.repos.Profiles.Save(ctx, &profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	exams, err := s.loadOrGenerate(ctx, profile, now)
	if err != nil {
		return nil, err
	}
	if _, err := s.planReminders(ctx, userID, profile, exams, now); err != nil {
		return nil, err
	}
	return s.dashboard(profile, exams, now), nil
}

// GetProfile loads the profile and brings its age up to date, persisting
// only when something moved.
func (s *Service) GetProfile(ctx context.Context, userID string) (*ProfileView, error) {
	defer s.lock(userID)()
	now := s.now()
	p, err := s.currentProfile(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	v := newProfileView(*p, now)
	return &v, nil
}

// UpdateProfile re-validates and re-resolves an edited profile. Exam window
// dates keep the values fixed at generation; statuses and reminders are
// refreshed against the new age.
func (s *Service) UpdateProfile(ctx context.Context, userID string, req ProfileRequest) (*ProfileView, error) {
	defer s.lock(userID)()
	now := s.now()

	existing, err := s.repos.Profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	in, err := s.validate(req, now)
	if err != nil {
		return nil, err
	}
	in.ID = existing.ID
	in.UserID = userID
	in.CreatedAt = existing.CreatedAt
	profile := gestation.Resolve(in, now)
	metrics.ProfileResolved(string(profile.Source))

	if req.Name != "" || req.Phone != "" {
		if err := s.savePatient(ctx, userID, req, now); err != nil {
			return nil, err
		}
	}
	if err := s.repos.Profiles.Save(ctx, &profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	exams, err := s.loadOrGenerate(ctx, profile, now)
	if err != nil {
		return nil, err
	}
	if _, err := s.planReminders(ctx, userID, profile, exams, now); err != nil {
		return nil, err
	}
	v := newProfileView(profile, now)
	return &v, nil
}

// DeleteProfile clears every stored key of the user and cancels reminders.
// The profile goes first so a partial failure never leaves a profile without
// its exams; every removal is attempted and the failures are joined.
func (s *Service) DeleteProfile(ctx context.Context, userID string) error {
	defer s.lock(userID)()
	if _, err := s.repos.Profiles.Get(ctx, userID); err != nil {
		return err
	}
	if err := s.repos.Profiles.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}

	var errs []error
	if err := s.planner.Clear(ctx, userID); err != nil {
		errs = append(errs, err)
	}
	if err := s.repos.Exams.Delete(ctx, userID); err != nil {
		errs = append(errs, fmt.Errorf("delete exams: %w", err))
	}
	if err := s.repos.Settings.Delete(ctx, userID); err != nil {
		errs = append(errs, fmt.Errorf("delete settings: %w", err))
	}
	if err := s.repos.Patients.Delete(ctx, userID); err != nil {
		errs = append(errs, fmt.Errorf("delete patient: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Service) validate(req ProfileRequest, now time.Time) (gestation.ProfileInput, error) {
	in, problems := req.toInput()
	err := gestation.ValidateProfile(in, now, s.tol)

	var ve *gestation.ValidationError
	if errors.As(err, &ve) {
		problems = append(problems, ve.Problems...)
	}
	if len(problems) > 0 {
		for _, p := range problems {
			metrics.ValidationFailed(p.Field)
		}
		return in, &gestation.ValidationError{Problems: problems}
	}
	return in, nil
}

func (s *Service) savePatient(ctx context.Context, userID string, req ProfileRequest, now time.Time) error {
	p, err := s.repos.Patients.Get(ctx, userID)
	if errors.Is(err, ErrPatientNotFound) {
		p = &Patient{ID: userID, CreatedAt: now}
	} else if err != nil {
		return err
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Phone != "" {
		p.Phone = req.Phone
	}
	p.UpdatedAt = now
	if err := s.repos.Patients.Save(ctx, p); err != nil {
		return fmt.Errorf("save patient: %w", err)
	}
	return nil
}

// currentProfile loads and reconciles the profile. Callers hold the user lock.
func (s *Service) currentProfile(ctx context.Context, userID string, now time.Time) (*gestation.PregnancyProfile, error) {
	stored, err := s.repos.Profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, changed := gestation.Reconcile(*stored, now)
	if changed {
		if err := s.repos.Profiles.Save(ctx, &p); err != nil {
			return nil, fmt.Errorf("save profile: %w", err)
		}
	}
	return &p, nil
}

// -- Exams --

// loadOrGenerate returns the user's exam collection with missed windows
// applied. A schedule is generated only when none is stored.
func (s *Service) loadOrGenerate(ctx context.Context, p gestation.PregnancyProfile, now time.Time) ([]schedule.ScheduledExam, error) {
	exams, err := s.repos.Exams.List(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("load exams: %w", err)
	}
	if len(exams) == 0 {
		exams = schedule.Generate(p, s.catalog, p.UserID, now)
		if err := s.repos.Exams.Save(ctx, p.UserID, exams); err != nil {
			return nil, fmt.Errorf("save exams: %w", err)
		}
		return exams, nil
	}

	refreshed, changed := schedule.Refresh(exams, p.GestationalAge, now)
	if changed {
		for i := range exams {
			if exams[i].Status != refreshed[i].Status {
				metrics.ExamTransition(string(exams[i].Status), string(refreshed[i].Status))
			}
		}
		if err := s.repos.Exams.Save(ctx, p.UserID, refreshed); err != nil {
			return nil, fmt.Errorf("save exams: %w", err)
		}
	}
	return refreshed, nil
}

// Dashboard returns the reconciled profile with the exam list ordered for
// display.
func (s *Service) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	defer s.lock(userID)()
	now := s.now()
	p, err := s.currentProfile(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	exams, err := s.loadOrGenerate(ctx, *p, now)
	if err != nil {
		return nil, err
	}
	return s.dashboard(*p, exams, now), nil
}

func (s *Service) dashboard(p gestation.PregnancyProfile, exams []schedule.ScheduledExam, now time.Time) *Dashboard {
	d := &Dashboard{
		Profile: newProfileView(p, now),
		Exams:   schedule.SortForDashboard(exams, p.GestationalAge),
	}
	for i := range d.Exams {
		st := d.Exams[i].Status
		if st == schedule.StatusPending || st == schedule.StatusScheduled {
			next := d.Exams[i]
			d.NextExam = &next
			break
		}
	}
	return d
}

// ListExams returns the dashboard-ordered exams, optionally filtered.
func (s *Service) ListExams(ctx context.Context, userID string, status *schedule.Status) ([]schedule.ScheduledExam, error) {
	d, err := s.Dashboard(ctx, userID)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return d.Exams, nil
	}
	return schedule.FilterByStatus(d.Exams, *status), nil
}

// ScheduleExam books an exam for date and refreshes reminders. A non-nil
// notes replaces the exam's free-text notes.
func (s *Service) ScheduleExam(ctx context.Context, userID, examID string, date time.Time, notes *string) (*schedule.ScheduledExam, error) {
	return s.transition(ctx, userID, examID, func(exams []schedule.ScheduledExam, now time.Time) ([]schedule.ScheduledExam, error) {
		return s.lifecycle.MarkAsScheduled(exams, examID, date, now, notes)
	})
}

// CompleteExam marks an exam done now and refreshes reminders.
func (s *Service) CompleteExam(ctx context.Context, userID, examID string, notes *string) (*schedule.ScheduledExam, error) {
	return s.transition(ctx, userID, examID, func(exams []schedule.ScheduledExam, now time.Time) ([]schedule.ScheduledExam, error) {
		return s.lifecycle.MarkAsCompleted(exams, examID, now, notes)
	})
}

func (s *Service) transition(ctx context.Context, userID, examID string,
	apply func([]schedule.ScheduledExam, time.Time) ([]schedule.ScheduledExam, error)) (*schedule.ScheduledExam, error) {
	defer s.lock(userID)()
	now := s.now()

	p, err := s.currentProfile(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	exams, err := s.loadOrGenerate(ctx, *p, now)
	if err != nil {
		return nil, err
	}
	before, _ := schedule.Find(exams, examID)

	updated, err := apply(exams, now)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Exams.Save(ctx, userID, updated); err != nil {
		return nil, fmt.Errorf("save exams: %w", err)
	}
	after, _ := schedule.Find(updated, examID)
	metrics.ExamTransition(string(before.Status), string(after.Status))

	if _, err := s.planReminders(ctx, userID, *p, updated, now); err != nil {
		return nil, err
	}
	return &after, nil
}

// MarkReminderSent records that the reminder for an exam was delivered.
func (s *Service) MarkReminderSent(ctx context.Context, userID, examID string, at time.Time) (*schedule.ScheduledExam, error) {
	defer s.lock(userID)()
	exams, err := s.repos.Exams.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load exams: %w", err)
	}
	updated, err := s.lifecycle.MarkReminderSent(exams, examID, at)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Exams.Save(ctx, userID, updated); err != nil {
		return nil, fmt.Errorf("save exams: %w", err)
	}
	e, _ := schedule.Find(updated, examID)
	return &e, nil
}

// HandleDelivered is the notification callback for delivered reminders.
func (s *Service) HandleDelivered(ctx context.Context, r notification.Reminder) {
	at := s.now()
	if r.SentAt != nil {
		at = *r.SentAt
	}
	if _, err := s.MarkReminderSent(ctx, r.UserID, r.ScheduledExamID, at); err != nil {
		s.logger.Warn().Err(err).
			Str("user_id", r.UserID).
			Str("scheduled_exam_id", r.ScheduledExamID).
			Msg("failed to record reminder delivery")
	}
}

// -- Settings and reminders --

// GetSettings returns the user's reminder settings.
func (s *Service) GetSettings(ctx context.Context, userID string) (reminder.Settings, error) {
	return s.repos.Settings.Get(ctx, userID)
}

// UpdateSettings validates and stores settings, then re-plans reminders with
// the new lead time.
func (s *Service) UpdateSettings(ctx context.Context, userID string, settings reminder.Settings) (reminder.Settings, error) {
	if err := settings.Validate(); err != nil {
		return reminder.Settings{}, err
	}
	defer s.lock(userID)()
	now := s.now()
	settings.UpdatedAt = now
	if err := s.repos.Settings.Save(ctx, userID, settings); err != nil {
		return reminder.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	p, err := s.currentProfile(ctx, userID, now)
	if errors.Is(err, ErrProfileNotFound) {
		return settings, nil
	}
	if err != nil {
		return reminder.Settings{}, err
	}
	exams, err := s.loadOrGenerate(ctx, *p, now)
	if err != nil {
		return reminder.Settings{}, err
	}
	if _, err := s.planReminders(ctx, userID, *p, exams, now); err != nil {
		return reminder.Settings{}, err
	}
	return settings, nil
}

// RefreshReminders recomputes the user's state and replaces all reminders.
func (s *Service) RefreshReminders(ctx context.Context, userID string) (*reminder.Result, error) {
	defer s.lock(userID)()
	return s.refreshUser(ctx, userID)
}

func (s *Service) refreshUser(ctx context.Context, userID string) (*reminder.Result, error) {
	now := s.now()
	p, err := s.currentProfile(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	exams, err := s.loadOrGenerate(ctx, *p, now)
	if err != nil {
		return nil, err
	}
	return s.planReminders(ctx, userID, *p, exams, now)
}

func (s *Service) planReminders(ctx context.Context, userID string, p gestation.PregnancyProfile,
	exams []schedule.ScheduledExam, now time.Time) (*reminder.Result, error) {
	settings, err := s.repos.Settings.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	name := ""
	if patient, err := s.repos.Patients.Get(ctx, userID); err == nil {
		name = patient.Name
	}

	res, err := s.planner.Refresh(ctx, reminder.Request{
		UserID:      userID,
		PatientName: name,
		Age:         p.GestationalAge,
		Exams:       exams,
		Settings:    settings,
		Now:         now,
	})
	if err != nil {
		return nil, err
	}

	skipped := make(map[string]int, len(res.Skipped))
	for reason, n := range res.Skipped {
		skipped[string(reason)] = n
	}
	metrics.RemindersPlanned(len(res.Scheduled), skipped)
	s.logger.Debug().
		Str("user_id", userID).
		Int("scheduled", len(res.Scheduled)).
		Interface("skipped", skipped).
		Msg("reminders refreshed")
	return &res, nil
}

// RefreshAll runs the periodic refresh for every stored profile. A failure
// for one user is logged and does not stop the others.
func (s *Service) RefreshAll(ctx context.Context) (refreshed, failed int, err error) {
	ids, err := s.repos.Profiles.ListUserIDs(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list users: %w", err)
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return refreshed, failed, ctx.Err()
		}
		unlock := s.lock(id)
		_, rerr := s.refreshUser(ctx, id)
		unlock()

		metrics.RefreshOutcome(rerr == nil)
		if rerr != nil {
			failed++
			s.logger.Error().Err(rerr).Str("user_id", id).Msg("refresh failed")
			continue
		}
		refreshed++
	}
	return refreshed, failed, nil
}
